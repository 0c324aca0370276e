// Package control is the operator command surface: a flat set of Telegram
// commands mapped onto the registry mutation operations and the stats
// snapshot. Commands are restricted to configured owner user ids.
//
// A command always acts on the group bound to the chat it was issued in;
// /watch in a chat with no group yet creates one on the fly.
package control

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"subwatch/internal/registry"
	"subwatch/internal/stats"
	"subwatch/pkg/logx"
)

type Control struct {
	registry *registry.Registry
	stats    *stats.Collector
	owners   map[int64]bool
	log      logx.Logger
}

func New(reg *registry.Registry, st *stats.Collector, ownerIDs []int64, log logx.Logger) *Control {
	owners := make(map[int64]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Control{registry: reg, stats: st, owners: owners, log: log}
}

// Register attaches all command handlers. Call before the bot starts polling.
func (ct *Control) Register(bot *tele.Bot) {
	guard := func(h func(tele.Context) error) func(tele.Context) error {
		return func(c tele.Context) error {
			if c.Sender() == nil || !ct.owners[c.Sender().ID] {
				return nil // silently ignore non-owners
			}
			return h(c)
		}
	}

	bot.Handle("/watch", guard(func(c tele.Context) error { return ct.addKeyword(c, false) }))
	bot.Handle("/watchcase", guard(func(c tele.Context) error { return ct.addKeyword(c, true) }))
	bot.Handle("/unwatch", guard(ct.removeKeyword))
	bot.Handle("/keywords", guard(ct.listKeywords))
	bot.Handle("/allow", guard(func(c tele.Context) error { return ct.subs(c, ct.registry.AddAllow) }))
	bot.Handle("/unallow", guard(func(c tele.Context) error { return ct.subs(c, ct.registry.RemoveAllow) }))
	bot.Handle("/deny", guard(func(c tele.Context) error { return ct.subs(c, ct.registry.AddDeny) }))
	bot.Handle("/undeny", guard(func(c tele.Context) error { return ct.subs(c, ct.registry.RemoveDeny) }))
	bot.Handle("/enable", guard(func(c tele.Context) error { return ct.setEnabled(c, true) }))
	bot.Handle("/disable", guard(func(c tele.Context) error { return ct.setEnabled(c, false) }))
	bot.Handle("/groups", guard(ct.listGroups))
	bot.Handle("/removegroup", guard(ct.removeGroup))
	bot.Handle("/status", guard(ct.status))
	bot.Handle("/help", guard(ct.help))
	bot.Handle("/start", guard(ct.help))
}

// group resolves (or creates) the group bound to the chat a command came from.
func (ct *Control) group(c tele.Context) (registry.Group, error) {
	dest := registry.Destination{
		Platform: registry.PlatformTelegram,
		ChatID:   c.Chat().ID,
		ThreadID: threadID(c),
	}
	if g, ok := ct.registry.ByDestination(dest); ok {
		return g, nil
	}
	g, err := ct.registry.AddGroup(registry.Group{Destination: dest, Enabled: true})
	if err != nil {
		return registry.Group{}, err
	}
	ct.log.Info("group created", logx.String("group", g.ID), logx.Int64("chat_id", dest.ChatID))
	return g, nil
}

func (ct *Control) addKeyword(c tele.Context, caseSensitive bool) error {
	phrase := strings.TrimSpace(c.Message().Payload)
	if phrase == "" {
		return c.Send("Usage: /watch <keyword or phrase>\nExample: /watch pain killer")
	}
	g, err := ct.group(c)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	rep, err := ct.registry.AddKeywords(g.ID, []string{phrase}, caseSensitive)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	return c.Send(formatReport("keyword", rep))
}

func (ct *Control) removeKeyword(c tele.Context) error {
	phrase := strings.TrimSpace(c.Message().Payload)
	if phrase == "" {
		return c.Send("Usage: /unwatch <keyword or phrase>")
	}
	g, err := ct.group(c)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	rep, err := ct.registry.RemoveKeywords(g.ID, []string{phrase}, false)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	if len(rep.Accepted) == 0 {
		// Not a case-insensitive keyword; try the case-sensitive set.
		rep, err = ct.registry.RemoveKeywords(g.ID, []string{phrase}, true)
		if err != nil {
			return c.Send("⛔ " + err.Error())
		}
	}
	return c.Send(formatReport("keyword", rep))
}

func (ct *Control) listKeywords(c tele.Context) error {
	g, err := ct.group(c)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	return c.Send(formatKeywords(g))
}

func (ct *Control) subs(c tele.Context, op func(string, []string) (registry.Report, error)) error {
	args := strings.Fields(c.Message().Payload)
	if len(args) == 0 {
		return c.Send("Usage: <command> <subreddit> [subreddit ...]")
	}
	g, err := ct.group(c)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	rep, err := op(g.ID, args)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	return c.Send(formatReport("subreddit", rep))
}

func (ct *Control) setEnabled(c tele.Context, enabled bool) error {
	g, err := ct.group(c)
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	if err := ct.registry.SetEnabled(g.ID, enabled); err != nil {
		return c.Send("⛔ " + err.Error())
	}
	if enabled {
		return c.Send("✅ group enabled")
	}
	return c.Send("✅ group disabled")
}

func (ct *Control) listGroups(c tele.Context) error {
	return c.Send(formatGroups(ct.registry.Snapshot(), ct.registry.OwnerID()))
}

func (ct *Control) removeGroup(c tele.Context) error {
	id := strings.TrimSpace(c.Message().Payload)
	if id == "" {
		return c.Send("Usage: /removegroup <group id>")
	}
	if err := ct.registry.RemoveGroup(id); err != nil {
		return c.Send("⛔ " + err.Error())
	}
	return c.Send(fmt.Sprintf("✅ removed group %s", id))
}

func (ct *Control) status(c tele.Context) error {
	return c.Send(formatStatus(ct.stats.Snapshot(), ct.registry.Len()))
}

func (ct *Control) help(c tele.Context) error {
	return c.Send(helpText)
}

func threadID(c tele.Context) int {
	if m := c.Message(); m != nil {
		return m.ThreadID
	}
	return 0
}
