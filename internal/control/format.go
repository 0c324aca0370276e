package control

import (
	"fmt"
	"strings"
	"time"

	"subwatch/internal/registry"
	"subwatch/internal/stats"
)

const helpText = `Subreddit watcher commands:

/watch <phrase> - add a case-insensitive keyword
/watchcase <phrase> - add a case-sensitive keyword
/unwatch <phrase> - remove a keyword
/keywords - list this chat's keywords

/allow <sub> [sub ...] - restrict matching to subreddits
/unallow <sub> [sub ...] - lift a restriction
/deny <sub> [sub ...] - block subreddits
/undeny <sub> [sub ...] - unblock subreddits

/enable | /disable - toggle this chat's group
/groups - list all groups
/removegroup <id> - delete a group
/status - engine counters`

func formatReport(noun string, rep registry.Report) string {
	var b strings.Builder
	for _, item := range rep.Accepted {
		fmt.Fprintf(&b, "✅ %s %q\n", noun, item)
	}
	for _, rej := range rep.Rejected {
		fmt.Fprintf(&b, "⛔ %s %q: %s\n", noun, rej.Item, rej.Reason)
	}
	if b.Len() == 0 {
		return "nothing to do"
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatKeywords(g registry.Group) string {
	if len(g.Keywords) == 0 && len(g.CaseKeywords) == 0 {
		return "no keywords configured; add one with /watch <phrase>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Keywords for group %s:\n", g.ID)
	for _, kw := range g.Keywords {
		fmt.Fprintf(&b, "  • %s\n", kw)
	}
	for _, kw := range g.CaseKeywords {
		fmt.Fprintf(&b, "  • %s (case-sensitive)\n", kw)
	}
	if len(g.AllowedSubreddits) > 0 {
		fmt.Fprintf(&b, "Allowed: %s\n", strings.Join(g.AllowedSubreddits, ", "))
	}
	if len(g.DeniedSubreddits) > 0 {
		fmt.Fprintf(&b, "Denied: %s\n", strings.Join(g.DeniedSubreddits, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatGroups(groups []registry.Group, ownerID string) string {
	if len(groups) == 0 {
		return "no groups"
	}
	var b strings.Builder
	for _, g := range groups {
		state := "enabled"
		if !g.Enabled {
			state = "disabled"
		}
		tag := ""
		if g.ID == ownerID {
			tag = " [owner]"
		}
		fmt.Fprintf(&b, "%s%s: %s, %d keywords, %s chat %d\n",
			g.ID, tag, state, len(g.Keywords)+len(g.CaseKeywords),
			g.Destination.Platform, g.Destination.ChatID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatus(s stats.Snapshot, groupCount int) string {
	uptime := time.Since(s.StartedAt).Round(time.Second)
	return fmt.Sprintf(
		"⏱ uptime %s\n"+
			"👥 groups %d\n"+
			"📥 items processed %d\n"+
			"🔍 matches %d\n"+
			"📤 sent %d / dropped %d\n"+
			"📦 queue depth %d\n"+
			"🔄 stream restarts %d, sweep passes %d",
		uptime, groupCount, s.ItemsProcessed, s.MatchesFound,
		s.Sent, s.Dropped, s.QueueDepth, s.StreamRestarts, s.SweepPasses)
}
