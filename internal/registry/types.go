package registry

import (
	"strconv"
	"strings"
)

// Platform identifies which sender delivers to a destination.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
)

// Destination is where a group's notifications are delivered.
// ChatID is used by telegram, Webhook by discord.
type Destination struct {
	Platform Platform `json:"platform"`
	ChatID   int64    `json:"chat_id,omitempty"`
	ThreadID int      `json:"thread_id,omitempty"`
	Webhook  string   `json:"webhook,omitempty"`
}

func (d Destination) Key() string {
	switch d.Platform {
	case PlatformDiscord:
		return string(d.Platform) + ":" + d.Webhook
	default:
		return string(d.Platform) + ":" + strconv.FormatInt(d.ChatID, 10) + ":" + strconv.Itoa(d.ThreadID)
	}
}

// Group is one configured notification destination with its own keyword and
// subreddit filters.
//
// Keywords are matched case-insensitively and stored lowercased.
// CaseKeywords preserve their casing and match case-sensitively.
// An empty AllowedSubreddits means every subreddit is eligible unless denied.
// DeniedSubreddits always wins over AllowedSubreddits.
type Group struct {
	ID          string      `json:"id"`
	Destination Destination `json:"destination"`
	Enabled     bool        `json:"enabled"`

	Keywords          []string `json:"keywords"`
	CaseKeywords      []string `json:"case_keywords"`
	AllowedSubreddits []string `json:"allowed_subreddits"`
	DeniedSubreddits  []string `json:"denied_subreddits"`
}

// Clone returns a deep copy so snapshot readers never alias registry state.
func (g Group) Clone() Group {
	cp := g
	cp.Keywords = append([]string(nil), g.Keywords...)
	cp.CaseKeywords = append([]string(nil), g.CaseKeywords...)
	cp.AllowedSubreddits = append([]string(nil), g.AllowedSubreddits...)
	cp.DeniedSubreddits = append([]string(nil), g.DeniedSubreddits...)
	return cp
}

// EligibleSubreddit reports whether items from the given subreddit may be
// matched for this group: (allowlist empty OR member) AND NOT denied.
func (g Group) EligibleSubreddit(subreddit string) bool {
	sub := NormalizeSubreddit(subreddit)
	if sub == "" {
		return false
	}
	for _, d := range g.DeniedSubreddits {
		if d == sub {
			return false
		}
	}
	if len(g.AllowedSubreddits) == 0 {
		return true
	}
	for _, a := range g.AllowedSubreddits {
		if a == sub {
			return true
		}
	}
	return false
}

// NormalizeSubreddit lowercases and strips a leading "r/" or "/r/".
func NormalizeSubreddit(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, "r/")
	return s
}
