package engine

import (
	"strings"

	"subwatch/internal/reddit"
)

const (
	maxTitleLen = 200
	maxBodyLen  = 500
)

// Render formats the notification text for a matched item. Plain text,
// platform-agnostic; senders handle platform-specific limits.
func Render(item reddit.Item, keyword string) string {
	var b strings.Builder
	b.WriteString("🔍 Keyword: ")
	b.WriteString(keyword)
	b.WriteString("\n\n")

	switch item.Kind {
	case reddit.KindPost:
		b.WriteString("📝 Post: ")
		b.WriteString(truncate(item.Title, maxTitleLen))
		b.WriteString("\n")
		b.WriteString("👤 By: u/")
		b.WriteString(item.Author)
		b.WriteString("\n")
		b.WriteString("📍 Subreddit: r/")
		b.WriteString(item.Subreddit)
		b.WriteString("\n")
		if body := strings.TrimSpace(item.Body); body != "" {
			b.WriteString("\n💬 Content:\n")
			b.WriteString(truncate(body, maxBodyLen))
			b.WriteString("\n")
		}
	default:
		b.WriteString("💬 Comment by: u/")
		b.WriteString(item.Author)
		b.WriteString("\n")
		b.WriteString("📍 Subreddit: r/")
		b.WriteString(item.Subreddit)
		b.WriteString("\n")
		if body := strings.TrimSpace(item.Body); body != "" {
			b.WriteString("\n💭 Comment:\n")
			b.WriteString(truncate(body, maxBodyLen))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n🔗 https://reddit.com")
	b.WriteString(item.Permalink)
	return b.String()
}

func truncate(s string, maxN int) string {
	if len(s) <= maxN {
		return s
	}
	// Cut on a rune boundary so multi-byte text isn't split mid-character.
	cut := maxN
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
