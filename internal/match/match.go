// Package match implements exact-phrase, word-boundary text matching.
//
// A phrase matches when its token sequence appears as a contiguous run in the
// text, delimited by non-word characters on both sides. "pain killer" matches
// "need a pain killer now" but not "painkiller" or "pain killers"... it does
// match "pain killer," because punctuation is a boundary.
package match

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// patterns caches compiled phrase patterns. Phrase sets are small and mutate
// rarely, so the cache is never evicted.
var (
	patMu    sync.RWMutex
	patterns = map[string]*regexp.Regexp{}
)

// Matches reports whether phrase appears in text as a boundary-delimited
// contiguous token run. Case-folded unless caseSensitive.
// Empty text or phrase never matches.
func Matches(text, phrase string, caseSensitive bool) bool {
	if text == "" || strings.TrimSpace(phrase) == "" {
		return false
	}
	re := compile(phrase, caseSensitive)
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// FirstMatch evaluates a group's keyword sets against title and body.
//
// Case-insensitive keywords run first, in configured order, title before
// body; any hit returns immediately. Case-sensitive keywords are only
// consulted when no case-insensitive keyword matched.
func FirstMatch(title, body string, keywords, caseKeywords []string) (string, bool) {
	for _, kw := range keywords {
		if Matches(title, kw, false) || Matches(body, kw, false) {
			return kw, true
		}
	}
	for _, kw := range caseKeywords {
		if Matches(title, kw, true) || Matches(body, kw, true) {
			return kw, true
		}
	}
	return "", false
}

func compile(phrase string, caseSensitive bool) *regexp.Regexp {
	key := "ci\x00" + phrase
	if caseSensitive {
		key = "cs\x00" + phrase
	}

	patMu.RLock()
	re := patterns[key]
	patMu.RUnlock()
	if re != nil {
		return re
	}

	expr := buildExpr(phrase, caseSensitive)
	compiled, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}

	patMu.Lock()
	patterns[key] = compiled
	patMu.Unlock()
	return compiled
}

// buildExpr normalizes internal whitespace so "pain  killer" and
// "pain killer" are the same phrase. An edge anchors on \b only when the
// phrase starts or ends with a word character; \b needs a word character on
// one side, so edges like "$" or "+" get an explicit non-word guard instead
// ("$5.99" and "c++" would otherwise never match anything).
func buildExpr(phrase string, caseSensitive bool) string {
	toks := strings.Fields(phrase)
	quoted := make([]string, len(toks))
	for i, t := range toks {
		quoted[i] = regexp.QuoteMeta(t)
	}

	first, _ := utf8.DecodeRuneInString(toks[0])
	lead := `(?:^|[^0-9A-Za-z_])`
	if isWordChar(first) {
		lead = `\b`
	}
	last, _ := utf8.DecodeLastRuneInString(toks[len(toks)-1])
	trail := `(?:[^0-9A-Za-z_]|$)`
	if isWordChar(last) {
		trail = `\b`
	}

	expr := lead + strings.Join(quoted, `\s+`) + trail
	if !caseSensitive {
		expr = `(?i)` + expr
	}
	return expr
}

// isWordChar mirrors the regexp \w class, which is what \b delimits on.
func isWordChar(r rune) bool {
	return r == '_' ||
		('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z')
}
