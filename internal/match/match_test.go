package match

import "testing"

func TestMatchesWordBoundary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		text   string
		phrase string
		want   bool
	}{
		{name: "exact phrase", text: "need a pain killer now", phrase: "pain killer", want: true},
		{name: "no substring hit", text: "painkiller is one word", phrase: "pain killer", want: false},
		{name: "no partial token", text: "pain killers hurt", phrase: "pain killer", want: false},
		{name: "punctuation is boundary", text: "got a pain killer, thanks", phrase: "pain killer", want: true},
		{name: "phrase at start", text: "pain killer recommendations?", phrase: "pain killer", want: true},
		{name: "phrase at end", text: "anyone know a good pain killer", phrase: "pain killer", want: true},
		{name: "extra whitespace in text", text: "pain   killer", phrase: "pain killer", want: true},
		{name: "extra whitespace in phrase", text: "pain killer", phrase: "pain   killer", want: true},
		{name: "newline between tokens", text: "pain\nkiller", phrase: "pain killer", want: true},
		{name: "single keyword", text: "this mentions golang somewhere", phrase: "golang", want: true},
		{name: "keyword inside word", text: "golanguage is not a word", phrase: "golang", want: false},
		{name: "regex metachars quoted", text: "price is $5.99 today", phrase: "$5.99", want: true},
		{name: "symbol-led phrase at text start", text: "$5.99 is the price", phrase: "$5.99", want: true},
		{name: "symbol-led phrase after punctuation", text: "reduced ($5.99) today", phrase: "$5.99", want: true},
		{name: "symbol-led phrase glued to word", text: "costs US$5.99 here", phrase: "$5.99", want: false},
		{name: "ticker symbol", text: "going all in on $GME today", phrase: "$GME", want: true},
		{name: "symbol-tailed phrase", text: "learning c++ this year", phrase: "c++", want: true},
		{name: "symbol-tailed phrase at text end", text: "I still write c++", phrase: "c++", want: true},
		{name: "symbol-tailed phrase glued to word", text: "c++x only", phrase: "c++", want: false},
		{name: "empty text", text: "", phrase: "golang", want: false},
		{name: "empty phrase", text: "something", phrase: "  ", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.text, tt.phrase, false); got != tt.want {
				t.Fatalf("Matches(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
			}
		})
	}
}

func TestMatchesCaseSensitivity(t *testing.T) {
	t.Parallel()
	if !Matches("I love GoLang", "golang", false) {
		t.Fatal("case-insensitive match should fold case")
	}
	if Matches("I love GoLang", "golang", true) {
		t.Fatal("case-sensitive match must not fold case")
	}
	if !Matches("I love GoLang", "GoLang", true) {
		t.Fatal("case-sensitive exact case should match")
	}
}

func TestFirstMatchOrder(t *testing.T) {
	t.Parallel()

	// Case-insensitive keywords win in configured order, title before body.
	kw, ok := FirstMatch("rust and go", "only go here", []string{"go", "rust"}, nil)
	if !ok || kw != "go" {
		t.Fatalf("FirstMatch = (%q, %v), want (go, true)", kw, ok)
	}

	// A case-sensitive keyword is only consulted when no ci keyword hits.
	kw, ok = FirstMatch("GoLang news", "", []string{"python"}, []string{"GoLang"})
	if !ok || kw != "GoLang" {
		t.Fatalf("FirstMatch = (%q, %v), want (GoLang, true)", kw, ok)
	}

	// ci hit shadows a cs keyword that would also match.
	kw, ok = FirstMatch("GoLang news", "", []string{"news"}, []string{"GoLang"})
	if !ok || kw != "news" {
		t.Fatalf("FirstMatch = (%q, %v), want (news, true)", kw, ok)
	}

	if _, ok := FirstMatch("nothing relevant", "", []string{"golang"}, []string{"Rust"}); ok {
		t.Fatal("expected no match")
	}
}

func TestMatchesBodyOnly(t *testing.T) {
	t.Parallel()
	kw, ok := FirstMatch("boring title", "but the body says pain killer", []string{"pain killer"}, nil)
	if !ok || kw != "pain killer" {
		t.Fatalf("FirstMatch = (%q, %v), want body hit", kw, ok)
	}
}
