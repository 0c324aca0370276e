package registry

import (
	"errors"
	"testing"
)

func tgDest(chatID int64) Destination {
	return Destination{Platform: PlatformTelegram, ChatID: chatID}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New("owner")
	if _, err := r.AddGroup(Group{ID: "owner", Destination: tgDest(1), Enabled: true}); err != nil {
		t.Fatalf("seed owner group: %v", err)
	}
	return r
}

func TestAddGroupGeneratesID(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	g, err := r.AddGroup(Group{Destination: tgDest(42), Enabled: true})
	if err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, ok := r.Get(g.ID); !ok {
		t.Fatal("group not retrievable by generated id")
	}
}

func TestAddGroupRejectsDuplicateDestination(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	if _, err := r.AddGroup(Group{Destination: tgDest(42)}); err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	if _, err := r.AddGroup(Group{Destination: tgDest(42)}); !errors.Is(err, ErrDuplicateTarget) {
		t.Fatalf("err = %v, want ErrDuplicateTarget", err)
	}
	// Same chat, different thread is a distinct destination.
	if _, err := r.AddGroup(Group{Destination: Destination{Platform: PlatformTelegram, ChatID: 42, ThreadID: 7}}); err != nil {
		t.Fatalf("distinct thread rejected: %v", err)
	}
}

func TestAddGroupValidatesDestination(t *testing.T) {
	t.Parallel()
	r := New("owner")
	tests := []struct {
		name string
		dest Destination
	}{
		{name: "telegram without chat", dest: Destination{Platform: PlatformTelegram}},
		{name: "discord without webhook", dest: Destination{Platform: PlatformDiscord, Webhook: "ftp://nope"}},
		{name: "unknown platform", dest: Destination{Platform: "matrix", ChatID: 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.AddGroup(Group{Destination: tt.dest}); !errors.Is(err, ErrBadDestination) {
				t.Fatalf("err = %v, want ErrBadDestination", err)
			}
		})
	}
}

func TestRemoveGroupOwnerProtected(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	if err := r.RemoveGroup("owner"); !errors.Is(err, ErrOwnerProtected) {
		t.Fatalf("err = %v, want ErrOwnerProtected", err)
	}
	if err := r.RemoveGroup("missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}
}

func TestRemoveGroupCallsPurgeHook(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	g, err := r.AddGroup(Group{Destination: tgDest(42)})
	if err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	var purged string
	r.OnRemove(func(id string) { purged = id })
	if err := r.RemoveGroup(g.ID); err != nil {
		t.Fatalf("RemoveGroup: %v", err)
	}
	if purged != g.ID {
		t.Fatalf("purge hook got %q, want %q", purged, g.ID)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	if _, err := r.AddKeywords("owner", []string{"golang"}, false); err != nil {
		t.Fatalf("AddKeywords: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 1 || len(snap[0].Keywords) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	// Mutating the snapshot must not leak into the registry.
	snap[0].Keywords[0] = "mutated"
	g, _ := r.Get("owner")
	if g.Keywords[0] != "golang" {
		t.Fatalf("registry keyword = %q, snapshot mutation leaked", g.Keywords[0])
	}
}

func TestAddKeywordsReport(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)

	rep, err := r.AddKeywords("owner", []string{"Pain  Killer", "pain killer", "  "}, false)
	if err != nil {
		t.Fatalf("AddKeywords: %v", err)
	}
	// "Pain  Killer" normalizes to "pain killer"; the second entry is then a dup.
	if len(rep.Accepted) != 1 || rep.Accepted[0] != "pain killer" {
		t.Fatalf("Accepted = %v, want [pain killer]", rep.Accepted)
	}
	if len(rep.Rejected) != 2 {
		t.Fatalf("Rejected = %v, want 2 entries", rep.Rejected)
	}

	// Case-sensitive keywords live in a separate set and keep their casing.
	rep, err = r.AddKeywords("owner", []string{"GoLang"}, true)
	if err != nil {
		t.Fatalf("AddKeywords cs: %v", err)
	}
	if len(rep.Accepted) != 1 || rep.Accepted[0] != "GoLang" {
		t.Fatalf("Accepted = %v, want [GoLang]", rep.Accepted)
	}

	g, _ := r.Get("owner")
	if len(g.Keywords) != 1 || len(g.CaseKeywords) != 1 {
		t.Fatalf("keyword sets = %v / %v", g.Keywords, g.CaseKeywords)
	}

	if _, err := r.AddKeywords("missing", []string{"x"}, false); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}
}

func TestRemoveKeywordsReport(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	if _, err := r.AddKeywords("owner", []string{"golang"}, false); err != nil {
		t.Fatalf("AddKeywords: %v", err)
	}
	rep, err := r.RemoveKeywords("owner", []string{"golang", "rust"}, false)
	if err != nil {
		t.Fatalf("RemoveKeywords: %v", err)
	}
	if len(rep.Accepted) != 1 || len(rep.Rejected) != 1 {
		t.Fatalf("report = %+v, want 1 accepted 1 rejected", rep)
	}
	g, _ := r.Get("owner")
	if len(g.Keywords) != 0 {
		t.Fatalf("Keywords = %v, want empty", g.Keywords)
	}
}

func TestDenyWinsOverAllow(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)

	if _, err := r.AddAllow("owner", []string{"r/golang", "rust"}); err != nil {
		t.Fatalf("AddAllow: %v", err)
	}
	// Denying an allowed subreddit moves it to the denylist.
	if _, err := r.AddDeny("owner", []string{"golang"}); err != nil {
		t.Fatalf("AddDeny: %v", err)
	}
	g, _ := r.Get("owner")
	if contains(g.AllowedSubreddits, "golang") {
		t.Fatal("denied subreddit still in allowlist")
	}
	if !contains(g.DeniedSubreddits, "golang") {
		t.Fatal("subreddit missing from denylist")
	}

	// Allowing a denied subreddit is rejected, not silently merged.
	rep, err := r.AddAllow("owner", []string{"golang"})
	if err != nil {
		t.Fatalf("AddAllow: %v", err)
	}
	if len(rep.Rejected) != 1 {
		t.Fatalf("report = %+v, want rejection", rep)
	}
}

func TestMutateSubsRejectsMalformed(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	rep, err := r.AddAllow("owner", []string{"Not A Sub!", ""})
	if err != nil {
		t.Fatalf("AddAllow: %v", err)
	}
	if len(rep.Accepted) != 0 || len(rep.Rejected) != 2 {
		t.Fatalf("report = %+v, want 2 rejections", rep)
	}
}

func TestEligibleSubreddit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		g    Group
		sub  string
		want bool
	}{
		{name: "empty allowlist allows all", g: Group{}, sub: "anything", want: true},
		{name: "deny wins", g: Group{DeniedSubreddits: []string{"spam"}}, sub: "spam", want: false},
		{name: "allowlist member", g: Group{AllowedSubreddits: []string{"golang"}}, sub: "golang", want: true},
		{name: "allowlist non-member", g: Group{AllowedSubreddits: []string{"golang"}}, sub: "rust", want: false},
		{name: "normalized input", g: Group{AllowedSubreddits: []string{"golang"}}, sub: "r/GoLang", want: true},
		{name: "deny beats allow", g: Group{AllowedSubreddits: []string{"golang"}, DeniedSubreddits: []string{"golang"}}, sub: "golang", want: false},
		{name: "empty subreddit", g: Group{}, sub: "", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.EligibleSubreddit(tt.sub); got != tt.want {
				t.Fatalf("EligibleSubreddit(%q) = %v, want %v", tt.sub, got, tt.want)
			}
		})
	}
}

func TestByDestination(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	g, err := r.AddGroup(Group{Destination: Destination{Platform: PlatformTelegram, ChatID: 42, ThreadID: 7}})
	if err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	got, ok := r.ByDestination(Destination{Platform: PlatformTelegram, ChatID: 42, ThreadID: 7})
	if !ok || got.ID != g.ID {
		t.Fatalf("ByDestination = (%v, %v), want group %s", got.ID, ok, g.ID)
	}
	if _, ok := r.ByDestination(tgDest(999)); ok {
		t.Fatal("unexpected hit for unknown destination")
	}
}

func TestRestoreReplacesContents(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	r.Restore([]Group{
		{ID: "a", Destination: tgDest(10), Enabled: true},
		{ID: "", Destination: tgDest(11)}, // skipped: no id
	})
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if _, ok := r.Get("owner"); ok {
		t.Fatal("pre-restore group survived Restore")
	}
}
