package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"subwatch/internal/registry"
	"subwatch/pkg/logx"
)

func testState() *State {
	return &State{
		Groups: []registry.Group{
			{
				ID:      "owner",
				Enabled: true,
				Destination: registry.Destination{
					Platform: registry.PlatformTelegram,
					ChatID:   -100123,
				},
				Keywords: []string{"pain killer"},
			},
		},
		Dedup: map[string][]string{"owner": {"t1_a", "t3_b"}},
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = (%v, %v), want disabled", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if _, err := st.Load(ctx); !errors.Is(err, ErrNoState) {
		t.Fatalf("Load before save = %v, want ErrNoState", err)
	}

	if err := st.Save(ctx, testState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Groups) != 1 || got.Groups[0].ID != "owner" {
		t.Fatalf("groups = %+v", got.Groups)
	}
	if got.Groups[0].Keywords[0] != "pain killer" {
		t.Fatalf("keywords = %v", got.Groups[0].Keywords)
	}
	if ids := got.Dedup["owner"]; len(ids) != 2 || ids[0] != "t1_a" {
		t.Fatalf("dedup = %v, want preserved order", ids)
	}
	if got.SavedAt.IsZero() {
		t.Fatal("SavedAt not stamped")
	}
}

func TestFileStoreOverwrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if err := st.Save(ctx, testState()); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	next := testState()
	next.Groups[0].Keywords = []string{"golang"}
	if err := st.Save(ctx, next); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Groups[0].Keywords[0] != "golang" {
		t.Fatalf("keywords = %v, want latest snapshot", got.Groups[0].Keywords)
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if _, err := st.Load(ctx); !errors.Is(err, ErrNoState) {
		t.Fatalf("Load before save = %v, want ErrNoState", err)
	}
	if err := st.Save(ctx, testState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Saving again upserts the single row rather than erroring.
	if err := st.Save(ctx, testState()); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Groups) != 1 || got.Groups[0].Destination.ChatID != -100123 {
		t.Fatalf("groups = %+v", got.Groups)
	}
}
