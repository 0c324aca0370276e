// Package storage persists the registry + dedup snapshot across restarts.
//
// Persistence is best-effort: a failed load starts the engine from an empty
// registry with a boot-time warning, a failed save is logged and retried on
// the next cycle. Neither is ever fatal.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"subwatch/internal/registry"
	"subwatch/pkg/logx"
)

// Config selects the persistence driver.
//
// Driver values:
//   - "file": JSON snapshot file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// State is the full persisted snapshot.
type State struct {
	SavedAt time.Time           `json:"saved_at"`
	Groups  []registry.Group    `json:"groups"`
	Dedup   map[string][]string `json:"dedup"`
}

// Store is the persistence gateway used by the app.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
	Close() error
}

// ErrNoState is returned by Load when nothing was persisted yet.
var ErrNoState = errors.New("no persisted state")

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
