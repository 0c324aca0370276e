// Package dedup tracks which item ids each group has already been notified
// about, with order-aware bounded retention.
//
// Bounding by slicing an unordered set does not reliably keep the most recent
// ids, so each group keeps an insertion-ordered ring alongside a membership
// set: when a group's set grows past the high watermark, the oldest entries
// are evicted down to the low watermark. Inside the retained window the index
// guarantees at-most-one notification per (group, item); beyond it duplicate
// suppression is a documented bounded-memory trade-off.
package dedup

import "sync"

const (
	// DefaultHighWater / DefaultLowWater mirror the 10000/5000 retention the
	// persisted processed-item set has always used.
	DefaultHighWater = 10000
	DefaultLowWater  = 5000
)

type groupSet struct {
	mu     sync.Mutex
	order  []string
	member map[string]struct{}
}

// Index is the shared per-group seen-item store. Both producers (stream and
// sweep) must route through the same Index so racing on one item yields at
// most one notification.
type Index struct {
	mu     sync.RWMutex
	groups map[string]*groupSet

	high int
	low  int
}

func New(highWater, lowWater int) *Index {
	if highWater <= 0 {
		highWater = DefaultHighWater
	}
	if lowWater <= 0 || lowWater >= highWater {
		lowWater = highWater / 2
	}
	return &Index{groups: map[string]*groupSet{}, high: highWater, low: lowWater}
}

func (x *Index) group(id string, create bool) *groupSet {
	x.mu.RLock()
	gs := x.groups[id]
	x.mu.RUnlock()
	if gs != nil || !create {
		return gs
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if gs = x.groups[id]; gs == nil {
		gs = &groupSet{member: map[string]struct{}{}}
		x.groups[id] = gs
	}
	return gs
}

// Seen reports whether the item was already notified for the group.
func (x *Index) Seen(groupID, itemID string) bool {
	gs := x.group(groupID, false)
	if gs == nil {
		return false
	}
	gs.mu.Lock()
	_, ok := gs.member[itemID]
	gs.mu.Unlock()
	return ok
}

// CheckAndMark atomically records the item for the group. It returns true
// exactly once per (group, item) inside the retained window: the caller that
// gets true owns the notification.
func (x *Index) CheckAndMark(groupID, itemID string) bool {
	if groupID == "" || itemID == "" {
		return false
	}
	gs := x.group(groupID, true)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if _, ok := gs.member[itemID]; ok {
		return false
	}
	gs.member[itemID] = struct{}{}
	gs.order = append(gs.order, itemID)
	if len(gs.order) > x.high {
		gs.trim(x.low)
	}
	return true
}

// trim evicts oldest entries down to keep entries. Caller holds gs.mu.
func (gs *groupSet) trim(keep int) {
	drop := len(gs.order) - keep
	if drop <= 0 {
		return
	}
	for _, id := range gs.order[:drop] {
		delete(gs.member, id)
	}
	rest := make([]string, keep)
	copy(rest, gs.order[drop:])
	gs.order = rest
}

// Len returns the number of retained ids for a group.
func (x *Index) Len(groupID string) int {
	gs := x.group(groupID, false)
	if gs == nil {
		return 0
	}
	gs.mu.Lock()
	n := len(gs.order)
	gs.mu.Unlock()
	return n
}

// Forget drops all state for a group (called when the group is removed).
func (x *Index) Forget(groupID string) {
	x.mu.Lock()
	delete(x.groups, groupID)
	x.mu.Unlock()
}

// Snapshot copies every group's ids in insertion order, for persistence.
func (x *Index) Snapshot() map[string][]string {
	x.mu.RLock()
	ids := make([]string, 0, len(x.groups))
	for id := range x.groups {
		ids = append(ids, id)
	}
	x.mu.RUnlock()

	out := make(map[string][]string, len(ids))
	for _, id := range ids {
		gs := x.group(id, false)
		if gs == nil {
			continue
		}
		gs.mu.Lock()
		out[id] = append([]string(nil), gs.order...)
		gs.mu.Unlock()
	}
	return out
}

// Restore replaces the index contents (startup only, before producers run).
// Input order is preserved as insertion order; oversized groups are trimmed.
func (x *Index) Restore(snapshot map[string][]string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.groups = make(map[string]*groupSet, len(snapshot))
	for id, order := range snapshot {
		gs := &groupSet{member: make(map[string]struct{}, len(order))}
		for _, item := range order {
			if _, ok := gs.member[item]; ok {
				continue
			}
			gs.member[item] = struct{}{}
			gs.order = append(gs.order, item)
		}
		if len(gs.order) > x.high {
			gs.trim(x.low)
		}
		x.groups[id] = gs
	}
}
