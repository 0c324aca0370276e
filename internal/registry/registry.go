// Package registry holds the in-memory configuration of notification groups.
//
// Producers read via point-in-time snapshots; command handlers mutate under a
// lock. Batch mutations report a per-item accepted/rejected outcome so operator
// commands are fully auditable: adding an existing keyword or removing a
// missing one is rejected, not silently ignored.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrGroupExists     = errors.New("group already exists")
	ErrGroupNotFound   = errors.New("group not found")
	ErrOwnerProtected  = errors.New("owner group cannot be removed")
	ErrDuplicateTarget = errors.New("destination already used by another group")
	ErrBadDestination  = errors.New("invalid destination")
)

// Rejected explains why one item of a batch operation was not applied.
type Rejected struct {
	Item   string
	Reason string
}

// Report is the per-item outcome of a batch mutation.
type Report struct {
	Accepted []string
	Rejected []Rejected
}

func (r *Report) accept(item string) { r.Accepted = append(r.Accepted, item) }
func (r *Report) reject(item, reason string) {
	r.Rejected = append(r.Rejected, Rejected{Item: item, Reason: reason})
}

var subredditRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{0,50}$`)

// Registry is a keyed store of Groups. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	groups  map[string]*Group
	ownerID string

	// onRemove purges per-group state owned elsewhere (dedup index).
	// Called with the registry lock held; it must not call back in.
	onRemove func(groupID string)
}

func New(ownerID string) *Registry {
	return &Registry{groups: map[string]*Group{}, ownerID: ownerID}
}

// OnRemove installs the purge hook invoked when a group is removed.
func (r *Registry) OnRemove(fn func(groupID string)) {
	r.mu.Lock()
	r.onRemove = fn
	r.mu.Unlock()
}

func (r *Registry) OwnerID() string { return r.ownerID }

// Snapshot returns deep copies of all groups, sorted by id, so a producer
// never observes a group mid-mutation.
func (r *Registry) Snapshot() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByDestination finds the group configured for a destination.
func (r *Registry) ByDestination(d Destination) (Group, bool) {
	key := d.Key()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.groups {
		if g.Destination.Key() == key {
			return g.Clone(), true
		}
	}
	return Group{}, false
}

// Get returns a deep copy of one group.
func (r *Registry) Get(id string) (Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return Group{}, false
	}
	return g.Clone(), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// AddGroup registers a new destination. An empty id gets a generated one.
// The returned group is a copy with the final id filled in.
func (r *Registry) AddGroup(g Group) (Group, error) {
	if err := validateDestination(g.Destination); err != nil {
		return Group{}, err
	}
	g = g.Clone()
	if strings.TrimSpace(g.ID) == "" {
		g.ID = uuid.NewString()
	}
	g.Keywords = normalizeKeywords(g.Keywords, true)
	g.CaseKeywords = normalizeKeywords(g.CaseKeywords, false)
	g.AllowedSubreddits = normalizeSubs(g.AllowedSubreddits)
	g.DeniedSubreddits = normalizeSubs(g.DeniedSubreddits)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.ID]; ok {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupExists, g.ID)
	}
	key := g.Destination.Key()
	for _, other := range r.groups {
		if other.Destination.Key() == key {
			return Group{}, fmt.Errorf("%w: %s", ErrDuplicateTarget, other.ID)
		}
	}
	stored := g.Clone()
	r.groups[g.ID] = &stored
	return g, nil
}

// RemoveGroup deletes a group and purges its dedup state. The distinguished
// owner group is rejected.
func (r *Registry) RemoveGroup(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == r.ownerID {
		return ErrOwnerProtected
	}
	if _, ok := r.groups[id]; !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	delete(r.groups, id)
	if r.onRemove != nil {
		r.onRemove(id)
	}
	return nil
}

func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	g.Enabled = enabled
	return nil
}

// AddKeywords adds case-insensitive (or case-sensitive) keywords to a group.
// Already-present and empty keywords are reported as rejected.
func (r *Registry) AddKeywords(id string, keywords []string, caseSensitive bool) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	var rep Report
	for _, raw := range keywords {
		kw := normalizeKeyword(raw, !caseSensitive)
		if kw == "" {
			rep.reject(raw, "empty keyword")
			continue
		}
		set := &g.Keywords
		if caseSensitive {
			set = &g.CaseKeywords
		}
		if contains(*set, kw) {
			rep.reject(kw, "already present")
			continue
		}
		*set = append(*set, kw)
		rep.accept(kw)
	}
	return rep, nil
}

// RemoveKeywords removes keywords; missing ones are reported as rejected.
func (r *Registry) RemoveKeywords(id string, keywords []string, caseSensitive bool) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	var rep Report
	for _, raw := range keywords {
		kw := normalizeKeyword(raw, !caseSensitive)
		set := &g.Keywords
		if caseSensitive {
			set = &g.CaseKeywords
		}
		if !contains(*set, kw) {
			rep.reject(kw, "not present")
			continue
		}
		*set = remove(*set, kw)
		rep.accept(kw)
	}
	return rep, nil
}

// AddAllow adds subreddits to the allowlist. Malformed names are rejected.
func (r *Registry) AddAllow(id string, subs []string) (Report, error) {
	return r.mutateSubs(id, subs, func(g *Group, sub string, rep *Report) {
		if contains(g.DeniedSubreddits, sub) {
			rep.reject(sub, "denied; remove from deny first")
			return
		}
		if contains(g.AllowedSubreddits, sub) {
			rep.reject(sub, "already allowed")
			return
		}
		g.AllowedSubreddits = append(g.AllowedSubreddits, sub)
		rep.accept(sub)
	})
}

func (r *Registry) RemoveAllow(id string, subs []string) (Report, error) {
	return r.mutateSubs(id, subs, func(g *Group, sub string, rep *Report) {
		if !contains(g.AllowedSubreddits, sub) {
			rep.reject(sub, "not in allowlist")
			return
		}
		g.AllowedSubreddits = remove(g.AllowedSubreddits, sub)
		rep.accept(sub)
	})
}

// AddDeny adds subreddits to the denylist. A subreddit present in the
// allowlist is removed from it here, so deny always wins.
func (r *Registry) AddDeny(id string, subs []string) (Report, error) {
	return r.mutateSubs(id, subs, func(g *Group, sub string, rep *Report) {
		if contains(g.DeniedSubreddits, sub) {
			rep.reject(sub, "already denied")
			return
		}
		g.AllowedSubreddits = remove(g.AllowedSubreddits, sub)
		g.DeniedSubreddits = append(g.DeniedSubreddits, sub)
		rep.accept(sub)
	})
}

func (r *Registry) RemoveDeny(id string, subs []string) (Report, error) {
	return r.mutateSubs(id, subs, func(g *Group, sub string, rep *Report) {
		if !contains(g.DeniedSubreddits, sub) {
			rep.reject(sub, "not in denylist")
			return
		}
		g.DeniedSubreddits = remove(g.DeniedSubreddits, sub)
		rep.accept(sub)
	})
}

// Restore replaces the registry contents (startup only, before producers run).
func (r *Registry) Restore(groups []Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = make(map[string]*Group, len(groups))
	for _, g := range groups {
		if strings.TrimSpace(g.ID) == "" {
			continue
		}
		cp := g.Clone()
		r.groups[g.ID] = &cp
	}
}

func (r *Registry) mutateSubs(id string, subs []string, apply func(*Group, string, *Report)) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	var rep Report
	for _, raw := range subs {
		sub := NormalizeSubreddit(raw)
		if !subredditRe.MatchString(sub) {
			rep.reject(raw, "malformed subreddit")
			continue
		}
		apply(g, sub, &rep)
	}
	return rep, nil
}

func validateDestination(d Destination) error {
	switch d.Platform {
	case PlatformTelegram:
		if d.ChatID == 0 {
			return fmt.Errorf("%w: telegram chat_id required", ErrBadDestination)
		}
	case PlatformDiscord:
		if !strings.HasPrefix(d.Webhook, "https://") {
			return fmt.Errorf("%w: discord webhook url required", ErrBadDestination)
		}
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrBadDestination, d.Platform)
	}
	return nil
}

func normalizeKeyword(s string, fold bool) string {
	s = strings.Join(strings.Fields(s), " ")
	if fold {
		s = strings.ToLower(s)
	}
	return s
}

func normalizeKeywords(in []string, fold bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		kw := normalizeKeyword(s, fold)
		if kw != "" && !contains(out, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func normalizeSubs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		sub := NormalizeSubreddit(s)
		if subredditRe.MatchString(sub) && !contains(out, sub) {
			out = append(out, sub)
		}
	}
	return out
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func remove(ss []string, v string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
