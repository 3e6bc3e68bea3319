package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// Mapping is an immutable snapshot mapping chunk IDs and declared parent IDs
// to authoritative document IDs. Every key maps to at most one document.
// A new snapshot replaces an old one as a whole; none is ever mutated.
type Mapping struct {
	version       string
	builtAt       time.Time
	authoritative map[string]struct{}
	byChunk       map[string]string
	byDeclared    map[string]string
	conflicts     []string
}

// Version returns the document store version the snapshot was built from.
func (m *Mapping) Version() string {
	return m.version
}

// BuiltAt returns when the snapshot was built.
func (m *Mapping) BuiltAt() time.Time {
	return m.builtAt
}

// Conflicts returns the keys claimed by more than one document, sorted.
// They are excluded from the mapping.
func (m *Mapping) Conflicts() []string {
	return append([]string(nil), m.conflicts...)
}

// LookupChunk returns the authoritative document verified to own chunkID.
func (m *Mapping) LookupChunk(chunkID string) (string, bool) {
	id, ok := m.byChunk[chunkID]
	return id, ok
}

// LookupDeclared returns the authoritative document for a declared parent ID.
func (m *Mapping) LookupDeclared(declared string) (string, bool) {
	id, ok := m.byDeclared[declared]
	return id, ok
}

// IsAuthoritative returns true if docID exists in the document store snapshot.
func (m *Mapping) IsAuthoritative(docID string) bool {
	_, ok := m.authoritative[docID]
	return ok
}

// Equal compares the content of two snapshots, ignoring build time.
func (m *Mapping) Equal(o *Mapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.version == o.version &&
		sameKeys(m.authoritative, o.authoritative) &&
		sameEntries(m.byChunk, o.byChunk) &&
		sameEntries(m.byDeclared, o.byDeclared) &&
		sameStrings(m.conflicts, o.conflicts)
}

// Stats summarises the snapshot.
func (m *Mapping) Stats() driving.MappingStats {
	aliases := 0
	for declared, docID := range m.byDeclared {
		if declared != docID {
			aliases++
		}
	}
	return driving.MappingStats{
		Version:   m.version,
		BuiltAt:   m.builtAt,
		Documents: len(m.authoritative),
		Aliases:   aliases,
		Chunks:    len(m.byChunk),
		Conflicts: len(m.conflicts),
		Built:     true,
	}
}

// BuildMapping scans the document store and builds a fresh snapshot.
//
// Authoritative IDs map to themselves. Aliases and chunk links map to the
// document that claims them; a key claimed by two documents is recorded as a
// conflict and left out. An alias equal to another authoritative ID is a
// conflict too, and the identity entry wins.
func BuildMapping(ctx context.Context, store driven.DocumentStore, now time.Time) (*Mapping, error) {
	// Read the version first: a change during the scan shows up as
	// staleness on the next heartbeat.
	version, err := store.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store version: %w", err)
	}

	ids, err := store.ListParentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing parent ids: %w", err)
	}
	sort.Strings(ids)

	authoritative := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		authoritative[id] = struct{}{}
	}

	aliasClaims := make(map[string]map[string]struct{})
	chunkClaims := make(map[string]map[string]struct{})
	for _, id := range ids {
		links, err := store.ParentLinks(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reading links of %s: %w", id, err)
		}
		for _, alias := range links.Aliases {
			if alias != "" && alias != id {
				claim(aliasClaims, alias, id)
			}
		}
		for _, chunkID := range links.ChunkIDs {
			if chunkID != "" {
				claim(chunkClaims, chunkID, id)
			}
		}
	}

	var conflicts []string
	byDeclared := make(map[string]string, len(ids)+len(aliasClaims))
	for alias, owners := range aliasClaims {
		if _, isDoc := authoritative[alias]; isDoc || len(owners) > 1 {
			conflicts = append(conflicts, "alias:"+alias)
			continue
		}
		byDeclared[alias] = soleOwner(owners)
	}
	for _, id := range ids {
		byDeclared[id] = id
	}

	byChunk := make(map[string]string, len(chunkClaims))
	for chunkID, owners := range chunkClaims {
		if len(owners) > 1 {
			conflicts = append(conflicts, "chunk:"+chunkID)
			continue
		}
		byChunk[chunkID] = soleOwner(owners)
	}
	sort.Strings(conflicts)

	return &Mapping{
		version:       version,
		builtAt:       now,
		authoritative: authoritative,
		byChunk:       byChunk,
		byDeclared:    byDeclared,
		conflicts:     conflicts,
	}, nil
}

// MappingCache owns the process-wide parent mapping.
//
// Readers load the current snapshot without locking. Rebuilds run at most
// once at a time and swap the snapshot atomically, so readers see either the
// old or the new complete mapping. Staleness is detected by comparing the
// document store version against the snapshot, at most once per heartbeat.
type MappingCache struct {
	store     driven.DocumentStore
	heartbeat time.Duration
	now       func() time.Time

	current    atomic.Pointer[Mapping]
	group      singleflight.Group
	rebuilding atomic.Bool
	lastCheck  atomic.Int64
	stale      atomic.Bool

	wg sync.WaitGroup
}

// Ensure MappingCache implements the interface.
var _ driving.MappingService = (*MappingCache)(nil)

// NewMappingCache creates an empty cache. The first query or an explicit
// Refresh builds the initial snapshot.
func NewMappingCache(store driven.DocumentStore, heartbeat time.Duration) *MappingCache {
	return &MappingCache{
		store:     store,
		heartbeat: heartbeat,
		now:       time.Now,
	}
}

// Snapshot returns the current mapping, or nil if none was built yet.
func (c *MappingCache) Snapshot() *Mapping {
	return c.current.Load()
}

// Ensure returns the current mapping, building it synchronously if needed.
func (c *MappingCache) Ensure(ctx context.Context) (*Mapping, error) {
	if m := c.current.Load(); m != nil {
		return m, nil
	}
	return c.Rebuild(ctx)
}

// Rebuild builds a new snapshot and swaps it in. Concurrent calls share one build.
// On failure the previous snapshot stays in place.
func (c *MappingCache) Rebuild(ctx context.Context) (*Mapping, error) {
	v, err, _ := c.group.Do("rebuild", func() (any, error) {
		c.rebuilding.Store(true)
		defer c.rebuilding.Store(false)

		m, err := BuildMapping(ctx, c.store, c.now())
		if err != nil {
			return nil, err
		}
		c.current.Store(m)
		c.stale.Store(false)
		c.lastCheck.Store(c.now().UnixNano())
		logger.Info("parent mapping %s built: %d documents, %d chunk links, %d conflicts",
			m.version, len(m.authoritative), len(m.byChunk), len(m.conflicts))
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("rebuilding parent mapping: %w", err)
	}
	return v.(*Mapping), nil
}

// Refresh rebuilds the mapping synchronously.
func (c *MappingCache) Refresh(ctx context.Context) (driving.MappingStats, error) {
	m, err := c.Rebuild(ctx)
	if err != nil {
		return c.Stats(), err
	}
	return m.Stats(), nil
}

// Stats describes the current snapshot.
func (c *MappingCache) Stats() driving.MappingStats {
	stats := driving.MappingStats{}
	if m := c.current.Load(); m != nil {
		stats = m.Stats()
	}
	stats.Rebuilding = c.rebuilding.Load()
	return stats
}

// CheckStaleness compares the store version with the snapshot, at most once
// per heartbeat. A change starts an asynchronous rebuild; until it completes,
// callers keep using the last good snapshot and CheckStaleness returns true.
func (c *MappingCache) CheckStaleness(ctx context.Context) bool {
	m := c.current.Load()
	if m == nil {
		return false
	}

	now := c.now().UnixNano()
	last := c.lastCheck.Load()
	if c.heartbeat > 0 && now-last < int64(c.heartbeat) {
		return c.stale.Load()
	}
	if !c.lastCheck.CompareAndSwap(last, now) {
		return c.stale.Load()
	}

	version, err := c.store.Version(ctx)
	if err != nil {
		logger.Warn("parent mapping heartbeat failed: %v", err)
		return c.stale.Load()
	}
	if version == m.version {
		return false
	}

	logger.Warn("%v: store at %s, mapping at %s; rebuilding", domain.ErrStaleMapping, version, m.version)
	c.stale.Store(true)
	c.rebuildAsync()
	return true
}

// Invalidate forces the next CheckStaleness to consult the store.
func (c *MappingCache) Invalidate() {
	c.lastCheck.Store(0)
}

// Wait blocks until background rebuilds started by CheckStaleness finish.
func (c *MappingCache) Wait() {
	c.wg.Wait()
}

func (c *MappingCache) rebuildAsync() {
	if c.rebuilding.Load() {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := c.Rebuild(ctx); err != nil {
			logger.Warn("background mapping rebuild failed: %v", err)
		}
	}()
}

func claim(claims map[string]map[string]struct{}, key, owner string) {
	owners, ok := claims[key]
	if !ok {
		owners = make(map[string]struct{}, 1)
		claims[key] = owners
	}
	owners[owner] = struct{}{}
}

func soleOwner(owners map[string]struct{}) string {
	for id := range owners {
		return id
	}
	return ""
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sameEntries(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
