package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.ChunkStore    = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore and
// driven.ChunkStore. Every write bumps the version reported to the parent
// mapping cache.
type DocumentStore struct {
	mu      sync.RWMutex
	parents map[string]domain.ParentDocument
	aliases map[string]map[string]struct{}
	links   map[string]map[string]struct{}
	chunks  map[string]domain.Chunk
	version uint64
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		parents: make(map[string]domain.ParentDocument),
		aliases: make(map[string]map[string]struct{}),
		links:   make(map[string]map[string]struct{}),
		chunks:  make(map[string]domain.Chunk),
	}
}

// SaveParent stores or updates a parent document.
func (s *DocumentStore) SaveParent(_ context.Context, doc *domain.ParentDocument) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[doc.ID] = *doc
	s.version++
	return nil
}

// DeleteParent removes a parent document with its aliases and chunk links.
func (s *DocumentStore) DeleteParent(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[docID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.parents, docID)
	delete(s.aliases, docID)
	delete(s.links, docID)
	s.version++
	return nil
}

// AddAlias records a declared ID under which docID was known to another run.
func (s *DocumentStore) AddAlias(_ context.Context, docID, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[docID]; !ok {
		return domain.ErrNotFound
	}
	addTo(s.aliases, docID, alias)
	s.version++
	return nil
}

// LinkChunks records chunks verified to belong to docID.
func (s *DocumentStore) LinkChunks(_ context.Context, docID string, chunkIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[docID]; !ok {
		return domain.ErrNotFound
	}
	for _, id := range chunkIDs {
		addTo(s.links, docID, id)
	}
	s.version++
	return nil
}

// SaveChunks stores or replaces chunks. Chunk writes do not change the
// mapping version; only verified links do.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if c.ID == "" {
			return domain.ErrInvalidInput
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// ListParentIDs returns every parent ID, sorted.
func (s *DocumentStore) ListParentIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.parents))
	for id := range s.parents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetParent retrieves a parent document by ID.
func (s *DocumentStore) GetParent(_ context.Context, docID string) (*domain.ParentDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.parents[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ParentLinks returns the aliases and linked chunk IDs of a document, sorted.
func (s *DocumentStore) ParentLinks(_ context.Context, docID string) (domain.ParentLinks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.parents[docID]; !ok {
		return domain.ParentLinks{}, domain.ErrNotFound
	}
	return domain.ParentLinks{
		DocID:    docID,
		Aliases:  sortedKeys(s.aliases[docID]),
		ChunkIDs: sortedKeys(s.links[docID]),
	}, nil
}

// Version returns a counter bumped by every parent, alias or link write.
func (s *DocumentStore) Version(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.FormatUint(s.version, 10), nil
}

// GetChunks returns the stored chunks among ids.
func (s *DocumentStore) GetChunks(_ context.Context, ids []string) (map[string]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Chunk, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

// AllChunks returns every stored chunk ordered by ID.
func (s *DocumentStore) AllChunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func addTo(m map[string]map[string]struct{}, key, value string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[value] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
