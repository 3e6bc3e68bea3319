package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService runs the hybrid retrieval and ranking pipeline.
type QueryService struct {
	cfg        domain.EngineConfig
	chunks     driven.ChunkStore
	lexical    driven.LexicalIndex
	dense      driven.DenseIndex
	embedder   driven.EmbeddingService
	mappings   *MappingCache
	normaliser *TermNormaliser
	reranker   *Reranker
	gate       *ConfidenceGate
	expander   *ParentExpander
}

// NewQueryService creates a query service.
// Either index may be nil, but not both. The rerank model and embedding
// service are optional and set separately.
func NewQueryService(
	cfg domain.EngineConfig,
	chunks driven.ChunkStore,
	docs driven.DocumentStore,
	lexical driven.LexicalIndex,
	dense driven.DenseIndex,
	mappings *MappingCache,
) (*QueryService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if chunks == nil || docs == nil || mappings == nil {
		return nil, fmt.Errorf("%w: chunk store, document store and mapping cache are required", domain.ErrInvalidConfig)
	}
	if lexical == nil && dense == nil {
		return nil, fmt.Errorf("%w: at least one index is required", domain.ErrInvalidConfig)
	}
	return &QueryService{
		cfg:        cfg,
		chunks:     chunks,
		lexical:    lexical,
		dense:      dense,
		mappings:   mappings,
		normaliser: NewTermNormaliser(cfg.StopWords),
		reranker:   NewReranker(nil, cfg),
		gate:       NewConfidenceGate(cfg),
		expander:   NewParentExpander(docs, cfg.ExpandConcurrency),
	}, nil
}

// SetEmbeddingService sets the service used to embed query text when the
// caller supplies no vector.
func (s *QueryService) SetEmbeddingService(svc driven.EmbeddingService) {
	s.embedder = svc
}

// SetRerankModel sets the model used by the reranker. Nil disables reranking.
func (s *QueryService) SetRerankModel(model driven.RerankModel) {
	s.reranker = NewReranker(model, s.cfg)
}

// Config returns the engine configuration in use.
func (s *QueryService) Config() domain.EngineConfig {
	return s.cfg
}

// retrieval is the outcome of one index call.
type retrieval struct {
	list      rankedList
	attempted bool
	err       error
}

// Query runs one query end to end.
func (s *QueryService) Query(ctx context.Context, q domain.QueryContext) (*domain.RankedResult, error) {
	start := time.Now()
	if err := q.Validate(s.cfg.MaxTopK); err != nil {
		return nil, err
	}

	topK := q.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	budget := q.TimeBudget
	if budget == 0 {
		budget = s.cfg.DefaultTimeBudget
	}
	deadline := start.Add(budget)

	result := &domain.RankedResult{QueryID: uuid.NewString()}
	logger.Section("Query " + result.QueryID)
	logger.Debug("Query: text=%q top_k=%d budget=%s as_at=%v", q.Text, topK, budget, q.AsAt)

	filter := NewTemporalFilter(q.AsAt)
	degraded := newDegradations()

	terms := s.queryTerms(q)
	lex, den := s.retrieve(ctx, q, terms, filter)
	if errors.Is(den.err, domain.ErrInvalidQuery) {
		return nil, den.err
	}
	if errors.Is(den.err, domain.ErrEmbeddingUnavailable) {
		logger.Warn("%v", den.err)
		degraded.add(domain.DegradedEmbedding)
	}
	if err := s.checkRetrieval(lex, den, degraded); err != nil {
		return nil, err
	}

	chunks, err := s.loadChunks(ctx, lex.list, den.list)
	if err != nil {
		return nil, err
	}

	// Drop unknown chunks and, without pushdown, chunks out of force.
	lexList, lexMissing := lex.list.filter(chunks, filter, s.cfg.FusionWidth)
	denList, denMissing := den.list.filter(chunks, filter, s.cfg.FusionWidth)
	if lexMissing+denMissing > 0 {
		logger.Warn("%d retrieved chunks missing from chunk store", lexMissing+denMissing)
		degraded.add(domain.DegradedChunkMissing)
	}

	fused := fuseLists(s.cfg.RRFK, s.cfg.FusionWidth, lexList, denList)
	logger.Debug("Fused %d lexical + %d dense into %d candidates", len(lexList.ids), len(denList.ids), len(fused))

	ranked := fused
	if s.reranker.Enabled() && len(fused) > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.Warn("Query budget %s exhausted before reranking", budget)
			degraded.add(domain.DegradedBudget)
		} else {
			passages := make(map[string]string, len(fused))
			for _, c := range fused {
				passages[c.ChunkID] = chunks[c.ChunkID].Text
			}
			outcome := s.reranker.Rerank(ctx, s.rerankQuery(q, terms), fused, passages,
				min(s.cfg.RerankBudget, remaining))
			ranked = outcome.Candidates
			degraded.add(outcome.Degradations...)
		}
	}

	result.Decision = s.gate.Decide(ranked)
	result.Confidence = result.Decision.Label
	result.Directive = result.Decision.Directive

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	result.Items = make([]domain.ResultItem, len(ranked))
	for i, c := range ranked {
		result.Items[i] = domain.ResultItem{Chunk: chunks[c.ChunkID], Candidate: c}
	}

	if len(result.Items) > 0 {
		s.expand(ctx, result, degraded)
	}

	result.Degradations = degraded.list()
	result.Elapsed = time.Since(start)
	logger.Info("Query %s: %d items, confidence=%s, degradations=%v, elapsed=%s",
		result.QueryID, len(result.Items), result.Confidence, result.Degradations, result.Elapsed)
	return result, nil
}

func (s *QueryService) queryTerms(q domain.QueryContext) []string {
	if len(q.Terms) > 0 {
		return s.normaliser.NormaliseTerms(q.Terms)
	}
	return s.normaliser.Normalise(q.Text)
}

// denseAttempted reports whether q leads to a dense search: either the
// caller supplied a vector or the text can be embedded here.
func (s *QueryService) denseAttempted(q domain.QueryContext) bool {
	if s.dense == nil {
		return false
	}
	if len(q.Embedding) > 0 {
		return true
	}
	return s.embedder != nil && strings.TrimSpace(q.Text) != ""
}

// queryEmbedding returns the caller's vector or embeds the text.
func (s *QueryService) queryEmbedding(ctx context.Context, q domain.QueryContext) ([]float32, error) {
	if len(q.Embedding) > 0 {
		return q.Embedding, nil
	}
	defer logger.Stage("query embedding")()
	vec, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, s.embedder.ModelName(), err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty vector", domain.ErrEmbeddingUnavailable, s.embedder.ModelName())
	}
	return vec, nil
}

// retrieve runs the lexical and dense searches concurrently. Embedding
// the query text happens on the dense path so it overlaps the lexical
// search.
func (s *QueryService) retrieve(
	ctx context.Context, q domain.QueryContext, terms []string, filter TemporalFilter,
) (lex, den retrieval) {
	var wg sync.WaitGroup

	if s.lexical != nil && len(terms) > 0 {
		lex.attempted = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			lex.list, lex.err = s.searchLexical(ctx, terms, filter)
		}()
	}

	if s.denseAttempted(q) {
		den.attempted = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			embedding, err := s.queryEmbedding(ctx, q)
			if err != nil {
				den.err = err
				return
			}
			den.list, den.err = s.searchDense(ctx, embedding, len(q.Embedding) > 0, filter)
		}()
	}

	wg.Wait()
	lex.list.source, den.list.source = sourceLexical, sourceDense
	return lex, den
}

func (s *QueryService) searchLexical(ctx context.Context, terms []string, filter TemporalFilter) (rankedList, error) {
	defer logger.Stage("lexical search")()
	k := s.cfg.FusionWidth

	var hits []driven.LexicalHit
	var err error
	if ti, ok := s.lexical.(driven.TemporalLexicalIndex); ok && filter.Active() {
		hits, err = ti.SearchAsAt(ctx, terms, k, filter.AsAt())
	} else {
		hits, err = s.lexical.Search(ctx, terms, filter.RetrievalWidth(k, s.cfg.TemporalWidening))
	}
	if err != nil {
		return rankedList{}, domain.NewIndexUnavailableError(sourceLexical, err)
	}
	logger.Debug("Lexical search: %d hits for %v", len(hits), terms)
	return lexicalList(hits), nil
}

// searchDense queries the dense index. A vector the index rejects as
// malformed is the caller's error when the caller supplied it.
func (s *QueryService) searchDense(
	ctx context.Context, embedding []float32, fromCaller bool, filter TemporalFilter,
) (rankedList, error) {
	defer logger.Stage("dense search")()
	k := s.cfg.FusionWidth

	var hits []driven.DenseHit
	var err error
	if ti, ok := s.dense.(driven.TemporalDenseIndex); ok && filter.Active() {
		hits, err = ti.SearchAsAt(ctx, embedding, k, filter.AsAt())
	} else {
		hits, err = s.dense.Search(ctx, embedding, filter.RetrievalWidth(k, s.cfg.TemporalWidening))
	}
	if fromCaller && errors.Is(err, domain.ErrInvalidInput) {
		return rankedList{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if err != nil {
		return rankedList{}, domain.NewIndexUnavailableError(sourceDense, err)
	}
	logger.Debug("Dense search: %d hits", len(hits))
	return denseList(hits), nil
}

// checkRetrieval records single-index failures and fails the query when
// every attempted index failed.
func (s *QueryService) checkRetrieval(lex, den retrieval, degraded *degradations) error {
	switch {
	case lex.err != nil && den.err != nil:
		logger.Warn("Both indexes failed: lexical=%v dense=%v", lex.err, den.err)
		return fmt.Errorf("%w: %w; %w", domain.ErrRetrievalUnavailable, lex.err, den.err)
	case lex.err != nil && !den.attempted:
		logger.Warn("Lexical index failed and no dense search was possible: %v", lex.err)
		return fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, lex.err)
	case den.err != nil && !lex.attempted:
		logger.Warn("Dense search failed and no lexical search was possible: %v", den.err)
		return fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, den.err)
	case lex.err != nil:
		logger.Warn("Using dense results only: %v", lex.err)
		degraded.add(domain.DegradedLexical)
	case den.err != nil:
		logger.Warn("Using lexical results only: %v", den.err)
		if !errors.Is(den.err, domain.ErrEmbeddingUnavailable) {
			degraded.add(domain.DegradedDense)
		}
	}
	return nil
}

// loadChunks fetches every chunk referenced by either list.
func (s *QueryService) loadChunks(ctx context.Context, lists ...rankedList) (map[string]domain.Chunk, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, l := range lists {
		for _, id := range l.ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return map[string]domain.Chunk{}, nil
	}
	chunks, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: loading chunks: %w", domain.ErrRetrievalUnavailable, err)
	}
	return chunks, nil
}

// expand resolves parents through the current mapping snapshot.
func (s *QueryService) expand(ctx context.Context, result *domain.RankedResult, degraded *degradations) {
	mapping, err := s.mappings.Ensure(ctx)
	if err != nil {
		logger.Warn("Parent expansion skipped: %v", err)
	}
	if mapping != nil {
		result.MappingVersion = mapping.Version()
		if s.mappings.CheckStaleness(ctx) {
			degraded.add(domain.DegradedMappingStale)
		}
	}
	if n := s.expander.Expand(ctx, NewParentResolver(mapping), result.Items); n > 0 {
		logger.Debug("%d of %d items have no parent document", n, len(result.Items))
		degraded.add(domain.DegradedParentUnresolved)
	}
}

// rerankQuery is the text sent to the rerank model.
func (s *QueryService) rerankQuery(q domain.QueryContext, terms []string) string {
	if text := strings.TrimSpace(q.Text); text != "" {
		return text
	}
	return strings.Join(terms, " ")
}

// degradations collects distinct degradations in first-seen order.
type degradations struct {
	seen  map[domain.Degradation]struct{}
	order []domain.Degradation
}

func newDegradations() *degradations {
	return &degradations{seen: make(map[domain.Degradation]struct{})}
}

func (d *degradations) add(ds ...domain.Degradation) {
	for _, x := range ds {
		if _, ok := d.seen[x]; ok {
			continue
		}
		d.seen[x] = struct{}{}
		d.order = append(d.order, x)
	}
}

func (d *degradations) list() []domain.Degradation {
	return d.order
}
