// Package engine is the runtime query side: it loads the build artifacts
// into an in-memory full-text index and answers search, suggestion, and
// lookup requests.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hagall/raido/internal/apperr"
	"github.com/hagall/raido/internal/artifacts"
	"github.com/hagall/raido/internal/indexer"
)

// State is the engine lifecycle state. Failed is terminal for a given
// engine; recovering from a bad artifact means building a fresh engine.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

const (
	// DefaultSearchLimit caps result lists when the caller asks for none.
	DefaultSearchLimit = 20
	// DefaultSuggestionLimit caps typeahead lists.
	DefaultSuggestionLimit = 10
	// DefaultSuggestionMinLength is the query length below which
	// suggestions short-circuit to empty without touching the index.
	DefaultSuggestionMinLength = 2
)

// Field boosts for the ranked disjunction. A hit on a section number
// outranks the same term in a title, which outranks body text.
const (
	boostNumber = 3.0
	boostTitle  = 2.0
	boostText   = 1.0
)

// Source supplies the artifacts the engine initializes from.
type Source interface {
	LoadDocuments() (*indexer.DocumentsArtifact, error)
	LoadMetadata() (*indexer.Metadata, error)
}

// StoreSource adapts an artifact store to the engine's Source.
type StoreSource struct {
	Store artifacts.Store
}

func (s StoreSource) LoadDocuments() (*indexer.DocumentsArtifact, error) {
	return artifacts.LoadDocuments(s.Store)
}

func (s StoreSource) LoadMetadata() (*indexer.Metadata, error) {
	return artifacts.LoadMetadata(s.Store)
}

// Engine answers queries over one loaded artifact generation. All fields
// behind mu are written once during initialization and read-only afterwards.
type Engine struct {
	log        *slog.Logger
	source     Source
	suggestMin int

	mu      sync.Mutex
	state   State
	done    chan struct{}
	initErr error

	index   bleve.Index
	docs    map[string]*indexer.SearchDocument
	ordered []indexer.SearchDocument
	meta    *indexer.Metadata
	boosts  map[string]float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithAmendmentBoosts overrides the per-content-type score multiplier
// applied to amended documents, taking precedence over the boosts recorded
// in the metadata artifact.
func WithAmendmentBoosts(boosts map[string]float64) Option {
	return func(e *Engine) { e.boosts = boosts }
}

// WithSuggestionMinLength overrides the minimum suggestion query length.
func WithSuggestionMinLength(n int) Option {
	return func(e *Engine) { e.suggestMin = n }
}

// New creates an uninitialized engine over the given artifact source.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		source:     source,
		suggestMin: DefaultSuggestionMinLength,
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// amendmentBoosts resolves the per-type multipliers for amended documents:
// the metadata artifact carries the boosts the build was configured with; a
// missing artifact falls back to the documented defaults.
func amendmentBoosts(meta *indexer.Metadata) map[string]float64 {
	if meta != nil && len(meta.AmendmentBoosts) > 0 {
		return meta.AmendmentBoosts
	}
	cfg := indexer.DefaultConfig()
	boosts := make(map[string]float64, len(cfg.ContentTypes))
	for name, policy := range cfg.ContentTypes {
		boosts[name] = policy.AmendmentBoost
	}
	return boosts
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Ready reports whether the engine serves full results.
func (e *Engine) Ready() bool {
	return e.State() == StateReady
}

// Initialize loads the artifacts and builds the in-memory index. Concurrent
// calls coalesce onto one load: the first caller does the work, the rest
// wait for it and share its outcome. After success the call is a no-op;
// after failure it keeps returning the original error.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateFailed:
		err := e.initErr
		e.mu.Unlock()
		return err
	case StateInitializing:
		done := e.done
		e.mu.Unlock()
		select {
		case <-done:
			return e.initResult()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.state = StateInitializing
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	idx, docs, ordered, meta, err := e.load(ctx)

	e.mu.Lock()
	if err != nil {
		e.state = StateFailed
		e.initErr = err
		e.log.Error("engine: initialization failed", slog.String("error", err.Error()))
	} else {
		e.state = StateReady
		e.index = idx
		e.docs = docs
		e.ordered = ordered
		e.meta = meta
		if e.boosts == nil {
			e.boosts = amendmentBoosts(meta)
		}
		e.log.Info("engine: ready", slog.Int("documents", len(ordered)))
	}
	close(done)
	e.mu.Unlock()
	return err
}

func (e *Engine) initResult() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateReady {
		return nil
	}
	return e.initErr
}

func (e *Engine) load(ctx context.Context) (bleve.Index, map[string]*indexer.SearchDocument, []indexer.SearchDocument, *indexer.Metadata, error) {
	art, err := e.source.LoadDocuments()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("engine: load documents: %w", err)
	}

	// The metadata artifact is optional output; a missing one degrades the
	// metadata endpoints, not search.
	meta, err := e.source.LoadMetadata()
	if err != nil {
		e.log.Warn("engine: metadata unavailable", slog.String("error", err.Error()))
		meta = nil
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("engine: create index: %w", err)
	}

	batch := idx.NewBatch()
	docs := make(map[string]*indexer.SearchDocument, len(art.Documents))
	for i := range art.Documents {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return nil, nil, nil, nil, err
		}
		d := &art.Documents[i]
		docs[d.ID] = d
		entry := map[string]any{
			"number": strings.Join(d.Numbers(), " "),
			"title":  d.Title,
			"text":   d.Text,
			"type":   d.Type,
		}
		if err := batch.Index(d.ID, entry); err != nil {
			_ = idx.Close()
			return nil, nil, nil, nil, fmt.Errorf("engine: index %s: %w", d.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, nil, nil, nil, fmt.Errorf("engine: commit batch: %w", err)
	}

	return idx, docs, art.Documents, meta, nil
}

// Close releases the in-memory index.
func (e *Engine) Close() error {
	e.mu.Lock()
	idx := e.index
	e.index = nil
	e.mu.Unlock()
	if idx == nil {
		return nil
	}
	return idx.Close()
}

// snapshot returns the immutable loaded state, or false when not ready.
func (e *Engine) snapshot() (bleve.Index, map[string]*indexer.SearchDocument, []indexer.SearchDocument, *indexer.Metadata, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady || e.index == nil {
		return nil, nil, nil, nil, false
	}
	return e.index, e.docs, e.ordered, e.meta, true
}

// Query is one search request.
type Query struct {
	Text        string
	Types       []string
	Division    string
	AmendedOnly bool
	Limit       int
}

// Result pairs a document with its adjusted score.
type Result struct {
	Document indexer.SearchDocument `json:"document"`
	Score    float64                `json:"score"`
}

// Search runs a ranked, filtered query. An engine that is not ready returns
// an empty list rather than an error, so callers degrade to "no results"
// while initialization is in flight or has failed.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	idx, docs, ordered, _, ok := e.snapshot()
	if !ok {
		return []Result{}, nil
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return []Result{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	// Candidate pool covers the whole corpus so post-filtering cannot
	// starve the result list.
	req := bleve.NewSearchRequestOptions(rankedQuery(text), len(ordered), 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine: search: %w", err)
	}

	typeSet := make(map[string]bool, len(q.Types))
	for _, t := range q.Types {
		typeSet[t] = true
	}

	results := make([]Result, 0, limit)
	for _, hit := range res.Hits {
		d, ok := docs[hit.ID]
		if !ok {
			continue
		}
		if len(typeSet) > 0 && !typeSet[d.Type] {
			continue
		}
		if q.Division != "" && d.DivisionNumber != q.Division {
			continue
		}
		if q.AmendedOnly && !d.HasAmendment {
			continue
		}
		score := hit.Score * d.SearchPriority
		if d.HasAmendment {
			if boost, ok := e.boosts[d.Type]; ok && boost > 0 {
				score *= boost
			}
		}
		results = append(results, Result{Document: *d, Score: score})
	}

	// Equal scores fall back to canonical document order so result lists
	// are stable across runs.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.Ordinal < results[j].Document.Ordinal
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// rankedQuery builds the field-boosted disjunction: full-token matches on
// number, title, and text, plus a prefix match on the trailing token so
// partially typed words still hit.
func rankedQuery(text string) query.Query {
	number := bleve.NewMatchQuery(text)
	number.SetField("number")
	number.SetBoost(boostNumber)

	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(boostTitle)

	body := bleve.NewMatchQuery(text)
	body.SetField("text")
	body.SetBoost(boostText)

	parts := []query.Query{number, title, body}
	if last := lastToken(text); last != "" {
		titlePrefix := bleve.NewPrefixQuery(last)
		titlePrefix.SetField("title")
		titlePrefix.SetBoost(boostTitle)
		numberPrefix := bleve.NewPrefixQuery(last)
		numberPrefix.SetField("number")
		numberPrefix.SetBoost(boostNumber)
		parts = append(parts, titlePrefix, numberPrefix)
	}
	return bleve.NewDisjunctionQuery(parts...)
}

func lastToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

// Suggestion is one typeahead entry.
type Suggestion struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URLPath string `json:"urlPath"`
	Type    string `json:"type"`
}

// Suggestions returns ranked title completions. Queries shorter than the
// configured minimum return empty without touching the index, as does an
// engine that is not ready.
func (e *Engine) Suggestions(ctx context.Context, text string, limit int) ([]Suggestion, error) {
	idx, docs, ordered, _, ok := e.snapshot()
	if !ok {
		return []Suggestion{}, nil
	}

	text = strings.TrimSpace(text)
	if len([]rune(text)) < e.suggestMin {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	prefix := bleve.NewPrefixQuery(lastToken(text))
	prefix.SetField("title")
	q := bleve.NewDisjunctionQuery(title, prefix)

	req := bleve.NewSearchRequestOptions(q, len(ordered), 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine: suggest: %w", err)
	}

	type scored struct {
		doc   *indexer.SearchDocument
		score float64
	}
	hits := make([]scored, 0, len(res.Hits))
	for _, hit := range res.Hits {
		d, ok := docs[hit.ID]
		if !ok {
			continue
		}
		hits = append(hits, scored{doc: d, score: hit.Score * d.SearchPriority})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.Ordinal < hits[j].doc.Ordinal
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Suggestion, len(hits))
	for i, h := range hits {
		out[i] = Suggestion{
			ID:      h.doc.ID,
			Title:   h.doc.Title,
			URLPath: h.doc.URLPath,
			Type:    h.doc.Type,
		}
	}
	return out, nil
}

// GetDocument returns a single document by ID.
func (e *Engine) GetDocument(_ context.Context, id string) (*indexer.SearchDocument, error) {
	_, docs, _, _, ok := e.snapshot()
	if !ok {
		return nil, apperr.ErrNotReady
	}
	d, found := docs[id]
	if !found {
		return nil, apperr.ErrNotFound
	}
	return d, nil
}

// Metadata returns the loaded metadata artifact.
func (e *Engine) Metadata(_ context.Context) (*indexer.Metadata, error) {
	_, _, _, meta, ok := e.snapshot()
	if !ok {
		return nil, apperr.ErrNotReady
	}
	if meta == nil {
		return nil, apperr.ErrNotFound
	}
	return meta, nil
}

// Amendments returns the distinct revision dates, oldest first.
func (e *Engine) Amendments(ctx context.Context) ([]indexer.RevisionDate, error) {
	meta, err := e.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	return meta.RevisionDates, nil
}

// DocumentCount returns the number of loaded documents, zero when not ready.
func (e *Engine) DocumentCount() int {
	_, _, ordered, _, ok := e.snapshot()
	if !ok {
		return 0
	}
	return len(ordered)
}
