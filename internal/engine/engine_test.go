package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hagall/raido/internal/apperr"
	"github.com/hagall/raido/internal/document"
	"github.com/hagall/raido/internal/indexer"
	"github.com/hagall/raido/internal/testutil"
)

type memSource struct {
	art     *indexer.DocumentsArtifact
	meta    *indexer.Metadata
	docsErr error
	metaErr error
}

func (m *memSource) LoadDocuments() (*indexer.DocumentsArtifact, error) {
	if m.docsErr != nil {
		return nil, m.docsErr
	}
	return m.art, nil
}

func (m *memSource) LoadMetadata() (*indexer.Metadata, error) {
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	return m.meta, nil
}

func sourceFor(t *testing.T, code *document.Code) *memSource {
	return sourceWith(t, code, nil)
}

func sourceWith(t *testing.T, code *document.Code, overrides *indexer.Overrides) *memSource {
	t.Helper()
	res, err := indexer.Build(code, overrides)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return &memSource{
		art: &indexer.DocumentsArtifact{
			Version:   indexer.ArtifactVersion,
			Count:     len(res.Documents),
			Documents: res.Documents,
		},
		meta: res.Metadata,
	}
}

func readyEngine(t *testing.T, src Source) *Engine {
	t.Helper()
	e := New(src)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestInitialize_Lifecycle(t *testing.T) {
	e := New(sourceFor(t, testutil.FixtureCode()))
	if e.State() != StateUninitialized {
		t.Errorf("state = %q before init", e.State())
	}
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer e.Close()
	if e.State() != StateReady {
		t.Errorf("state = %q after init", e.State())
	}
	if !e.Ready() {
		t.Error("Ready() should be true")
	}
	if e.DocumentCount() == 0 {
		t.Error("no documents loaded")
	}
	// Repeated initialization is a no-op.
	if err := e.Initialize(context.Background()); err != nil {
		t.Errorf("second Initialize: %v", err)
	}
}

type blockingSource struct {
	*memSource
	gate  chan struct{}
	loads atomic.Int32
}

func (b *blockingSource) LoadDocuments() (*indexer.DocumentsArtifact, error) {
	b.loads.Add(1)
	<-b.gate
	return b.memSource.LoadDocuments()
}

func TestInitialize_ConcurrentCallsCoalesce(t *testing.T) {
	src := &blockingSource{
		memSource: sourceFor(t, testutil.FixtureCode()),
		gate:      make(chan struct{}),
	}
	e := New(src)
	defer e.Close()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Initialize(context.Background())
		}(i)
	}
	close(src.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if n := src.loads.Load(); n != 1 {
		t.Errorf("artifact loaded %d times, want 1", n)
	}
}

func TestInitialize_FailureIsTerminal(t *testing.T) {
	loadErr := fmt.Errorf("artifact corrupted")
	e := New(&memSource{docsErr: loadErr})
	defer e.Close()

	if err := e.Initialize(context.Background()); err == nil {
		t.Fatal("expected initialization error")
	}
	if e.State() != StateFailed {
		t.Errorf("state = %q, want failed", e.State())
	}
	// Subsequent attempts report the original failure.
	if err := e.Initialize(context.Background()); !errors.Is(err, loadErr) {
		t.Errorf("second Initialize = %v", err)
	}
}

func TestSearch_NotReadyReturnsEmpty(t *testing.T) {
	e := New(&memSource{docsErr: fmt.Errorf("boom")})
	defer e.Close()
	_ = e.Initialize(context.Background())

	res, err := e.Search(context.Background(), Query{Text: "fire"})
	if err != nil {
		t.Fatalf("Search on failed engine: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("got %d results, want 0", len(res))
	}
	sugg, err := e.Suggestions(context.Background(), "fire", 5)
	if err != nil {
		t.Fatalf("Suggestions on failed engine: %v", err)
	}
	if len(sugg) != 0 {
		t.Errorf("got %d suggestions, want 0", len(sugg))
	}
}

func TestSearch_FindsAndRanks(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))

	res, err := e.Search(context.Background(), Query{Text: "firewalls"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) == 0 {
		t.Fatal("no results for firewalls")
	}
	if res[0].Document.ID != "article:B/3/3.1/3.1.1.1" {
		t.Errorf("top result = %q", res[0].Document.ID)
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Errorf("results not sorted: %v > %v at %d", res[i].Score, res[i-1].Score, i)
		}
	}
}

func TestSearch_NumberLookup(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))

	res, err := e.Search(context.Background(), Query{Text: "3.1.1.2"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) == 0 {
		t.Fatal("no results for number query")
	}
	if res[0].Document.ID != "article:B/3/3.1/3.1.1.2" {
		t.Errorf("top result = %q", res[0].Document.ID)
	}
}

func TestSearch_Filters(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))
	ctx := context.Background()

	res, err := e.Search(ctx, Query{Text: "fire", Types: []string{indexer.TypeTable}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range res {
		if r.Document.Type != indexer.TypeTable {
			t.Errorf("type filter leaked %q", r.Document.ID)
		}
	}
	if len(res) == 0 {
		t.Error("table filter returned nothing")
	}

	res, err = e.Search(ctx, Query{Text: "fire", Division: "A"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range res {
		if r.Document.DivisionNumber != "A" {
			t.Errorf("division filter leaked %q", r.Document.ID)
		}
	}

	res, err = e.Search(ctx, Query{Text: "fire", AmendedOnly: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range res {
		if !r.Document.HasAmendment {
			t.Errorf("amended filter leaked %q", r.Document.ID)
		}
	}
}

func TestSearch_AmendedOutranksIdenticalTwin(t *testing.T) {
	code := &document.Code{
		Title: "Code", Version: "1",
		Divisions: []document.Division{{
			Number: "A", Title: "Division",
			Parts: []document.Part{{
				Number: "1", Title: "Part",
				Sections: []document.Section{{
					Number: "1.1", Title: "Section",
					Articles: []document.Article{
						{Number: "1.1.1.1", Title: "Sprinkler Systems", Text: "Sprinkler systems shall be installed."},
						{
							Number: "1.1.1.2", Title: "Sprinkler Systems", Text: "Sprinkler systems shall be installed.",
							Amendment: &document.Amendment{EffectiveDate: "2024-01-01", Type: "revision"},
						},
					},
				}},
			}},
		}},
	}
	e := readyEngine(t, sourceFor(t, code))

	res, err := e.Search(context.Background(), Query{Text: "sprinkler"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) < 2 {
		t.Fatalf("got %d results, want at least 2", len(res))
	}
	if res[0].Document.ID != "article:A/1/1.1/1.1.1.2" {
		t.Errorf("amended twin should rank first, got %q", res[0].Document.ID)
	}
}

func TestSearch_AmendmentBoostFollowsArtifact(t *testing.T) {
	// Identical twins, one amended. With the article boost overridden to 1.0
	// at build time the scores tie and canonical order decides, so the
	// unamended twin (earlier ordinal) wins. The default 1.25 would put the
	// amended one first; only the artifact's boosts explain this ranking.
	neutral := 1.0
	code := &document.Code{
		Title: "Code", Version: "1",
		Divisions: []document.Division{{
			Number: "A", Title: "Division",
			Parts: []document.Part{{
				Number: "1", Title: "Part",
				Sections: []document.Section{{
					Number: "1.1", Title: "Section",
					Articles: []document.Article{
						{Number: "1.1.1.1", Title: "Sprinkler Systems", Text: "Sprinkler systems shall be installed."},
						{
							Number: "1.1.1.2", Title: "Sprinkler Systems", Text: "Sprinkler systems shall be installed.",
							Amendment: &document.Amendment{EffectiveDate: "2024-01-01", Type: "revision"},
						},
					},
				}},
			}},
		}},
	}
	src := sourceWith(t, code, &indexer.Overrides{
		ContentTypes: map[string]indexer.TypePolicyOverride{
			indexer.TypeArticle: {AmendmentBoost: &neutral},
		},
	})
	e := readyEngine(t, src)

	res, err := e.Search(context.Background(), Query{Text: "sprinkler"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) < 2 {
		t.Fatalf("got %d results, want at least 2", len(res))
	}
	if res[0].Document.ID != "article:A/1/1.1/1.1.1.1" {
		t.Errorf("neutral boost should leave canonical order, got %q first", res[0].Document.ID)
	}
}

func TestSearch_EmptyQueryAndLimit(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))
	ctx := context.Background()

	res, err := e.Search(ctx, Query{Text: "   "})
	if err != nil || len(res) != 0 {
		t.Errorf("blank query: %d results, err %v", len(res), err)
	}

	res, err = e.Search(ctx, Query{Text: "fire", Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) > 1 {
		t.Errorf("limit 1 returned %d", len(res))
	}
}

func TestSuggestions_MinLengthShortCircuit(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))
	got, err := e.Suggestions(context.Background(), "f", 5)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("single-rune query returned %d suggestions", len(got))
	}
}

func TestSuggestions_PrefixCappedAtLimit(t *testing.T) {
	articles := make([]document.Article, 7)
	for i := range articles {
		articles[i] = document.Article{
			Number: fmt.Sprintf("1.1.1.%d", i+1),
			Title:  fmt.Sprintf("Fire Requirement %d", i+1),
			Text:   "Requirement text.",
		}
	}
	code := &document.Code{
		Title: "Code", Version: "1",
		Divisions: []document.Division{{
			Number: "A", Title: "Division",
			Parts: []document.Part{{
				Number: "1", Title: "Part",
				Sections: []document.Section{{
					Number: "1.1", Title: "Section", Articles: articles,
				}},
			}},
		}},
	}
	e := readyEngine(t, sourceFor(t, code))

	got, err := e.Suggestions(context.Background(), "fi", 5)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d suggestions, want 5", len(got))
	}
	for _, s := range got {
		if s.Title == "" || s.URLPath == "" {
			t.Errorf("incomplete suggestion %+v", s)
		}
	}
}

func TestGetDocument(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))
	ctx := context.Background()

	d, err := e.GetDocument(ctx, "glossary:bldng")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if d.Title != "Building" {
		t.Errorf("title = %q", d.Title)
	}

	if _, err := e.GetDocument(ctx, "article:Z/9/9.9"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing doc error = %v", err)
	}

	cold := New(sourceFor(t, testutil.FixtureCode()))
	if _, err := cold.GetDocument(ctx, "glossary:bldng"); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("uninitialized error = %v", err)
	}
}

func TestMetadataAndAmendments(t *testing.T) {
	e := readyEngine(t, sourceFor(t, testutil.FixtureCode()))
	ctx := context.Background()

	meta, err := e.Metadata(ctx)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if len(meta.TableOfContents) != 2 {
		t.Errorf("toc divisions = %d", len(meta.TableOfContents))
	}

	revs, err := e.Amendments(ctx)
	if err != nil {
		t.Fatalf("Amendments: %v", err)
	}
	if len(revs) != 2 {
		t.Errorf("revision dates = %d, want 2", len(revs))
	}
}

func TestMetadata_MissingArtifactDegrades(t *testing.T) {
	src := sourceFor(t, testutil.FixtureCode())
	src.metaErr = fmt.Errorf("no metadata artifact")
	e := readyEngine(t, src)

	// Search still works.
	res, err := e.Search(context.Background(), Query{Text: "fire"})
	if err != nil || len(res) == 0 {
		t.Errorf("search degraded: %d results, err %v", len(res), err)
	}
	if _, err := e.Metadata(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Metadata error = %v", err)
	}
}
