package indexer

import (
	"fmt"
	"strings"

	"github.com/hagall/raido/internal/document"
	"github.com/hagall/raido/internal/extract"
	"github.com/hagall/raido/internal/reftag"
)

// BuildResult is the output of one pipeline run.
type BuildResult struct {
	Documents []SearchDocument
	Metadata  *Metadata
	Config    Config
}

// Build flattens the hierarchical document into the canonical depth-first
// list of search documents plus aggregate metadata. The walk is single-pass
// and synchronous; repeated builds of the same input and overrides produce
// byte-for-byte identical document lists.
func Build(code *document.Code, overrides *Overrides) (*BuildResult, error) {
	if code == nil {
		return nil, fmt.Errorf("indexer: nil document")
	}
	if err := code.Validate(); err != nil {
		return nil, err
	}
	cfg := MergeConfig(DefaultConfig(), overrides)

	b := &builder{
		cfg:     cfg,
		process: cfg.References.processSet(),
	}
	b.walk(code)

	return &BuildResult{
		Documents: b.docs,
		Metadata:  aggregate(code, b.docs, cfg),
		Config:    cfg,
	}, nil
}

// ancestry carries the numbers and titles accumulated on the way down.
type ancestry struct {
	divNum, divTitle   string
	partNum, partTitle string
	secNum, secTitle   string
	subNum, subTitle   string
	artNum             string
	crumbs             []string
}

func (a ancestry) push(title string) ancestry {
	next := a
	next.crumbs = append(append([]string(nil), a.crumbs...), title)
	return next
}

type builder struct {
	cfg     Config
	process map[reftag.Kind]bool
	docs    []SearchDocument
	ordinal int
}

func (b *builder) enabled(contentType string) bool {
	return b.cfg.ContentTypes[contentType].Enabled
}

func (b *builder) walk(code *document.Code) {
	for di := range code.Divisions {
		d := &code.Divisions[di]
		anc := ancestry{divNum: d.Number, divTitle: d.Title}
		if b.enabled(TypeDivision) {
			b.emit(TypeDivision, d.Title, d.Title, anc, divisionHasAmendment(d), "")
		}
		anc = anc.push(d.Title)
		for pi := range d.Parts {
			b.walkPart(&d.Parts[pi], anc)
		}
	}
	for gi := range code.Glossary {
		b.walkGlossaryEntry(&code.Glossary[gi])
	}
}

func (b *builder) walkPart(p *document.Part, anc ancestry) {
	anc.partNum, anc.partTitle = p.Number, p.Title
	if b.enabled(TypePart) {
		b.emit(TypePart, p.Title, p.Title, anc, partHasAmendment(p), "")
	}
	anc = anc.push(p.Title)
	for si := range p.Sections {
		b.walkSection(&p.Sections[si], anc)
	}
}

func (b *builder) walkSection(s *document.Section, anc ancestry) {
	anc.secNum, anc.secTitle = s.Number, s.Title
	if b.enabled(TypeSection) {
		b.emit(TypeSection, s.Title, s.Title, anc, sectionHasAmendment(s), "")
	}
	anc = anc.push(s.Title)
	for ssi := range s.Subsections {
		ss := &s.Subsections[ssi]
		sub := anc
		sub.subNum, sub.subTitle = ss.Number, ss.Title
		if b.enabled(TypeSubsection) {
			b.emit(TypeSubsection, ss.Title, ss.Title, sub, articlesHaveAmendment(ss.Articles), "")
		}
		sub = sub.push(ss.Title)
		for ai := range ss.Articles {
			b.walkArticle(&ss.Articles[ai], sub)
		}
	}
	for ai := range s.Articles {
		b.walkArticle(&s.Articles[ai], anc)
	}
}

func (b *builder) walkArticle(a *document.Article, anc ancestry) {
	anc.artNum = a.Number
	if b.enabled(TypeArticle) {
		text := b.articleText(a)
		if text == "" {
			text = a.Title
		}
		doc := b.emit(TypeArticle, a.Title, text, anc, articleHasAmendment(a), "")
		doc.HasInternalRefs, doc.HasTermRefs = b.articleRefFlags(a)
		doc.HasTables = len(a.Tables) > 0
		doc.HasFigures = len(a.Figures) > 0
		if b.cfg.References.PreserveReferenceIDs {
			doc.ReferenceIDs = b.articleReferenceIDs(a)
		}
		if am := articleAmendment(a); am != nil {
			doc.EffectiveDate = am.EffectiveDate
			doc.DisplayDate = am.DisplayDate
			doc.RevisionType = am.Type
		}
	}

	artCrumbs := anc.push(a.Title)
	for ti := range a.Tables {
		b.walkTable(&a.Tables[ti], artCrumbs)
	}
	for fi := range a.Figures {
		b.walkFigure(&a.Figures[fi], artCrumbs)
	}
}

func (b *builder) walkTable(t *document.Table, anc ancestry) {
	if !b.enabled(TypeTable) {
		return
	}
	title, header, rows := t.Title, t.Header, t.Rows
	if b.cfg.References.StripFromSearchText {
		title = reftag.Strip(title, b.process)
		header = stripAll(header, b.process)
		stripped := make([][]string, len(rows))
		for i, row := range rows {
			stripped[i] = stripAll(row, b.process)
		}
		rows = stripped
	}
	text := extract.TableText(title, header, rows, b.cfg.TextExtraction.MaxTextLength)
	if text == "" {
		text = t.Title
	}
	doc := b.emit(TypeTable, t.Title, text, anc, t.Amendment != nil, t.Number)
	doc.HasTables = true
	if t.Amendment != nil {
		doc.EffectiveDate = t.Amendment.EffectiveDate
		doc.DisplayDate = t.Amendment.DisplayDate
		doc.RevisionType = t.Amendment.Type
	}
}

func (b *builder) walkFigure(f *document.Figure, anc ancestry) {
	if !b.enabled(TypeFigure) {
		return
	}
	text := extract.Truncate(extract.NormalizeWhitespace(f.Title+" "+f.Caption), b.cfg.TextExtraction.MaxTextLength)
	if text == "" {
		text = f.Title
	}
	doc := b.emit(TypeFigure, f.Title, text, anc, false, f.Number)
	doc.HasFigures = true
}

func (b *builder) walkGlossaryEntry(g *document.GlossaryEntry) {
	if !b.enabled(TypeGlossary) {
		return
	}
	def := g.Definition
	if b.cfg.References.StripFromSearchText {
		def = reftag.Strip(def, b.process)
	}
	text := extract.Truncate(extract.NormalizeWhitespace(def), b.cfg.TextExtraction.MaxTextLength)
	if text == "" {
		text = g.Term
	}
	doc := SearchDocument{
		ID:              "glossary:" + g.ID,
		Type:            TypeGlossary,
		Title:           g.Term,
		Text:            text,
		Snippet:         extract.Snippet(text, b.cfg.TextExtraction.SnippetLength),
		Breadcrumbs:     []string{},
		URLPath:         "/code/glossary/" + g.ID,
		SearchPriority:  b.cfg.ContentTypes[TypeGlossary].Priority,
		HasTermRefs:     reftag.Contains(g.Definition, reftag.KindTerm),
		HasInternalRefs: reftag.Contains(g.Definition, reftag.KindInternal),
		Ordinal:         b.ordinal,
	}
	b.ordinal++
	b.docs = append(b.docs, doc)
}

// emit appends a document populated from the ancestry and returns a pointer
// to it so callers can fill type-specific fields. attachNum is the table or
// figure number appended to the ID for article attachments.
func (b *builder) emit(contentType, title, text string, anc ancestry, hasAmendment bool, attachNum string) *SearchDocument {
	crumbs := anc.crumbs
	if crumbs == nil {
		crumbs = []string{}
	}
	numbers := nonEmpty(anc.divNum, anc.partNum, anc.secNum, anc.subNum, anc.artNum)
	id := contentType + ":" + strings.Join(numbers, "/")
	if attachNum != "" {
		id += "/" + attachNum
	}

	doc := SearchDocument{
		ID:               id,
		Type:             contentType,
		Title:            title,
		Text:             text,
		Snippet:          extract.Snippet(text, b.cfg.TextExtraction.SnippetLength),
		DivisionNumber:   anc.divNum,
		PartNumber:       anc.partNum,
		SectionNumber:    anc.secNum,
		SubsectionNumber: anc.subNum,
		ArticleNumber:    anc.artNum,
		DivisionTitle:    anc.divTitle,
		PartTitle:        anc.partTitle,
		SectionTitle:     anc.secTitle,
		SubsectionTitle:  anc.subTitle,
		Breadcrumbs:      crumbs,
		URLPath:          "/code/" + strings.Join(numbers, "/"),
		SearchPriority:   b.cfg.ContentTypes[contentType].Priority,
		HasAmendment:     hasAmendment,
		Ordinal:          b.ordinal,
	}
	b.ordinal++
	b.docs = append(b.docs, doc)
	return &b.docs[len(b.docs)-1]
}

// articleText extracts and bounds the article's searchable text, stripping
// processed reference tags first when configured so the length invariant
// holds on the final form.
func (b *builder) articleText(a *document.Article) string {
	opts := extract.Options{
		IncludeSentences:  b.cfg.TextExtraction.IncludeSentences,
		IncludeClauses:    b.cfg.TextExtraction.IncludeClauses,
		IncludeSubclauses: b.cfg.TextExtraction.IncludeSubclauses,
		MaxTextLength:     b.cfg.TextExtraction.MaxTextLength,
	}
	if b.cfg.References.StripFromSearchText {
		process := b.process
		opts.Transform = func(s string) string { return reftag.Strip(s, process) }
	}
	return extract.ArticleText(a.Text, convertClauses(a.Clauses, 0), opts)
}

// articleRefFlags runs tag detection over the raw article and clause text.
// Detection is unconditional: it ignores the configured process types.
func (b *builder) articleRefFlags(a *document.Article) (hasInternal, hasTerm bool) {
	for span := range rawSpans(a) {
		if !hasInternal && reftag.Contains(span, reftag.KindInternal) {
			hasInternal = true
		}
		if !hasTerm && reftag.Contains(span, reftag.KindTerm) {
			hasTerm = true
		}
		if hasInternal && hasTerm {
			return
		}
	}
	return
}

func (b *builder) articleReferenceIDs(a *document.Article) []string {
	var out []string
	seen := make(map[string]struct{})
	for span := range rawSpans(a) {
		for _, id := range reftag.TargetIDs(span, b.process) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// rawSpans yields the article's own text followed by every clause text,
// depth-first, using an explicit stack.
func rawSpans(a *document.Article) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		if !yield(a.Text) {
			return
		}
		stack := make([]*document.Clause, 0, len(a.Clauses))
		for i := len(a.Clauses) - 1; i >= 0; i-- {
			stack = append(stack, &a.Clauses[i])
		}
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(c.Text) {
				return
			}
			for i := len(c.Subclauses) - 1; i >= 0; i-- {
				stack = append(stack, &c.Subclauses[i])
			}
		}
	}
}

// convertClauses mirrors the document clause tree into the extractor's
// shape. Recursion is bounded by the same depth limit as the walk itself.
func convertClauses(cs []document.Clause, depth int) []extract.Clause {
	if len(cs) == 0 || depth > extract.MaxClauseDepth {
		return nil
	}
	out := make([]extract.Clause, len(cs))
	for i, c := range cs {
		out[i] = extract.Clause{
			Text:       c.Text,
			Subclauses: convertClauses(c.Subclauses, depth+1),
		}
	}
	return out
}

func stripAll(ss []string, process map[reftag.Kind]bool) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = reftag.Strip(s, process)
	}
	return out
}

func nonEmpty(ss ...string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Amendment presence helpers. A node counts as amended when it or any
// descendant carries a revision date.

func articleAmendment(a *document.Article) *document.Amendment {
	if a.Amendment != nil {
		return a.Amendment
	}
	stack := make([]*document.Clause, 0, len(a.Clauses))
	for i := len(a.Clauses) - 1; i >= 0; i-- {
		stack = append(stack, &a.Clauses[i])
	}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.Amendment != nil {
			return c.Amendment
		}
		for i := len(c.Subclauses) - 1; i >= 0; i-- {
			stack = append(stack, &c.Subclauses[i])
		}
	}
	return nil
}

func articleHasAmendment(a *document.Article) bool {
	if articleAmendment(a) != nil {
		return true
	}
	for i := range a.Tables {
		if a.Tables[i].Amendment != nil {
			return true
		}
	}
	return false
}

func articlesHaveAmendment(articles []document.Article) bool {
	for i := range articles {
		if articleHasAmendment(&articles[i]) {
			return true
		}
	}
	return false
}

func sectionHasAmendment(s *document.Section) bool {
	for i := range s.Subsections {
		if articlesHaveAmendment(s.Subsections[i].Articles) {
			return true
		}
	}
	return articlesHaveAmendment(s.Articles)
}

func partHasAmendment(p *document.Part) bool {
	for i := range p.Sections {
		if sectionHasAmendment(&p.Sections[i]) {
			return true
		}
	}
	return false
}

func divisionHasAmendment(d *document.Division) bool {
	for i := range d.Parts {
		if partHasAmendment(&d.Parts[i]) {
			return true
		}
	}
	return false
}
