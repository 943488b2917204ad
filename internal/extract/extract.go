// Package extract produces normalized plain text and bounded snippets from
// the clause tree of an article or the cells of a table.
package extract

import "strings"

// Ellipsis is appended to a snippet when truncation occurred.
const Ellipsis = "…"

// MaxClauseDepth bounds the clause-tree walk. The walk is iterative, so a
// pathologically nested document cannot grow the goroutine stack; nodes
// beyond this depth are ignored.
const MaxClauseDepth = 64

// Options controls what the article walk includes and where text is cut.
type Options struct {
	IncludeSentences  bool // the article's own text
	IncludeClauses    bool // first-level clauses
	IncludeSubclauses bool // nested subclauses, recursively
	MaxTextLength     int  // hard cap on extracted text, in runes

	// Transform, when set, is applied to each raw text span before
	// normalization (reference stripping hooks in here).
	Transform func(string) string
}

func (o Options) apply(s string) string {
	if o.Transform != nil {
		s = o.Transform(s)
	}
	return NormalizeWhitespace(s)
}

// Clause is the minimal shape of a clause node the extractor walks. It
// mirrors document.Clause without importing it, keeping this package a leaf.
type Clause struct {
	Text       string
	Subclauses []Clause
}

// NormalizeWhitespace collapses all consecutive whitespace to single spaces
// and trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ArticleText concatenates the article's own text and its clause tree
// depth-first in source order, joined by single spaces, normalized, and
// truncated to opts.MaxTextLength. Truncation happens here so downstream
// length invariants hold unconditionally.
func ArticleText(articleText string, clauses []Clause, opts Options) string {
	var parts []string
	if opts.IncludeSentences {
		if t := opts.apply(articleText); t != "" {
			parts = append(parts, t)
		}
	}
	if opts.IncludeClauses {
		parts = appendClauseText(parts, clauses, opts)
	}
	return Truncate(strings.Join(parts, " "), opts.MaxTextLength)
}

// appendClauseText walks the clause tree with an explicit stack, depth-first
// and order-preserving. Children are pushed in reverse so they pop in source
// order.
func appendClauseText(parts []string, clauses []Clause, opts Options) []string {
	type frame struct {
		clause Clause
		depth  int
	}
	stack := make([]frame, 0, len(clauses))
	for i := len(clauses) - 1; i >= 0; i-- {
		stack = append(stack, frame{clauses[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > MaxClauseDepth {
			continue
		}
		if t := opts.apply(f.clause.Text); t != "" {
			parts = append(parts, t)
		}
		if !opts.IncludeSubclauses {
			continue
		}
		subs := f.clause.Subclauses
		for i := len(subs) - 1; i >= 0; i-- {
			stack = append(stack, frame{subs[i], f.depth + 1})
		}
	}
	return parts
}

// TableText concatenates a table's header and cell text row-major, with the
// same normalization as article text.
func TableText(title string, header []string, rows [][]string, maxLen int) string {
	var parts []string
	if t := NormalizeWhitespace(title); t != "" {
		parts = append(parts, t)
	}
	for _, h := range header {
		if t := NormalizeWhitespace(h); t != "" {
			parts = append(parts, t)
		}
	}
	for _, row := range rows {
		for _, cell := range row {
			if t := NormalizeWhitespace(cell); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return Truncate(strings.Join(parts, " "), maxLen)
}

// Truncate cuts s to at most max runes. A non-positive max means no limit.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Snippet returns the first n runes of already-normalized text, breaking on
// a word boundary where possible and appending an ellipsis only when
// truncation occurred. The returned snippet, marker included, never exceeds
// n runes.
func Snippet(text string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(text)
	if len(r) <= n {
		return text
	}

	// Reserve one rune for the ellipsis. If the cut lands mid-word, back up
	// to the previous word boundary.
	cut := n - 1
	window := string(r[:cut])
	if r[cut] != ' ' {
		if i := strings.LastIndex(window, " "); i > 0 {
			window = window[:i]
		}
	}
	return strings.TrimRight(window, " ") + Ellipsis
}
