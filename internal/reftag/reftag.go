// Package reftag recognizes and normalizes the inline reference-tag syntax
// embedded in clause text:
//
//	[REF:kind:targetId]display text[/REF]
//
// where kind is one of term, internal, external, or standard. Parsing is
// tolerant: anything that does not form a complete, well-formed tag is left
// as literal text and never reported as an error.
package reftag

import (
	"regexp"
	"strings"
)

// Kind classifies a reference tag.
type Kind string

const (
	KindTerm     Kind = "term"     // glossary term
	KindInternal Kind = "internal" // cross-reference within the document
	KindExternal Kind = "external" // reference outside the document
	KindStandard Kind = "standard" // standards citation (e.g. CSA, ASTM)
)

// Tag is one recognized inline reference, in source order.
type Tag struct {
	Kind     Kind
	TargetID string
	Display  string
}

// tagRe matches a complete open/display/close sequence. The display group is
// non-greedy so adjacent tags do not merge.
var tagRe = regexp.MustCompile(`\[REF:(term|internal|external|standard):([^:\[\]]+)\](.*?)\[/REF\]`)

// Extract scans text once, left to right, and returns every well-formed tag
// in source order. Malformed tag syntax is skipped silently.
func Extract(text string) []Tag {
	matches := tagRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Tag, 0, len(matches))
	for _, m := range matches {
		out = append(out, Tag{
			Kind:     Kind(m[1]),
			TargetID: m[2],
			Display:  m[3],
		})
	}
	return out
}

// Contains reports whether text carries at least one tag of the given kind.
// Detection is unconditional: it does not consult any strip configuration.
func Contains(text string, kind Kind) bool {
	for _, t := range Extract(text) {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

// Strip replaces each tag whose kind is in process with its display text.
// Tags of other kinds are left verbatim, delimiters included, so later
// stages can choose how to render them. Strip is pure and total over
// arbitrary input.
func Strip(text string, process map[Kind]bool) string {
	if len(process) == 0 {
		return text
	}
	return tagRe.ReplaceAllStringFunc(text, func(match string) string {
		m := tagRe.FindStringSubmatch(match)
		if m == nil {
			return match
		}
		if process[Kind(m[1])] {
			return m[3]
		}
		return match
	})
}

// TargetIDs returns the target identifiers of tags whose kind is in process,
// in source order, deduplicated.
func TargetIDs(text string, process map[Kind]bool) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range Extract(text) {
		if !process[t.Kind] {
			continue
		}
		key := string(t.Kind) + ":" + t.TargetID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t.TargetID)
	}
	return out
}

// HasOpenDelimiter reports whether text still contains a tag opener for any
// of the given kinds. Used by tests to assert complete stripping.
func HasOpenDelimiter(text string, kinds ...Kind) bool {
	for _, k := range kinds {
		if strings.Contains(text, "[REF:"+string(k)+":") {
			return true
		}
	}
	return false
}
