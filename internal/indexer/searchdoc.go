package indexer

// SearchDocument is one flat, self-describing record in the documents
// artifact. Instances are created once per build run and never mutated
// afterwards; the runtime engine treats them as read-only.
type SearchDocument struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Snippet string `json:"snippet"`

	DivisionNumber   string `json:"divisionNumber,omitempty"`
	PartNumber       string `json:"partNumber,omitempty"`
	SectionNumber    string `json:"sectionNumber,omitempty"`
	SubsectionNumber string `json:"subsectionNumber,omitempty"`
	ArticleNumber    string `json:"articleNumber,omitempty"`

	DivisionTitle   string `json:"divisionTitle,omitempty"`
	PartTitle       string `json:"partTitle,omitempty"`
	SectionTitle    string `json:"sectionTitle,omitempty"`
	SubsectionTitle string `json:"subsectionTitle,omitempty"`

	// Breadcrumbs are ancestor titles, root first, excluding the node itself.
	Breadcrumbs []string `json:"breadcrumbs"`
	URLPath     string   `json:"urlPath"`

	// SearchPriority is copied verbatim from the content-type policy.
	SearchPriority float64 `json:"searchPriority"`

	HasAmendment    bool `json:"hasAmendment"`
	HasInternalRefs bool `json:"hasInternalRefs"`
	HasTermRefs     bool `json:"hasTermRefs"`
	HasTables       bool `json:"hasTables"`
	HasFigures      bool `json:"hasFigures"`

	// Amendment fields of the node itself (nearest own revision), used by
	// the metadata aggregator and the amendments filter.
	EffectiveDate string `json:"effectiveDate,omitempty"`
	DisplayDate   string `json:"displayDate,omitempty"`
	RevisionType  string `json:"revisionType,omitempty"`

	// ReferenceIDs are the target identifiers of processed reference tags,
	// populated when the config asks for them to be preserved.
	ReferenceIDs []string `json:"referenceIds,omitempty"`

	// Ordinal is the document's position in the canonical depth-first
	// order. It is the deterministic tie-breaker for equal-score results
	// and the sort key that restores canonical order after any future
	// parallel build.
	Ordinal int `json:"ordinal"`
}

// Numbers returns the ancestor numbers present on the document, coarsest
// first. Used for the indexed number field and for URL assembly.
func (d *SearchDocument) Numbers() []string {
	var out []string
	for _, n := range []string{
		d.DivisionNumber, d.PartNumber, d.SectionNumber, d.SubsectionNumber, d.ArticleNumber,
	} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
