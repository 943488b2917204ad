// Package indexer flattens a hierarchical building code into ranked,
// filterable search documents plus aggregate metadata, and serializes both
// into versioned artifacts.
package indexer

import (
	"github.com/hagall/raido/internal/reftag"
)

// Content types emitted by the builder.
const (
	TypeDivision   = "division"
	TypePart       = "part"
	TypeSection    = "section"
	TypeSubsection = "subsection"
	TypeArticle    = "article"
	TypeTable      = "table"
	TypeFigure     = "figure"
	TypeGlossary   = "glossary"
)

// TypePolicy is the per-content-type indexing policy. Priority is copied
// verbatim onto every SearchDocument of that type; ranking never computes
// weights ad hoc.
type TypePolicy struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	Priority       float64 `json:"priority" yaml:"priority"`
	AmendmentBoost float64 `json:"amendmentBoost" yaml:"amendment_boost"`
}

// ReferenceConfig controls inline reference-tag handling.
type ReferenceConfig struct {
	StripFromSearchText  bool          `json:"stripFromSearchText" yaml:"strip_from_search_text"`
	PreserveReferenceIDs bool          `json:"preserveReferenceIds" yaml:"preserve_reference_ids"`
	ProcessTypes         []reftag.Kind `json:"processTypes" yaml:"process_types"`
}

// processSet returns ProcessTypes as a lookup set.
func (r ReferenceConfig) processSet() map[reftag.Kind]bool {
	set := make(map[reftag.Kind]bool, len(r.ProcessTypes))
	for _, k := range r.ProcessTypes {
		set[k] = true
	}
	return set
}

// TextExtractionConfig controls the clause-tree walk and length caps.
type TextExtractionConfig struct {
	IncludeSentences  bool `json:"includeSentences" yaml:"include_sentences"`
	IncludeClauses    bool `json:"includeClauses" yaml:"include_clauses"`
	IncludeSubclauses bool `json:"includeSubclauses" yaml:"include_subclauses"`
	MaxTextLength     int  `json:"maxTextLength" yaml:"max_text_length"`
	SnippetLength     int  `json:"snippetLength" yaml:"snippet_length"`
}

// OutputConfig controls artifact serialization.
type OutputConfig struct {
	GenerateMetadataJSON    bool `json:"generateMetadataJson" yaml:"generate_metadata_json"`
	GenerateIndividualFiles bool `json:"generateIndividualFiles" yaml:"generate_individual_files"`
	PrettyPrint             bool `json:"prettyPrint" yaml:"pretty_print"`
	IncludeStatistics       bool `json:"includeStatistics" yaml:"include_statistics"`
}

// Config is the complete indexing policy. Callers never construct it
// directly; they start from DefaultConfig and apply Overrides.
type Config struct {
	ContentTypes   map[string]TypePolicy `json:"contentTypes" yaml:"content_types"`
	References     ReferenceConfig       `json:"references" yaml:"references"`
	TextExtraction TextExtractionConfig  `json:"textExtraction" yaml:"text_extraction"`
	Output         OutputConfig          `json:"output" yaml:"output"`
}

// DefaultConfig returns the documented default indexing policy.
func DefaultConfig() Config {
	return Config{
		ContentTypes: map[string]TypePolicy{
			TypeDivision:   {Enabled: true, Priority: 20, AmendmentBoost: 1.0},
			TypePart:       {Enabled: true, Priority: 30, AmendmentBoost: 1.0},
			TypeSection:    {Enabled: true, Priority: 50, AmendmentBoost: 1.1},
			TypeSubsection: {Enabled: true, Priority: 60, AmendmentBoost: 1.1},
			TypeArticle:    {Enabled: true, Priority: 100, AmendmentBoost: 1.25},
			TypeTable:      {Enabled: true, Priority: 70, AmendmentBoost: 1.2},
			TypeFigure:     {Enabled: true, Priority: 40, AmendmentBoost: 1.0},
			TypeGlossary:   {Enabled: true, Priority: 80, AmendmentBoost: 1.0},
		},
		References: ReferenceConfig{
			StripFromSearchText:  true,
			PreserveReferenceIDs: true,
			ProcessTypes:         []reftag.Kind{reftag.KindTerm, reftag.KindInternal},
		},
		TextExtraction: TextExtractionConfig{
			IncludeSentences:  true,
			IncludeClauses:    true,
			IncludeSubclauses: true,
			MaxTextLength:     5000,
			SnippetLength:     160,
		},
		Output: OutputConfig{
			GenerateMetadataJSON:    true,
			GenerateIndividualFiles: false,
			PrettyPrint:             false,
			IncludeStatistics:       true,
		},
	}
}

// TypePolicyOverride overrides individual fields of a TypePolicy. Nil fields
// inherit the default.
type TypePolicyOverride struct {
	Enabled        *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Priority       *float64 `json:"priority,omitempty" yaml:"priority,omitempty"`
	AmendmentBoost *float64 `json:"amendmentBoost,omitempty" yaml:"amendment_boost,omitempty"`
}

// ReferenceOverride overrides individual reference-handling fields.
type ReferenceOverride struct {
	StripFromSearchText  *bool         `json:"stripFromSearchText,omitempty" yaml:"strip_from_search_text,omitempty"`
	PreserveReferenceIDs *bool         `json:"preserveReferenceIds,omitempty" yaml:"preserve_reference_ids,omitempty"`
	ProcessTypes         []reftag.Kind `json:"processTypes,omitempty" yaml:"process_types,omitempty"`
}

// TextExtractionOverride overrides individual extraction fields.
type TextExtractionOverride struct {
	IncludeSentences  *bool `json:"includeSentences,omitempty" yaml:"include_sentences,omitempty"`
	IncludeClauses    *bool `json:"includeClauses,omitempty" yaml:"include_clauses,omitempty"`
	IncludeSubclauses *bool `json:"includeSubclauses,omitempty" yaml:"include_subclauses,omitempty"`
	MaxTextLength     *int  `json:"maxTextLength,omitempty" yaml:"max_text_length,omitempty"`
	SnippetLength     *int  `json:"snippetLength,omitempty" yaml:"snippet_length,omitempty"`
}

// OutputOverride overrides individual output fields.
type OutputOverride struct {
	GenerateMetadataJSON    *bool `json:"generateMetadataJson,omitempty" yaml:"generate_metadata_json,omitempty"`
	GenerateIndividualFiles *bool `json:"generateIndividualFiles,omitempty" yaml:"generate_individual_files,omitempty"`
	PrettyPrint             *bool `json:"prettyPrint,omitempty" yaml:"pretty_print,omitempty"`
	IncludeStatistics       *bool `json:"includeStatistics,omitempty" yaml:"include_statistics,omitempty"`
}

// Overrides is a partial Config. Every field is optional; omitted fields
// inherit the default at their own level, not in whole blocks, so setting
// one extraction flag leaves the other extraction defaults intact.
type Overrides struct {
	ContentTypes   map[string]TypePolicyOverride `json:"contentTypes,omitempty" yaml:"content_types,omitempty"`
	References     *ReferenceOverride            `json:"references,omitempty" yaml:"references,omitempty"`
	TextExtraction *TextExtractionOverride       `json:"textExtraction,omitempty" yaml:"text_extraction,omitempty"`
	Output         *OutputOverride               `json:"output,omitempty" yaml:"output,omitempty"`
}

// MergeConfig applies o over base field by field and returns the result.
// The merge is recursive: an override block replaces only the fields it
// sets. A nil or empty Overrides returns base unchanged.
func MergeConfig(base Config, o *Overrides) Config {
	cfg := base
	// The map is shared with base otherwise; copy before mutating.
	cfg.ContentTypes = make(map[string]TypePolicy, len(base.ContentTypes))
	for k, v := range base.ContentTypes {
		cfg.ContentTypes[k] = v
	}
	if o == nil {
		return cfg
	}

	for name, ov := range o.ContentTypes {
		policy := cfg.ContentTypes[name]
		if ov.Enabled != nil {
			policy.Enabled = *ov.Enabled
		}
		if ov.Priority != nil {
			policy.Priority = *ov.Priority
		}
		if ov.AmendmentBoost != nil {
			policy.AmendmentBoost = *ov.AmendmentBoost
		}
		cfg.ContentTypes[name] = policy
	}

	if r := o.References; r != nil {
		if r.StripFromSearchText != nil {
			cfg.References.StripFromSearchText = *r.StripFromSearchText
		}
		if r.PreserveReferenceIDs != nil {
			cfg.References.PreserveReferenceIDs = *r.PreserveReferenceIDs
		}
		if r.ProcessTypes != nil {
			cfg.References.ProcessTypes = append([]reftag.Kind(nil), r.ProcessTypes...)
		}
	}

	if t := o.TextExtraction; t != nil {
		if t.IncludeSentences != nil {
			cfg.TextExtraction.IncludeSentences = *t.IncludeSentences
		}
		if t.IncludeClauses != nil {
			cfg.TextExtraction.IncludeClauses = *t.IncludeClauses
		}
		if t.IncludeSubclauses != nil {
			cfg.TextExtraction.IncludeSubclauses = *t.IncludeSubclauses
		}
		if t.MaxTextLength != nil {
			cfg.TextExtraction.MaxTextLength = *t.MaxTextLength
		}
		if t.SnippetLength != nil {
			cfg.TextExtraction.SnippetLength = *t.SnippetLength
		}
	}

	if out := o.Output; out != nil {
		if out.GenerateMetadataJSON != nil {
			cfg.Output.GenerateMetadataJSON = *out.GenerateMetadataJSON
		}
		if out.GenerateIndividualFiles != nil {
			cfg.Output.GenerateIndividualFiles = *out.GenerateIndividualFiles
		}
		if out.PrettyPrint != nil {
			cfg.Output.PrettyPrint = *out.PrettyPrint
		}
		if out.IncludeStatistics != nil {
			cfg.Output.IncludeStatistics = *out.IncludeStatistics
		}
	}

	return cfg
}
