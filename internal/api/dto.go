package api

import (
	"github.com/hagall/raido/internal/engine"
	"github.com/hagall/raido/internal/indexer"
)

// SearchResult is a single search hit (aliased from the engine).
type SearchResult = engine.Result

// Suggestion is a typeahead entry (aliased from the engine).
type Suggestion = engine.Suggestion

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
	Total   int            `json:"total" example:"12" validate:"required"`
	State   string         `json:"state" example:"ready" validate:"required"`
}

// SuggestResponse wraps typeahead suggestions.
type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions" validate:"required"`
}

// AmendmentsResponse wraps the distinct revision dates, oldest first.
type AmendmentsResponse struct {
	Amendments []indexer.RevisionDate `json:"amendments" validate:"required"`
}

// TOCResponse wraps the table of contents.
type TOCResponse struct {
	TableOfContents []indexer.TOCDivision `json:"tableOfContents" validate:"required"`
}
