package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hagall/raido/internal/apperr"
	"github.com/hagall/raido/internal/engine"
)

// EngineProvider yields the engine generation serving requests right now.
// Satisfied by engine.Holder; rebuilds swap generations underneath it.
type EngineProvider interface {
	Current() *engine.Engine
}

// Handler holds API route handlers.
type Handler struct {
	engines EngineProvider
}

// NewHandler creates a new Handler.
func NewHandler(engines EngineProvider) *Handler {
	return &Handler{engines: engines}
}

// documentID extracts the document ID from the URL (everything after
// /api/documents/). Supports encoded slashes and colons from clients
// (e.g. article%3AA%2F1).
func documentID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Search handles GET /api/search.
//
//	@Summary		Ranked full-text search across the code
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query"
//	@Param			types		query		string	false	"Comma-separated content types"
//	@Param			division	query		string	false	"Restrict to one division number"
//	@Param			amended		query		bool	false	"Only amended provisions"
//	@Param			limit		query		int		false	"Max results"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	var types []string
	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	amended, _ := strconv.ParseBool(q.Get("amended"))

	eng := h.engines.Current()
	results, err := eng.Search(r.Context(), engine.Query{
		Text:        text,
		Types:       types,
		Division:    q.Get("division"),
		AmendedOnly: amended,
		Limit:       limit,
	})
	if err != nil {
		slog.Error("search failed", slog.String("query", text), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Total:   len(results),
		State:   string(eng.State()),
	})
}

// Suggest handles GET /api/suggest.
//
//	@Summary		Title suggestions for typeahead
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Prefix query"
//	@Param			limit	query		int		false	"Max suggestions"
//	@Success		200		{object}	SuggestResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	suggestions, err := h.engines.Current().Suggestions(r.Context(), text, limit)
	if err != nil {
		slog.Error("suggest failed", slog.String("query", text), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single search document by ID
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	indexer.SearchDocument
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("document id is required"))
		return
	}
	doc, err := h.engines.Current().GetDocument(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrNotReady):
			writeJSON(w, http.StatusServiceUnavailable, errorBody("index not ready"))
		default:
			slog.Error("get document failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Metadata handles GET /api/metadata.
//
//	@Summary		Full corpus metadata
//	@Tags			metadata
//	@Produce		json
//	@Success		200	{object}	indexer.Metadata
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata [get]
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.engines.Current().Metadata(r.Context())
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// TOC handles GET /api/toc.
//
//	@Summary		Table of contents
//	@Tags			metadata
//	@Produce		json
//	@Success		200	{object}	TOCResponse
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/toc [get]
func (h *Handler) TOC(w http.ResponseWriter, r *http.Request) {
	meta, err := h.engines.Current().Metadata(r.Context())
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TOCResponse{TableOfContents: meta.TableOfContents})
}

// Amendments handles GET /api/amendments.
//
//	@Summary		Distinct revision dates, oldest first
//	@Tags			metadata
//	@Produce		json
//	@Success		200	{object}	AmendmentsResponse
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/amendments [get]
func (h *Handler) Amendments(w http.ResponseWriter, r *http.Request) {
	revs, err := h.engines.Current().Amendments(r.Context())
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmendmentsResponse{Amendments: revs})
}

func (h *Handler) writeMetadataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index not ready"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("metadata not available"))
	default:
		slog.Error("metadata failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
