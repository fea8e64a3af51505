package http

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
)

func (h *Handler) handleMetadataRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.MetadataRegistry())
}

func (h *Handler) handleListRootCommunities(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRootCommunities(r.Context())
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *Handler) handleGetCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.service.GetCommunity(r.Context(), id)
	h.respond(w, r, http.StatusOK, detail, err)
}

func (h *Handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	var communityID *uint
	if raw := strings.TrimSpace(r.URL.Query().Get("community_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation.New("invalid community_id %q", raw))
			return
		}
		v := uint(id)
		communityID = &v
	}
	list, err := h.service.ListCollections(r.Context(), communityID)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *Handler) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	collection, err := h.service.GetCollection(r.Context(), id, page)
	h.respond(w, r, http.StatusOK, collection, err)
}

func (h *Handler) handleRecentItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.RecentItems(r.Context())
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *Handler) handleGetPublishedItem(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.GetPublishedItem(r.Context(), id)
	h.respond(w, r, http.StatusOK, item, err)
}

// handleSearch covers the simple, facet and date range modes through query
// parameters. Advanced queries are posted as JSON.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.SearchQuery{
		Text:       q.Get("q"),
		Facet:      domain.SearchField(q.Get("facet")),
		FacetValue: q.Get("value"),
	}
	var err error
	for name, dst := range map[string]*int{
		"start_year": &query.StartYear,
		"end_year":   &query.EndYear,
		"page":       &query.Page,
		"page_size":  &query.PageSize,
	} {
		if *dst, err = intQuery(r, name); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	page, err := h.service.Search(r.Context(), query)
	h.respond(w, r, http.StatusOK, page, err)
}

func (h *Handler) handleAdvancedSearch(w http.ResponseWriter, r *http.Request) {
	var query domain.SearchQuery
	if err := decodeJSON(w, r, &query); err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.service.Search(r.Context(), query)
	h.respond(w, r, http.StatusOK, page, err)
}

func (h *Handler) handleBrowseAuthors(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	authors, err := h.service.BrowseAuthors(r.Context(), page)
	h.respond(w, r, http.StatusOK, authors, err)
}

func (h *Handler) handleAuthorFacet(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.AuthorFacet(r.Context())
	h.respond(w, r, http.StatusOK, entries, err)
}

func (h *Handler) handleSubjectFacet(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.SubjectFacet(r.Context())
	h.respond(w, r, http.StatusOK, entries, err)
}

func (h *Handler) handleYearHistogram(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.YearHistogram(r.Context())
	h.respond(w, r, http.StatusOK, years, err)
}

func (h *Handler) handleDateRange(w http.ResponseWriter, r *http.Request) {
	span, err := h.service.DateRange(r.Context())
	h.respond(w, r, http.StatusOK, span, err)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	h.respond(w, r, http.StatusOK, summary, err)
}

func (h *Handler) handleTopAuthors(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.TopAuthors(r.Context())
	h.respond(w, r, http.StatusOK, entries, err)
}

func (h *Handler) handleTopDownloads(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.TopDownloads(r.Context())
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *Handler) handleDownloadsOverTime(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.DownloadsOverTime(r.Context())
	h.respond(w, r, http.StatusOK, series, err)
}

func (h *Handler) handleSubmissionsOverTime(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.SubmissionsOverTime(r.Context())
	h.respond(w, r, http.StatusOK, series, err)
}

func (h *Handler) handleSubmissionsByType(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.SubmissionsByType(r.Context())
	h.respond(w, r, http.StatusOK, entries, err)
}

func (h *Handler) handleMostActiveCollections(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.MostActiveCollections(r.Context())
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "bitstreamId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, content, err := h.service.Download(r.Context(), actor(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", b.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(b.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": b.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		h.log.Warn("download interrupted", zap.Uint("bitstream_id", b.ID), zap.Error(err))
	}
}
