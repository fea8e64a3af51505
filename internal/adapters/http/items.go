package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

func (h *Handler) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := h.service.ListMySubmissions(r.Context(), actor(r), page)
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in application.NewItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.CreateItem(r.Context(), actor(r), in)
	h.respond(w, r, http.StatusCreated, item, err)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, item, err)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.UpdateItemTitle(r.Context(), actor(r), id, in.Title)
	h.respond(w, r, http.StatusOK, item, err)
}

func (h *Handler) handleSubmitItem(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.SubmitItem(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, item, err)
}

func (h *Handler) handleListMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fields, err := h.service.ListItemMetadata(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, fields, err)
}

func (h *Handler) handleAddMetadata(w http.ResponseWriter, r *http.Request) {
	h.addMetadata(w, r, h.service.AddMetadata)
}

func (h *Handler) handleAdminAddMetadata(w http.ResponseWriter, r *http.Request) {
	h.addMetadata(w, r, h.service.AdminAddMetadata)
}

func (h *Handler) addMetadata(w http.ResponseWriter, r *http.Request, add func(ctx context.Context, actor *domain.Identity, itemID uint, in application.MetadataInput) (domain.MetadataField, error)) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in application.MetadataInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	field, err := add(r.Context(), actor(r), id, in)
	h.respond(w, r, http.StatusCreated, field, err)
}

// handleUpdateMetadata takes a JSON array of {id, value} pairs and applies
// all of them or none.
func (h *Handler) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var updates []domain.MetadataUpdate
	if err := decodeJSON(w, r, &updates); err != nil {
		h.writeError(w, r, err)
		return
	}
	fields, err := h.service.UpdateMetadata(r.Context(), actor(r), id, updates)
	h.respond(w, r, http.StatusOK, fields, err)
}

func (h *Handler) handleDeleteMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fieldID, err := uintParam(r, "metadataId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.service.DeleteMetadata(r.Context(), actor(r), id, fieldID)
	h.respond(w, r, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleListBitstreams(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.service.ListItemBitstreams(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, list, err)
}

// handleUploadBitstream streams the multipart part named "file" straight
// into the file store.
func (h *Handler) handleUploadBitstream(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, domain.ErrValidation.New("multipart form expected"))
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			h.writeError(w, r, domain.ErrValidation.New("file is required"))
			return
		}
		if err != nil {
			h.writeError(w, r, h.uploadError(err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		b, err := h.service.UploadBitstream(r.Context(), actor(r), id, application.UploadInput{
			Name:     part.FileName(),
			MimeType: part.Header.Get("Content-Type"),
			Content:  part,
		})
		_ = part.Close()
		h.respond(w, r, http.StatusCreated, b, h.uploadError(err))
		return
	}
}

func (h *Handler) uploadError(err error) error {
	if err != nil && isTooLarge(err) {
		return domain.ErrValidation.New("file exceeds %d bytes", h.opts.MaxUploadBytes)
	}
	return err
}

func (h *Handler) handleDeleteBitstream(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bitstreamID, err := uintParam(r, "bitstreamId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.service.DeleteBitstream(r.Context(), actor(r), id, bitstreamID)
	h.respond(w, r, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	queue, err := h.service.ReviewQueue(r.Context(), actor(r), page)
	h.respond(w, r, http.StatusOK, queue, err)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "itemId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.Review(r.Context(), actor(r), id, in.Status)
	h.respond(w, r, http.StatusOK, item, err)
}
