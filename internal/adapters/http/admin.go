package http

import (
	"net/http"

	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

func (h *Handler) handleAdminListCommunities(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCommunities(r.Context(), actor(r))
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *Handler) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	var in application.CommunityInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.service.CreateCommunity(r.Context(), actor(r), in)
	h.respond(w, r, http.StatusCreated, c, err)
}

func (h *Handler) handleUpdateCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in application.CommunityInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.service.UpdateCommunity(r.Context(), actor(r), id, in)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) handleDeleteCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.service.DeleteCommunity(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var in application.CollectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.service.CreateCollection(r.Context(), actor(r), in)
	h.respond(w, r, http.StatusCreated, c, err)
}

func (h *Handler) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in application.CollectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.service.UpdateCollection(r.Context(), actor(r), id, in)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.service.DeleteCollection(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), actor(r), r.URL.Query().Get("q"), limit)
	h.respond(w, r, http.StatusOK, users, err)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in application.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.service.CreateUser(r.Context(), actor(r), in)
	h.respond(w, r, http.StatusCreated, u, err)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.service.GetUser(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, u, err)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in application.UserUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.service.UpdateUser(r.Context(), actor(r), id, in)
	h.respond(w, r, http.StatusOK, u, err)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.service.DeleteUser(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleAdminListItems(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var status domain.ItemStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := domain.ParseItemStatus(raw)
		if !ok {
			h.writeError(w, r, domain.ErrValidation.New("unknown status %q", raw))
			return
		}
		status = parsed
	}
	items, err := h.service.ListItems(r.Context(), actor(r), status, page)
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *Handler) handleAdminUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in application.AdminItemUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.service.AdminUpdateItem(r.Context(), actor(r), id, in)
	h.respond(w, r, http.StatusOK, item, err)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.service.DeleteItem(r.Context(), actor(r), id)
	h.respond(w, r, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logs, err := h.service.ListAuditLogs(r.Context(), actor(r), limit)
	h.respond(w, r, http.StatusOK, logs, err)
}
