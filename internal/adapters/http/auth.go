package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

type loginRequest struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
	TTLHours  int    `json:"ttl_hours"`
}

// handleLogin issues a session cookie for browsers or a bearer token for the
// CLI. Token mode is the default.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "session":
		identity, token, err := h.service.LoginWithSession(r.Context(), req.Login, req.Password)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user": identity, "mode": "session"})
	case "", "token":
		var ttl *time.Duration
		if req.TTLHours > 0 {
			d := time.Duration(req.TTLHours) * time.Hour
			ttl = &d
		}
		identity, token, err := h.service.LoginWithAPIToken(r.Context(), req.Login, req.Password, req.TokenName, ttl)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": identity, "mode": "token", "token": token})
	default:
		h.writeError(w, r, domain.ErrValidation.New("mode must be session or token"))
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		if err := h.service.RevokeAPIToken(r.Context(), token); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actor(r))
}
