package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/amir0eveloper/rdmc-srshb/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "rdmc_session"
	maxJSONBody       = 1 << 20
)

type contextKey string

const identityKey contextKey = "identity"

type Options struct {
	Log            *zap.Logger
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
	SessionTTL     time.Duration
	SecureCookies  bool
}

type Handler struct {
	service *application.Service
	log     *zap.Logger
	metrics *metrics.Metrics
	opts    Options
}

func NewRouter(service *application.Service, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	h := &Handler{service: service, log: opts.Log, metrics: opts.Metrics, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(h.identify)

		api.Post("/auth/login", h.handleLogin)
		api.Post("/auth/logout", h.handleLogout)
		api.With(h.requireAuth).Get("/auth/whoami", h.handleWhoAmI)

		api.Get("/metadata/registry", h.handleMetadataRegistry)
		api.Get("/communities", h.handleListRootCommunities)
		api.Get("/communities/{id}", h.handleGetCommunity)
		api.Get("/collections", h.handleListCollections)
		api.Get("/collections/{id}", h.handleGetCollection)
		api.Get("/items/recent", h.handleRecentItems)
		api.Get("/items/{id}", h.handleGetPublishedItem)
		api.Get("/search", h.handleSearch)
		api.Post("/search/advanced", h.handleAdvancedSearch)
		api.Get("/browse/authors", h.handleBrowseAuthors)
		api.Get("/download/{bitstreamId}", h.handleDownload)

		api.Route("/discover", func(d chi.Router) {
			d.Get("/authors", h.handleAuthorFacet)
			d.Get("/subjects", h.handleSubjectFacet)
			d.Get("/dates", h.handleYearHistogram)
			d.Get("/date-range", h.handleDateRange)
		})

		api.Route("/statistics", func(s chi.Router) {
			s.Get("/summary", h.handleSummary)
			s.Get("/top-authors", h.handleTopAuthors)
			s.Get("/top-downloads", h.handleTopDownloads)
			s.Get("/downloads-over-time", h.handleDownloadsOverTime)
			s.Get("/submissions-over-time", h.handleSubmissionsOverTime)
			s.Get("/submissions-by-type", h.handleSubmissionsByType)
			s.Get("/most-active-collections", h.handleMostActiveCollections)
		})

		api.Route("/submit", func(s chi.Router) {
			s.Use(h.requireAuth)
			s.Get("/mine", h.handleMySubmissions)
			s.Post("/items", h.handleCreateItem)
			s.Get("/items/{id}", h.handleGetItem)
			s.Put("/items/{id}", h.handleUpdateItem)
			s.Post("/items/{id}/submit", h.handleSubmitItem)
			h.itemParts(s, "/items/{id}", h.handleAddMetadata)
		})

		api.Route("/review", func(rv chi.Router) {
			rv.Use(h.requireAuth)
			rv.Get("/queue", h.handleReviewQueue)
			rv.Put("/{itemId}", h.handleReview)
		})

		api.Route("/admin", func(a chi.Router) {
			a.Use(h.requireAuth)
			a.Get("/communities", h.handleAdminListCommunities)
			a.Post("/communities", h.handleCreateCommunity)
			a.Put("/communities/{id}", h.handleUpdateCommunity)
			a.Delete("/communities/{id}", h.handleDeleteCommunity)
			a.Post("/collections", h.handleCreateCollection)
			a.Put("/collections/{id}", h.handleUpdateCollection)
			a.Delete("/collections/{id}", h.handleDeleteCollection)

			a.Get("/users", h.handleListUsers)
			a.Post("/users", h.handleCreateUser)
			a.Get("/users/{id}", h.handleGetUser)
			a.Put("/users/{id}", h.handleUpdateUser)
			a.Delete("/users/{id}", h.handleDeleteUser)

			a.Get("/items", h.handleAdminListItems)
			a.Get("/items/{id}", h.handleGetItem)
			a.Put("/items/{id}", h.handleAdminUpdateItem)
			a.Delete("/items/{id}", h.handleDeleteItem)
			h.itemParts(a, "/items/{id}", h.handleAdminAddMetadata)

			a.Get("/audit", h.handleListAuditLogs)
		})
	})

	return r
}

// itemParts mounts the metadata and bitstream routes shared by the submit
// and admin trees. Only adding metadata differs between them.
func (h *Handler) itemParts(r chi.Router, prefix string, addMetadata http.HandlerFunc) {
	r.Get(prefix+"/metadata", h.handleListMetadata)
	r.Post(prefix+"/metadata", addMetadata)
	r.Put(prefix+"/metadata", h.handleUpdateMetadata)
	r.Delete(prefix+"/metadata/{metadataId}", h.handleDeleteMetadata)
	r.Get(prefix+"/bitstreams", h.handleListBitstreams)
	r.Post(prefix+"/bitstreams", h.handleUploadBitstream)
	r.Delete(prefix+"/bitstreams/{bitstreamId}", h.handleDeleteBitstream)
}

// observe logs every request and feeds the request metrics, labelled by
// route pattern rather than raw path.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if h.metrics != nil {
			h.metrics.ObserveRequest(route, r.Method, status, elapsed)
		}
		h.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// identify attaches the caller's identity when the request carries valid
// credentials. Requests without them continue anonymously.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := h.authenticateRequest(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, identity))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor(r) == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	if token, ok := bearerToken(r); ok {
		identity, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err == nil {
			return identity, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		identity, authErr := h.service.AuthenticateSession(r.Context(), c.Value)
		if authErr == nil {
			return identity, true
		}
	}

	return domain.Identity{}, false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[7:])
	return token, token != ""
}

// actor is the authenticated caller, or nil for anonymous requests.
func actor(r *http.Request) *domain.Identity {
	identity, ok := r.Context().Value(identityKey).(domain.Identity)
	if !ok {
		return nil
	}
	return &identity
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusOf maps an error class onto its HTTP status.
func statusOf(err error) int {
	switch domain.Kind(err) {
	case &domain.ErrUnauthorized:
		return http.StatusUnauthorized
	case &domain.ErrForbidden:
		return http.StatusForbidden
	case &domain.ErrValidation:
		return http.StatusBadRequest
	case &domain.ErrNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, map[string]any{"error": domain.Message(err)})
}

// respond writes value with status, or the error when err is set.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, value any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, value)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation.New("invalid payload")
	}
	return nil
}

func uintParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ErrValidation.New("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrValidation.New("invalid %s %q", name, raw)
	}
	return n, nil
}

func pageQuery(r *http.Request) (int, error) {
	return intQuery(r, "page")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
