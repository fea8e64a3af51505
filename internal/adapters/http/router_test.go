package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	api "github.com/amir0eveloper/rdmc-srshb/internal/adapters/http"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/db/sqlite"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/session"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/storage/filestore"
	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/amir0eveloper/rdmc-srshb/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	*httptest.Server
	svc *application.Service
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "rdmc.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	files, err := filestore.NewAt(t.TempDir(), log)
	require.NoError(t, err)

	m := metrics.New()
	svc := application.NewService(sqlite.NewRepository(db), files, session.NewSigner("test", time.Hour), log, application.WithRecorder(m))
	created, err := svc.BootstrapAdmin(ctx, "admin", "admin@example.org", "admin-pass")
	require.NoError(t, err)
	require.True(t, created)

	srv := httptest.NewServer(api.NewRouter(svc, api.Options{
		Log:            log,
		Metrics:        m,
		MaxUploadBytes: maxUpload,
		SessionTTL:     time.Hour,
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, login, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"login": login, "password": password})
	require.Equal(t, http.StatusOK, status, string(body))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) createUser(t *testing.T, adminToken, username string, role domain.Role) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/admin/users", adminToken, map[string]any{
		"name": username, "email": username + "@example.org", "username": username, "password": username + "-pass", "role": role,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return s.login(t, username, username+"-pass")
}

func (s *testServer) upload(t *testing.T, token string, itemID uint, name string, content []byte) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/submit/items/"+strconv.Itoa(int(itemID))+"/bitstreams", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestSubmissionToDownloadFlow(t *testing.T) {
	s := newTestServer(t, 1<<20)
	admin := s.login(t, "admin", "admin-pass")
	submitter := s.createUser(t, admin, "sam", domain.RoleSubmitter)
	reviewer := s.createUser(t, admin, "rita", domain.RoleReviewer)

	status, body := s.do(t, http.MethodPost, "/api/admin/communities", admin, map[string]any{"name": "Research"})
	require.Equal(t, http.StatusCreated, status, string(body))
	community := decode[domain.Community](t, body)
	status, body = s.do(t, http.MethodPost, "/api/admin/collections", admin, map[string]any{"name": "Reports", "community_id": community.ID})
	require.Equal(t, http.StatusCreated, status, string(body))
	collection := decode[domain.Collection](t, body)

	status, body = s.do(t, http.MethodPost, "/api/submit/items", submitter, map[string]any{
		"collection_id": collection.ID,
		"title":         "Coastal erosion survey",
		"metadata":      []map[string]string{{"key": domain.KeyAuthor, "value": "Doe, Jane"}},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	item := decode[domain.ItemDetail](t, body)
	assert.Equal(t, domain.StatusDraft, item.Status)

	status, body = s.upload(t, submitter, item.ID, "survey.pdf", []byte("%PDF-1.7"))
	require.Equal(t, http.StatusCreated, status, string(body))
	bitstream := decode[domain.Bitstream](t, body)

	path := "/api/items/" + strconv.Itoa(int(item.ID))
	status, _ = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(t, http.MethodGet, "/api/download/"+strconv.Itoa(int(bitstream.ID)), "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = s.do(t, http.MethodPost, "/api/submit/items/"+strconv.Itoa(int(item.ID))+"/submit", submitter, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = s.do(t, http.MethodPut, "/api/review/"+strconv.Itoa(int(item.ID)), admin, map[string]any{"status": "PUBLISHED"})
	assert.Equal(t, http.StatusForbidden, status)
	status, body = s.do(t, http.MethodPut, "/api/review/"+strconv.Itoa(int(item.ID)), reviewer, map[string]any{"status": "DRAFT"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"status must be PUBLISHED or REJECTED"}`, string(body))
	status, body = s.do(t, http.MethodPut, "/api/review/"+strconv.Itoa(int(item.ID)), reviewer, map[string]any{"status": "PUBLISHED"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status)
	public := decode[domain.ItemDetail](t, body)
	require.Len(t, public.Bitstreams, 1)
	assert.Equal(t, "Doe, Jane", public.Metadata[1].Value)

	resp, err := s.Client().Get(s.URL + "/api/download/" + strconv.Itoa(int(bitstream.ID)))
	require.NoError(t, err)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.7", string(content))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "survey.pdf")

	status, body = s.do(t, http.MethodGet, "/api/search?q=erosion", "", nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[domain.Page[domain.ItemListing]](t, body)
	assert.EqualValues(t, 1, page.Total)

	status, body = s.do(t, http.MethodGet, "/api/statistics/summary", "", nil)
	require.Equal(t, http.StatusOK, status)
	summary := decode[domain.StatsSummary](t, body)
	assert.EqualValues(t, 1, summary.TotalDownloads)

	status, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `rdmc_item_transitions_total{from="IN_REVIEW",to="PUBLISHED"} 1`)
	assert.Contains(t, string(body), "rdmc_bitstream_downloads_total 1")
	assert.Contains(t, string(body), `route="/api/items/{id}"`)
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t, 1<<20)
	admin := s.login(t, "admin", "admin-pass")
	reviewer := s.createUser(t, admin, "rita", domain.RoleReviewer)

	status, body := s.do(t, http.MethodGet, "/api/items/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"item not found"}`, string(body))

	status, _ = s.do(t, http.MethodPost, "/api/submit/items", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/admin/communities", reviewer, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/api/admin/communities", admin, map[string]any{"unknown": "x"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/communities/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/search?start_year=2020", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"login": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSessionCookieAndLogout(t *testing.T) {
	s := newTestServer(t, 1<<20)

	resp, err := s.Client().Post(s.URL+"/api/auth/login", "application/json",
		strings.NewReader(`{"login":"admin","password":"admin-pass","mode":"session"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "rdmc_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/auth/whoami", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err = s.Client().Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", decode[domain.Identity](t, body).Username)

	token := s.login(t, "admin", "admin-pass")
	status, _ := s.do(t, http.MethodGet, "/api/auth/whoami", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/auth/whoami", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUploadLimit(t *testing.T) {
	s := newTestServer(t, 512)
	admin := s.login(t, "admin", "admin-pass")

	status, body := s.do(t, http.MethodPost, "/api/admin/communities", admin, map[string]any{"name": "Research"})
	require.Equal(t, http.StatusCreated, status, string(body))
	community := decode[domain.Community](t, body)
	status, body = s.do(t, http.MethodPost, "/api/admin/collections", admin, map[string]any{"name": "Reports", "community_id": community.ID})
	require.Equal(t, http.StatusCreated, status, string(body))
	collection := decode[domain.Collection](t, body)
	status, body = s.do(t, http.MethodPost, "/api/submit/items", admin, map[string]any{"collection_id": collection.ID, "title": "Big"})
	require.Equal(t, http.StatusCreated, status, string(body))
	item := decode[domain.ItemDetail](t, body)

	status, body = s.upload(t, admin, item.ID, "big.bin", bytes.Repeat([]byte("x"), 4096))
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = s.do(t, http.MethodGet, "/api/submit/items/"+strconv.Itoa(int(item.ID))+"/bitstreams", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}
