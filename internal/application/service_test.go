package application_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/db/sqlite"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/session"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/storage/filestore"
	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type transitionRecorder struct {
	mu          sync.Mutex
	transitions []string
	downloads   int
}

func (r *transitionRecorder) ObserveTransition(from, to domain.ItemStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, string(from)+">"+string(to))
}

func (r *transitionRecorder) ObserveDownload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads++
}

type env struct {
	svc        *application.Service
	repo       *sqlite.Repository
	files      *filestore.Store
	recorder   *transitionRecorder
	admin      *domain.Identity
	reviewer   *domain.Identity
	submitter  *domain.Identity
	other      *domain.Identity
	community  domain.Community
	collection domain.Collection
}

// envSetup swaps in wrapped adapters or a different logger.
type envSetup struct {
	repo  func(*sqlite.Repository) domain.Repository
	files func(*filestore.Store) domain.FileStore
	log   *zap.Logger
	opts  []application.Option
}

func newEnv(t *testing.T, opts ...application.Option) *env {
	t.Helper()
	return newEnvWith(t, envSetup{opts: opts})
}

func newEnvWith(t *testing.T, setup envSetup) *env {
	t.Helper()
	ctx := context.Background()
	log := setup.log
	if log == nil {
		log = zaptest.NewLogger(t)
	}

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "rdmc.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := sqlite.NewRepository(db)

	files, err := filestore.NewAt(filepath.Join(t.TempDir(), "uploads"), log)
	require.NoError(t, err)

	var serviceRepo domain.Repository = repo
	if setup.repo != nil {
		serviceRepo = setup.repo(repo)
	}
	var serviceFiles domain.FileStore = files
	if setup.files != nil {
		serviceFiles = setup.files(files)
	}

	recorder := &transitionRecorder{}
	opts := append([]application.Option{application.WithRecorder(recorder)}, setup.opts...)
	svc := application.NewService(serviceRepo, serviceFiles, session.NewSigner("test-secret", time.Hour), log, opts...)

	created, err := svc.BootstrapAdmin(ctx, "admin", "admin@example.org", "admin-pass")
	require.NoError(t, err)
	require.True(t, created)
	adminUser, err := repo.GetUserByLogin(ctx, "admin")
	require.NoError(t, err)

	e := &env{svc: svc, repo: repo, files: files, recorder: recorder, admin: identity(adminUser)}
	e.reviewer = e.user(t, "rita", domain.RoleReviewer)
	e.submitter = e.user(t, "sam", domain.RoleSubmitter)
	e.other = e.user(t, "otto", domain.RoleSubmitter)

	e.community, err = svc.CreateCommunity(ctx, e.admin, application.CommunityInput{Name: "Research"})
	require.NoError(t, err)
	e.collection, err = svc.CreateCollection(ctx, e.admin, application.CollectionInput{Name: "Reports", CommunityID: e.community.ID})
	require.NoError(t, err)
	return e
}

func (e *env) user(t *testing.T, username string, role domain.Role) *domain.Identity {
	t.Helper()
	u, err := e.svc.CreateUser(context.Background(), e.admin, application.UserInput{
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Email:    username + "@example.org",
		Username: username,
		Password: username + "-pass",
		Role:     role,
	})
	require.NoError(t, err)
	return identity(u)
}

// draft creates an item owned by the submitter. fields alternate key and value.
func (e *env) draft(t *testing.T, title string, fields ...string) domain.ItemDetail {
	t.Helper()
	require.Zero(t, len(fields)%2)
	in := application.NewItemInput{CollectionID: e.collection.ID, Title: title}
	for i := 0; i < len(fields); i += 2 {
		in.Metadata = append(in.Metadata, application.MetadataInput{Key: fields[i], Value: fields[i+1]})
	}
	item, err := e.svc.CreateItem(context.Background(), e.submitter, in)
	require.NoError(t, err)
	return item
}

func (e *env) publish(t *testing.T, title string, fields ...string) domain.ItemDetail {
	t.Helper()
	ctx := context.Background()
	item := e.draft(t, title, fields...)
	_, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
	require.NoError(t, err)
	published, err := e.svc.Review(ctx, e.reviewer, item.ID, string(domain.StatusPublished))
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, published.Status)
	item.Item = published
	return item
}

func identity(u domain.User) *domain.Identity {
	return &domain.Identity{UserID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}
