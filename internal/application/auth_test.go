package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	identity, token, err := e.svc.LoginWithSession(ctx, "SAM@example.org", "sam-pass")
	require.NoError(t, err)
	assert.Equal(t, *e.submitter, identity)

	got, err := e.svc.AuthenticateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	_, _, err = e.svc.LoginWithSession(ctx, "sam", "wrong")
	assert.True(t, domain.ErrUnauthorized.Has(err))
	_, _, err = e.svc.LoginWithSession(ctx, "nobody", "sam-pass")
	assert.True(t, domain.ErrUnauthorized.Has(err))
	_, _, err = e.svc.LoginWithSession(ctx, "", "")
	assert.True(t, domain.ErrValidation.Has(err))
}

func TestSessionReflectsRoleChanges(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, token, err := e.svc.LoginWithSession(ctx, "sam", "sam-pass")
	require.NoError(t, err)

	role := domain.RoleReviewer
	_, err = e.svc.UpdateUser(ctx, e.admin, e.submitter.UserID, application.UserUpdate{Role: &role})
	require.NoError(t, err)

	got, err := e.svc.AuthenticateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReviewer, got.Role)
}

func TestAPITokenLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	e := newEnv(t, application.WithClock(func() time.Time { return now }))

	ttl := time.Hour
	_, token, err := e.svc.LoginWithAPIToken(ctx, "rita", "rita-pass", "laptop", &ttl)
	require.NoError(t, err)

	got, err := e.svc.AuthenticateBearerToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, *e.reviewer, got)

	now = now.Add(2 * time.Hour)
	_, err = e.svc.AuthenticateBearerToken(ctx, token)
	assert.True(t, domain.ErrUnauthorized.Has(err))

	_, forever, err := e.svc.LoginWithAPIToken(ctx, "rita", "rita-pass", "", nil)
	require.NoError(t, err)
	_, err = e.svc.AuthenticateBearerToken(ctx, forever)
	require.NoError(t, err)

	require.NoError(t, e.svc.RevokeAPIToken(ctx, forever))
	_, err = e.svc.AuthenticateBearerToken(ctx, forever)
	assert.True(t, domain.ErrUnauthorized.Has(err))
}

func TestBootstrapAdminRunsOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.svc.BootstrapAdmin(ctx, "second", "second@example.org", "pw")
	require.NoError(t, err)
	assert.False(t, created)
	_, err = e.repo.GetUserByLogin(ctx, "second")
	assert.True(t, domain.ErrNotFound.Has(err))

	_, err = e.svc.BootstrapAdmin(ctx, "", "", "")
	assert.True(t, domain.ErrValidation.Has(err))
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.svc.ListUsers(ctx, e.reviewer, "", 0)
	assert.True(t, domain.ErrForbidden.Has(err))

	users, err := e.svc.ListUsers(ctx, e.admin, "ri", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "rita", users[0].Username)

	_, err = e.svc.CreateUser(ctx, e.admin, application.UserInput{Username: "rita", Email: "rita2@example.org", Password: "x"})
	require.True(t, domain.ErrValidation.Has(err))
	assert.Equal(t, "username already exists", domain.Message(err))

	_, err = e.svc.CreateUser(ctx, e.admin, application.UserInput{Username: "bad", Email: "not-an-email", Password: "x"})
	assert.True(t, domain.ErrValidation.Has(err))
	_, err = e.svc.CreateUser(ctx, e.admin, application.UserInput{Username: "bad", Email: "bad@example.org", Password: "x", Role: "ROOT"})
	assert.True(t, domain.ErrValidation.Has(err))

	password := "new-pass"
	_, err = e.svc.UpdateUser(ctx, e.admin, e.other.UserID, application.UserUpdate{Password: &password})
	require.NoError(t, err)
	_, _, err = e.svc.LoginWithSession(ctx, "otto", "new-pass")
	require.NoError(t, err)

	e.draft(t, "Owned")
	err = e.svc.DeleteUser(ctx, e.admin, e.submitter.UserID)
	assert.True(t, domain.ErrValidation.Has(err))
	err = e.svc.DeleteUser(ctx, e.admin, e.admin.UserID)
	assert.True(t, domain.ErrValidation.Has(err))

	require.NoError(t, e.svc.DeleteUser(ctx, e.admin, e.other.UserID))
	_, err = e.svc.GetUser(ctx, e.admin, e.other.UserID)
	assert.True(t, domain.ErrNotFound.Has(err))
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Audited")
	require.NoError(t, e.svc.DeleteItem(ctx, e.admin, item.ID))

	_, err := e.svc.ListAuditLogs(ctx, e.submitter, 0)
	assert.True(t, domain.ErrForbidden.Has(err))

	logs, err := e.svc.ListAuditLogs(ctx, e.admin, 0)
	require.NoError(t, err)
	actions := make(map[string]string)
	for _, l := range logs {
		actions[l.Action] = l.ActorUsername
	}
	assert.Equal(t, "sam", actions["item.create"])
	assert.Equal(t, "admin", actions["item.delete"])
	assert.Equal(t, "admin", actions["auth.bootstrap_admin"])
}
