package services

import (
	"context"
	"testing"

	"agora/internal/models"
	"agora/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func eligibleUser(t *testing.T, f *fixture, name string) *models.User {
	t.Helper()
	u := f.user(t, name, rbac.RoleUser)
	for i := 0; i < 10; i++ {
		f.post(t, u, "Post")
	}
	return u
}

func TestSubmitApplication(t *testing.T) {
	f := newFixture(t)
	apps := NewApplicationService(f.db, f.guard, f.trust, zap.NewNop())
	ctx := context.Background()

	newcomer := f.user(t, "newcomer", rbac.RoleUser)
	_, err := apps.Submit(ctx, newcomer.Actor(), "patient", "")
	assert.ErrorIs(t, err, ErrNotEligible)

	applicant := eligibleUser(t, f, "applicant")
	_, err = apps.Submit(ctx, applicant.Actor(), "wizard", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	app, err := apps.Submit(ctx, applicant.Actor(), "Surgeon", "Orthopaedic surgeon, 12 years")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "surgeon", app.ContributorType)
	assert.Equal(t, 50, app.TrustScore)

	_, err = apps.Submit(ctx, applicant.Actor(), "surgeon", "again")
	assert.ErrorIs(t, err, ErrConflict)

	// eligibility alone never promotes
	assert.Equal(t, string(rbac.RoleUser), f.reload(t, applicant).Role)
}

func TestSubmitApplication_OnlyPlainUsers(t *testing.T) {
	f := newFixture(t)
	apps := NewApplicationService(f.db, f.guard, f.trust, zap.NewNop())
	contributor := f.user(t, "contrib", rbac.RoleContributor)

	_, err := apps.Submit(context.Background(), contributor.Actor(), "blogger", "")
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = apps.Submit(context.Background(), nil, "blogger", "")
	assert.ErrorIs(t, err, rbac.ErrUnauthenticated)
}

func TestApproveApplication_PromotesAndNotifies(t *testing.T) {
	f := newFixture(t)
	apps := NewApplicationService(f.db, f.guard, f.trust, zap.NewNop())
	ctx := context.Background()
	admin := f.user(t, "admin", rbac.RoleAdmin)
	applicant := eligibleUser(t, f, "applicant")

	app, err := apps.Submit(ctx, applicant.Actor(), "patient", "")
	require.NoError(t, err)

	_, err = apps.Approve(ctx, applicant.Actor(), app.ID, "")
	assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)

	pending, err := apps.ListPending(ctx, admin.Actor())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	decided, err := apps.Approve(ctx, admin.Actor(), app.ID, "welcome")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, decided.Status)
	require.NotNil(t, decided.ReviewerID)
	assert.Equal(t, admin.ID, *decided.ReviewerID)

	promoted := f.reload(t, applicant)
	assert.Equal(t, string(rbac.RoleContributor), promoted.Role)
	assert.Equal(t, "patient", promoted.ContributorType)

	var notes int64
	f.db.Model(&models.Notification{}).Where("user_id = ? AND type = ?", applicant.ID, models.NotifyApplication).Count(&notes)
	assert.Equal(t, int64(1), notes)

	_, err = apps.Reject(ctx, admin.Actor(), app.ID, "too late")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRejectApplication_KeepsRole(t *testing.T) {
	f := newFixture(t)
	apps := NewApplicationService(f.db, f.guard, f.trust, zap.NewNop())
	ctx := context.Background()
	admin := f.user(t, "admin", rbac.RoleAdmin)
	applicant := eligibleUser(t, f, "applicant")

	app, err := apps.Submit(ctx, applicant.Actor(), "influencer", "")
	require.NoError(t, err)
	decided, err := apps.Reject(ctx, admin.Actor(), app.ID, "Not enough detail")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, decided.Status)
	assert.Equal(t, string(rbac.RoleUser), f.reload(t, applicant).Role)

	mine, err := apps.ListMine(ctx, applicant.Actor())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Not enough detail", mine[0].ReviewNote)
}

func TestApproveApplication_RoleChangedWhilePending(t *testing.T) {
	f := newFixture(t)
	apps := NewApplicationService(f.db, f.guard, f.trust, zap.NewNop())
	ctx := context.Background()
	admin := f.user(t, "admin", rbac.RoleAdmin)
	applicant := eligibleUser(t, f, "applicant")

	app, err := apps.Submit(ctx, applicant.Actor(), "blogger", "")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", applicant.ID).Update("role", "admin").Error)

	_, err = apps.Approve(ctx, admin.Actor(), app.ID, "")
	assert.ErrorIs(t, err, ErrConflict)

	var stored models.ContributorApplication
	require.NoError(t, f.db.First(&stored, app.ID).Error)
	assert.Equal(t, models.ApplicationPending, stored.Status)
	reloaded := f.reload(t, applicant)
	assert.Equal(t, string(rbac.RoleAdmin), reloaded.Role)
	assert.Empty(t, reloaded.ContributorType)

	var notes int64
	f.db.Model(&models.Notification{}).Where("user_id = ?", applicant.ID).Count(&notes)
	assert.Zero(t, notes)
}
