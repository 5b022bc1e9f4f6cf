package services

import (
	"context"
	"testing"

	"agora/internal/models"
	"agora/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications_ReadFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewNotificationService(f.db, f.guard)
	owner := f.user(t, "owner", rbac.RoleUser)
	reader := f.user(t, "reader", rbac.RoleUser)
	post := f.post(t, owner, "Hello")
	f.comment(t, reader, post.ID)
	f.comment(t, reader, post.ID)

	list, unread, err := svc.List(ctx, owner.Actor(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), unread)

	assert.ErrorIs(t, svc.MarkRead(ctx, reader.Actor(), list[0].ID), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, owner.Actor(), list[0].ID))
	count, err := svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkAllRead(ctx, owner.Actor()))
	count, err = svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, _, err = svc.List(ctx, nil, 10)
	assert.ErrorIs(t, err, rbac.ErrUnauthenticated)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dash := NewDashboardService(f.db, f.guard, f.trust, NewNotificationService(f.db, f.guard))

	guest, err := dash.For(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleGuest, guest.Role)
	assert.False(t, guest.Authenticated)
	assert.Empty(t, guest.Permissions)

	member := f.user(t, "member", rbac.RoleUser)
	actor := member.Actor()
	actor.TrustScore = 75
	d, err := dash.For(ctx, actor)
	require.NoError(t, err)
	assert.True(t, d.CanApply)
	assert.Equal(t, "Established", d.TrustLevel)
	assert.False(t, d.IsContributorOrAbove)

	admin := f.user(t, "admin", rbac.RoleAdmin)
	adminActor := admin.Actor()
	adminActor.TrustScore = 500
	d, err = dash.For(ctx, adminActor)
	require.NoError(t, err)
	assert.False(t, d.CanApply)
	assert.True(t, d.IsAdminOrAbove)
	assert.False(t, d.IsSuperAdmin)
	assert.Contains(t, d.Permissions, rbac.PermApproveContributor)
}

func TestDashboard_LayeredBoards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dash := NewDashboardService(f.db, f.guard, f.trust, NewNotificationService(f.db, f.guard))

	root := f.user(t, "root", rbac.RoleSuperAdmin)
	admin := f.user(t, "admin", rbac.RoleAdmin)
	surgeon := f.user(t, "surgeon", rbac.RoleContributor)
	member := f.user(t, "member", rbac.RoleUser)

	expert, err := f.content.CreateTopic(ctx, admin.Actor(), TopicInput{Name: "Ask an Expert", ExpertOnly: true})
	require.NoError(t, err)
	_, err = f.content.CreatePost(ctx, surgeon.Actor(), PostInput{Title: "Answer", TopicID: &expert.ID})
	require.NoError(t, err)
	f.post(t, surgeon, "Plain post")
	require.NoError(t, f.db.Create(&models.ContributorApplication{
		UserID: member.ID, ContributorType: "patient", Status: models.ApplicationPending,
	}).Error)

	d, err := dash.For(ctx, member.Actor())
	require.NoError(t, err)
	assert.Nil(t, d.Contributor)
	assert.Nil(t, d.Admin)
	assert.Nil(t, d.SuperAdmin)
	_, err = dash.ContributorBoard(ctx, member.Actor())
	assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)

	d, err = dash.For(ctx, surgeon.Actor())
	require.NoError(t, err)
	require.NotNil(t, d.Contributor)
	assert.EqualValues(t, 2, d.Contributor.Posts)
	assert.EqualValues(t, 1, d.Contributor.ExpertPosts)
	assert.Nil(t, d.Admin)
	_, err = dash.AdminBoard(ctx, surgeon.Actor())
	assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)

	d, err = dash.For(ctx, admin.Actor())
	require.NoError(t, err)
	require.NotNil(t, d.Admin)
	assert.EqualValues(t, 1, d.Admin.PendingApplications)
	assert.EqualValues(t, 4, d.Admin.Users)
	assert.EqualValues(t, 2, d.Admin.PostsThisWeek)
	assert.Nil(t, d.SuperAdmin)
	_, err = dash.SuperAdminBoard(ctx, admin.Actor())
	assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)

	d, err = dash.For(ctx, root.Actor())
	require.NoError(t, err)
	require.NotNil(t, d.SuperAdmin)
	assert.NotNil(t, d.Admin)
	assert.NotNil(t, d.Contributor)
	assert.Equal(t, map[string]int64{"superadmin": 1, "admin": 1, "contributor": 1, "user": 1}, d.SuperAdmin.UsersByRole)
	assert.Zero(t, d.SuperAdmin.AISchedules)
}
