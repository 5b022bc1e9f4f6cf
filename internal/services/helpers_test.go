package services

import (
	"context"
	"sync"
	"testing"

	"agora/internal/db/dbtest"
	"agora/internal/models"
	"agora/internal/rbac"
	"agora/internal/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingScheduler stands in for TrustScheduler and remembers what was scheduled.
type recordingScheduler struct {
	mu  sync.Mutex
	ids []uint
}

func (r *recordingScheduler) Schedule(userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, userID)
}

func (r *recordingScheduler) scheduled() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.ids...)
}

type fixture struct {
	db        *gorm.DB
	guard     *rbac.Guard
	scheduler *recordingScheduler
	trust     *TrustEngine
	content   *ContentService
	votes     *VoteService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	log := zap.NewNop()
	guard := rbac.NewGuard(rbac.NewResolver(nil, log), log)
	cache, err := utils.NewCache(16)
	require.NoError(t, err)
	sched := &recordingScheduler{}
	return &fixture{
		db:        conn,
		guard:     guard,
		scheduler: sched,
		trust:     NewTrustEngine(conn, DefaultContributorThreshold, log),
		content:   NewContentService(conn, guard, sched, cache, log),
		votes:     NewVoteService(conn, guard, sched, log, nil),
	}
}

func (f *fixture) user(t *testing.T, name string, role rbac.Role) *models.User {
	t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", Password: "x", Role: string(role)}
	require.NoError(t, f.db.Create(&u).Error)
	return &u
}

func (f *fixture) post(t *testing.T, owner *models.User, title string) *models.Post {
	t.Helper()
	p, err := f.content.CreatePost(context.Background(), owner.Actor(), PostInput{Title: title, Content: "body"})
	require.NoError(t, err)
	return p
}

func (f *fixture) comment(t *testing.T, owner *models.User, postID uint) *models.Comment {
	t.Helper()
	c, err := f.content.CreateComment(context.Background(), owner.Actor(), postID, CommentInput{Content: "a comment"})
	require.NoError(t, err)
	return c
}

func (f *fixture) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	var fresh models.User
	require.NoError(t, f.db.First(&fresh, u.ID).Error)
	return &fresh
}

func (f *fixture) reloadPost(t *testing.T, id uint) *models.Post {
	t.Helper()
	var fresh models.Post
	require.NoError(t, f.db.First(&fresh, id).Error)
	return &fresh
}
