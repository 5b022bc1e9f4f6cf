package services

import (
	"context"
	"errors"
	"testing"

	"agora/internal/models"
	"agora/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingVoteObserver struct {
	effects []string
	retries int
}

func (o *countingVoteObserver) ObserveVote(target, effect string) {
	o.effects = append(o.effects, target+":"+effect)
}

func (o *countingVoteObserver) ObserveVoteRetry() { o.retries++ }

func voteCount(t *testing.T, f *fixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Vote{}).Count(&n).Error)
	return n
}

func TestApplyVote_FirstUpvoteOnComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleContributor)
	post := f.post(t, author, "Knee surgery recovery")
	comment := f.comment(t, author, post.ID)

	counters, err := f.votes.ApplyVote(ctx, voter.Actor(), CommentTarget(comment.ID), models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, Counters{Upvotes: 1, Downvotes: 0}, counters)

	var vote models.Vote
	require.NoError(t, f.db.Where("user_id = ? AND comment_id = ?", voter.ID, comment.ID).First(&vote).Error)
	assert.Equal(t, models.VoteUp, vote.VoteType)
	assert.Nil(t, vote.PostID)
}

func TestApplyVote_RepeatTogglesOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleContributor)
	post := f.post(t, author, "Knee surgery recovery")
	comment := f.comment(t, author, post.ID)

	_, err := f.votes.ApplyVote(ctx, voter.Actor(), CommentTarget(comment.ID), models.VoteUp)
	require.NoError(t, err)
	counters, err := f.votes.ApplyVote(ctx, voter.Actor(), CommentTarget(comment.ID), models.VoteUp)
	require.NoError(t, err)

	assert.Equal(t, Counters{}, counters)
	assert.Zero(t, voteCount(t, f))
}

func TestApplyVote_ToggleRestoresBaseline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	post := f.post(t, author, "Baseline")

	others := []*models.User{f.user(t, "a", rbac.RoleUser), f.user(t, "b", rbac.RoleUser), f.user(t, "c", rbac.RoleUser)}
	_, err := f.votes.ApplyVote(ctx, others[0].Actor(), PostTarget(post.ID), models.VoteUp)
	require.NoError(t, err)
	baseline, err := f.votes.ApplyVote(ctx, others[1].Actor(), PostTarget(post.ID), models.VoteDown)
	require.NoError(t, err)

	for _, vt := range []models.VoteType{models.VoteUp, models.VoteDown} {
		_, err := f.votes.ApplyVote(ctx, others[2].Actor(), PostTarget(post.ID), vt)
		require.NoError(t, err)
		after, err := f.votes.ApplyVote(ctx, others[2].Actor(), PostTarget(post.ID), vt)
		require.NoError(t, err)
		assert.Equal(t, baseline, after, "vote type %s", vt)
	}
}

func TestApplyVote_FlipMovesOneCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleUser)
	post := f.post(t, author, "Flip")

	before, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteUp)
	require.NoError(t, err)
	after, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteDown)
	require.NoError(t, err)

	assert.Equal(t, before.Upvotes-1, after.Upvotes)
	assert.Equal(t, before.Downvotes+1, after.Downvotes)

	var votes []models.Vote
	require.NoError(t, f.db.Where("user_id = ?", voter.ID).Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, models.VoteDown, votes[0].VoteType)
}

func TestApplyVote_CountersNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleUser)
	post := f.post(t, author, "Drifted")

	_, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteUp)
	require.NoError(t, err)
	// simulate a counter that drifted out of sync with the vote rows
	require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("upvotes", 0).Error)

	counters, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 0, counters.Upvotes)
}

func TestApplyVote_RequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	author := f.user(t, "author", rbac.RoleUser)
	post := f.post(t, author, "Guests")

	_, err := f.votes.ApplyVote(context.Background(), nil, PostTarget(post.ID), models.VoteUp)
	assert.ErrorIs(t, err, rbac.ErrUnauthenticated)
	assert.Zero(t, voteCount(t, f))
}

func TestApplyVote_InvalidTargets(t *testing.T) {
	f := newFixture(t)
	voter := f.user(t, "voter", rbac.RoleUser)
	one, two := uint(1), uint(2)

	cases := map[string]VoteTarget{
		"neither":         {},
		"both":            {PostID: &one, CommentID: &two},
		"missing post":    PostTarget(999),
		"missing comment": CommentTarget(999),
		"zero id":         PostTarget(0),
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.votes.ApplyVote(context.Background(), voter.Actor(), target, models.VoteUp)
			assert.ErrorIs(t, err, ErrInvalidVoteTarget)
		})
	}
	assert.Zero(t, voteCount(t, f))
}

func TestApplyVote_RejectsUnknownVoteType(t *testing.T) {
	f := newFixture(t)
	author := f.user(t, "author", rbac.RoleUser)
	post := f.post(t, author, "Types")

	_, err := f.votes.ApplyVote(context.Background(), author.Actor(), PostTarget(post.ID), models.VoteType("sideways"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplyVote_DeletedCommentIsInvalidTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	post := f.post(t, author, "Soft delete")
	comment := f.comment(t, author, post.ID)
	require.NoError(t, f.content.DeleteComment(ctx, author.Actor(), comment.ID))

	_, err := f.votes.ApplyVote(ctx, author.Actor(), CommentTarget(comment.ID), models.VoteUp)
	assert.ErrorIs(t, err, ErrInvalidVoteTarget)
}

func TestApplyVote_SchedulesAuthorAndObserves(t *testing.T) {
	f := newFixture(t)
	obs := &countingVoteObserver{}
	f.votes.observer = obs
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleUser)
	post := f.post(t, author, "Observed")
	ctx := context.Background()

	_, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteUp)
	require.NoError(t, err)
	_, err = f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteDown)
	require.NoError(t, err)
	_, err = f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteDown)
	require.NoError(t, err)

	assert.Equal(t, []string{"post:created", "post:flipped", "post:removed"}, obs.effects)
	assert.Contains(t, f.scheduler.scheduled(), author.ID)
}

func TestApplyVote_MalformedRoleDenied(t *testing.T) {
	f := newFixture(t)
	author := f.user(t, "author", rbac.RoleUser)
	post := f.post(t, author, "Malformed")
	actor := &rbac.Actor{ID: author.ID, Role: "moderator"}

	_, err := f.votes.ApplyVote(context.Background(), actor, PostTarget(post.ID), models.VoteUp)
	var authErr *rbac.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)
}

func TestApplyVote_FlipSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleUser)
	post := f.post(t, author, "Back and forth")

	steps := []struct {
		vote models.VoteType
		want Counters
	}{
		{models.VoteUp, Counters{Upvotes: 1}},
		{models.VoteDown, Counters{Downvotes: 1}},
		{models.VoteUp, Counters{Upvotes: 1}},
		{models.VoteDown, Counters{Downvotes: 1}},
	}
	for i, step := range steps {
		got, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), step.vote)
		require.NoError(t, err)
		assert.Equalf(t, step.want, got, "step %d", i)
	}

	stored := f.reloadPost(t, post.ID)
	assert.Equal(t, 0, stored.Upvotes)
	assert.Equal(t, 1, stored.Downvotes)
	assert.EqualValues(t, 1, voteCount(t, f))
}

func TestApplyVote_RetriesOnceAfterDuplicateKey(t *testing.T) {
	f := newFixture(t)
	obs := &countingVoteObserver{}
	f.votes.observer = obs
	ctx := context.Background()
	author := f.user(t, "author", rbac.RoleUser)
	voter := f.user(t, "voter", rbac.RoleUser)
	post := f.post(t, author, "Raced")

	// the first vote insert finds a row written by a competing request
	raced := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:competing_vote", func(tx *gorm.DB) {
		vote, ok := tx.Statement.Dest.(*models.Vote)
		if !ok || raced {
			return
		}
		raced = true
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO votes (user_id, post_id, vote_type, created_at, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
				vote.UserID, vote.PostID, vote.VoteType).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	}))

	counters, err := f.votes.ApplyVote(ctx, voter.Actor(), PostTarget(post.ID), models.VoteUp)
	require.NoError(t, err)

	assert.True(t, raced)
	assert.Equal(t, 1, obs.retries)
	assert.Equal(t, Counters{Upvotes: 1}, counters)
	assert.EqualValues(t, 1, voteCount(t, f))
	assert.Equal(t, []string{"post:created"}, obs.effects)
}
