package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"agora/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultContributorThreshold is the trust score at which a user may apply to become a contributor.
const DefaultContributorThreshold = 50

const reasonRecompute = "recompute"

// TrustWeights turns engagement counts into trust points.
type TrustWeights struct {
	PostPublished    int64
	CommentMade      int64
	UpvoteReceived   int64
	DownvoteReceived int64 // subtracted
	BookmarkReceived int64
}

var DefaultTrustWeights = TrustWeights{
	PostPublished:    5,
	CommentMade:      1,
	UpvoteReceived:   2,
	DownvoteReceived: 3,
	BookmarkReceived: 3,
}

// TrustInputs is the engagement history a score is derived from.
type TrustInputs struct {
	Posts             int64
	Comments          int64
	UpvotesReceived   int64
	DownvotesReceived int64
	BookmarksReceived int64
}

// ComputeTrustScore applies w to in, clamped to [0, MaxInt32].
func ComputeTrustScore(in TrustInputs, w TrustWeights) int {
	raw := in.Posts*w.PostPublished +
		in.Comments*w.CommentMade +
		in.UpvotesReceived*w.UpvoteReceived -
		in.DownvotesReceived*w.DownvoteReceived +
		in.BookmarksReceived*w.BookmarkReceived
	switch {
	case raw < 0:
		return 0
	case raw > math.MaxInt32:
		return math.MaxInt32
	}
	return int(raw)
}

// TrustEngine recomputes users' trust scores. It writes trust_score and the trust log only;
// the role column is never touched here.
type TrustEngine struct {
	db        *gorm.DB
	weights   TrustWeights
	threshold int
	log       *zap.Logger
}

func NewTrustEngine(conn *gorm.DB, threshold int, log *zap.Logger) *TrustEngine {
	if threshold <= 0 {
		threshold = DefaultContributorThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TrustEngine{db: conn, weights: DefaultTrustWeights, threshold: threshold, log: log}
}

func (e *TrustEngine) Threshold() int {
	return e.threshold
}

// Eligible reports whether score unlocks a contributor application. Advisory only.
func (e *TrustEngine) Eligible(score int) bool {
	return score >= e.threshold
}

// Inputs gathers the engagement counts for userID.
func (e *TrustEngine) Inputs(ctx context.Context, userID uint) (TrustInputs, error) {
	var in TrustInputs
	tx := e.db.WithContext(ctx)

	if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Count(&in.Posts).Error; err != nil {
		return in, fmt.Errorf("count posts: %w", err)
	}
	if err := tx.Model(&models.Comment{}).Where("user_id = ?", userID).Count(&in.Comments).Error; err != nil {
		return in, fmt.Errorf("count comments: %w", err)
	}

	var postVotes, commentVotes struct {
		Up   int64
		Down int64
	}
	if err := tx.Model(&models.Post{}).
		Select("COALESCE(SUM(upvotes), 0) AS up, COALESCE(SUM(downvotes), 0) AS down").
		Where("user_id = ?", userID).
		Scan(&postVotes).Error; err != nil {
		return in, fmt.Errorf("sum post votes: %w", err)
	}
	if err := tx.Model(&models.Comment{}).
		Select("COALESCE(SUM(upvotes), 0) AS up, COALESCE(SUM(downvotes), 0) AS down").
		Where("user_id = ?", userID).
		Scan(&commentVotes).Error; err != nil {
		return in, fmt.Errorf("sum comment votes: %w", err)
	}
	in.UpvotesReceived = postVotes.Up + commentVotes.Up
	in.DownvotesReceived = postVotes.Down + commentVotes.Down

	if err := tx.Model(&models.Bookmark{}).
		Joins("JOIN posts ON posts.id = bookmarks.post_id").
		Where("posts.user_id = ? AND bookmarks.user_id <> ?", userID, userID).
		Count(&in.BookmarksReceived).Error; err != nil {
		return in, fmt.Errorf("count bookmarks: %w", err)
	}
	return in, nil
}

// Recompute derives userID's score from current state and stores it. Calling it again
// without intervening changes returns the same score and writes nothing.
func (e *TrustEngine) Recompute(ctx context.Context, userID uint) (int, error) {
	in, err := e.Inputs(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := ComputeTrustScore(in, e.weights)

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "trust_score").
			First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.TrustScore == score {
			return nil
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("trust_score", score).Error; err != nil {
			return err
		}
		return tx.Create(&models.TrustLog{
			UserID: userID,
			Delta:  score - user.TrustScore,
			Score:  score,
			Reason: reasonRecompute,
		}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("recompute trust score for user %d: %w", userID, err)
	}

	e.log.Debug("trust score recomputed", zap.Uint("user_id", userID), zap.Int("score", score))
	return score, nil
}

// Logs returns the most recent trust log entries for userID.
func (e *TrustEngine) Logs(ctx context.Context, userID uint, limit int) ([]models.TrustLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var logs []models.TrustLog
	err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
