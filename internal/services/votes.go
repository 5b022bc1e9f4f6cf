package services

import (
	"context"
	"errors"
	"fmt"

	"agora/internal/models"
	"agora/internal/rbac"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteTarget names exactly one post or comment.
type VoteTarget struct {
	PostID    *uint
	CommentID *uint
}

func PostTarget(id uint) VoteTarget {
	return VoteTarget{PostID: &id}
}

func CommentTarget(id uint) VoteTarget {
	return VoteTarget{CommentID: &id}
}

func (t VoteTarget) kind() string {
	if t.PostID != nil {
		return "post"
	}
	return "comment"
}

func (t VoteTarget) validate() error {
	switch {
	case t.PostID == nil && t.CommentID == nil:
		return fmt.Errorf("%w: no target", ErrInvalidVoteTarget)
	case t.PostID != nil && t.CommentID != nil:
		return fmt.Errorf("%w: both post and comment given", ErrInvalidVoteTarget)
	case t.PostID != nil && *t.PostID == 0, t.CommentID != nil && *t.CommentID == 0:
		return fmt.Errorf("%w: zero id", ErrInvalidVoteTarget)
	}
	return nil
}

// Counters are a target's vote totals after a vote was applied.
type Counters struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// VoteObserver receives vote outcomes; metrics.Metrics implements it.
type VoteObserver interface {
	ObserveVote(target, effect string)
	ObserveVoteRetry()
}

const (
	voteCreated = "created"
	voteRemoved = "removed"
	voteFlipped = "flipped"
)

type VoteService struct {
	db        *gorm.DB
	guard     *rbac.Guard
	scheduler Scheduler
	log       *zap.Logger
	observer  VoteObserver
}

func NewVoteService(conn *gorm.DB, guard *rbac.Guard, scheduler Scheduler, log *zap.Logger, observer VoteObserver) *VoteService {
	return &VoteService{db: conn, guard: guard, scheduler: scheduler, log: log, observer: observer}
}

// ApplyVote records actor's vote on target. A repeat of the same vote withdraws it and an
// opposite vote flips it; the returned counters reflect the committed state.
func (s *VoteService) ApplyVote(ctx context.Context, actor *rbac.Actor, target VoteTarget, voteType models.VoteType) (Counters, error) {
	if err := s.guard.Authorize(actor, rbac.PermVote); err != nil {
		return Counters{}, err
	}
	if err := target.validate(); err != nil {
		return Counters{}, err
	}
	if !voteType.Valid() {
		return Counters{}, invalidf("vote type %q", voteType)
	}

	counters, ownerID, effect, err := s.apply(ctx, actor.ID, target, voteType)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent request created the same vote row first
		if s.observer != nil {
			s.observer.ObserveVoteRetry()
		}
		s.log.Info("vote conflict, retrying", zap.Uint("user_id", actor.ID), zap.String("target", target.kind()))
		counters, ownerID, effect, err = s.apply(ctx, actor.ID, target, voteType)
	}
	if err != nil {
		return Counters{}, err
	}

	if s.observer != nil {
		s.observer.ObserveVote(target.kind(), effect)
	}
	if s.scheduler != nil {
		s.scheduler.Schedule(ownerID)
	}
	return counters, nil
}

func (s *VoteService) apply(ctx context.Context, userID uint, target VoteTarget, voteType models.VoteType) (Counters, uint, string, error) {
	var (
		counters Counters
		ownerID  uint
		effect   string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			model    interface{}
			targetID uint
			column   string
		)
		if target.PostID != nil {
			var post models.Post
			targetID, column, model = *target.PostID, "post_id", &models.Post{}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "user_id").First(&post, targetID).Error; err != nil {
				return lookupTargetErr(err, "post", targetID)
			}
			ownerID = post.UserID
		} else {
			var comment models.Comment
			targetID, column, model = *target.CommentID, "comment_id", &models.Comment{}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "user_id").First(&comment, targetID).Error; err != nil {
				return lookupTargetErr(err, "comment", targetID)
			}
			ownerID = comment.UserID
		}

		var existing models.Vote
		err := tx.Where("user_id = ? AND "+column+" = ?", userID, targetID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{UserID: userID, PostID: target.PostID, CommentID: target.CommentID, VoteType: voteType}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			effect = voteCreated
			err = tx.Model(model).Where("id = ?", targetID).
				UpdateColumn(counterColumn(voteType), increment(voteType)).Error
			if err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.VoteType == voteType:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			effect = voteRemoved
			err = tx.Model(model).Where("id = ?", targetID).
				UpdateColumn(counterColumn(voteType), decrement(voteType)).Error
			if err != nil {
				return err
			}
		default:
			old := existing.VoteType
			if err := tx.Model(&models.Vote{}).Where("id = ?", existing.ID).
				UpdateColumn("vote_type", voteType).Error; err != nil {
				return err
			}
			effect = voteFlipped
			err = tx.Model(model).Where("id = ?", targetID).UpdateColumns(map[string]interface{}{
				counterColumn(old):      decrement(old),
				counterColumn(voteType): increment(voteType),
			}).Error
			if err != nil {
				return err
			}
		}

		return tx.Model(model).Select("upvotes", "downvotes").Where("id = ?", targetID).Scan(&counters).Error
	})
	return counters, ownerID, effect, err
}

func lookupTargetErr(err error, kind string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d does not exist", ErrInvalidVoteTarget, kind, id)
	}
	return err
}

func counterColumn(t models.VoteType) string {
	if t == models.VoteUp {
		return "upvotes"
	}
	return "downvotes"
}

func increment(t models.VoteType) clause.Expr {
	col := counterColumn(t)
	return gorm.Expr(col + " + 1")
}

// decrement never takes a counter below zero.
func decrement(t models.VoteType) clause.Expr {
	col := counterColumn(t)
	return gorm.Expr("CASE WHEN " + col + " > 0 THEN " + col + " - 1 ELSE 0 END")
}
