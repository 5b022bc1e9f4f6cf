package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"agora/internal/models"
	"agora/internal/rbac"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxStatementLength = 2000

// ApplicationService handles contributor applications. Approval is the only code path that
// promotes a user to contributor.
type ApplicationService struct {
	db    *gorm.DB
	guard *rbac.Guard
	trust *TrustEngine
	log   *zap.Logger
	now   func() time.Time
}

func NewApplicationService(conn *gorm.DB, guard *rbac.Guard, trust *TrustEngine, log *zap.Logger) *ApplicationService {
	return &ApplicationService{db: conn, guard: guard, trust: trust, log: log, now: time.Now}
}

func (s *ApplicationService) Submit(ctx context.Context, actor *rbac.Actor, contributorType, statement string) (*models.ContributorApplication, error) {
	if err := s.guard.Authorize(actor, rbac.PermApplyContributor); err != nil {
		return nil, err
	}
	if err := s.guard.HasRole(actor, rbac.RoleUser); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEligible, err)
	}
	ct, ok := rbac.ParseContributorType(contributorType)
	if !ok {
		return nil, invalidf("unknown contributor type %q", contributorType)
	}
	statement = strings.TrimSpace(statement)
	if utf8.RuneCountInString(statement) > maxStatementLength {
		return nil, invalidf("statement exceeds %d characters", maxStatementLength)
	}

	score, err := s.trust.Recompute(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !s.trust.Eligible(score) {
		return nil, fmt.Errorf("%w: trust score %d is below %d", ErrNotEligible, score, s.trust.Threshold())
	}

	app := models.ContributorApplication{
		UserID:          actor.ID,
		ContributorType: string(ct),
		Statement:       statement,
		TrustScore:      score,
		Status:          models.ApplicationPending,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.ContributorApplication{}).
			Where("user_id = ? AND status = ?", actor.ID, models.ApplicationPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: an application is already pending", ErrConflict)
		}
		return tx.Create(&app).Error
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *ApplicationService) ListPending(ctx context.Context, actor *rbac.Actor) ([]models.ContributorApplication, error) {
	if err := s.guard.Authorize(actor, rbac.PermApproveContributor); err != nil {
		return nil, err
	}
	var apps []models.ContributorApplication
	err := s.db.WithContext(ctx).Preload("User").
		Where("status = ?", models.ApplicationPending).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}

// ListMine returns the actor's own applications, newest first.
func (s *ApplicationService) ListMine(ctx context.Context, actor *rbac.Actor) ([]models.ContributorApplication, error) {
	if err := s.guard.Authorize(actor, rbac.PermViewUserDashboard); err != nil {
		return nil, err
	}
	var apps []models.ContributorApplication
	err := s.db.WithContext(ctx).Where("user_id = ?", actor.ID).Order("created_at DESC").Find(&apps).Error
	return apps, err
}

// Approve promotes the applicant to contributor with the requested subtype.
func (s *ApplicationService) Approve(ctx context.Context, actor *rbac.Actor, id uint, note string) (*models.ContributorApplication, error) {
	return s.decide(ctx, actor, id, models.ApplicationApproved, note)
}

func (s *ApplicationService) Reject(ctx context.Context, actor *rbac.Actor, id uint, reason string) (*models.ContributorApplication, error) {
	return s.decide(ctx, actor, id, models.ApplicationRejected, reason)
}

func (s *ApplicationService) decide(ctx context.Context, actor *rbac.Actor, id uint, status models.ApplicationStatus, note string) (*models.ContributorApplication, error) {
	if err := s.guard.Authorize(actor, rbac.PermApproveContributor); err != nil {
		return nil, err
	}

	var app models.ContributorApplication
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if app.Status != models.ApplicationPending {
			return fmt.Errorf("%w: application already %s", ErrConflict, app.Status)
		}
		if app.UserID == actor.ID {
			return invalidf("cannot review your own application")
		}

		reviewedAt := s.now()
		app.Status = status
		app.ReviewerID = &actor.ID
		app.ReviewNote = strings.TrimSpace(note)
		app.ReviewedAt = &reviewedAt
		if err := tx.Model(&app).Select("status", "reviewer_id", "review_note", "reviewed_at").Updates(&app).Error; err != nil {
			return err
		}

		reason := "Your contributor application was rejected."
		if status == models.ApplicationApproved {
			// only plain users are promoted; a role change since submission voids the approval
			result := tx.Model(&models.User{}).
				Where("id = ? AND role = ?", app.UserID, rbac.RoleUser).
				Updates(map[string]interface{}{
					"role":             string(rbac.RoleContributor),
					"contributor_type": app.ContributorType,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: applicant is no longer a user", ErrConflict)
			}
			reason = fmt.Sprintf("Your contributor application was approved. Welcome aboard as a %s contributor.", app.ContributorType)
		} else if app.ReviewNote != "" {
			reason += " " + app.ReviewNote
		}
		return notify(tx, models.Notification{
			UserID:  app.UserID,
			ActorID: &actor.ID,
			Type:    models.NotifyApplication,
			Reason:  reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contributor application decided",
		zap.Uint("application_id", id),
		zap.Uint("reviewer_id", actor.ID),
		zap.String("status", string(status)),
	)
	return &app, nil
}
