package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/rbac"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPromptLength = 4000

// AIService gates the AI content tool. Generation itself is delegated to a Generator.
type AIService struct {
	db        *gorm.DB
	guard     *rbac.Guard
	content   *ContentService
	generator Generator
	log       *zap.Logger
	now       func() time.Time
}

func NewAIService(conn *gorm.DB, guard *rbac.Guard, content *ContentService, generator Generator, log *zap.Logger) *AIService {
	return &AIService{db: conn, guard: guard, content: content, generator: generator, log: log, now: time.Now}
}

// GeneratePost asks the generator for a post and stores it under the actor's name,
// flagged as AI generated.
func (s *AIService) GeneratePost(ctx context.Context, actor *rbac.Actor, prompt string, topicID *uint) (*models.Post, error) {
	if err := s.guard.Authorize(actor, rbac.PermGenerateAIPost); err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || len(prompt) > maxPromptLength {
		return nil, invalidf("prompt must be 1-%d characters", maxPromptLength)
	}

	requestID := uuid.NewString()
	log := s.log.With(zap.String("request_id", requestID), zap.Uint("actor_id", actor.ID))

	start := s.now()
	title, body, err := s.generator.Generate(ctx, requestID, prompt)
	if err != nil {
		log.Warn("ai generation failed", zap.Error(err))
		return nil, err
	}
	if len([]rune(title)) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}

	post, err := s.content.createPost(ctx, actor, PostInput{Title: title, Content: body, TopicID: topicID}, true)
	if err != nil {
		return nil, err
	}
	log.Info("ai post generated", zap.Uint("post_id", post.ID), zap.Duration("took", s.now().Sub(start)))
	return post, nil
}

// ScheduleInput configures a recurring generation job. The job runner lives outside this
// service; it reads the stored schedules.
type ScheduleInput struct {
	Name    string
	Cron    string
	Prompt  string
	TopicID *uint
	Enabled bool
}

// ScheduleView is a stored schedule together with its next run time.
type ScheduleView struct {
	models.AISchedule
	NextRun *time.Time `json:"next_run,omitempty"`
}

// SaveSchedule creates or replaces the schedule with the given name.
func (s *AIService) SaveSchedule(ctx context.Context, actor *rbac.Actor, in ScheduleInput) (*ScheduleView, error) {
	if err := s.guard.Authorize(actor, rbac.PermManageAISettings); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("schedule name is required")
	}
	if _, err := cron.ParseStandard(in.Cron); err != nil {
		return nil, invalidf("cron expression %q: %v", in.Cron, err)
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" || len(prompt) > maxPromptLength {
		return nil, invalidf("prompt must be 1-%d characters", maxPromptLength)
	}

	var schedule models.AISchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.content.checkTopic(tx, actor, in.TopicID); err != nil {
			return err
		}
		err := tx.Where("name = ?", name).First(&schedule).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		schedule.Name = name
		schedule.Cron = strings.TrimSpace(in.Cron)
		schedule.Prompt = prompt
		schedule.TopicID = in.TopicID
		schedule.Enabled = in.Enabled
		schedule.UpdatedByID = actor.ID
		if schedule.ID != 0 {
			return tx.Save(&schedule).Error
		}
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
		// Create skips a false Enabled in favour of the column default
		return tx.Model(&schedule).Update("enabled", in.Enabled).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ai schedule saved", zap.String("name", name), zap.String("cron", schedule.Cron), zap.Bool("enabled", schedule.Enabled))
	view := s.view(schedule)
	return &view, nil
}

func (s *AIService) ListSchedules(ctx context.Context, actor *rbac.Actor) ([]ScheduleView, error) {
	if err := s.guard.Authorize(actor, rbac.PermManageAISettings); err != nil {
		return nil, err
	}
	var schedules []models.AISchedule
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&schedules).Error; err != nil {
		return nil, err
	}
	views := make([]ScheduleView, 0, len(schedules))
	for _, sc := range schedules {
		views = append(views, s.view(sc))
	}
	return views, nil
}

func (s *AIService) DeleteSchedule(ctx context.Context, actor *rbac.Actor, id uint) error {
	if err := s.guard.Authorize(actor, rbac.PermManageAISettings); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&models.AISchedule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *AIService) view(sc models.AISchedule) ScheduleView {
	v := ScheduleView{AISchedule: sc}
	if !sc.Enabled {
		return v
	}
	if sched, err := cron.ParseStandard(sc.Cron); err == nil {
		next := sched.Next(s.now())
		v.NextRun = &next
	}
	return v
}
