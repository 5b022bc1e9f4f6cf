package services

import (
	"context"
	"time"

	"agora/internal/models"
	"agora/internal/rbac"
	"agora/internal/utils"

	"gorm.io/gorm"
)

// Dashboard is the layered view a signed-in actor sees. Every flag comes from the resolver,
// and each board is present only when the actor's role holds its view permission.
type Dashboard struct {
	rbac.Capabilities
	UserID          uint   `json:"user_id,omitempty"`
	ContributorType string `json:"contributor_type,omitempty"`
	Verified        bool   `json:"verified"`
	TrustScore      int    `json:"trust_score"`
	TrustLevel      string `json:"trust_level"`
	TrustIcon       string `json:"trust_icon"`
	Threshold       int    `json:"contributor_threshold"`
	CanApply        bool   `json:"can_apply"`
	UnreadCount     int64  `json:"unread_count"`

	Contributor *ContributorBoard `json:"contributor,omitempty"`
	Admin       *AdminBoard       `json:"admin,omitempty"`
	SuperAdmin  *SuperAdminBoard  `json:"superadmin,omitempty"`
}

type ContributorBoard struct {
	Posts           int64 `json:"posts"`
	ExpertPosts     int64 `json:"expert_posts"`
	UpvotesReceived int64 `json:"upvotes_received"`
}

type AdminBoard struct {
	PendingApplications int64 `json:"pending_applications"`
	Users               int64 `json:"users"`
	PostsThisWeek       int64 `json:"posts_this_week"`
}

type SuperAdminBoard struct {
	UsersByRole        map[string]int64 `json:"users_by_role"`
	AISchedules        int64            `json:"ai_schedules"`
	EnabledAISchedules int64            `json:"enabled_ai_schedules"`
}

type DashboardService struct {
	db            *gorm.DB
	guard         *rbac.Guard
	trust         *TrustEngine
	notifications *NotificationService
	now           func() time.Time
}

func NewDashboardService(conn *gorm.DB, guard *rbac.Guard, trust *TrustEngine, notifications *NotificationService) *DashboardService {
	return &DashboardService{db: conn, guard: guard, trust: trust, notifications: notifications, now: time.Now}
}

// For builds the dashboard of actor. Guests get the capability summary only.
func (s *DashboardService) For(ctx context.Context, actor *rbac.Actor) (*Dashboard, error) {
	resolver := s.guard.Resolver()
	d := &Dashboard{
		Capabilities: resolver.Capabilities(actor),
		Threshold:    s.trust.Threshold(),
	}
	if actor == nil {
		d.TrustLevel, d.TrustIcon = utils.TrustLevel(0)
		return d, nil
	}

	d.UserID = actor.ID
	d.ContributorType = actor.ContributorType
	d.Verified = actor.Verified
	d.TrustScore = actor.TrustScore
	d.TrustLevel, d.TrustIcon = utils.TrustLevel(actor.TrustScore)

	// boards are looked up in the permission set so that absent boards are not logged as denials
	perms := resolver.PermissionsFor(actor)
	d.CanApply = resolver.EffectiveRole(actor) == rbac.RoleUser &&
		perms.Has(rbac.PermApplyContributor) &&
		s.trust.Eligible(actor.TrustScore)

	var err error
	if perms.Has(rbac.PermViewUserDashboard) {
		if d.UnreadCount, err = s.notifications.UnreadCount(ctx, actor.ID); err != nil {
			return nil, err
		}
	}
	if perms.Has(rbac.PermViewContributorBoard) {
		if d.Contributor, err = s.contributorBoard(ctx, actor.ID); err != nil {
			return nil, err
		}
	}
	if perms.Has(rbac.PermViewAdminDashboard) {
		if d.Admin, err = s.adminBoard(ctx); err != nil {
			return nil, err
		}
	}
	if perms.Has(rbac.PermViewSuperAdminBoard) {
		if d.SuperAdmin, err = s.superAdminBoard(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *DashboardService) ContributorBoard(ctx context.Context, actor *rbac.Actor) (*ContributorBoard, error) {
	if err := s.guard.Authorize(actor, rbac.PermViewContributorBoard); err != nil {
		return nil, err
	}
	return s.contributorBoard(ctx, actor.ID)
}

func (s *DashboardService) AdminBoard(ctx context.Context, actor *rbac.Actor) (*AdminBoard, error) {
	if err := s.guard.Authorize(actor, rbac.PermViewAdminDashboard); err != nil {
		return nil, err
	}
	return s.adminBoard(ctx)
}

func (s *DashboardService) SuperAdminBoard(ctx context.Context, actor *rbac.Actor) (*SuperAdminBoard, error) {
	if err := s.guard.Authorize(actor, rbac.PermViewSuperAdminBoard); err != nil {
		return nil, err
	}
	return s.superAdminBoard(ctx)
}

func (s *DashboardService) contributorBoard(ctx context.Context, userID uint) (*ContributorBoard, error) {
	in, err := s.trust.Inputs(ctx, userID)
	if err != nil {
		return nil, err
	}
	board := &ContributorBoard{Posts: in.Posts, UpvotesReceived: in.UpvotesReceived}
	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN topics ON topics.id = posts.topic_id").
		Where("posts.user_id = ? AND topics.expert_only = ?", userID, true).
		Count(&board.ExpertPosts).Error
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (s *DashboardService) adminBoard(ctx context.Context) (*AdminBoard, error) {
	board := &AdminBoard{}
	conn := s.db.WithContext(ctx)
	if err := conn.Model(&models.ContributorApplication{}).
		Where("status = ?", models.ApplicationPending).
		Count(&board.PendingApplications).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&models.User{}).Count(&board.Users).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&models.Post{}).
		Where("created_at >= ?", s.now().AddDate(0, 0, -7)).
		Count(&board.PostsThisWeek).Error; err != nil {
		return nil, err
	}
	return board, nil
}

func (s *DashboardService) superAdminBoard(ctx context.Context) (*SuperAdminBoard, error) {
	conn := s.db.WithContext(ctx)
	var rows []struct {
		Role  string
		Total int64
	}
	if err := conn.Model(&models.User{}).Select("role, COUNT(*) AS total").Group("role").Scan(&rows).Error; err != nil {
		return nil, err
	}
	board := &SuperAdminBoard{UsersByRole: make(map[string]int64, len(rows))}
	for _, r := range rows {
		board.UsersByRole[r.Role] = r.Total
	}
	if err := conn.Model(&models.AISchedule{}).Count(&board.AISchedules).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&models.AISchedule{}).Where("enabled = ?", true).Count(&board.EnabledAISchedules).Error; err != nil {
		return nil, err
	}
	return board, nil
}

// TrustLogs returns the actor's own trust score history.
func (s *DashboardService) TrustLogs(ctx context.Context, actor *rbac.Actor, limit int) ([]models.TrustLog, error) {
	if err := s.guard.Authorize(actor, rbac.PermViewUserDashboard); err != nil {
		return nil, err
	}
	return s.trust.Logs(ctx, actor.ID, limit)
}
