package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"agora/internal/models"
	"agora/internal/rbac"
	"agora/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTitleLength   = 200
	maxContentLength = 20000
	maxCommentLength = 5000
	maxTagsPerPost   = 5

	taxonomyCacheTTL = 5 * time.Minute
	topicsCacheKey   = "topics"
	tagsCacheKey     = "tags"

	hotCandidateWindow = 500
)

type PostSort string

const (
	SortNew PostSort = "new"
	SortTop PostSort = "top"
	SortHot PostSort = "hot"
)

// PostQuery filters and orders a post listing. Zero values mean "newest first, no filter".
type PostQuery struct {
	Sort      PostSort
	TopicSlug string
	Tag       string
	UserID    uint
	Limit     int
	Offset    int
}

type PostInput struct {
	Title   string
	Content string
	TopicID *uint
	Tags    []string
}

type TopicInput struct {
	Name        string
	Description string
	ExpertOnly  bool
}

type CommentInput struct {
	Content  string
	ParentID *uint
}

// ContentService owns post, comment, tag and topic mutations. Every mutation is authorized
// before anything is read for writing.
type ContentService struct {
	db        *gorm.DB
	guard     *rbac.Guard
	scheduler Scheduler
	cache     *utils.Cache
	log       *zap.Logger
	now       func() time.Time
}

func NewContentService(conn *gorm.DB, guard *rbac.Guard, scheduler Scheduler, cache *utils.Cache, log *zap.Logger) *ContentService {
	return &ContentService{db: conn, guard: guard, scheduler: scheduler, cache: cache, log: log, now: time.Now}
}

func (s *ContentService) schedule(userIDs ...uint) {
	if s.scheduler == nil {
		return
	}
	for _, id := range userIDs {
		s.scheduler.Schedule(id)
	}
}

// ---- posts ----

func (s *ContentService) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Post{}).Preload("User").Preload("Topic").Preload("Tags")
	if q.TopicSlug != "" {
		query = query.Joins("JOIN topics ON topics.id = posts.topic_id").Where("topics.slug = ?", q.TopicSlug)
	}
	if q.Tag != "" {
		query = query.Where("posts.id IN (?)",
			s.db.Table("post_tags").Select("post_tags.post_id").
				Joins("JOIN tags ON tags.id = post_tags.tag_id").
				Where("tags.name = ?", normalizeTag(q.Tag)))
	}
	if q.UserID != 0 {
		query = query.Where("posts.user_id = ?", q.UserID)
	}

	var posts []models.Post
	switch q.Sort {
	case SortTop:
		err := query.Order("posts.upvotes - posts.downvotes DESC, posts.created_at DESC").
			Limit(q.Limit).Offset(q.Offset).Find(&posts).Error
		return posts, err
	case SortHot:
		if err := query.Order("posts.created_at DESC").Limit(hotCandidateWindow).Find(&posts).Error; err != nil {
			return nil, err
		}
		now := s.now()
		sort.SliceStable(posts, func(i, j int) bool {
			return utils.HotScore(posts[i].CreatedAt, now, posts[i].Upvotes, posts[i].Downvotes, posts[i].CommentCount) >
				utils.HotScore(posts[j].CreatedAt, now, posts[j].Upvotes, posts[j].Downvotes, posts[j].CommentCount)
		})
		if q.Offset >= len(posts) {
			return []models.Post{}, nil
		}
		end := q.Offset + q.Limit
		if end > len(posts) {
			end = len(posts)
		}
		return posts[q.Offset:end], nil
	default:
		err := query.Order("posts.created_at DESC, posts.id DESC").Limit(q.Limit).Offset(q.Offset).Find(&posts).Error
		return posts, err
	}
}

func (s *ContentService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("User").Preload("Topic").Preload("Tags").First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *ContentService) CreatePost(ctx context.Context, actor *rbac.Actor, in PostInput) (*models.Post, error) {
	if err := s.guard.Authorize(actor, rbac.PermCreatePost); err != nil {
		return nil, err
	}
	post, err := s.createPost(ctx, actor, in, false)
	if err != nil {
		return nil, err
	}
	s.schedule(actor.ID)
	return post, nil
}

// createPost stores a post owned by an actor already allowed to create it.
func (s *ContentService) createPost(ctx context.Context, actor *rbac.Actor, in PostInput, aiGenerated bool) (*models.Post, error) {
	if err := validatePostInput(in); err != nil {
		return nil, err
	}

	post := models.Post{
		UserID:        actor.ID,
		TopicID:       in.TopicID,
		Title:         strings.TrimSpace(in.Title),
		Content:       in.Content,
		IsAIGenerated: aiGenerated,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkTopic(tx, actor, in.TopicID); err != nil {
			return err
		}
		tags, err := resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Omit("Tags.*").Create(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetPost(ctx, post.ID)
}

func (s *ContentService) UpdatePost(ctx context.Context, actor *rbac.Actor, id uint, in PostInput) (*models.Post, error) {
	if actor == nil {
		return nil, s.guard.Authorize(nil, rbac.PermEditOwnPost)
	}
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeOwned(actor, post.UserID, rbac.PermEditOwnPost, rbac.PermEditAnyPost); err != nil {
		return nil, err
	}
	if err := validatePostInput(in); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// a post already in an expert topic stays editable by its owner
		if !sameTopic(post.TopicID, in.TopicID) {
			if err := s.checkTopic(tx, actor, in.TopicID); err != nil {
				return err
			}
		}
		tags, err := resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Post{ID: id}).Select("title", "content", "topic_id").Updates(map[string]interface{}{
			"title":    strings.TrimSpace(in.Title),
			"content":  in.Content,
			"topic_id": in.TopicID,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{ID: id}).Omit("Tags.*").Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes a post together with its comments, votes, bookmarks and tag links.
func (s *ContentService) DeletePost(ctx context.Context, actor *rbac.Actor, id uint) error {
	if actor == nil {
		return s.guard.Authorize(nil, rbac.PermDeleteOwnPost)
	}
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.AuthorizeOwned(actor, post.UserID, rbac.PermDeleteOwnPost, rbac.PermDeleteAnyPost); err != nil {
		return err
	}

	affected := []uint{post.UserID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commenters []uint
		if err := tx.Unscoped().Model(&models.Comment{}).Where("post_id = ?", id).
			Distinct().Pluck("user_id", &commenters).Error; err != nil {
			return err
		}
		affected = append(affected, commenters...)

		commentIDs := tx.Unscoped().Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}

	s.log.Info("post deleted", zap.Uint("post_id", id), zap.Uint("actor_id", actor.ID))
	s.schedule(affected...)
	return nil
}

func validatePostInput(in PostInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return invalidf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalidf("title exceeds %d characters", maxTitleLength)
	}
	if utf8.RuneCountInString(in.Content) > maxContentLength {
		return invalidf("content exceeds %d characters", maxContentLength)
	}
	if len(in.Tags) > maxTagsPerPost {
		return invalidf("at most %d tags per post", maxTagsPerPost)
	}
	return nil
}

// checkTopic verifies the topic exists and that actor may publish into it.
func (s *ContentService) checkTopic(tx *gorm.DB, actor *rbac.Actor, topicID *uint) error {
	if topicID == nil {
		return nil
	}
	var topic models.Topic
	if err := tx.Select("id", "expert_only").First(&topic, *topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidf("topic %d does not exist", *topicID)
		}
		return err
	}
	if topic.ExpertOnly {
		return s.guard.Authorize(actor, rbac.PermPublishExpertContent)
	}
	return nil
}

func sameTopic(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// resolveTags maps names onto existing tags. Creating tags is a moderation action, so
// unknown names are rejected here.
func resolveTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	wanted := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = normalizeTag(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		wanted = append(wanted, name)
	}
	tags := []models.Tag{}
	if len(wanted) == 0 {
		return tags, nil
	}
	if err := tx.Where("name IN ?", wanted).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(wanted) {
		found := make(map[string]bool, len(tags))
		for _, t := range tags {
			found[t.Name] = true
		}
		for _, name := range wanted {
			if !found[name] {
				return nil, invalidf("unknown tag %q", name)
			}
		}
	}
	return tags, nil
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ---- comments ----

// ListComments returns a post's live comments oldest first.
func (s *ContentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (s *ContentService) CreateComment(ctx context.Context, actor *rbac.Actor, postID uint, in CommentInput) (*models.Comment, error) {
	if err := s.guard.Authorize(actor, rbac.PermCreateComment); err != nil {
		return nil, err
	}
	if err := validateComment(in.Content); err != nil {
		return nil, err
	}

	comment := models.Comment{PostID: postID, UserID: actor.ID, ParentID: in.ParentID, Content: in.Content}
	var notifyIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "user_id", "title").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var parent models.Comment
		if in.ParentID != nil {
			if err := tx.Select("id", "post_id", "user_id").First(&parent, *in.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invalidf("parent comment %d does not exist", *in.ParentID)
				}
				return err
			}
			if parent.PostID != postID {
				return invalidf("parent comment %d belongs to another post", *in.ParentID)
			}
		}

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}

		if post.UserID != actor.ID {
			if err := notify(tx, models.Notification{
				UserID:  post.UserID,
				ActorID: &actor.ID,
				PostID:  &post.ID,
				Type:    models.NotifyComment,
				Reason:  fmt.Sprintf("New comment on your post %q", post.Title),
			}); err != nil {
				return err
			}
			notifyIDs = append(notifyIDs, post.UserID)
		}
		if in.ParentID != nil && parent.UserID != actor.ID && parent.UserID != post.UserID {
			if err := notify(tx, models.Notification{
				UserID:  parent.UserID,
				ActorID: &actor.ID,
				PostID:  &post.ID,
				Type:    models.NotifyReply,
				Reason:  fmt.Sprintf("New reply to your comment on %q", post.Title),
			}); err != nil {
				return err
			}
			notifyIDs = append(notifyIDs, parent.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("comment created", zap.Uint("comment_id", comment.ID), zap.Uints("notified", notifyIDs))
	s.schedule(actor.ID)
	return &comment, nil
}

func (s *ContentService) UpdateComment(ctx context.Context, actor *rbac.Actor, id uint, content string) (*models.Comment, error) {
	if actor == nil {
		return nil, s.guard.Authorize(nil, rbac.PermEditOwnComment)
	}
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeOwned(actor, comment.UserID, rbac.PermEditOwnComment, rbac.PermEditAnyComment); err != nil {
		return nil, err
	}
	if err := validateComment(content); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(comment).Update("content", content).Error; err != nil {
		return nil, err
	}
	comment.Content = content
	return comment, nil
}

// DeleteComment soft-deletes a comment. Replies and votes stay in place.
func (s *ContentService) DeleteComment(ctx context.Context, actor *rbac.Actor, id uint) error {
	if actor == nil {
		return s.guard.Authorize(nil, rbac.PermDeleteOwnComment)
	}
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.AuthorizeOwned(actor, comment.UserID, rbac.PermDeleteOwnComment, rbac.PermDeleteAnyComment); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Comment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		return err
	}
	s.schedule(comment.UserID)
	return nil
}

func (s *ContentService) getComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func validateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalidf("comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return invalidf("comment exceeds %d characters", maxCommentLength)
	}
	return nil
}

// ---- tags ----

func (s *ContentService) ListTags(ctx context.Context) ([]models.Tag, error) {
	if cached := s.cache.Get(tagsCacheKey); cached != nil {
		return cached.([]models.Tag), nil
	}
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	s.cache.Set(tagsCacheKey, tags, taxonomyCacheTTL)
	return tags, nil
}

func (s *ContentService) CreateTag(ctx context.Context, actor *rbac.Actor, name string) (*models.Tag, error) {
	if err := s.guard.Authorize(actor, rbac.PermModerateContent); err != nil {
		return nil, err
	}
	name = normalizeTag(name)
	if name == "" || utf8.RuneCountInString(name) > 50 {
		return nil, invalidf("tag name must be 1-50 characters")
	}

	tag := models.Tag{Name: name}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: tag %q already exists", ErrConflict, name)
		}
		return nil, err
	}
	s.cache.Delete(tagsCacheKey)
	return &tag, nil
}

func (s *ContentService) DeleteTag(ctx context.Context, actor *rbac.Actor, id uint) error {
	if err := s.guard.Authorize(actor, rbac.PermModerateContent); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Tag{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Delete(tagsCacheKey)
	return nil
}

// ---- topics ----

func (s *ContentService) ListTopics(ctx context.Context) ([]models.Topic, error) {
	if cached := s.cache.Get(topicsCacheKey); cached != nil {
		return cached.([]models.Topic), nil
	}
	var topics []models.Topic
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&topics).Error; err != nil {
		return nil, err
	}
	s.cache.Set(topicsCacheKey, topics, taxonomyCacheTTL)
	return topics, nil
}

func (s *ContentService) GetTopic(ctx context.Context, slug string) (*models.Topic, error) {
	var topic models.Topic
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *ContentService) CreateTopic(ctx context.Context, actor *rbac.Actor, in TopicInput) (*models.Topic, error) {
	if err := s.guard.Authorize(actor, rbac.PermModerateContent); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, invalidf("topic name must contain letters or digits")
	}

	topic := models.Topic{Name: name, Slug: slug, Description: strings.TrimSpace(in.Description), ExpertOnly: in.ExpertOnly}
	if err := s.db.WithContext(ctx).Create(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: topic %q already exists", ErrConflict, slug)
		}
		return nil, err
	}
	s.cache.Delete(topicsCacheKey)
	return &topic, nil
}

func (s *ContentService) UpdateTopic(ctx context.Context, actor *rbac.Actor, id uint, in TopicInput) (*models.Topic, error) {
	if err := s.guard.Authorize(actor, rbac.PermModerateContent); err != nil {
		return nil, err
	}
	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		topic.Name = name
	}
	topic.Description = strings.TrimSpace(in.Description)
	topic.ExpertOnly = in.ExpertOnly
	if err := s.db.WithContext(ctx).Save(&topic).Error; err != nil {
		return nil, err
	}
	s.cache.Delete(topicsCacheKey)
	return &topic, nil
}

// DeleteTopic detaches the topic's posts before removing it.
func (s *ContentService) DeleteTopic(ctx context.Context, actor *rbac.Actor, id uint) error {
	if err := s.guard.Authorize(actor, rbac.PermModerateContent); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("topic_id = ?", id).UpdateColumn("topic_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Topic{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Delete(topicsCacheKey)
	return nil
}
