package services

import (
	"context"
	"errors"

	"agora/internal/models"
	"agora/internal/rbac"

	"gorm.io/gorm"
)

type BookmarkService struct {
	db        *gorm.DB
	guard     *rbac.Guard
	scheduler Scheduler
}

func NewBookmarkService(conn *gorm.DB, guard *rbac.Guard, scheduler Scheduler) *BookmarkService {
	return &BookmarkService{db: conn, guard: guard, scheduler: scheduler}
}

// Toggle bookmarks postID for the actor, or removes an existing bookmark. It reports
// whether the post is bookmarked afterwards.
func (s *BookmarkService) Toggle(ctx context.Context, actor *rbac.Actor, postID uint) (bool, error) {
	if err := s.guard.Authorize(actor, rbac.PermBookmarkPost); err != nil {
		return false, err
	}

	var (
		bookmarked bool
		ownerID    uint
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "user_id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		ownerID = post.UserID

		var existing models.Bookmark
		err := tx.Where("user_id = ? AND post_id = ?", actor.ID, postID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			bookmarked = true
			return tx.Create(&models.Bookmark{UserID: actor.ID, PostID: postID}).Error
		}
		if err != nil {
			return err
		}
		return tx.Delete(&existing).Error
	})
	if err != nil {
		return false, err
	}

	if ownerID != actor.ID && s.scheduler != nil {
		s.scheduler.Schedule(ownerID)
	}
	return bookmarked, nil
}

// List returns the actor's bookmarked posts, most recently saved first.
func (s *BookmarkService) List(ctx context.Context, actor *rbac.Actor) ([]models.Post, error) {
	if err := s.guard.Authorize(actor, rbac.PermBookmarkPost); err != nil {
		return nil, err
	}
	var bookmarks []models.Bookmark
	if err := s.db.WithContext(ctx).Preload("Post").Preload("Post.User").
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&bookmarks).Error; err != nil {
		return nil, err
	}
	posts := make([]models.Post, 0, len(bookmarks))
	for _, b := range bookmarks {
		posts = append(posts, b.Post)
	}
	return posts, nil
}
