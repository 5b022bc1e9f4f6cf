package models

import (
	"time"
)

type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown
}

// Opposite returns the other vote direction.
func (t VoteType) Opposite() VoteType {
	if t == VoteUp {
		return VoteDown
	}
	return VoteUp
}

// Vote is unique per (user, post) and per (user, comment). NULLs are distinct in both
// Postgres and SQLite, so each index only constrains rows that carry its target column.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_post;uniqueIndex:idx_votes_user_comment" json:"user_id"`
	PostID    *uint     `gorm:"index;uniqueIndex:idx_votes_user_post;check:chk_votes_single_target,(post_id IS NULL) <> (comment_id IS NULL)" json:"post_id"`
	CommentID *uint     `gorm:"index;uniqueIndex:idx_votes_user_comment" json:"comment_id"`
	VoteType  VoteType  `gorm:"type:varchar(10);not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
