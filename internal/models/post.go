package models

import "time"

// Post is a single feed entry. Likes are a plain counter, not a join table.
type Post struct {
	ID         uint   `gorm:"primaryKey"`
	AuthorID   uint   `gorm:"index;not null"`
	Content    string `gorm:"type:text;not null"`
	LikesCount int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Author User `gorm:"constraint:OnDelete:CASCADE"`
}
