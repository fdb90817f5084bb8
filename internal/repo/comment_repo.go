// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Comment
// model. Comments form an adjacency list through parent_comment_id; reads
// resolve exactly one level of children and never walk the tree.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/domain"
)

// childrenByID orders preloaded children deterministically.
func childrenByID(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

// CreateComment inserts a comment. parentID may be nil for a top-level
// comment; its existence is checked by the caller.
func CreateComment(ctx context.Context, db *gorm.DB, movieID, userID uint, text string, parentID *uint) (*domain.Comment, error) {
	c := &domain.Comment{
		Text:            text,
		MovieID:         movieID,
		UserID:          userID,
		ParentCommentID: parentID,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment fetches a comment and its direct children, or ErrNotFound.
func GetComment(ctx context.Context, db *gorm.DB, id uint) (*domain.Comment, error) {
	var c domain.Comment
	err := db.WithContext(ctx).
		Preload("Children", childrenByID).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCommentsForMovie returns every comment of a movie as a flat list
// ordered by ID, each with its direct children. The result is an empty
// (non-nil) slice when there are none.
func ListCommentsForMovie(ctx context.Context, db *gorm.DB, movieID uint) ([]domain.Comment, error) {
	out := []domain.Comment{}
	err := db.WithContext(ctx).
		Preload("Children", childrenByID).
		Where("movie_id = ?", movieID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
