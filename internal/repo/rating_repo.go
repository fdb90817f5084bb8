// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Rating model.
//
// Star bounds are validated by the handler and service layers; the CHECK
// constraint on ratings.stars only backs them up.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/domain"
)

// CreateRating inserts a rating by userID on movieID.
func CreateRating(ctx context.Context, db *gorm.DB, movieID, userID uint, stars int, comment *string) (*domain.Rating, error) {
	r := &domain.Rating{
		Stars:   stars,
		Comment: comment,
		MovieID: movieID,
		UserID:  userID,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRating fetches a rating by ID, or ErrNotFound.
func GetRating(ctx context.Context, db *gorm.DB, id uint) (*domain.Rating, error) {
	var r domain.Rating
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRatingsForMovie returns all ratings of a movie ordered by ID. The
// result is an empty (non-nil) slice when there are none.
func ListRatingsForMovie(ctx context.Context, db *gorm.DB, movieID uint) ([]domain.Rating, error) {
	out := []domain.Rating{}
	err := db.WithContext(ctx).
		Where("movie_id = ?", movieID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
