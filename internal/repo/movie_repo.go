// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Movie model.
//
// Error semantics:
//   - When a movie is not found, functions return ErrNotFound.
//   - On other DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateMovie(ctx, db, ownerID, title, description) -> *domain.Movie, error
//   - GetMovie(ctx, db, id) -> *domain.Movie, error (Owner preloaded)
//   - ListMovies(ctx, db, offset, limit) -> []domain.Movie, error
//   - CountMovies(ctx, db) -> int64, error
//   - UpdateMovie(ctx, db, id, title, description) -> error (nil fields are left untouched)
//   - DeleteMovie(ctx, db, id) -> error (hard delete; ratings/comments cascade)
//
// Ownership is not checked here; see services.MovieService.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/domain"
)

// CreateMovie inserts a new movie owned by ownerID.
func CreateMovie(ctx context.Context, db *gorm.DB, ownerID uint, title, description string) (*domain.Movie, error) {
	m := &domain.Movie{
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMovie fetches a movie by ID with its owner, or ErrNotFound.
func GetMovie(ctx context.Context, db *gorm.DB, id uint) (*domain.Movie, error) {
	var m domain.Movie
	if err := db.WithContext(ctx).Preload("Owner").First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMovies returns a page of movies ordered by ID ascending, owners
// preloaded. It returns an empty slice when the page is past the end.
func ListMovies(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Movie, error) {
	out := []domain.Movie{}
	err := db.WithContext(ctx).
		Preload("Owner").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountMovies returns the total number of movies.
func CountMovies(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Movie{}).Count(&total).Error
	return total, err
}

// UpdateMovie applies a partial update. Nil arguments are left untouched; if
// both are nil the call only verifies that the movie exists.
func UpdateMovie(ctx context.Context, db *gorm.DB, id uint, title, description *string) error {
	fields := map[string]any{}
	if title != nil {
		fields["title"] = *title
	}
	if description != nil {
		fields["description"] = *description
	}
	if len(fields) == 0 {
		var n int64
		if err := db.WithContext(ctx).Model(&domain.Movie{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	res := db.WithContext(ctx).
		Model(&domain.Movie{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMovie hard-deletes a movie. Its ratings and comments are removed by
// the ON DELETE CASCADE foreign keys.
func DeleteMovie(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Movie{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
