// Package services – RatingService
//
// This file implements RatingService, which records star ratings on movies.
// Stars are bounded to [MinStars, MaxStars]; a user may rate the same movie
// any number of times and every rating is kept. Creation can be made
// idempotent per (user, movie, Idempotency-Key) through RateOnce.
package services

import (
	"context"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/observability"
	"github.com/tbourn/go-movie-reviews/internal/repo"
)

// Star bounds, inclusive.
const (
	MinStars = 0
	MaxStars = 5
)

// RatingService implements rating creation and listing.
type RatingService struct {
	DB *gorm.DB
	// IdempotencyTTL bounds how long an Idempotency-Key replays.
	IdempotencyTTL time.Duration
	// MaxCommentRunes caps the optional rating comment; 0 disables.
	MaxCommentRunes int
}

// Rate records a rating by userID on movieID.
func (s *RatingService) Rate(ctx context.Context, userID, movieID uint, stars int, comment *string) (*domain.Rating, error) {
	ctx, span := observability.Tracer("services/RatingService").Start(ctx, "Rate",
		trace.WithAttributes(
			attribute.Int64("movie.id", int64(movieID)),
			attribute.Int64("user.id", int64(userID)),
			attribute.Int("stars", stars),
		),
	)
	defer span.End()

	if stars < MinStars || stars > MaxStars {
		return nil, ErrInvalidRating
	}
	if err := movieExists(ctx, s.DB, movieID); err != nil {
		return nil, err
	}

	if comment != nil {
		c := normalizeText(*comment)
		if s.MaxCommentRunes > 0 && utf8.RuneCountInString(c) > s.MaxCommentRunes {
			return nil, ErrTextTooLong
		}
		comment = &c
	}

	r, err := repo.CreateRating(ctx, s.DB, movieID, userID, stars, comment)
	if err != nil {
		return nil, err
	}
	observability.RatingsTotal.WithLabelValues(strconv.Itoa(stars)).Inc()
	return r, nil
}

// RateOnce is Rate with Idempotency-Key semantics. When key was already used
// by userID for this movie, the original rating is returned with
// replayed=true and nothing new is written.
func (s *RatingService) RateOnce(ctx context.Context, key string, userID, movieID uint, stars int, comment *string) (*domain.Rating, bool, error) {
	return once(ctx, s.DB, s.IdempotencyTTL, userID, IdempotencyScope(ScopeRatings, movieID), key,
		func(ctx context.Context, id uint) (*domain.Rating, error) {
			return repo.GetRating(ctx, s.DB, id)
		},
		func(ctx context.Context) (*domain.Rating, uint, error) {
			r, err := s.Rate(ctx, userID, movieID, stars, comment)
			if err != nil {
				return nil, 0, err
			}
			return r, r.ID, nil
		},
	)
}

// List returns all ratings of a movie. A movie without ratings, or an
// unknown movie id, yields an empty slice.
func (s *RatingService) List(ctx context.Context, movieID uint) ([]domain.Rating, error) {
	ctx, span := observability.Tracer("services/RatingService").Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("movie.id", int64(movieID))),
	)
	defer span.End()

	return repo.ListRatingsForMovie(ctx, s.DB, movieID)
}

// movieExists returns ErrMovieNotFound when no movie has the given id.
func movieExists(ctx context.Context, db *gorm.DB, movieID uint) error {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.Movie{}).Where("id = ?", movieID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// isNotFound treats repo-level and gorm not-found sentinels alike.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
