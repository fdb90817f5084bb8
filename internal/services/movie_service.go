// Package services – MovieService
//
// This file implements MovieService, which manages the movie catalogue. It
// normalizes titles and descriptions, enforces that only a movie's owner may
// update or delete it, and coordinates repository operations for creating,
// listing (skip/limit), updating and deleting movies.
//
// Service-level errors (ErrMovieNotFound, ErrForbidden) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/observability"
	"github.com/tbourn/go-movie-reviews/internal/utils"
)

// MovieRepo defines the repository contract required by MovieService.
type MovieRepo interface {
	// CreateMovie inserts a movie owned by ownerID.
	CreateMovie(ctx context.Context, db *gorm.DB, ownerID uint, title, description string) (*domain.Movie, error)

	// GetMovie fetches a movie by ID with its owner.
	GetMovie(ctx context.Context, db *gorm.DB, id uint) (*domain.Movie, error)

	// ListMovies returns a page of movies ordered by ID.
	ListMovies(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Movie, error)

	// UpdateMovie applies a partial update of title and/or description.
	UpdateMovie(ctx context.Context, db *gorm.DB, id uint, title, description *string) error

	// DeleteMovie hard-deletes a movie.
	DeleteMovie(ctx context.Context, db *gorm.DB, id uint) error

	// MoviesStats returns the movie count and latest updated_at.
	MoviesStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// Listing bounds applied by MovieService.List.
const (
	DefaultMovieLimit = 10
	MaxMovieLimit     = 100
)

// MovieService provides catalogue operations and ownership checks.
type MovieService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the movie repository used by this service.
	Repo MovieRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewMovieService constructs a MovieService with default title handling.
func NewMovieService(db *gorm.DB, r MovieRepo) *MovieService {
	return &MovieService{
		DB:          db,
		Repo:        r,
		TitleMaxLen: 255,
	}
}

func movieTracer() trace.Tracer { return observability.Tracer("services/MovieService") }

// Create inserts a new movie owned by ownerID.
func (s *MovieService) Create(ctx context.Context, ownerID uint, title, description string) (*domain.Movie, error) {
	ctx, span := movieTracer().Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("user.id", int64(ownerID))),
	)
	defer span.End()

	title = clipRunes(normalizeLine(title), s.TitleMaxLen)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	m, err := s.Repo.CreateMovie(ctx, s.DB, ownerID, title, normalizeText(description))
	if err != nil {
		return nil, err
	}
	// Reload so the response carries the owner.
	if full, gerr := s.Repo.GetMovie(ctx, s.DB, m.ID); gerr == nil {
		return full, nil
	}
	return m, nil
}

// Get returns a movie by ID, or ErrMovieNotFound.
func (s *MovieService) Get(ctx context.Context, id uint) (*domain.Movie, error) {
	ctx, span := movieTracer().Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("movie.id", int64(id))),
	)
	defer span.End()

	m, err := s.Repo.GetMovie(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return m, nil
}

// List returns movies ordered by ID. A negative skip is treated as zero, a
// non-positive limit as DefaultMovieLimit, and limit is capped at
// MaxMovieLimit.
func (s *MovieService) List(ctx context.Context, skip, limit int) ([]domain.Movie, error) {
	skip, limit = utils.ClampWindow(skip, limit, DefaultMovieLimit, MaxMovieLimit)

	ctx, span := movieTracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("skip", skip),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	items, err := s.Repo.ListMovies(ctx, s.DB, skip, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Movie{}
	}
	return items, nil
}

// Stats returns the movie count and latest update time, used for ETags.
func (s *MovieService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.MoviesStats(ctx, s.DB)
}

// Update applies a partial update on behalf of userID and returns the
// updated movie. Nil fields are left unchanged; a non-nil title must not be
// blank.
func (s *MovieService) Update(ctx context.Context, userID, id uint, title, description *string) (*domain.Movie, error) {
	ctx, span := movieTracer().Start(ctx, "Update",
		trace.WithAttributes(
			attribute.Int64("movie.id", int64(id)),
			attribute.Int64("user.id", int64(userID)),
		),
	)
	defer span.End()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	if title != nil {
		t := clipRunes(normalizeLine(*title), s.TitleMaxLen)
		if t == "" {
			return nil, ErrEmptyTitle
		}
		title = &t
	}
	if description != nil {
		d := normalizeText(*description)
		description = &d
	}

	if err := s.Repo.UpdateMovie(ctx, s.DB, id, title, description); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a movie owned by userID, with its ratings and comments.
func (s *MovieService) Delete(ctx context.Context, userID, id uint) error {
	ctx, span := movieTracer().Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("movie.id", int64(id)),
			attribute.Int64("user.id", int64(userID)),
		),
	)
	defer span.End()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteMovie(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMovieNotFound
		}
		return err
	}
	return nil
}

// owned loads the movie and checks that userID owns it.
func (s *MovieService) owned(ctx context.Context, userID, id uint) (*domain.Movie, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != userID {
		return nil, ErrForbidden
	}
	return m, nil
}
