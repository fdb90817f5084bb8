// Package services – CommentService
//
// This file implements CommentService, which manages threaded comments on
// movies. Comments form a tree through an optional parent reference: a
// parent must exist and belong to the same movie. Reads resolve one level of
// children; trees are neither depth-limited nor cycle-checked, since a
// comment can only point at an already existing one.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/observability"
	"github.com/tbourn/go-movie-reviews/internal/repo"
)

// CommentService implements comment creation, replies and reads.
type CommentService struct {
	DB *gorm.DB
	// IdempotencyTTL bounds how long an Idempotency-Key replays.
	IdempotencyTTL time.Duration
	// MaxTextRunes caps comment length; 0 disables.
	MaxTextRunes int
}

func commentTracer() trace.Tracer { return observability.Tracer("services/CommentService") }

// Create adds a comment by userID on movieID. parentID is optional; when set
// the parent must exist (ErrParentNotFound) and belong to the same movie
// (ErrParentMovieMismatch).
func (s *CommentService) Create(ctx context.Context, userID, movieID uint, text string, parentID *uint) (*domain.Comment, error) {
	ctx, span := commentTracer().Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("movie.id", int64(movieID)),
			attribute.Int64("user.id", int64(userID)),
		),
	)
	defer span.End()

	text, err := s.cleanText(text)
	if err != nil {
		return nil, err
	}
	if err := movieExists(ctx, s.DB, movieID); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := repo.GetComment(ctx, s.DB, *parentID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parent.MovieID != movieID {
			return nil, ErrParentMovieMismatch
		}
	}

	c, err := repo.CreateComment(ctx, s.DB, movieID, userID, text, parentID)
	if err != nil {
		return nil, err
	}
	kind := "comment"
	if parentID != nil {
		kind = "reply"
	}
	observability.CommentsTotal.WithLabelValues(kind).Inc()
	return withChildren(c), nil
}

// CreateOnce is Create with Idempotency-Key semantics scoped to the movie.
func (s *CommentService) CreateOnce(ctx context.Context, key string, userID, movieID uint, text string, parentID *uint) (*domain.Comment, bool, error) {
	return once(ctx, s.DB, s.IdempotencyTTL, userID, IdempotencyScope(ScopeComments, movieID), key,
		s.Get,
		func(ctx context.Context) (*domain.Comment, uint, error) {
			c, err := s.Create(ctx, userID, movieID, text, parentID)
			if err != nil {
				return nil, 0, err
			}
			return c, c.ID, nil
		},
	)
}

// Reply adds a child comment under parentID, on the parent's movie.
func (s *CommentService) Reply(ctx context.Context, userID, parentID uint, text string) (*domain.Comment, error) {
	ctx, span := commentTracer().Start(ctx, "Reply",
		trace.WithAttributes(
			attribute.Int64("comment.parent_id", int64(parentID)),
			attribute.Int64("user.id", int64(userID)),
		),
	)
	defer span.End()

	parent, err := repo.GetComment(ctx, s.DB, parentID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrParentNotFound
		}
		return nil, err
	}
	return s.Create(ctx, userID, parent.MovieID, text, &parent.ID)
}

// ReplyOnce is Reply with Idempotency-Key semantics scoped to the parent.
func (s *CommentService) ReplyOnce(ctx context.Context, key string, userID, parentID uint, text string) (*domain.Comment, bool, error) {
	return once(ctx, s.DB, s.IdempotencyTTL, userID, IdempotencyScope(ScopeReplies, parentID), key,
		s.Get,
		func(ctx context.Context) (*domain.Comment, uint, error) {
			c, err := s.Reply(ctx, userID, parentID, text)
			if err != nil {
				return nil, 0, err
			}
			return c, c.ID, nil
		},
	)
}

// List returns every comment of a movie, flat and ordered by ID, each with
// its direct children. Unknown movies yield an empty slice.
func (s *CommentService) List(ctx context.Context, movieID uint) ([]domain.Comment, error) {
	ctx, span := commentTracer().Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("movie.id", int64(movieID))),
	)
	defer span.End()

	items, err := repo.ListCommentsForMovie(ctx, s.DB, movieID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		withChildren(&items[i])
	}
	return items, nil
}

// Get returns a comment with its direct children, or ErrCommentNotFound.
func (s *CommentService) Get(ctx context.Context, id uint) (*domain.Comment, error) {
	ctx, span := commentTracer().Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("comment.id", int64(id))),
	)
	defer span.End()

	c, err := repo.GetComment(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return withChildren(c), nil
}

func (s *CommentService) cleanText(text string) (string, error) {
	text = normalizeText(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if s.MaxTextRunes > 0 && len([]rune(text)) > s.MaxTextRunes {
		return "", ErrTextTooLong
	}
	return text, nil
}

// withChildren makes Children serialize as [] rather than null, on the
// comment and on each child.
func withChildren(c *domain.Comment) *domain.Comment {
	if c.Children == nil {
		c.Children = []domain.Comment{}
	}
	for i := range c.Children {
		if c.Children[i].Children == nil {
			c.Children[i].Children = []domain.Comment{}
		}
	}
	return c
}
