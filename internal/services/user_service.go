// Package services – UserService
//
// This file implements UserService, which owns account creation and
// credential checks. Passwords are hashed with bcrypt before they reach the
// repository; plaintext never leaves this layer. Username and email
// collisions are reported as distinct sentinel errors so handlers can tell
// the client which field is taken.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/auth"
	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/observability"
	"github.com/tbourn/go-movie-reviews/internal/repo"
)

// MinUsernameRunes is the shortest accepted username after normalization.
const MinUsernameRunes = 3

// SignupInput carries the fields needed to register an account.
type SignupInput struct {
	Username string
	FullName string
	Email    string
	Password string
}

// UserService implements signup, authentication and profile lookup.
type UserService struct {
	DB *gorm.DB
	// BcryptCost is the bcrypt work factor; values below bcrypt.MinCost
	// fall back to bcrypt.DefaultCost.
	BcryptCost int
}

// Signup registers a new user. The username and email are checked up front
// for a precise error; the unique indexes still catch a concurrent race, in
// which case the pre-checks are repeated to classify the collision.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	ctx, span := observability.Tracer("services/UserService").Start(ctx, "Signup")
	defer span.End()

	username := normalizeLine(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullName := normalizeLine(in.FullName)
	if utf8.RuneCountInString(username) < MinUsernameRunes {
		return nil, ErrInvalidUsername
	}
	if fullName == "" {
		return nil, ErrEmptyFullName
	}

	if err := s.checkAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, ErrPasswordTooLong
		}
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, username, fullName, email, hash)
	if errors.Is(err, repo.ErrDuplicate) {
		if cerr := s.checkAvailable(ctx, username, email); cerr != nil {
			return nil, cerr
		}
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	observability.SignupsTotal.Inc()
	return u, nil
}

// checkAvailable returns ErrUsernameTaken or ErrEmailTaken when a row
// already holds the value.
func (s *UserService) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := repo.GetUserByUsername(ctx, s.DB, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

// Authenticate verifies a username/password pair and returns the user.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	ctx, span := observability.Tracer("services/UserService").Start(ctx, "Authenticate")
	defer span.End()

	username = normalizeLine(username)
	if username == "" {
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	u, err := repo.GetUserByUsername(ctx, s.DB, username)
	if errors.Is(err, repo.ErrNotFound) {
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(u.HashedPassword, password) {
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	observability.LoginsTotal.WithLabelValues("success").Inc()
	return u, nil
}

// Get returns the user with the given id, or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	ctx, span := observability.Tracer("services/UserService").Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))),
	)
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
