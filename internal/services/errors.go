// Package services defines the business logic for users, movies, ratings,
// and comments. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// User and authentication errors.
var (
	// ErrUsernameTaken is returned by Signup when the username already exists.
	ErrUsernameTaken = errors.New("username already registered")

	// ErrEmailTaken is returned by Signup when the email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrUserNotFound indicates the user referenced by a token no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUsername is returned by Signup when the username is shorter
	// than MinUsernameRunes after normalization.
	ErrInvalidUsername = errors.New("username must be at least 3 characters")

	// ErrEmptyFullName is returned by Signup when the full name is blank
	// after normalization.
	ErrEmptyFullName = errors.New("full name is empty")

	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72 byte input.
	ErrPasswordTooLong = errors.New("password too long")
)

// Movie errors.
var (
	// ErrMovieNotFound indicates that the requested movie does not exist.
	ErrMovieNotFound = errors.New("movie not found")

	// ErrForbidden is returned when the acting user does not own the movie.
	ErrForbidden = errors.New("not the owner of this movie")

	// ErrEmptyTitle is returned when a title is blank after normalization.
	ErrEmptyTitle = errors.New("title is empty")
)

// Rating and comment errors.
var (
	// ErrInvalidRating is returned when stars fall outside [MinStars, MaxStars].
	ErrInvalidRating = errors.New("stars must be between 0 and 5")

	// ErrEmptyText is returned when comment text is blank after normalization.
	ErrEmptyText = errors.New("text is empty")

	// ErrTextTooLong is returned when comment text exceeds the configured limit.
	ErrTextTooLong = errors.New("text too long")

	// ErrCommentNotFound indicates that the requested comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrParentNotFound is returned when a reply references a missing comment.
	ErrParentNotFound = errors.New("parent comment not found")

	// ErrParentMovieMismatch is returned when a parent comment belongs to a
	// different movie than the new comment.
	ErrParentMovieMismatch = errors.New("parent comment belongs to another movie")
)
