package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-movie-reviews/internal/auth"
	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/http/middleware"
	"github.com/tbourn/go-movie-reviews/internal/services"
	"github.com/tbourn/go-movie-reviews/internal/utils"
)

//
// Service contracts
//

// UserService covers account registration, login and profile lookup.
type UserService interface {
	Signup(ctx context.Context, in services.SignupInput) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Get(ctx context.Context, id uint) (*domain.User, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, username string) (auth.Token, error)
}

// MovieService covers the movie catalogue.
type MovieService interface {
	Create(ctx context.Context, ownerID uint, title, description string) (*domain.Movie, error)
	Get(ctx context.Context, id uint) (*domain.Movie, error)
	List(ctx context.Context, skip, limit int) ([]domain.Movie, error)
	// Stats returns the movie count and latest update time for the list ETag.
	Stats(ctx context.Context) (int64, *time.Time, error)
	Update(ctx context.Context, userID, id uint, title, description *string) (*domain.Movie, error)
	Delete(ctx context.Context, userID, id uint) error
}

// RatingService covers star ratings. RateOnce with an empty key behaves as a
// plain create.
type RatingService interface {
	RateOnce(ctx context.Context, key string, userID, movieID uint, stars int, comment *string) (*domain.Rating, bool, error)
	List(ctx context.Context, movieID uint) ([]domain.Rating, error)
}

// CommentService covers threaded comments.
type CommentService interface {
	CreateOnce(ctx context.Context, key string, userID, movieID uint, text string, parentID *uint) (*domain.Comment, bool, error)
	ReplyOnce(ctx context.Context, key string, userID, parentID uint, text string) (*domain.Comment, bool, error)
	List(ctx context.Context, movieID uint) ([]domain.Comment, error)
	Get(ctx context.Context, id uint) (*domain.Comment, error)
}

// Handlers groups the API endpoints over their service dependencies.
type Handlers struct {
	users    UserService
	tokens   TokenIssuer
	movies   MovieService
	ratings  RatingService
	comments CommentService
}

// New constructs Handlers bound to the given services.
func New(users UserService, tokens TokenIssuer, movies MovieService, ratings RatingService, comments CommentService) *Handlers {
	return &Handlers{users: users, tokens: tokens, movies: movies, ratings: ratings, comments: comments}
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(fieldName)
	}
}

// fieldName reports validation failures under the wire name of a field.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

//
// Request helpers
//

// bindJSON decodes and validates the JSON body into dst. It writes the error
// response and returns false on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		bindFailed(c, err)
		return false
	}
	return true
}

// bindForm is bindJSON for application/x-www-form-urlencoded bodies.
func bindForm(c *gin.Context, dst any) bool {
	if err := c.ShouldBindWith(dst, binding.Form); err != nil {
		bindFailed(c, err)
		return false
	}
	return true
}

// bindFailed maps a binding error: syntactically broken bodies are 400,
// well-formed bodies with invalid fields are 422.
func bindFailed(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verrs):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, describe(verrs))
	case errors.As(err, &typeErr):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, fmt.Sprintf("%s has the wrong type", typeErr.Field))
	case errors.As(err, &tooBig):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
	}
}

// describe renders validation failures as "field: reason" pairs.
func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		var reason string
		switch fe.Tag() {
		case "required":
			reason = "field required"
		case "min":
			reason = "must be at least " + fe.Param()
		case "max":
			reason = "must be at most " + fe.Param()
		case "email":
			reason = "must be a valid email address"
		default:
			reason = "failed " + fe.Tag() + " validation"
		}
		parts = append(parts, fe.Field()+": "+reason)
	}
	return strings.Join(parts, "; ")
}

// pathID parses the named path parameter. A non-numeric id is a validation
// error (422).
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, name+": must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// currentUser returns the authenticated user id. Protected routes run
// RequireAuth first, so a miss here means the route was mounted without it.
func currentUser(c *gin.Context) (uint, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "not authenticated")
	}
	return uid, ok
}

// idempotencyKey returns the validated Idempotency-Key, or "".
func idempotencyKey(c *gin.Context) string {
	key, _ := middleware.GetIdempotencyKey(c)
	return key
}

//
// Error mapping
//

// serviceError translates a service error into a response. Unknown errors
// become an opaque 500.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		fail(c, http.StatusBadRequest, ErrCodeUsernameTaken, "Username already registered")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusBadRequest, ErrCodeEmailTaken, "Email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		fail(c, http.StatusUnauthorized, ErrCodeBadCredentials, "Incorrect username or password")
	case errors.Is(err, services.ErrUserNotFound):
		c.Header("WWW-Authenticate", "Bearer")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "could not validate credentials")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "Not enough permissions")
	case errors.Is(err, services.ErrMovieNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Movie not found")
	case errors.Is(err, services.ErrCommentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Comment not found")
	case errors.Is(err, services.ErrParentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Parent comment not found")
	case errors.Is(err, services.ErrParentMovieMismatch):
		fail(c, http.StatusBadRequest, ErrCodeParentMismatch, "Parent comment belongs to another movie")
	case errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrInvalidUsername),
		errors.Is(err, services.ErrEmptyFullName),
		errors.Is(err, services.ErrEmptyText),
		errors.Is(err, services.ErrTextTooLong),
		errors.Is(err, services.ErrPasswordTooLong):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	default:
		internalError(c, err)
	}
}
