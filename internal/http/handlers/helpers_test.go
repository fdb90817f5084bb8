package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-reviews/internal/auth"
	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/services"
)

//
// Stubs
//

type stubUsers struct {
	signup func(ctx context.Context, in services.SignupInput) (*domain.User, error)
	authn  func(ctx context.Context, username, password string) (*domain.User, error)
	get    func(ctx context.Context, id uint) (*domain.User, error)
}

func (s *stubUsers) Signup(ctx context.Context, in services.SignupInput) (*domain.User, error) {
	return s.signup(ctx, in)
}

func (s *stubUsers) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	return s.authn(ctx, username, password)
}

func (s *stubUsers) Get(ctx context.Context, id uint) (*domain.User, error) { return s.get(ctx, id) }

type stubTokens struct {
	raw string
	exp time.Time
	err error
}

func (s stubTokens) Issue(uint, string) (auth.Token, error) {
	return auth.Token{Raw: s.raw, ExpiresAt: s.exp}, s.err
}

type stubMovies struct {
	create func(ctx context.Context, ownerID uint, title, description string) (*domain.Movie, error)
	get    func(ctx context.Context, id uint) (*domain.Movie, error)
	list   func(ctx context.Context, skip, limit int) ([]domain.Movie, error)
	stats  func(ctx context.Context) (int64, *time.Time, error)
	update func(ctx context.Context, userID, id uint, title, description *string) (*domain.Movie, error)
	del    func(ctx context.Context, userID, id uint) error
}

func (s *stubMovies) Create(ctx context.Context, ownerID uint, title, description string) (*domain.Movie, error) {
	return s.create(ctx, ownerID, title, description)
}

func (s *stubMovies) Get(ctx context.Context, id uint) (*domain.Movie, error) { return s.get(ctx, id) }

func (s *stubMovies) List(ctx context.Context, skip, limit int) ([]domain.Movie, error) {
	return s.list(ctx, skip, limit)
}

func (s *stubMovies) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, context.Canceled
	}
	return s.stats(ctx)
}

func (s *stubMovies) Update(ctx context.Context, userID, id uint, title, description *string) (*domain.Movie, error) {
	return s.update(ctx, userID, id, title, description)
}

func (s *stubMovies) Delete(ctx context.Context, userID, id uint) error { return s.del(ctx, userID, id) }

type stubRatings struct {
	rate func(ctx context.Context, key string, userID, movieID uint, stars int, comment *string) (*domain.Rating, bool, error)
	list func(ctx context.Context, movieID uint) ([]domain.Rating, error)
}

func (s *stubRatings) RateOnce(ctx context.Context, key string, userID, movieID uint, stars int, comment *string) (*domain.Rating, bool, error) {
	return s.rate(ctx, key, userID, movieID, stars, comment)
}

func (s *stubRatings) List(ctx context.Context, movieID uint) ([]domain.Rating, error) {
	return s.list(ctx, movieID)
}

type stubComments struct {
	create func(ctx context.Context, key string, userID, movieID uint, text string, parentID *uint) (*domain.Comment, bool, error)
	reply  func(ctx context.Context, key string, userID, parentID uint, text string) (*domain.Comment, bool, error)
	list   func(ctx context.Context, movieID uint) ([]domain.Comment, error)
	get    func(ctx context.Context, id uint) (*domain.Comment, error)
}

func (s *stubComments) CreateOnce(ctx context.Context, key string, userID, movieID uint, text string, parentID *uint) (*domain.Comment, bool, error) {
	return s.create(ctx, key, userID, movieID, text, parentID)
}

func (s *stubComments) ReplyOnce(ctx context.Context, key string, userID, parentID uint, text string) (*domain.Comment, bool, error) {
	return s.reply(ctx, key, userID, parentID, text)
}

func (s *stubComments) List(ctx context.Context, movieID uint) ([]domain.Comment, error) {
	return s.list(ctx, movieID)
}

func (s *stubComments) Get(ctx context.Context, id uint) (*domain.Comment, error) { return s.get(ctx, id) }

//
// Router helpers
//

// testUserHeader impersonates a user in handler tests, standing in for
// BearerAuth. The context keys match middleware.UserID.
const testUserHeader = "X-Test-User"

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-test")
		if v := c.GetHeader(testUserHeader); v != "" {
			id, _ := strconv.ParseUint(v, 10, 64)
			c.Set("userID", uint(id))
		}
		if k := c.GetHeader("Idempotency-Key"); k != "" {
			c.Set("idem.key", k)
		}
		c.Next()
	})

	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.GET("/me", h.Me)
	r.POST("/movies", h.CreateMovie)
	r.GET("/movies/", h.ListMovies)
	r.GET("/movie/:id", h.GetMovie)
	r.PUT("/movies/:id", h.UpdateMovie)
	r.DELETE("/movies/:id", h.DeleteMovie)
	r.POST("/movies/:id/rate", h.RateMovie)
	r.GET("/movies/:id/ratings/", h.ListRatings)
	r.POST("/movies/:id/comments", h.CreateComment)
	r.GET("/movies/:id/comments", h.ListComments)
	r.GET("/comments/:id", h.GetComment)
	r.POST("/comments/:id/reply", h.ReplyComment)
	return r
}

type reqOpt func(*http.Request)

func asUser(id uint) reqOpt {
	return func(r *http.Request) { r.Header.Set(testUserHeader, strconv.FormatUint(uint64(id), 10)) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func doJSON(t *testing.T, r http.Handler, method, target string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doForm(t *testing.T, r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func ptr[T any](v T) *T { return &v }
