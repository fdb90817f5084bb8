package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/config"
	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/http/middleware"
	"github.com/tbourn/go-movie-reviews/internal/repo"
)

// newTestDB opens a migrated SQLite file in a per-test temp dir through the
// production bootstrap.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/",
		RateRPS:     1000,
		RateBurst:   1000,
		Auth: config.AuthConfig{
			JWTSecret:      "router-test-secret-0123456789abcdef",
			JWTIssuer:      "go-movie-reviews-test",
			AccessTokenTTL: time.Hour,
			BcryptCost:     4,
		},
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r, db
}

//
// client helpers
//

type client struct {
	t      *testing.T
	r      http.Handler
	bearer string
}

func (c client) as(token string) client { c.bearer = token; return c }

func (c client) do(method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func (c client) signup(username string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/signup", map[string]string{
		"username":  username,
		"full_name": strings.ToUpper(username),
		"email":     username + "@example.com",
		"password":  "password-" + username,
	})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
}

func (c client) login(username, password string) *httptest.ResponseRecorder {
	c.t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func (c client) token(username string) string {
	c.t.Helper()
	c.signup(username)
	w := c.login(username, "password-"+username)
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(c.t, "bearer", body.TokenType)
	return body.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

//
// tests
//

func TestRegisterRoutes_Health_Metrics_Fallbacks_CORS(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}

	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = c.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[map[string]any](t, w)["code"])

	w = c.do(http.MethodPost, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRegisterRoutes_CORSAllowlist_EchoesOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r, _ := newTestServer(t, cfg)

	w := client{t: t, r: r}.do(http.MethodGet, "/health", nil, "Origin", "http://example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth_DatabaseDown(t *testing.T) {
	r, db := newTestServer(t, testConfig())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := client{t: t, r: r}.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPI_SignupAndLogin(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}

	c.signup("alice")

	// Duplicate username → 400.
	w := c.do(http.MethodPost, "/signup", map[string]string{
		"username": "alice", "full_name": "Other", "email": "other@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Correct credentials → token; wrong → 401.
	assert.Equal(t, http.StatusOK, c.login("alice", "password-alice").Code)
	w = c.login("alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	tok := c.token("bob")
	me := decode[map[string]any](t, c.as(tok).do(http.MethodGet, "/me", nil))
	assert.Equal(t, "bob", me["username"])
	assert.NotContains(t, me, "hashed_password")
}

func TestAPI_SignupRejectsWhitespaceIdentity(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}

	w := c.do(http.MethodPost, "/signup", map[string]string{
		"username": "     ", "full_name": "Ann", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "validation_error", decode[map[string]any](t, w)["code"])

	w = c.do(http.MethodPost, "/signup", map[string]string{
		"username": "annie", "full_name": "   ", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = c.login(" ", "secret1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ProtectedRoutesRequireBearer(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}

	routes := []struct{ method, target string }{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/movies"},
		{http.MethodPut, "/movies/1"},
		{http.MethodDelete, "/movies/1"},
		{http.MethodPost, "/movies/1/rate"},
		{http.MethodPost, "/movies/1/comments"},
		{http.MethodPost, "/comments/1/reply"},
	}
	for _, rt := range routes {
		w := c.do(rt.method, rt.target, map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.target)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

		w = c.as("not.a.jwt").do(rt.method, rt.target, map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s (bad token)", rt.method, rt.target)
		assert.Equal(t, "could not validate credentials", decode[map[string]any](t, w)["detail"])
	}
}

func TestAPI_MovieOwnership(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}
	owner := c.as(c.token("owner"))
	other := c.as(c.token("other"))

	w := owner.do(http.MethodPost, "/movies", map[string]string{"title": "Heat", "description": "LA crime"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode[domain.Movie](t, w)
	require.NotNil(t, m.Owner)
	assert.Equal(t, "owner", m.Owner.Username)

	target := "/movies/" + itoa(m.ID)

	assert.Equal(t, http.StatusForbidden, other.do(http.MethodPut, target, map[string]string{"title": "Mine"}).Code)
	assert.Equal(t, http.StatusForbidden, other.do(http.MethodDelete, target, nil).Code)

	w = owner.do(http.MethodPut, target, map[string]string{"title": "Heat (1995)"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.Movie](t, w)
	assert.Equal(t, "Heat (1995)", updated.Title)
	assert.Equal(t, "LA crime", updated.Description)

	list := decode[[]domain.Movie](t, c.do(http.MethodGet, "/movies/", nil))
	assert.Len(t, list, 1)

	w = owner.do(http.MethodDelete, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Movie Deleted Successfully"]`, w.Body.String())
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/movie/"+itoa(m.ID), nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, c.do(http.MethodGet, "/movie/abc", nil).Code)
}

func TestAPI_RatingsAndComments(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}
	alice := c.as(c.token("alice"))

	m := decode[domain.Movie](t, alice.do(http.MethodPost, "/movies", map[string]string{"title": "Alien", "description": "In space"}))
	base := "/movies/" + itoa(m.ID)

	// Empty collections are [] rather than 404.
	assert.Equal(t, "[]", c.do(http.MethodGet, base+"/ratings/", nil).Body.String())
	assert.Equal(t, "[]", c.do(http.MethodGet, base+"/comments", nil).Body.String())

	for _, stars := range []int{-1, 6} {
		assert.Equal(t, http.StatusUnprocessableEntity, alice.do(http.MethodPost, base+"/rate", map[string]int{"stars": stars}).Code)
	}
	w := alice.do(http.MethodPost, base+"/rate", map[string]any{"stars": 5, "comment": "perfect"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]domain.Rating](t, c.do(http.MethodGet, base+"/ratings/", nil)), 1)

	root := decode[domain.Comment](t, alice.do(http.MethodPost, base+"/comments", map[string]string{"text": "classic"}))
	w = alice.do(http.MethodPost, "/comments/"+itoa(root.ID)+"/reply", map[string]string{"text": "agreed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reply := decode[domain.Comment](t, w)
	require.NotNil(t, reply.ParentCommentID)
	assert.Equal(t, root.ID, *reply.ParentCommentID)
	assert.Equal(t, m.ID, reply.MovieID)

	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodPost, "/comments/9999/reply", map[string]string{"text": "hello?"}).Code)

	got := decode[domain.Comment](t, c.do(http.MethodGet, "/comments/"+itoa(root.ID), nil))
	require.Len(t, got.Children, 1)
	assert.Equal(t, "agreed", got.Children[0].Text)

	// A parent from another movie is rejected.
	m2 := decode[domain.Movie](t, alice.do(http.MethodPost, "/movies", map[string]string{"title": "Aliens", "description": "More"}))
	w = alice.do(http.MethodPost, "/movies/"+itoa(m2.ID)+"/comments", map[string]any{"text": "x", "parent_comment_id": root.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Deleting the movie removes its ratings and comments.
	require.Equal(t, http.StatusOK, alice.do(http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/comments/"+itoa(root.ID), nil).Code)
	w = c.do(http.MethodGet, base+"/ratings/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestAPI_ListsForUnknownMovieAreEmpty(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}

	for _, target := range []string{"/movies/9999/ratings/", "/movies/9999/comments"} {
		w := c.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, "[]", w.Body.String(), target)
	}
}

func TestAPI_IdempotentRatingReplay(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}
	alice := c.as(c.token("alice"))
	m := decode[domain.Movie](t, alice.do(http.MethodPost, "/movies", map[string]string{"title": "Ran", "description": "Kurosawa"}))
	target := "/movies/" + itoa(m.ID) + "/rate"

	w1 := alice.do(http.MethodPost, target, map[string]int{"stars": 4}, middleware.HeaderIdempotencyKey, "retry-1")
	require.Equal(t, http.StatusOK, w1.Code, w1.Body.String())
	assert.Empty(t, w1.Header().Get(middleware.HeaderIdempotencyReplayed))

	w2 := alice.do(http.MethodPost, target, map[string]int{"stars": 4}, middleware.HeaderIdempotencyKey, "retry-1")
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "true", w2.Header().Get(middleware.HeaderIdempotencyReplayed))
	assert.Equal(t, decode[domain.Rating](t, w1).ID, decode[domain.Rating](t, w2).ID)

	assert.Len(t, decode[[]domain.Rating](t, c.do(http.MethodGet, "/movies/"+itoa(m.ID)+"/ratings/", nil)), 1)

	w := alice.do(http.MethodPost, target, map[string]int{"stars": 4}, middleware.HeaderIdempotencyKey, "bad key!")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_ListMoviesETag(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	c := client{t: t, r: r}
	alice := c.as(c.token("alice"))
	alice.do(http.MethodPost, "/movies", map[string]string{"title": "A", "description": "a"})

	w := c.do(http.MethodGet, "/movies/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	assert.Equal(t, http.StatusNotModified, c.do(http.MethodGet, "/movies/", nil, "If-None-Match", etag).Code)

	alice.do(http.MethodPost, "/movies", map[string]string{"title": "B", "description": "b"})
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/movies/", nil, "If-None-Match", etag).Code)
}

func TestRegisterRoutes_APIBasePath(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v1"
	r, _ := newTestServer(t, cfg)
	c := client{t: t, r: r}

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/movies/", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/movie/1", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil).Code)
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestServer(t, cfg)
	assert.Equal(t, http.StatusNotFound, client{t: t, r: r}.do(http.MethodGet, "/swagger/doc.json", nil).Code)

	cfg.SwaggerEnabled = true
	r, _ = newTestServer(t, cfg)
	w := client{t: t, r: r}.do(http.MethodGet, "/swagger/doc.json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/movies/{id}/rate")
}

func Test_idempotencyScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got string
	capture := func(c *gin.Context) { got = idempotencyScope(c) }
	r.POST("/api/movies/:id/rate", capture)
	r.POST("/api/movies/:id/comments", capture)
	r.GET("/api/movies/:id/comments", capture)
	r.POST("/api/comments/:id/reply", capture)

	cases := []struct{ method, target, want string }{
		{http.MethodPost, "/api/movies/3/rate", "ratings:3"},
		{http.MethodPost, "/api/movies/4/comments", "comments:4"},
		{http.MethodGet, "/api/movies/4/comments", ""},
		{http.MethodPost, "/api/comments/5/reply", "replies:5"},
		{http.MethodPost, "/api/comments/x/reply", ""},
	}
	for _, tc := range cases {
		got = "unset"
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, tc.want, got, "%s %s", tc.method, tc.target)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for target, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, want, w.Body.String(), target)
	}
}

func Test_movieRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shim := movieRepoShim{}

	u, err := repo.CreateUser(ctx, db, "shim", "Shim", "shim@example.com", "hash")
	require.NoError(t, err)

	m, err := shim.CreateMovie(ctx, db, u.ID, "T", "D")
	require.NoError(t, err)
	got, err := shim.GetMovie(ctx, db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)

	title := "T2"
	require.NoError(t, shim.UpdateMovie(ctx, db, m.ID, &title, nil))
	page, err := shim.ListMovies(ctx, db, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "T2", page[0].Title)

	n, ts, err := shim.MoviesStats(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NotNil(t, ts)

	require.NoError(t, shim.DeleteMovie(ctx, db, m.ID))
	_, err = shim.GetMovie(ctx, db, m.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
