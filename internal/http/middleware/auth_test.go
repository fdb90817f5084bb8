package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-reviews/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func authRouter(ti *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BearerAuth(ti))
	r.GET("/open", func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
	})
	r.GET("/closed", RequireAuth(), func(c *gin.Context) {
		id, _ := UserID(c)
		name, _ := c.Get(ctxKeyUsername)
		c.JSON(http.StatusOK, gin.H{"id": id, "username": name})
	})
	return r
}

func TestRequireAuth_ValidToken(t *testing.T) {
	ti := auth.NewTokenIssuer(testSecret, "test", time.Minute)
	tok, err := ti.Issue(7, "alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Authorization", "bearer "+tok.Raw)
	authRouter(ti).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.ID != 7 || body.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", body)
	}
}

func TestRequireAuth_MissingOrInvalid_401WithChallenge(t *testing.T) {
	ti := auth.NewTokenIssuer(testSecret, "test", time.Minute)
	other := auth.NewTokenIssuer("ffffffffffffffffffffffffffffffff", "test", time.Minute)
	forged, _ := other.Issue(7, "mallory")

	cases := []struct {
		name   string
		header string
		detail string
	}{
		{"missing", "", "not authenticated"},
		{"wrong scheme", "Basic abc", "not authenticated"},
		{"empty bearer", "Bearer   ", "not authenticated"},
		{"garbage", "Bearer not.a.jwt", "could not validate credentials"},
		{"wrong key", "Bearer " + forged.Raw, "could not validate credentials"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/closed", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			authRouter(ti).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Fatalf("expected WWW-Authenticate: Bearer, got %q", got)
			}
			var body map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body["code"] != "unauthorized" || body["detail"] != tc.detail {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestBearerAuth_AnonymousPassThrough(t *testing.T) {
	ti := auth.NewTokenIssuer(testSecret, "test", time.Minute)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer junk")
	authRouter(ti).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on open route, got %d", w.Code)
	}
	if w.Body.String() != `{"id":0,"ok":false}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestUserID_WrongTypeOrZero(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ctxKeyUserID, "7")
	if _, ok := UserID(c); ok {
		t.Fatal("string user id must not be accepted")
	}
	c.Set(ctxKeyUserID, uint(0))
	if _, ok := UserID(c); ok {
		t.Fatal("zero user id must not be accepted")
	}
}
