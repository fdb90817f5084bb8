// Package httpapi wires the Gin transport to the movie review services,
// middleware and route handlers. It owns cross-cutting concerns: tracing,
// correlation ids, redacted logging, panic recovery, compression, metrics,
// bearer authentication, idempotency, rate limiting, CORS and security
// headers.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/docs"
	"github.com/tbourn/go-movie-reviews/internal/auth"
	"github.com/tbourn/go-movie-reviews/internal/config"
	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/http/handlers"
	"github.com/tbourn/go-movie-reviews/internal/http/middleware"
	"github.com/tbourn/go-movie-reviews/internal/repo"
	"github.com/tbourn/go-movie-reviews/internal/services"
	"github.com/tbourn/go-movie-reviews/internal/utils"
)

// maxCommentRunes matches the 5000 character cap of the comment DTOs.
const maxCommentRunes = 5000

// movieRepoShim adapts the repo free functions to services.MovieRepo.
type movieRepoShim struct{}

func (movieRepoShim) CreateMovie(ctx context.Context, db *gorm.DB, ownerID uint, title, description string) (*domain.Movie, error) {
	return repo.CreateMovie(ctx, db, ownerID, title, description)
}

func (movieRepoShim) GetMovie(ctx context.Context, db *gorm.DB, id uint) (*domain.Movie, error) {
	return repo.GetMovie(ctx, db, id)
}

func (movieRepoShim) ListMovies(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Movie, error) {
	return repo.ListMovies(ctx, db, offset, limit)
}

func (movieRepoShim) UpdateMovie(ctx context.Context, db *gorm.DB, id uint, title, description *string) error {
	return repo.UpdateMovie(ctx, db, id, title, description)
}

func (movieRepoShim) DeleteMovie(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteMovie(ctx, db, id)
}

func (movieRepoShim) MoviesStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.MoviesStats(ctx, db)
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery (after the logger so panics carry the request id)
//  5. Body size limit, gzip
//  6. Metrics
//  7. BearerAuth (annotates only; RequireAuth guards individual routes)
//  8. Idempotency validator (needs the user; before the limiter so replays bypass it)
//  9. Rate limiter (per user, else per IP)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"Proxy-Authorization"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.BearerAuth(tokens))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200, Scope: idempotencyScope},
		func(ctx context.Context, userID uint, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "Not Found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "Method Not Allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	h := handlers.New(
		&services.UserService{DB: db, BcryptCost: cfg.Auth.BcryptCost},
		tokens,
		services.NewMovieService(db, movieRepoShim{}),
		&services.RatingService{DB: db, IdempotencyTTL: cfg.IdempotencyTTL, MaxCommentRunes: maxCommentRunes},
		&services.CommentService{DB: db, IdempotencyTTL: cfg.IdempotencyTTL, MaxTextRunes: maxCommentRunes},
	)
	authed := middleware.RequireAuth()

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Accounts
		api.POST("/signup", h.Signup)
		api.POST("/login", h.Login)
		api.GET("/me", authed, h.Me)

		// Movies
		api.POST("/movies", authed, h.CreateMovie)
		api.GET("/movies/", h.ListMovies)
		api.GET("/movie/:id", h.GetMovie)
		api.PUT("/movies/:id", authed, h.UpdateMovie)
		api.DELETE("/movies/:id", authed, h.DeleteMovie)

		// Ratings
		api.POST("/movies/:id/rate", authed, h.RateMovie)
		api.GET("/movies/:id/ratings/", h.ListRatings)

		// Comments
		api.POST("/movies/:id/comments", authed, h.CreateComment)
		api.GET("/movies/:id/comments", h.ListComments)
		api.GET("/comments/:id", h.GetComment)
		api.POST("/comments/:id/reply", authed, h.ReplyComment)
	}
}

// idempotencyScope maps a create route to the scope its keys are recorded
// under by the services. Other routes have no scope.
func idempotencyScope(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		return ""
	}
	route := c.FullPath()
	switch {
	case strings.HasSuffix(route, "/movies/:id/rate"):
		return services.IdempotencyScope(services.ScopeRatings, id)
	case strings.HasSuffix(route, "/movies/:id/comments"):
		return services.IdempotencyScope(services.ScopeComments, id)
	case strings.HasSuffix(route, "/comments/:id/reply"):
		return services.IdempotencyScope(services.ScopeReplies, id)
	}
	return ""
}

// useCORS installs gin-contrib/cors. With no allowlist every origin is
// allowed and ACAO is forced to "*" even without an Origin header; with an
// allowlist the matching Origin is echoed.
func useCORS(r *gin.Engine, origins []string) {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		conf.AllowAllOrigins = true
		r.Use(cors.New(conf))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	conf.AllowOrigins = origins
	r.Use(cors.New(conf))
}

// health reports liveness plus database reachability.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
