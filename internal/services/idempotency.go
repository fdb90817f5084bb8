package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-reviews/internal/repo"
)

// DefaultIdempotencyTTL is used when a service has no TTL configured.
const DefaultIdempotencyTTL = 24 * time.Hour

// Idempotency scope kinds. A scope pairs a kind with the id of the parent
// resource, so a key reused on another movie starts a fresh operation.
const (
	ScopeRatings  = "ratings"
	ScopeComments = "comments"
	ScopeReplies  = "replies"
)

// IdempotencyScope builds the scope string under which keys are recorded,
// e.g. "ratings:42".
func IdempotencyScope(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// once runs create at most once per (userID, scope, key) within ttl.
//
// When a live record exists, load fetches the previously created resource and
// once reports replayed=true. An empty key bypasses the bookkeeping. Recording
// is best effort: a failure to store the key never fails the request, and a
// concurrent duplicate insert is ignored.
func once[T any](
	ctx context.Context,
	db *gorm.DB,
	ttl time.Duration,
	userID uint,
	scope, key string,
	load func(ctx context.Context, id uint) (T, error),
	create func(ctx context.Context) (T, uint, error),
) (T, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || db == nil {
		v, _, err := create(ctx)
		return v, false, err
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	if rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, time.Now().UTC()); err == nil && rec != nil {
		if prev, lerr := load(ctx, rec.ResourceID); lerr == nil {
			return prev, true, nil
		}
	}

	v, id, err := create(ctx)
	if err != nil {
		return v, false, err
	}
	if _, rerr := repo.CreateIdempotency(ctx, db, userID, scope, key, id, http.StatusOK, ttl); rerr != nil && !errors.Is(rerr, repo.ErrDuplicate) {
		log.Ctx(ctx).Warn().Err(rerr).Str("scope", scope).Msg("idempotency record not stored")
	}
	return v, false, nil
}
