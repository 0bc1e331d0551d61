// Package scoring computes the online score and resolves client
// interests against the key-value store.
package scoring

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/hornshoofs/scoring-api/internal/logging"
	"github.com/hornshoofs/scoring-api/internal/metrics"
	"github.com/hornshoofs/scoring-api/internal/request"
	"github.com/hornshoofs/scoring-api/internal/store"
)

// AdminScore is the fixed sentinel returned to admin callers, who bypass
// computation and cache entirely.
const AdminScore = 42

// cacheTTL is advisory; the backend is not required to honor it
// precisely.
const cacheTTL = 3600 * time.Second

// Engine derives scores from identity fields with cache-assisted
// memoization, and looks up per-client interests.
type Engine struct {
	store   *store.Client
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewEngine builds an engine over the shared store client.
func NewEngine(st *store.Client, log *logging.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{store: st, log: log, metrics: m}
}

// Score returns the score for the given identity fields. The cache lookup
// is advisory: store failures are treated as a miss and the score is
// computed fresh, so this method never fails.
func (e *Engine) Score(ctx context.Context, args *request.ScoreArgs) float64 {
	key := cacheKey(args)
	if raw, ok := e.store.CacheGet(ctx, key); ok {
		if cached, err := strconv.ParseFloat(raw, 64); err == nil && cached != 0 {
			e.metrics.RecordScoreCacheHit()
			e.log.ForRequest(ctx).WithField("key", key).Debug("score served from cache")
			return cached
		}
	}
	e.metrics.RecordScoreCacheMiss()

	var score float64
	if args.HasPhone() {
		score += 1.5
	}
	if args.HasEmail() {
		score += 1.5
	}
	if args.HasBirthday() && args.HasGender() {
		score += 1.5
	}
	if args.HasName() {
		score += 0.5
	}

	e.store.CacheSet(ctx, key, strconv.FormatFloat(score, 'g', -1, 64), cacheTTL)
	return score
}

// Interests returns the stored interests for one client. This is the
// mandatory read path: store unavailability propagates to the caller. An
// absent key yields an empty slice; the format stores at most one
// interest per key.
func (e *Engine) Interests(ctx context.Context, clientID int64) ([]string, error) {
	value, ok, err := e.store.Get(ctx, InterestsKey(clientID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	return []string{value}, nil
}

// InterestsKey derives the store key for one client's interests.
func InterestsKey(clientID int64) string {
	return "i:" + strconv.FormatInt(clientID, 10)
}

// cacheKey derives the memoization key from the identity fields. Missing
// fields contribute an empty string.
func cacheKey(args *request.ScoreArgs) string {
	var parts string
	if args.FirstName != nil {
		parts += *args.FirstName
	}
	if args.LastName != nil {
		parts += *args.LastName
	}
	if args.Phone != nil {
		parts += *args.Phone
	}
	if args.Birthday != nil {
		parts += *args.Birthday
	}
	sum := md5.Sum([]byte(parts))
	return "uid:" + hex.EncodeToString(sum[:])
}
