package rerankcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/rerank"
	"medassist-ai/internal/search"
)

// CachedScorer caches answer-relevance ratings in Redis so repeated
// question/passage pairs skip the model call. Cache failures are logged and
// treated as misses; the cache must never make scoring less available.
type CachedScorer struct {
	inner  rerank.Scorer
	client *redis.Client
	ttl    time.Duration
}

// New wraps scorer with a Redis score cache.
func New(scorer rerank.Scorer, client *redis.Client, ttl time.Duration) *CachedScorer {
	return &CachedScorer{inner: scorer, client: client, ttl: ttl}
}

// ScoreRelevance returns the cached rating when present, otherwise delegates
// to the wrapped scorer and stores the result. Only successful ratings are
// cached; failures always propagate so the reranker's fallback applies.
func (c *CachedScorer) ScoreRelevance(ctx context.Context, question string, passage search.Passage) (float64, error) {
	logger := contextutil.LoggerFromContext(ctx)
	key := scoreKey(question, passage.ID)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		score, parseErr := strconv.ParseFloat(cached, 64)
		if parseErr == nil {
			return score, nil
		}
		logger.WarnContext(ctx, "unparseable cached relevance score", "key", key, "value", cached)
	} else if !errors.Is(err, redis.Nil) {
		logger.WarnContext(ctx, "relevance score cache read failed", "error", err)
	}

	score, err := c.inner.ScoreRelevance(ctx, question, passage)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err(); err != nil {
		logger.WarnContext(ctx, "relevance score cache write failed", "error", err)
	}
	return score, nil
}

// scoreKey namespaces cache entries by passage and a digest of the question.
func scoreKey(question, passageID string) string {
	digest := sha256.Sum256([]byte(question))
	return fmt.Sprintf("rerank:score:%s:%s", passageID, hex.EncodeToString(digest[:8]))
}
