package rerankcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist-ai/internal/search"
)

type countingScorer struct {
	score float64
	err   error
	calls int
}

func (s *countingScorer) ScoreRelevance(ctx context.Context, question string, p search.Passage) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

func newTestCache(t *testing.T, inner *countingScorer) (*CachedScorer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(inner, client, time.Minute), mr
}

func TestScoreRelevanceCachesHits(t *testing.T) {
	inner := &countingScorer{score: 0.85}
	cache, _ := newTestCache(t, inner)

	passage := search.Passage{ID: "p1"}
	ctx := context.Background()

	first, err := cache.ScoreRelevance(ctx, "question", passage)
	require.NoError(t, err)
	assert.Equal(t, 0.85, first)

	second, err := cache.ScoreRelevance(ctx, "question", passage)
	require.NoError(t, err)
	assert.Equal(t, 0.85, second)
	assert.Equal(t, 1, inner.calls, "second call must be served from cache")
}

func TestScoreRelevanceKeysByQuestionAndPassage(t *testing.T) {
	inner := &countingScorer{score: 0.7}
	cache, _ := newTestCache(t, inner)
	ctx := context.Background()

	_, err := cache.ScoreRelevance(ctx, "question one", search.Passage{ID: "p1"})
	require.NoError(t, err)
	_, err = cache.ScoreRelevance(ctx, "question two", search.Passage{ID: "p1"})
	require.NoError(t, err)
	_, err = cache.ScoreRelevance(ctx, "question one", search.Passage{ID: "p2"})
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls, "distinct question/passage pairs must not collide")
}

func TestScoreRelevanceDoesNotCacheFailures(t *testing.T) {
	inner := &countingScorer{err: fmt.Errorf("model down")}
	cache, _ := newTestCache(t, inner)
	ctx := context.Background()

	_, err := cache.ScoreRelevance(ctx, "question", search.Passage{ID: "p1"})
	require.Error(t, err)

	inner.err = nil
	inner.score = 0.9
	score, err := cache.ScoreRelevance(ctx, "question", search.Passage{ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 0.9, score)
	assert.Equal(t, 2, inner.calls)
}

func TestScoreRelevanceTreatsCacheOutageAsMiss(t *testing.T) {
	inner := &countingScorer{score: 0.6}
	cache, mr := newTestCache(t, inner)
	mr.Close()

	score, err := cache.ScoreRelevance(context.Background(), "question", search.Passage{ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 0.6, score)
}

func TestScoreRelevanceEntriesExpire(t *testing.T) {
	inner := &countingScorer{score: 0.8}
	cache, mr := newTestCache(t, inner)
	ctx := context.Background()

	_, err := cache.ScoreRelevance(ctx, "question", search.Passage{ID: "p1"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.ScoreRelevance(ctx, "question", search.Passage{ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "expired entry must be rescored")
}
