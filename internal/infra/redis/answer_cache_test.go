package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizly/internal/domain"
)

type countingStore struct {
	mu      sync.Mutex
	answers map[int]string
	calls   int
}

func (s *countingStore) CorrectAnswers(_ context.Context, ids []int) (map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := make(map[int]string, len(ids))
	for _, id := range ids {
		if answer, ok := s.answers[id]; ok {
			out[id] = answer
		}
	}
	return out, nil
}

func (s *countingStore) ListQuestions(context.Context, string, int) ([]domain.Question, error) {
	return nil, nil
}

func (s *countingStore) Categories(context.Context) ([]string, error) { return nil, nil }

func (s *countingStore) SaveResult(context.Context, domain.Result) error { return nil }

func (s *countingStore) GetResult(context.Context, string) (domain.Result, error) {
	return domain.Result{}, domain.ErrQuizNotFound
}

func newCacheForTest(t *testing.T) (*AnswerCache, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &countingStore{answers: map[int]string{1: "a", 2: "b"}}
	return NewAnswerCache(client, store, time.Minute), store, mr
}

func TestAnswerCachePopulatesRedis(t *testing.T) {
	cache, store, mr := newCacheForTest(t)

	answers, err := cache.CorrectAnswers(context.Background(), []int{1, 2})
	if err != nil {
		t.Fatalf("correct answers: %v", err)
	}
	if answers[1] != "a" || answers[2] != "b" {
		t.Fatalf("unexpected answers: %v", answers)
	}
	if store.calls != 1 {
		t.Fatalf("expected one store lookup, got %d", store.calls)
	}
	if got := mr.HGet(answersKey, "1"); got != "a" {
		t.Fatalf("expected cached answer in redis, got %q", got)
	}
}

func TestAnswerCacheHitsSkipStore(t *testing.T) {
	cache, store, _ := newCacheForTest(t)

	if _, err := cache.CorrectAnswers(context.Background(), []int{1, 2}); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := cache.CorrectAnswers(context.Background(), []int{1, 2}); err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cache hit on second lookup, store calls %d", store.calls)
	}
}

func TestAnswerCachePartialMiss(t *testing.T) {
	cache, store, mr := newCacheForTest(t)

	mr.HSet(answersKey, "1", "a")

	answers, err := cache.CorrectAnswers(context.Background(), []int{1, 2})
	if err != nil {
		t.Fatalf("correct answers: %v", err)
	}
	if answers[1] != "a" || answers[2] != "b" {
		t.Fatalf("unexpected answers: %v", answers)
	}
	if store.calls != 1 {
		t.Fatalf("expected store lookup only for the missing id, calls %d", store.calls)
	}
}

func TestAnswerCacheUnknownIDsStayAbsent(t *testing.T) {
	cache, _, _ := newCacheForTest(t)

	answers, err := cache.CorrectAnswers(context.Background(), []int{99})
	if err != nil {
		t.Fatalf("correct answers: %v", err)
	}
	if _, ok := answers[99]; ok {
		t.Fatalf("unknown ids must not be fabricated, got %v", answers)
	}
}
