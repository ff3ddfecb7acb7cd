package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizly/internal/server"
)

// answersKey is the hash holding question_id -> correct option id.
const answersKey = "quiz:correct_answers"

// AnswerCache decorates a QuestionStore with a Redis cache for correct-answer
// lookups, so scoring a submission rarely hits the backing store.
// Stored as: HSET quiz:correct_answers {questionID} {optionID}
type AnswerCache struct {
	server.QuestionStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerCache(client *redis.Client, store server.QuestionStore, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		QuestionStore: store,
		client:        client,
		ttl:           ttl,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerCache) CorrectAnswers(ctx context.Context, ids []int) (map[int]string, error) {
	answers := make(map[int]string, len(ids))

	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = strconv.Itoa(id)
	}
	missing := ids
	if cached, err := c.client.HMGet(ctx, answersKey, fields...).Result(); err == nil {
		missing = missing[:0:0]
		for i, raw := range cached {
			if value, ok := raw.(string); ok && value != "" {
				answers[ids[i]] = value
			} else {
				missing = append(missing, ids[i])
			}
		}
	}
	if len(missing) == 0 {
		return answers, nil
	}

	loaded, err, _ := c.sf.Do(missingKey(missing), func() (interface{}, error) {
		fromStore, err := c.QuestionStore.CorrectAnswers(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(fromStore) > 0 {
			pairs := make([]interface{}, 0, len(fromStore)*2)
			for id, answer := range fromStore {
				pairs = append(pairs, strconv.Itoa(id), answer)
			}
			pipe := c.client.Pipeline()
			pipe.HSet(ctx, answersKey, pairs...)
			if c.ttl > 0 {
				pipe.Expire(ctx, answersKey, c.ttlWithJitter())
			}
			_, _ = pipe.Exec(ctx)
		}
		return fromStore, nil
	})
	if err != nil {
		return nil, err
	}
	for id, answer := range loaded.(map[int]string) {
		answers[id] = answer
	}
	return answers, nil
}

func missingKey(ids []int) string {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func (c *AnswerCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
