package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

// AnswerHotCache keeps recently served tutor answers in redis so repeat
// questions skip postgres entirely. Misses and errors both read as "not
// cached"; the durable store is always authoritative.
type AnswerHotCache interface {
	Get(ctx context.Context, fingerprint string) ([]byte, bool)
	Set(ctx context.Context, fingerprint string, payload []byte)
	Close() error
}

type answerHotCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewAnswerHotCache(log *logger.Logger) (AnswerHotCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &answerHotCache{
		log: log.With("client", "AnswerHotCache"),
		rdb: rdb,
		ttl: 24 * time.Hour,
	}, nil
}

func key(fingerprint string) string { return "tutor:answer:" + fingerprint }

func (c *answerHotCache) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	raw, err := c.rdb.Get(ctx, key(fingerprint)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("hot cache read failed, treating as miss", "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (c *answerHotCache) Set(ctx context.Context, fingerprint string, payload []byte) {
	if err := c.rdb.Set(ctx, key(fingerprint), payload, c.ttl).Err(); err != nil {
		c.log.Warn("hot cache write failed", "error", err)
	}
}

func (c *answerHotCache) Close() error {
	return c.rdb.Close()
}
