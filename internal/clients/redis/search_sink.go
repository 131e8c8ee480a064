package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/utils"
)

const searchKeyPrefix = "search:chat_sessions:"

// SearchSink mirrors sessions into redis for external search tooling.
// Upserts are idempotent by session id; the chat path never blocks on it.
type SearchSink struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewSearchSink(log *logger.Logger) (*SearchSink, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
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

	return &SearchSink{
		log: log.With("service", "RedisSearchSink"),
		rdb: rdb,
	}, nil
}

func (s *SearchSink) SyncSession(ctx context.Context, session *domain.ChatSession) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis search sink not initialized")
	}
	if session == nil {
		return fmt.Errorf("missing session")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, searchKeyPrefix+session.ID.String(), raw, 0).Err()
}

func (s *SearchSink) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
