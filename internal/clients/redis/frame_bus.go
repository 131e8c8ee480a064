package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/realtime"
	"github.com/docqa/docqa-backend/internal/utils"
)

// FrameBus mirrors chat frames through a redis channel so that every
// instance's hub sees every publish. Without redis the hub alone serves
// a single instance.
type FrameBus interface {
	Publish(ctx context.Context, frame realtime.Frame) error
	StartForwarder(ctx context.Context, onFrame func(frame realtime.Frame)) error
	Close() error
}

type frameBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewFrameBus(log *logger.Logger) (FrameBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(utils.GetEnv("REDIS_CHANNEL", "chat-frames", log))

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

	return &frameBus{
		log:     log.With("service", "RedisFrameBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *frameBus) Publish(ctx context.Context, frame realtime.Frame) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis frame bus not initialized")
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *frameBus) StartForwarder(ctx context.Context, onFrame func(frame realtime.Frame)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis frame bus not initialized")
	}
	if onFrame == nil {
		return fmt.Errorf("onFrame callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var frame realtime.Frame
				if err := json.Unmarshal([]byte(m.Payload), &frame); err != nil {
					b.log.Warn("bad redis frame payload", "error", err)
					continue
				}
				onFrame(frame)
			}
		}
	}()

	return nil
}

func (b *frameBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
