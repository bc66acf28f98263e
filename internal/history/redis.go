package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ragchat/internal/domain"
)

// Redis keeps the conversation as a list of JSON messages under one key, so
// a chat can be resumed by a later process.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	keep   int64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL refreshes the key expiry on every append; zero keeps it forever.
	TTL time.Duration
	// Keep trims the stored list to the newest Keep messages; zero keeps all.
	Keep int
}

func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisWithClient(client, cfg)
}

// NewRedisWithClient uses an existing client; Addr, Password and DB are ignored.
func NewRedisWithClient(client *redis.Client, cfg RedisConfig) *Redis {
	return &Redis{client: client, key: cfg.Key, ttl: cfg.TTL, keep: int64(cfg.Keep)}
}

func (s *Redis) Append(ctx context.Context, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: encode message: %w", domain.ErrIO, err)
		}
		values = append(values, data)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, values...)
		if s.keep > 0 {
			pipe.LTrim(ctx, s.key, -s.keep, -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: append history %s: %w", domain.ErrIO, s.key, err)
	}
	return nil
}

func (s *Redis) Messages(ctx context.Context) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read history %s: %w", domain.ErrIO, s.key, err)
	}
	out := make([]domain.Message, 0, len(raw))
	for _, r := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("%w: decode history %s: %w", domain.ErrIO, s.key, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Redis) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: reset history %s: %w", domain.ErrIO, s.key, err)
	}
	return nil
}

func (s *Redis) Close() error { return s.client.Close() }
