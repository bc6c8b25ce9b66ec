package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mathler-backend/internal/config"
	"mathler-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Put(ctx context.Context, p *models.Puzzle, ttl time.Duration) error {
	key := fmt.Sprintf(KeyPuzzle, p.ID)

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle: %w", err)
	}

	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *RedisService) Get(ctx context.Context, id string) (*models.Puzzle, error) {
	key := fmt.Sprintf(KeyPuzzle, id)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPuzzleNotFound
		}
		return nil, fmt.Errorf("failed to get puzzle: %w", err)
	}

	var p models.Puzzle
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal puzzle: %w", err)
	}

	return &p, nil
}

func (s *RedisService) DeletePuzzle(ctx context.Context, id string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyPuzzle, id)).Err()
}

func (s *RedisService) LoadProgress(ctx context.Context, userID string) (*models.Progress, error) {
	key := fmt.Sprintf(KeyUserProgress, userID)

	data, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	var p models.Progress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	p.Normalize()

	return &p, nil
}

// saveProgressScript writes the record only if the stored revision is the one
// the caller loaded, so two concurrent recorders cannot lose an update.
var saveProgressScript = redis.NewScript(`
	local key = KEYS[1]
	local expected = tonumber(ARGV[1])
	local payload = ARGV[2]

	local current = redis.call("GET", key)
	local revision = 0
	if current then
		local decoded = cjson.decode(current)
		revision = tonumber(decoded.revision) or 0
	end

	if revision ~= expected then
		return redis.error_reply("revision conflict")
	end

	redis.call("SET", key, payload)
	return "OK"
`)

func (s *RedisService) SaveProgress(ctx context.Context, userID string, p *models.Progress) error {
	key := fmt.Sprintf(KeyUserProgress, userID)

	expected := p.Revision
	next := p.Clone()
	next.Revision = expected + 1

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := saveProgressScript.Run(ctx, s.client, []string{key}, expected, data).Err(); err != nil {
		if err.Error() == "revision conflict" {
			return ErrProgressConflict
		}
		return fmt.Errorf("failed to save progress: %w", err)
	}

	p.Revision = next.Revision
	return nil
}

func (s *RedisService) DeleteProgress(ctx context.Context, userID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyUserProgress, userID)).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}

// StorePriceSnapshot keeps the last relayed price so a freshly connected
// socket can be greeted without waiting for the next upstream tick.
func (s *RedisService) StorePriceSnapshot(ctx context.Context, price string) error {
	return s.client.Set(ctx, KeyPriceSnapshot, price, TTLPriceSnapshot).Err()
}

func (s *RedisService) PriceSnapshot(ctx context.Context) (string, error) {
	price, err := s.client.Get(ctx, KeyPriceSnapshot).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return price, err
}
