package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

type RateLimitRepository interface {
	CheckLoginRateLimit(ctx context.Context, email string) (bool, int, int, error)
	ResetLoginAttempts(ctx context.Context, email string) error
}

type redisRepository struct {
	client *redis.Client
	cfg    *config.Config
	now    func() time.Time
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {

	redisURL := cfg.RedisConnect.GetDSN()
	slog.Info("Connecting to Redis", slog.String("addr", cfg.RedisConnect.Addr()))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DB = cfg.RedisConnect.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Successfully connected to Redis")
	return client, nil
}

func NewRateLimitRepo(client *redis.Client, cfg *config.Config) RateLimitRepository {
	return &redisRepository{client: client, cfg: cfg, now: time.Now}
}

// NewRateLimitRepoWithClock is NewRateLimitRepo with a fixed clock, for tests.
func NewRateLimitRepoWithClock(client *redis.Client, cfg *config.Config, now func() time.Time) RateLimitRepository {
	return &redisRepository{client: client, cfg: cfg, now: now}
}

func loginAttemptsKey(email string) string {
	return "login_attempts:" + strings.ToLower(email)
}

// CheckLoginRateLimit reports whether a login attempt is allowed, how many
// attempts remain and, when blocked, how many seconds to wait. Attempts live in
// a sorted set scored by unix time; only the window is counted. An allowed
// attempt is recorded, a blocked one is not, so retrying while blocked does not
// push the window forward.
func (r *redisRepository) CheckLoginRateLimit(ctx context.Context, email string) (bool, int, int, error) {

	logger := middleware.LoggerFromContext(ctx)

	key := loginAttemptsKey(email)
	window := r.cfg.RateConfig.WindowSize
	now := r.now()

	windowStart := now.Unix() - int64(window.Seconds())

	pipe := r.client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, key)
	oldest := pipe.ZRangeArgsWithScores(ctx, redis.ZRangeArgs{Key: key, Start: 0, Stop: 0})

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Redis pipeline execution failed for rate limit", slog.String("key", key), slog.Any("error", err))
		return false, 0, 0, fmt.Errorf("redis pipeline error for rate limit check: %w", err)
	}

	attempts := count.Val()
	maxAttempts := r.cfg.RateConfig.MaxAttempts

	if attempts >= maxAttempts {

		retryAfter := int64(window.Seconds())
		if scores := oldest.Val(); len(scores) > 0 {
			retryAfter = max(int64(scores[0].Score)+int64(window.Seconds())-now.Unix(), 1)
		}

		logger.Warn("Rate limit exceeded for login", slog.Int64("attempts", attempts))
		return false, 0, int(retryAfter), nil
	}

	record := r.client.Pipeline()

	record.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: now.UnixNano()})
	record.Expire(ctx, key, window)

	if _, err := record.Exec(ctx); err != nil {
		logger.Error("Failed to record login attempt", slog.String("key", key), slog.Any("error", err))
		return false, 0, 0, fmt.Errorf("redis pipeline error for rate limit record: %w", err)
	}

	remaining := maxAttempts - (attempts + 1)

	logger.Debug("Rate limit check passed", slog.Int64("attempts", attempts+1), slog.Int64("remaining", remaining))
	return true, int(remaining), 0, nil
}

// ResetLoginAttempts forgets the recorded attempts after a successful login.
func (r *redisRepository) ResetLoginAttempts(ctx context.Context, email string) error {

	if err := r.client.Del(ctx, loginAttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}

	return nil
}
