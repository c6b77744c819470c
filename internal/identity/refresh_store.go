package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRefreshTTL = 30 * 24 * time.Hour
	refreshKeyPrefix  = "fitlog-refresh||"
)

// RefreshStore keeps each user's refresh token in Redis, so the service can
// renew an expired ID token cookie without asking for the password again.
type RefreshStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRefreshStore(redisClient *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (s *RefreshStore) Save(ctx context.Context, uid, refreshToken string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.refreshStore.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.redisClient.Set(ctx, refreshKeyPrefix+uid, refreshToken, s.ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RefreshStore) Get(ctx context.Context, uid string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.refreshStore.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	token, err := s.redisClient.Get(ctx, refreshKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("get refresh token: %w", err)
	}
	return token, nil
}

func (s *RefreshStore) Delete(ctx context.Context, uid string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.refreshStore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.redisClient.Del(ctx, refreshKeyPrefix+uid).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
