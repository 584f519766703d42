package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
)

const authorityCachePrefix = "user-authorities:"

// cachedUserRepository keeps per-user authority sets in Redis so that
// listing pages resolve roles without a store round trip per row.
type cachedUserRepository struct {
	UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps inner with a Redis authority cache. A nil
// client disables caching and returns inner unchanged.
func NewCachedUserRepository(inner UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserRepository {
	if client == nil {
		return inner
	}
	return &cachedUserRepository{UserRepository: inner, client: client, ttl: ttl, logger: logger}
}

func (r *cachedUserRepository) GetAuthorities(ctx context.Context, userID string) ([]string, error) {
	key := authorityCachePrefix + userID

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var names []string
		if jsonErr := json.Unmarshal(raw, &names); jsonErr == nil {
			return names, nil
		}
		r.logger.Warn("discarding malformed authority cache entry", zap.String("user_id", userID))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("authority cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	names, err := r.UserRepository.GetAuthorities(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payload, jsonErr := json.Marshal(names); jsonErr == nil {
		if setErr := r.client.Set(ctx, key, payload, r.ttl).Err(); setErr != nil {
			r.logger.Warn("authority cache write failed", zap.String("user_id", userID), zap.Error(setErr))
		}
	}
	return names, nil
}

func (r *cachedUserRepository) Update(ctx context.Context, user *domain.User, authorities []string) error {
	if err := r.UserRepository.Update(ctx, user, authorities); err != nil {
		return err
	}
	r.evict(ctx, user.ID)
	return nil
}

func (r *cachedUserRepository) DeleteByUsername(ctx context.Context, username string) error {
	user, err := r.UserRepository.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := r.UserRepository.DeleteByUsername(ctx, username); err != nil {
		return err
	}
	r.evict(ctx, user.ID)
	return nil
}

func (r *cachedUserRepository) evict(ctx context.Context, userID string) {
	if err := r.client.Del(ctx, authorityCachePrefix+userID).Err(); err != nil {
		r.logger.Warn("authority cache eviction failed", zap.String("user_id", userID), zap.Error(err))
	}
}
