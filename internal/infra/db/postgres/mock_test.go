//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerActionRepo mocks the database repository that the action decorator wraps.
type mockInnerActionRepo struct {
	SaveFunc       func(ctx context.Context, tx repository.Tx, a *model.CreditAction) error
	FindByNameFunc func(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error)
	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.CreditAction, error)
}

func (m *mockInnerActionRepo) Save(ctx context.Context, tx repository.Tx, a *model.CreditAction) error {
	return m.SaveFunc(ctx, tx, a)
}
func (m *mockInnerActionRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error) {
	return m.FindByNameFunc(ctx, tx, name)
}
func (m *mockInnerActionRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditAction, error) {
	return m.ListAllFunc(ctx, tx)
}

// mockRedisClient implements red.RedisClient with overridable functions.
// Unset functions behave like an empty cache.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", redis.Nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }
