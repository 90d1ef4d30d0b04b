package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
	"marketplace-billing/internal/infra/metrics"
	red "marketplace-billing/internal/infra/redis"
)

var _ repository.CreditActionRepository = (*actionRepoCacheDecorator)(nil)

// actionRepoCacheDecorator caches the billable-action catalog in redis. The
// catalog is tiny and read on every charge, so a cheap TTL cache in front of
// postgres removes the hottest read from the charge path.
type actionRepoCacheDecorator struct {
	inner repository.CreditActionRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewActionRepoCacheDecorator(inner repository.CreditActionRepository, cache red.RedisClient) repository.CreditActionRepository {
	return &actionRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func (d *actionRepoCacheDecorator) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error) {
	key := fmt.Sprintf("action:%s", name)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("action", "hit")
		var a model.CreditAction
		if json.Unmarshal([]byte(val), &a) == nil {
			return &a, nil
		}
	}
	if err != nil && err != redis.Nil {
		metrics.IncCacheRequest("action", "error")
	}

	metrics.IncCacheRequest("action", "miss")
	a, err := d.inner.FindByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if a != nil {
		bytes, _ := json.Marshal(a)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return a, nil
}

// Save invalidates both the per-action key and the full-catalog key.
func (d *actionRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, a *model.CreditAction) error {
	d.cache.Del(ctx, fmt.Sprintf("action:%s", a.Name))
	d.cache.Del(ctx, "actions:all")
	return d.inner.Save(ctx, tx, a)
}

func (d *actionRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditAction, error) {
	key := "actions:all"
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("action_list", "hit")
		var actions []*model.CreditAction
		if json.Unmarshal([]byte(val), &actions) == nil {
			return actions, nil
		}
	}

	metrics.IncCacheRequest("action_list", "miss")
	actions, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(actions) > 0 {
		bytes, _ := json.Marshal(actions)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return actions, nil
}
