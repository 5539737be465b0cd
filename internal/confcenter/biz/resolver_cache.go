package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/cache"
)

// Notifiers fans one change event out to several notifiers.
type Notifiers []Notifier

// NotifyConfigChanged implements Notifier.
func (ns Notifiers) NotifyConfigChanged(appID string, env model.Environment) {
	for _, n := range ns {
		n.NotifyConfigChanged(appID, env)
	}
}

// CachedResolver memoizes resolution results per (app, environment). It also
// implements Notifier: a publish anywhere in an environment invalidates every
// cached mapping for that environment, because a change to an ancestor app
// alters the resolution of all apps inheriting from it.
type CachedResolver struct {
	inner *ResolverService
	cache cache.Cache[string, map[string]ResolvedValue]
}

// NewCachedResolver wraps a ResolverService with a memoizing layer.
func NewCachedResolver(inner *ResolverService) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: cache.NewMemoryCache[string, map[string]ResolvedValue](),
	}
}

// Resolve returns the cached mapping for (appID, env), computing and caching
// it on miss. Callers must treat the returned map as read-only.
func (r *CachedResolver) Resolve(ctx context.Context, appID string, env model.Environment) (map[string]ResolvedValue, error) {
	key := appID + ":" + string(env)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	resolved, err := r.inner.Resolve(ctx, appID, env)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, resolved)
	return resolved, nil
}

// NotifyConfigChanged implements Notifier by dropping every cached mapping
// in the published environment.
func (r *CachedResolver) NotifyConfigChanged(appID string, env model.Environment) {
	suffix := ":" + string(env)
	dropped := 0
	for _, key := range r.cache.Keys() {
		if strings.HasSuffix(key, suffix) {
			r.cache.Del(key)
			dropped++
		}
	}
	if dropped > 0 {
		logger.Infow("invalidated resolution cache",
			"app_id", appID, "environment", env, "entries", dropped)
	}
}
