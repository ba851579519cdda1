package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-cargo-notify/core"
)

const templateCacheKeyPrefix = "go-cargo-notify::template::v1"

// CachedTemplateStore fronts a TemplateStore with a read-through cache.
// Templates change rarely and are read on every eligible dispatch, so the
// lookup is the hottest store read in the pipeline. Upsert writes through and
// invalidates the event type's entry.
type CachedTemplateStore struct {
	base  core.TemplateStore
	cache repositorycache.CacheService
}

type cachedTemplateEntry struct {
	Template core.NotificationTemplate
	Found    bool
}

func NewCachedTemplateStore(base core.TemplateStore, cacheService repositorycache.CacheService) (*CachedTemplateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base template store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: template cache service is required")
	}
	return &CachedTemplateStore{base: base, cache: cacheService}, nil
}

// TemplateCacheKey is the deterministic cache key contract for template
// reads: go-cargo-notify::template::v1::<event_type> with the event type
// URL-path escaped.
func TemplateCacheKey(eventType core.EventType) (string, error) {
	key := strings.TrimSpace(string(eventType))
	if key == "" {
		return "", fmt.Errorf("sqlstore: event type is required")
	}
	return templateCacheKeyPrefix + "::" + url.PathEscape(key), nil
}

func (s *CachedTemplateStore) GetByEventType(ctx context.Context, eventType core.EventType) (core.NotificationTemplate, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.NotificationTemplate{}, false, fmt.Errorf("sqlstore: cached template store is not configured")
	}
	cacheKey, err := TemplateCacheKey(eventType)
	if err != nil {
		return core.NotificationTemplate{}, false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedTemplateEntry, error) {
		template, found, fetchErr := s.base.GetByEventType(ctx, eventType)
		if fetchErr != nil {
			return cachedTemplateEntry{}, fetchErr
		}
		return cachedTemplateEntry{Template: template, Found: found}, nil
	})
	if err != nil {
		return core.NotificationTemplate{}, false, err
	}
	return entry.Template, entry.Found, nil
}

func (s *CachedTemplateStore) Upsert(ctx context.Context, template core.NotificationTemplate) (core.NotificationTemplate, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.NotificationTemplate{}, fmt.Errorf("sqlstore: cached template store is not configured")
	}
	stored, err := s.base.Upsert(ctx, template)
	if err != nil {
		return core.NotificationTemplate{}, err
	}

	cacheKey, err := TemplateCacheKey(template.EventType)
	if err != nil {
		return core.NotificationTemplate{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.NotificationTemplate{}, err
	}
	return stored, nil
}

func (s *CachedTemplateStore) List(ctx context.Context) ([]core.NotificationTemplate, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached template store is not configured")
	}
	return s.base.List(ctx)
}

var _ core.TemplateStore = (*CachedTemplateStore)(nil)
