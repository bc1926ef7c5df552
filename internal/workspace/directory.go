// Package workspace holds the thin collaborator clients intent handlers and
// the Slack transport layer share: the user-directory cache, the Monday.com
// board/user list cache, and the calendar/drive clients behind OAuth.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
)

// Directory resolves Slack user ids to display names, opportunistically
// caching results from a single workspace-user-list call and falling back
// to a static configured map when the list call is unauthorized (spec §4.6:
// "On missing_scope, fall back to a static mapping supplied in
// configuration").
type Directory struct {
	mu         sync.RWMutex
	names      map[string]string
	staticMap  map[string]string
	api        *slack.Client
	listedOnce bool
}

func NewDirectory(api *slack.Client, staticMap map[string]string) *Directory {
	return &Directory{names: make(map[string]string), staticMap: staticMap, api: api}
}

// Name resolves userID to a display name, populating the cache from a
// workspace-user-list call on first need.
func (d *Directory) Name(ctx context.Context, userID string) string {
	d.mu.RLock()
	if name, ok := d.names[userID]; ok {
		d.mu.RUnlock()
		return name
	}
	listed := d.listedOnce
	d.mu.RUnlock()

	if !listed {
		d.populate(ctx)
		d.mu.RLock()
		if name, ok := d.names[userID]; ok {
			d.mu.RUnlock()
			return name
		}
		d.mu.RUnlock()
	}

	if name, ok := d.staticMap[userID]; ok {
		return name
	}
	return userID
}

func (d *Directory) populate(ctx context.Context) {
	log := logger.For("workspace-directory")
	users, err := d.api.GetUsersContext(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listedOnce = true
	if err != nil {
		log.Warn("user list call failed, falling back to static map", "err", err)
		return
	}
	for _, u := range users {
		name := u.Profile.DisplayName
		if name == "" {
			name = u.RealName
		}
		d.names[u.ID] = name
	}
}

// cached is a tiny generic TTL cache for the Monday.com board/user lists
// (5 min TTL per spec §5).
type cached[T any] struct {
	mu       sync.Mutex
	value    T
	fetchedAt time.Time
	ttl      time.Duration
	fetch    func(ctx context.Context) (T, error)
}

func newCached[T any](ttl time.Duration, fetch func(ctx context.Context) (T, error)) *cached[T] {
	return &cached[T]{ttl: ttl, fetch: fetch}
}

func (c *cached[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.fetchedAt) < c.ttl {
		return c.value, nil
	}
	v, err := c.fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = v
	c.fetchedAt = time.Now()
	return v, nil
}
