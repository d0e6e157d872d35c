package auth

import (
	"context"
	"sync"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/cache"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProfileLoader fetches the authenticated user's profile from the API.
type ProfileLoader interface {
	GetProfile(ctx context.Context) (domain.Profile, error)
}

// ProfileStore holds cached profiles keyed by token subject.
type ProfileStore interface {
	GetProfile(ctx context.Context, subject string) (domain.Profile, bool, error)
	SaveProfile(ctx context.Context, subject string, p domain.Profile, ttl time.Duration) error
	DeleteProfile(ctx context.Context, subject string) error
}

// ProfileCache serves the current user's profile, loading it at most once per invalidation.
// Invalidate marks the entry dirty after the profile is edited elsewhere.
type ProfileCache struct {
	subject string
	loader  ProfileLoader
	store   ProfileStore
	ttl     time.Duration
	sf      singleflight.Group
	jitter  *cache.Jitter

	// gen is bumped by Invalidate; a load started under an older gen is not saved.
	mu  sync.Mutex
	gen uint64
}

func NewProfileCache(subject string, loader ProfileLoader, store ProfileStore, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		subject: subject,
		loader:  loader,
		store:   store,
		ttl:     ttl,
		jitter:  cache.NewJitter(),
	}
}

func (c *ProfileCache) Get(ctx context.Context) (domain.Profile, error) {
	if p, ok, err := c.store.GetProfile(ctx, c.subject); err == nil && ok {
		return p, nil
	}

	result, err, _ := c.sf.Do(c.subject, func() (interface{}, error) {
		// Re-check the store in case another caller filled it.
		if p, ok, err := c.store.GetProfile(ctx, c.subject); err == nil && ok {
			return p, nil
		}
		gen := c.generation()
		p, err := c.loader.GetProfile(ctx)
		if err != nil {
			return domain.Profile{}, err
		}
		c.save(ctx, gen, p)
		return p, nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return result.(domain.Profile), nil
}

// Invalidate drops the cached profile so the next Get reloads it.
// A load already in flight still answers its callers but is not cached.
func (c *ProfileCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	c.sf.Forget(c.subject)
	return c.store.DeleteProfile(ctx, c.subject)
}

func (c *ProfileCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// save stores p unless Invalidate ran since the load began.
func (c *ProfileCache) save(ctx context.Context, gen uint64, p domain.Profile) {
	ttl := c.jitter.TTL(c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	// a failed save only costs a reload
	_ = c.store.SaveProfile(ctx, c.subject, p, ttl)
}
