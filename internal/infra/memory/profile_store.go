package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
)

// ProfileStore keeps cached profiles in process memory.
type ProfileStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	profiles map[string]cachedProfile
}

type cachedProfile struct {
	profile   domain.Profile
	expiresAt time.Time
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		clock:    time.Now,
		profiles: make(map[string]cachedProfile),
	}
}

func (s *ProfileStore) GetProfile(_ context.Context, subject string) (domain.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.profiles[subject]
	if !ok || (!entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock())) {
		return domain.Profile{}, false, nil
	}
	return entry.profile, true, nil
}

// SaveProfile stores p until ttl elapses; a non-positive ttl never expires.
func (s *ProfileStore) SaveProfile(_ context.Context, subject string, p domain.Profile, ttl time.Duration) error {
	entry := cachedProfile{profile: p}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.mu.Lock()
	s.profiles[subject] = entry
	s.mu.Unlock()
	return nil
}

func (s *ProfileStore) DeleteProfile(_ context.Context, subject string) error {
	s.mu.Lock()
	delete(s.profiles, subject)
	s.mu.Unlock()
	return nil
}
