package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProfileStore caches profiles as JSON strings: SET quizspark:profile:{subject} {json} EX ttl
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) GetProfile(ctx context.Context, subject string) (domain.Profile, bool, error) {
	raw, err := s.client.Get(ctx, s.key(subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Profile{}, false, nil
	}
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Profile{}, false, fmt.Errorf("unmarshal profile: %w", err)
	}
	return p, true, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, subject string, p domain.Profile, ttl time.Duration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.client.Set(ctx, s.key(subject), raw, ttl).Err()
}

func (s *ProfileStore) DeleteProfile(ctx context.Context, subject string) error {
	return s.client.Del(ctx, s.key(subject)).Err()
}

func (s *ProfileStore) key(subject string) string {
	return "quizspark:profile:" + subject
}
