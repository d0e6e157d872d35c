package memory

import (
	"context"
	"sync"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/app"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]app.SessionRecord
	pins         map[string]string
	participants map[string]map[string]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]app.SessionRecord),
		pins:         make(map[string]string),
		participants: make(map[string]map[string]struct{}),
	}
}

func (s *SessionStore) Create(_ context.Context, rec app.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pins[rec.Pin]; ok {
		return app.ErrPinTaken
	}
	s.sessions[rec.ID] = rec
	s.pins[rec.Pin] = rec.ID
	s.participants[rec.ID] = make(map[string]struct{})
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (app.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	return rec, nil
}

func (s *SessionStore) FindByPin(ctx context.Context, pin string) (app.SessionRecord, error) {
	s.mu.RLock()
	id, ok := s.pins[pin]
	s.mu.RUnlock()
	if !ok {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	return s.Get(ctx, id)
}

func (s *SessionStore) Transition(_ context.Context, sessionID string, from, to domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.Status != from {
		return domain.ErrSessionNotWaiting
	}
	rec.Status = to
	s.sessions[sessionID] = rec
	return nil
}

func (s *SessionStore) AddParticipant(_ context.Context, sessionID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	if rec.Status != domain.StatusWaiting {
		return 0, domain.ErrSessionNotWaiting
	}
	members := s.participants[sessionID]
	members[userID] = struct{}{}
	return len(members), nil
}

func (s *SessionStore) CountParticipants(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.participants[sessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	return len(members), nil
}
