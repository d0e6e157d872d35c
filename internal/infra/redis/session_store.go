package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/app"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis implementation of app.SessionRepository.
// Layout:
//
//	HSET quizspark:session:{id} id pin bank_id host_id status created_at
//	SET  quizspark:pin:{pin} {id} NX
//	SADD quizspark:session:{id}:participants {userID}
//
// Every key carries the store TTL so abandoned sessions expire on their own.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// transitionScript returns -1 for a missing session, 0 when the status does not match, 1 on success.
var transitionScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
if status ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
return 1
`)

// joinScript adds ARGV[2] to the participants set only while the session status is ARGV[1].
// It returns -1 for a missing session, -2 when the status does not match, otherwise the set size.
var joinScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
if status ~= ARGV[1] then
	return -2
end
redis.call('SADD', KEYS[2], ARGV[2])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return redis.call('SCARD', KEYS[2])
`)

func (s *SessionStore) Create(ctx context.Context, rec app.SessionRecord) error {
	ok, err := s.client.SetNX(ctx, s.pinKey(rec.Pin), rec.ID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve pin: %w", err)
	}
	if !ok {
		return app.ErrPinTaken
	}

	key := s.sessionKey(rec.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":         rec.ID,
		"pin":        rec.Pin,
		"bank_id":    rec.BankID,
		"host_id":    rec.HostID,
		"status":     string(rec.Status),
		"created_at": strconv.FormatInt(rec.CreatedAt.UnixNano(), 10),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (app.SessionRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return app.SessionRecord{}, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	return recordFromHash(fields), nil
}

func (s *SessionStore) FindByPin(ctx context.Context, pin string) (app.SessionRecord, error) {
	id, err := s.client.Get(ctx, s.pinKey(pin)).Result()
	if errors.Is(err, redis.Nil) {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return app.SessionRecord{}, fmt.Errorf("lookup pin: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SessionStore) Transition(ctx context.Context, sessionID string, from, to domain.SessionStatus) error {
	res, err := transitionScript.Run(ctx, s.client, []string{s.sessionKey(sessionID)}, string(from), string(to)).Int()
	if err != nil {
		return fmt.Errorf("transition session: %w", err)
	}
	switch res {
	case -1:
		return domain.ErrSessionNotFound
	case 0:
		return domain.ErrSessionNotWaiting
	}
	return nil
}

func (s *SessionStore) AddParticipant(ctx context.Context, sessionID, userID string) (int, error) {
	keys := []string{s.sessionKey(sessionID), s.participantsKey(sessionID)}
	n, err := joinScript.Run(ctx, s.client, keys, string(domain.StatusWaiting), userID, s.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("add participant: %w", err)
	}
	switch n {
	case -1:
		return 0, domain.ErrSessionNotFound
	case -2:
		return 0, domain.ErrSessionNotWaiting
	}
	return n, nil
}

func (s *SessionStore) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	if err := s.mustExist(ctx, sessionID); err != nil {
		return 0, err
	}
	n, err := s.client.SCard(ctx, s.participantsKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return int(n), nil
}

func (s *SessionStore) mustExist(ctx context.Context, sessionID string) error {
	n, err := s.client.Exists(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "quizspark:session:" + sessionID
}

func (s *SessionStore) participantsKey(sessionID string) string {
	return "quizspark:session:" + sessionID + ":participants"
}

func (s *SessionStore) pinKey(pin string) string {
	return "quizspark:pin:" + pin
}

func recordFromHash(fields map[string]string) app.SessionRecord {
	rec := app.SessionRecord{
		ID:     fields["id"],
		Pin:    fields["pin"],
		BankID: fields["bank_id"],
		HostID: fields["host_id"],
		Status: domain.SessionStatus(fields["status"]),
	}
	if ns, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		rec.CreatedAt = time.Unix(0, ns)
	}
	return rec
}
