package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPinTaken is returned by a SessionRepository when a new session reuses a live pin.
var ErrPinTaken = errors.New("pin already in use")

const maxPinAttempts = 10

// SessionRecord is the stored form of a hosted session.
type SessionRecord struct {
	ID        string
	Pin       string
	BankID    string
	HostID    string
	Status    domain.SessionStatus
	CreatedAt time.Time
}

// SessionRepository abstracts how sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Create(ctx context.Context, rec SessionRecord) error
	Get(ctx context.Context, sessionID string) (SessionRecord, error)
	FindByPin(ctx context.Context, pin string) (SessionRecord, error)
	// Transition moves a session from one status to another, failing with
	// domain.ErrSessionNotWaiting when the current status is not from.
	Transition(ctx context.Context, sessionID string, from, to domain.SessionStatus) error
	// AddParticipant adds userID to a WAITING session and returns the participant count.
	// The status check and the insert are atomic; other statuses fail with
	// domain.ErrSessionNotWaiting.
	AddParticipant(ctx context.Context, sessionID, userID string) (int, error)
	CountParticipants(ctx context.Context, sessionID string) (int, error)
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.Bank, error)
}

// SessionService contains the hosted session use cases served by the stub API.
type SessionService struct {
	sessions SessionRepository
	banks    BankRepository
	logger   *zap.Logger
	now      func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	hubsMu sync.Mutex
	hubs   map[string]*statusHub
}

func NewSessionService(store SessionRepository, banks BankRepository, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions: store,
		banks:    banks,
		logger:   logger,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		hubs:     make(map[string]*statusHub),
	}
}

// Create opens a WAITING session for bankID hosted by hostID.
func (s *SessionService) Create(ctx context.Context, hostID, bankID string) (domain.SessionDescriptor, error) {
	if err := domain.ValidateBankID(bankID); err != nil {
		return domain.SessionDescriptor{}, err
	}
	// Banks must exist; users cannot host unknown banks.
	if _, err := s.banks.GetBank(ctx, bankID); err != nil {
		return domain.SessionDescriptor{}, err
	}

	rec := SessionRecord{
		ID:        uuid.NewString(),
		BankID:    bankID,
		HostID:    hostID,
		Status:    domain.StatusWaiting,
		CreatedAt: s.now(),
	}
	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		rec.Pin = s.newPin()
		err := s.sessions.Create(ctx, rec)
		if errors.Is(err, ErrPinTaken) {
			continue
		}
		if err != nil {
			return domain.SessionDescriptor{}, fmt.Errorf("create session: %w", err)
		}
		s.logger.Info("session created",
			zap.String("session_id", rec.ID),
			zap.String("bank_id", bankID),
			zap.String("host_id", hostID),
		)
		return domain.SessionDescriptor{ID: rec.ID, Pin: rec.Pin, Status: rec.Status}, nil
	}
	return domain.SessionDescriptor{}, fmt.Errorf("create session: no free pin after %d attempts", maxPinAttempts)
}

// Join registers userID in the session identified by code. Re-joins are idempotent.
func (s *SessionService) Join(ctx context.Context, userID, code string) (domain.JoinResult, error) {
	if err := domain.ValidateCode(code); err != nil {
		return domain.JoinResult{}, err
	}
	rec, err := s.sessions.FindByPin(ctx, code)
	if err != nil {
		return domain.JoinResult{}, err
	}
	if rec.Status != domain.StatusWaiting {
		return domain.JoinResult{}, domain.ErrSessionNotWaiting
	}
	// the store rejects the insert if the session left WAITING since FindByPin
	count, err := s.sessions.AddParticipant(ctx, rec.ID, userID)
	if err != nil {
		return domain.JoinResult{}, err
	}
	s.logger.Info("participant joined",
		zap.String("session_id", rec.ID),
		zap.String("user_id", userID),
		zap.Int("student_count", count),
	)
	s.publish(ctx, rec.ID)
	return domain.JoinResult{SessionID: rec.ID, Status: rec.Status}, nil
}

// Status returns the current participant count and status of a session.
func (s *SessionService) Status(ctx context.Context, sessionID string) (domain.StatusSnapshot, error) {
	rec, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	count, err := s.sessions.CountParticipants(ctx, sessionID)
	if err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("count participants: %w", err)
	}
	return domain.StatusSnapshot{StudentCount: count, Status: rec.Status}, nil
}

// Start moves a WAITING session with at least one participant to ACTIVE.
func (s *SessionService) Start(ctx context.Context, sessionID string) (domain.StartResult, error) {
	snap, err := s.Status(ctx, sessionID)
	if err != nil {
		return domain.StartResult{}, err
	}
	if snap.Status != domain.StatusWaiting {
		return domain.StartResult{}, domain.ErrSessionNotWaiting
	}
	if snap.StudentCount == 0 {
		return domain.StartResult{}, domain.ErrNoParticipants
	}
	if err := s.sessions.Transition(ctx, sessionID, domain.StatusWaiting, domain.StatusActive); err != nil {
		return domain.StartResult{}, err
	}
	s.logger.Info("session started", zap.String("session_id", sessionID), zap.Int("student_count", snap.StudentCount))
	s.publish(ctx, sessionID)
	return domain.StartResult{Status: domain.StatusActive}, nil
}

// Subscribe returns a channel that receives status updates for a session, starting with the
// current one. The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.StatusSnapshot, func(), error) {
	hub := s.acquireHub(sessionID)

	hub.order.Lock()
	snap, err := s.Status(ctx, sessionID)
	if err != nil {
		hub.order.Unlock()
		s.releaseHub(sessionID, hub)
		return nil, nil, err
	}
	ch := hub.subscribe(snap)
	hub.order.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			hub.unsubscribe(ch)
			s.releaseHub(sessionID, hub)
		})
	}
	return ch, cancel, nil
}

func (s *SessionService) acquireHub(sessionID string) *statusHub {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	hub, ok := s.hubs[sessionID]
	if !ok {
		hub = newStatusHub()
		s.hubs[sessionID] = hub
	}
	hub.refs++
	return hub
}

func (s *SessionService) releaseHub(sessionID string, hub *statusHub) {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	hub.refs--
	if hub.refs == 0 && s.hubs[sessionID] == hub {
		delete(s.hubs, sessionID)
	}
}

// publish broadcasts the session's current status. The snapshot is read under the
// hub's order lock, so concurrent writers never deliver an older state after a newer one.
func (s *SessionService) publish(ctx context.Context, sessionID string) {
	s.hubsMu.Lock()
	hub, ok := s.hubs[sessionID]
	s.hubsMu.Unlock()
	if !ok {
		return
	}

	hub.order.Lock()
	defer hub.order.Unlock()
	snap, err := s.Status(context.WithoutCancel(ctx), sessionID)
	if err != nil {
		s.logger.Warn("status publish skipped", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	hub.broadcast(snap)
}

func (s *SessionService) newPin() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return fmt.Sprintf("%0*d", domain.PinLength, s.rnd.Intn(1_000_000))
}
