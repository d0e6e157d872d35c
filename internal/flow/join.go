package flow

import (
	"context"
	"sync"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"go.uber.org/zap"
)

// Joiner is the slice of the session API the join flow needs.
type Joiner interface {
	JoinSession(ctx context.Context, code string) (domain.JoinResult, error)
}

type JoinState int

const (
	JoinEntering JoinState = iota
	JoinSubmitting
	JoinRedirecting
	JoinFailed
)

func (s JoinState) String() string {
	switch s {
	case JoinEntering:
		return "entering"
	case JoinSubmitting:
		return "submitting"
	case JoinRedirecting:
		return "redirecting"
	case JoinFailed:
		return "failed"
	}
	return "unknown"
}

// JoinView is what the join screen renders.
type JoinView struct {
	State     JoinState
	Code      string
	SessionID string
	Err       error
	CanSubmit bool
}

// JoinFlow takes a student from code entry to the waiting room.
type JoinFlow struct {
	api     Joiner
	nav     Navigator
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	state     JoinState
	code      string
	sessionID string
	err       error
}

type JoinOption func(*JoinFlow)

func WithJoinTimeout(d time.Duration) JoinOption {
	return func(f *JoinFlow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithJoinLogger(logger *zap.Logger) JoinOption {
	return func(f *JoinFlow) { f.logger = logger }
}

func NewJoinFlow(api Joiner, nav Navigator, opts ...JoinOption) *JoinFlow {
	f := &JoinFlow{
		api:     api,
		nav:     nav,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		state:   JoinEntering,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetCode replaces the code buffer. It never issues a call. Editing after a failure returns
// the flow to Entering; edits while a submission is pending or after redirect are ignored.
func (f *JoinFlow) SetCode(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case JoinSubmitting, JoinRedirecting:
		return
	case JoinFailed:
		f.state = JoinEntering
	}
	f.code = code
}

// Submit joins with the buffered code. Invalid codes fail before any call is made.
// A submit while one is pending, or after a successful join, returns ErrInFlight.
func (f *JoinFlow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == JoinSubmitting || f.state == JoinRedirecting {
		f.mu.Unlock()
		return domain.ErrInFlight
	}
	code := f.code
	if err := domain.ValidateCode(code); err != nil {
		f.state = JoinEntering
		f.err = err
		f.mu.Unlock()
		return err
	}
	f.state = JoinSubmitting
	f.err = nil
	f.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	res, err := f.api.JoinSession(callCtx, code)
	cancel()
	if err == nil && res.SessionID == "" {
		err = domain.Errorf(domain.KindServer, "join session", "response has no session id")
	}
	if err != nil {
		err = normalize("join session", err)
		f.mu.Lock()
		f.state = JoinFailed
		f.err = err
		f.mu.Unlock()
		f.logger.Info("join failed", zap.String("kind", string(domain.KindOf(err))), zap.Error(err))
		return err
	}

	f.mu.Lock()
	f.state = JoinRedirecting
	f.sessionID = res.SessionID
	f.mu.Unlock()

	route := WaitingRoomRoute(res.SessionID)
	f.logger.Info("joined session", zap.String("session_id", res.SessionID), zap.String("route", route))
	f.nav.Navigate(route)
	return nil
}

func (f *JoinFlow) View() JoinView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return JoinView{
		State:     f.state,
		Code:      f.code,
		SessionID: f.sessionID,
		Err:       f.err,
		CanSubmit: f.state == JoinEntering || f.state == JoinFailed,
	}
}
