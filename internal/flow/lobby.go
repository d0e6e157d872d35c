package flow

import (
	"context"
	"sync"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"go.uber.org/zap"
)

// DefaultRestartDelay is the pause before a dropped status source is watched again.
const DefaultRestartDelay = time.Second

// HostAPI is the slice of the session API the host lobby needs.
type HostAPI interface {
	CreateSession(ctx context.Context, bankID string) (domain.SessionDescriptor, error)
	StartSession(ctx context.Context, sessionID string) (domain.StartResult, error)
}

type LobbyPhase int

const (
	LobbyIdle LobbyPhase = iota
	LobbyCreating
	LobbyWaiting
	LobbyStarting
	LobbyLive
)

func (p LobbyPhase) String() string {
	switch p {
	case LobbyIdle:
		return "idle"
	case LobbyCreating:
		return "creating"
	case LobbyWaiting:
		return "waiting"
	case LobbyStarting:
		return "starting"
	case LobbyLive:
		return "live"
	}
	return "unknown"
}

// LobbyView is a consistent snapshot of what the lobby screen renders.
type LobbyView struct {
	Phase      LobbyPhase
	State      domain.LobbyState
	CountLabel string
	CanStart   bool
	Live       bool
	Err        error
	// Version increases with every visible change.
	Version uint64
}

// Lobby takes a host from session creation through the waiting lobby to a live session.
type Lobby struct {
	api          HostAPI
	source       StatusSource
	minStudents  int
	timeout      time.Duration
	restartDelay time.Duration
	logger       *zap.Logger
	onChange     func(LobbyView)

	mu           sync.Mutex
	phase        LobbyPhase
	state        domain.LobbyState
	startBlocked bool
	actionErr    error
	pollErr      error
	version      uint64
	closed       bool
	base         context.Context
	watchCancel  context.CancelFunc
	watchDone    chan struct{}

	notifyMu sync.Mutex
	notified uint64
}

type LobbyOption func(*Lobby)

// WithMinStudents sets how many joined students enable start. Values below 1 are ignored.
func WithMinStudents(n int) LobbyOption {
	return func(l *Lobby) {
		if n >= 1 {
			l.minStudents = n
		}
	}
}

func WithLobbyTimeout(d time.Duration) LobbyOption {
	return func(l *Lobby) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func WithRestartDelay(d time.Duration) LobbyOption {
	return func(l *Lobby) {
		if d > 0 {
			l.restartDelay = d
		}
	}
}

func WithLobbyLogger(logger *zap.Logger) LobbyOption {
	return func(l *Lobby) { l.logger = logger }
}

// WithOnChange registers a callback that receives every new view in version order.
// The callback must not call Open, Start or Close.
func WithOnChange(fn func(LobbyView)) LobbyOption {
	return func(l *Lobby) { l.onChange = fn }
}

func NewLobby(api HostAPI, source StatusSource, opts ...LobbyOption) *Lobby {
	l := &Lobby{
		api:          api,
		source:       source,
		minStudents:  1,
		timeout:      DefaultTimeout,
		restartDelay: DefaultRestartDelay,
		logger:       zap.NewNop(),
		phase:        LobbyIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open creates a session for bankID and starts watching its status. ctx bounds the lifetime
// of the status watch; the create call itself is also bounded by the lobby timeout.
func (l *Lobby) Open(ctx context.Context, bankID string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errLobbyClosed
	}
	if l.phase != LobbyIdle {
		l.mu.Unlock()
		return domain.ErrInFlight
	}
	if err := domain.ValidateBankID(bankID); err != nil {
		l.actionErr = err
		l.version++
		l.mu.Unlock()
		l.notify()
		return err
	}
	l.phase = LobbyCreating
	l.actionErr = nil
	l.version++
	l.mu.Unlock()
	l.notify()

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	desc, err := l.api.CreateSession(callCtx, bankID)
	cancel()
	if err != nil {
		err = normalize("create session", err)
		l.mu.Lock()
		l.phase = LobbyIdle
		l.actionErr = err
		l.version++
		l.mu.Unlock()
		l.notify()
		l.logger.Warn("create session failed", zap.String("bank_id", bankID), zap.Error(err))
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errLobbyClosed
	}
	l.state = domain.LobbyState{SessionID: desc.ID, Pin: desc.Pin, Status: desc.Status}
	l.phase = LobbyWaiting
	l.base = ctx
	l.startWatchLocked()
	l.version++
	l.mu.Unlock()
	l.notify()

	l.logger.Info("lobby open",
		zap.String("bank_id", bankID),
		zap.String("session_id", desc.ID),
		zap.String("pin", desc.Pin),
	)
	return nil
}

// Start moves a startable lobby to Live. The action is disabled before the call is issued,
// so concurrent invocations result in a single StartSession call.
func (l *Lobby) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.phase == LobbyStarting {
		l.mu.Unlock()
		return domain.ErrInFlight
	}
	if !l.canStartLocked() {
		l.mu.Unlock()
		return errStartUnavailable
	}
	l.phase = LobbyStarting
	l.actionErr = nil
	l.stopWatchLocked()
	sessionID := l.state.SessionID
	l.version++
	l.mu.Unlock()
	l.notify()

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	res, err := l.api.StartSession(callCtx, sessionID)
	cancel()
	if err != nil {
		err = normalize("start session", err)
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return err
		}
		l.phase = LobbyWaiting
		l.actionErr = err
		l.startBlocked = true
		l.startWatchLocked()
		l.version++
		l.mu.Unlock()
		l.notify()
		l.logger.Warn("start session failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	status := res.Status
	if !status.Valid() {
		status = domain.StatusActive
	}
	l.mu.Lock()
	l.phase = LobbyLive
	l.state.Status = status
	l.pollErr = nil
	l.version++
	l.mu.Unlock()
	l.notify()

	l.logger.Info("session live", zap.String("session_id", sessionID))
	return nil
}

// Close stops the status source. It is safe to call more than once.
func (l *Lobby) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	done := l.watchDone
	l.stopWatchLocked()
	l.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (l *Lobby) View() LobbyView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

func (l *Lobby) viewLocked() LobbyView {
	err := l.actionErr
	if err == nil {
		err = l.pollErr
	}
	return LobbyView{
		Phase:      l.phase,
		State:      l.state,
		CountLabel: l.state.CountLabel(),
		CanStart:   l.canStartLocked(),
		Live:       l.phase == LobbyLive,
		Err:        err,
		Version:    l.version,
	}
}

func (l *Lobby) canStartLocked() bool {
	return l.phase == LobbyWaiting &&
		!l.startBlocked &&
		l.state.Status == domain.StatusWaiting &&
		l.state.StudentCount >= l.minStudents
}

func (l *Lobby) startWatchLocked() {
	ctx, cancel := context.WithCancel(l.base)
	done := make(chan struct{})
	l.watchCancel = cancel
	l.watchDone = done
	go l.watch(ctx, l.state.SessionID, done)
}

func (l *Lobby) stopWatchLocked() {
	if l.watchCancel != nil {
		l.watchCancel()
	}
	l.watchCancel = nil
	l.watchDone = nil
}

func (l *Lobby) watch(ctx context.Context, sessionID string, done chan struct{}) {
	defer close(done)
	for {
		updates, err := l.source.Watch(ctx, sessionID)
		if err != nil {
			l.apply(ctx, StatusUpdate{Err: err})
		} else {
			for u := range updates {
				l.apply(ctx, u)
			}
		}
		if ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(l.restartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		l.logger.Debug("restarting status source", zap.String("session_id", sessionID))
	}
}

// apply replaces the lobby's count and status with a resolved update. Updates from a watch
// that has since been stopped are dropped.
func (l *Lobby) apply(ctx context.Context, u StatusUpdate) {
	l.mu.Lock()
	if ctx.Err() != nil || l.phase != LobbyWaiting {
		l.mu.Unlock()
		return
	}

	changed := false
	if u.Err != nil {
		if l.pollErr == nil || l.pollErr.Error() != u.Err.Error() {
			l.pollErr = u.Err
			changed = true
		}
	} else {
		if l.pollErr != nil {
			l.pollErr = nil
			changed = true
		}
		if l.startBlocked {
			l.startBlocked = false
			changed = true
		}
		snap := u.Snapshot
		if snap.StudentCount != l.state.StudentCount || snap.Status != l.state.Status {
			l.state.StudentCount = snap.StudentCount
			l.state.Status = snap.Status
			changed = true
		}
	}
	if changed {
		l.version++
	}
	l.mu.Unlock()

	if changed {
		l.notify()
	}
}

func (l *Lobby) notify() {
	if l.onChange == nil {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	v := l.View()
	if v.Version <= l.notified {
		return
	}
	l.notified = v.Version
	l.onChange(v)
}
