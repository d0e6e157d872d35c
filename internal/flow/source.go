package flow

import (
	"context"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
)

// DefaultPollInterval is the gap between resolved status polls.
const DefaultPollInterval = 2 * time.Second

// StatusUpdate is one element of a status sequence: a resolved snapshot or the failure to get one.
type StatusUpdate struct {
	Snapshot domain.StatusSnapshot
	Err      error
}

// StatusSource produces a cancellable sequence of status updates for a session.
// The channel is closed when ctx ends or the source gives up; callers may call Watch again.
type StatusSource interface {
	Watch(ctx context.Context, sessionID string) (<-chan StatusUpdate, error)
}

type StatusReader interface {
	GetSessionStatus(ctx context.Context, sessionID string) (domain.StatusSnapshot, error)
}

type StatusWatcher interface {
	WatchSessionStatus(ctx context.Context, sessionID string) (<-chan domain.StatusSnapshot, error)
}

// Poller reads status once immediately and then once per interval. A poll only starts after
// the previous one resolved; failures are delivered and polling continues.
type Poller struct {
	reader   StatusReader
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(reader StatusReader, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{reader: reader, interval: interval, timeout: timeout}
}

func (p *Poller) Watch(ctx context.Context, sessionID string) (<-chan StatusUpdate, error) {
	updates := make(chan StatusUpdate)
	go func() {
		defer close(updates)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			callCtx, cancel := context.WithTimeout(ctx, p.timeout)
			snap, err := p.reader.GetSessionStatus(callCtx, sessionID)
			cancel()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				err = normalize("get session status", err)
			}
			select {
			case updates <- StatusUpdate{Snapshot: snap, Err: err}:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}

// Stream adapts a push subscription to a StatusSource.
type Stream struct {
	watcher StatusWatcher
}

func NewStream(watcher StatusWatcher) *Stream {
	return &Stream{watcher: watcher}
}

func (s *Stream) Watch(ctx context.Context, sessionID string) (<-chan StatusUpdate, error) {
	snaps, err := s.watcher.WatchSessionStatus(ctx, sessionID)
	if err != nil {
		return nil, normalize("watch session status", err)
	}
	updates := make(chan StatusUpdate)
	go func() {
		defer close(updates)
		for snap := range snaps {
			select {
			case updates <- StatusUpdate{Snapshot: snap}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}
