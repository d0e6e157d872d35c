package flow

import (
	"context"
	"errors"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
)

// DefaultTimeout bounds each API call made by a flow.
const DefaultTimeout = 2 * time.Second

var (
	errStartUnavailable = domain.Errorf(domain.KindConflict, "start session", "start is not available for this lobby")
	errLobbyClosed      = domain.Errorf(domain.KindConflict, "open lobby", "lobby is closed")
)

// normalize turns whatever a collaborator returned into a classified domain error.
func normalize(op string, err error) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.KindTimeout, op, err)
	case errors.Is(err, context.Canceled):
		return domain.Wrap(domain.KindNetwork, op, err)
	default:
		return domain.Wrap(domain.KindServer, op, err)
	}
}
