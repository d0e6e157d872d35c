package auth

import (
	"context"
	"errors"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/flow"
)

// Decision is the outcome of an authentication gate check. An empty Route means the user may proceed.
type Decision struct {
	Route   string
	Profile domain.Profile
}

func (d Decision) Allowed() bool { return d.Route == "" }

// Gate decides whether the current user may enter a gated screen.
type Gate struct {
	token string
	cache *ProfileCache
}

func NewGate(token string, cache *ProfileCache) *Gate {
	return &Gate{token: token, cache: cache}
}

// Check sends users without a valid session to the landing route and users with an incomplete
// profile to the profile completion route. Other failures are returned as-is.
func (g *Gate) Check(ctx context.Context) (Decision, error) {
	if g.token == "" || g.cache == nil {
		return Decision{Route: flow.LandingRoute}, nil
	}
	p, err := g.cache.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.KindUnauthenticated) {
			return Decision{Route: flow.LandingRoute}, nil
		}
		return Decision{}, err
	}
	if !p.Registered {
		return Decision{Route: flow.ProfileCompletionRoute, Profile: p}, nil
	}
	return Decision{Profile: p}, nil
}
