package flow

import "net/url"

const (
	// LandingRoute is where unauthenticated users are sent.
	LandingRoute = "/"
	// ProfileCompletionRoute is where authenticated users without a completed profile are sent.
	ProfileCompletionRoute = "/profile/complete"

	waitingRoomPrefix = "/quiz/waiting-room/"
)

// WaitingRoomRoute is the student destination after a successful join.
func WaitingRoomRoute(sessionID string) string {
	return waitingRoomPrefix + url.PathEscape(sessionID)
}

// Navigator performs route transitions on behalf of a flow.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }
