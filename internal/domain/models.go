package domain

import (
	"fmt"
	"unicode/utf8"
)

// PinLength is the number of characters in a session join code.
const PinLength = 6

// SessionStatus is the lifecycle state of a live quiz session as reported by the API.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "WAITING"
	StatusActive   SessionStatus = "ACTIVE"
	StatusFinished SessionStatus = "FINISHED"
)

// Valid reports whether s is one of the known wire values.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusFinished:
		return true
	}
	return false
}

// SessionDescriptor is the client-side projection of a session owned by the backend.
type SessionDescriptor struct {
	ID     string        `json:"id"`
	Pin    string        `json:"pin"`
	Status SessionStatus `json:"status"`
}

// JoinResult is returned by a successful join.
type JoinResult struct {
	SessionID string        `json:"sessionId"`
	Status    SessionStatus `json:"status"`
}

// StatusSnapshot is one resolved read of a session's participant count and status.
type StatusSnapshot struct {
	StudentCount int           `json:"studentCount"`
	Status       SessionStatus `json:"status"`
}

// StartResult is returned by a successful start.
type StartResult struct {
	Status SessionStatus `json:"status"`
}

// LobbyState is the host view of a session while the lobby screen is open.
type LobbyState struct {
	SessionID    string
	Pin          string
	StudentCount int
	Status       SessionStatus
}

// CountLabel renders the participant count the way the lobby displays it.
func (s LobbyState) CountLabel() string {
	return fmt.Sprintf("%d Students Joined", s.StudentCount)
}

// Role distinguishes teachers from students.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

// Profile is the authenticated user's account as seen by the client.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Registered  bool   `json:"registered"`
}

// Bank is a named collection of questions a session is instantiated from.
type Bank struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
}

// ValidateCode checks a join code before any network call is made.
func ValidateCode(code string) error {
	if n := utf8.RuneCountInString(code); n != PinLength {
		return Errorf(KindValidation, "join", "join code must be %d characters, got %d", PinLength, n)
	}
	return nil
}

// ValidateBankID checks a bank identifier before a session is created.
func ValidateBankID(bankID string) error {
	if bankID == "" {
		return Errorf(KindValidation, "create", "bank id is required")
	}
	return nil
}
