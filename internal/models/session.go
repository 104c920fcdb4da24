package models

import "time"

// SessionStatus enumerates the study session lifecycle states.
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusInProgress SessionStatus = "in-progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusMissed     SessionStatus = "missed"
)

// Valid reports whether the status is a known lifecycle state.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusInProgress, SessionStatusCompleted,
		SessionStatusCancelled, SessionStatusMissed:
		return true
	}
	return false
}

// StudySession represents a scheduled or completed study activity.
type StudySession struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	Subject         string        `db:"subject" json:"subject"`
	Title           string        `db:"title" json:"title"`
	Description     *string       `db:"description" json:"description,omitempty"`
	Location        *string       `db:"location" json:"location,omitempty"`
	Date            time.Time     `db:"date" json:"date"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	PlannedMinutes  int           `db:"planned_minutes" json:"planned_minutes"`
	Status          SessionStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionFilter captures filtering criteria for listing sessions.
type SessionFilter struct {
	UserID    string
	Status    *SessionStatus
	Subject   string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
