package models

import (
	"time"

	"github.com/lib/pq"
)

// FlashcardSet is a named collection of study cards belonging to a subject.
type FlashcardSet struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Subject     string         `db:"subject" json:"subject"`
	Title       string         `db:"title" json:"title"`
	Description *string        `db:"description" json:"description,omitempty"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	CardCount   int            `db:"card_count" json:"card_count"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Flashcard is a single front/back card within a set.
type Flashcard struct {
	ID        string    `db:"id" json:"id"`
	SetID     string    `db:"set_id" json:"set_id"`
	Front     string    `db:"front" json:"front"`
	Back      string    `db:"back" json:"back"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FlashcardActivity logs a study interaction with a set.
type FlashcardActivity struct {
	ID     string    `db:"id" json:"id"`
	UserID string    `db:"user_id" json:"user_id"`
	SetID  string    `db:"set_id" json:"set_id"`
	Date   time.Time `db:"date" json:"date"`
}

// FlashcardSetFilter captures filtering criteria for listing sets.
type FlashcardSetFilter struct {
	UserID    string
	Subject   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
