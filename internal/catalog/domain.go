// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrBookNotFound  = errors.New("book not found")
	ErrInvalidStatus = errors.New("invalid availability status")
)

// Status is the lending state carried by an Availability.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusCheckedOut Status = "checked_out"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusCheckedOut
}

// Availability describes whether a book can be borrowed. Location is
// meaningful for available books, DueDate for checked out ones.
type Availability struct {
	Status   Status `json:"status,omitempty" validate:"required,oneof=available checked_out"`
	Location string `json:"location,omitempty" validate:"required_if=Status available"`
	DueDate  string `json:"dueDate,omitempty" validate:"required_if=Status checked_out"`
}

// Book is a single catalog record. A nil Availability means the
// availability is unknown.
type Book struct {
	ID           int           `json:"id" validate:"gt=0"`
	Title        string        `json:"title" validate:"required"`
	Author       string        `json:"author" validate:"required"`
	Year         int           `json:"year"`
	Genre        string        `json:"genre" validate:"required"`
	Availability *Availability `json:"availability,omitempty"`
}

// StatusOf returns the book's availability status, or the empty status
// when availability is unknown.
func (b *Book) StatusOf() Status {
	if b.Availability == nil {
		return ""
	}
	return b.Availability.Status
}

// Clone returns a deep copy of b.
func (b *Book) Clone() *Book {
	c := *b
	if b.Availability != nil {
		a := *b.Availability
		c.Availability = &a
	}
	return &c
}

// BookUpdate is a partial update. Nil fields are treated as missing.
type BookUpdate struct {
	Title        *string             `json:"title,omitempty"`
	Author       *string             `json:"author,omitempty"`
	Year         *int                `json:"year,omitempty"`
	Genre        *string             `json:"genre,omitempty"`
	Availability *AvailabilityUpdate `json:"availability,omitempty"`
}

// AvailabilityUpdate is the partial form of Availability.
type AvailabilityUpdate struct {
	Status   *Status `json:"status,omitempty"`
	Location *string `json:"location,omitempty"`
	DueDate  *string `json:"dueDate,omitempty"`
}

// Statistics summarizes the availability of the catalog contents.
type Statistics struct {
	Total      int `json:"total"`
	Available  int `json:"available"`
	CheckedOut int `json:"checkedOut"`
}

// SearchCriteria holds substrings to match. Empty fields match everything.
type SearchCriteria struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// GenreGroup is the ordered set of books sharing a genre.
type GenreGroup struct {
	Genre string  `json:"genre"`
	Books []*Book `json:"books"`
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

type DecadeCount struct {
	Decade int `json:"decade"`
	Count  int `json:"count"`
}

// Analysis is a combined summary over a set of books.
type Analysis struct {
	GenreDistribution      []GenreCount  `json:"genre_distribution"`
	DecadeDistribution     []DecadeCount `json:"decade_distribution"`
	UniqueAuthors          int           `json:"unique_authors"`
	AveragePublicationYear float64       `json:"average_publication_year"`
	MostRecent             *Book         `json:"most_recent"`
	TotalAnalyzed          int           `json:"total_analyzed"`
}

// Event types recorded in the mutation journal.
const (
	EventBookAdded   = "BookAdded"
	EventBookUpdated = "BookUpdated"
)

// Event is a journal entry describing one catalog mutation.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	BookID     int       `json:"book_id"`
	Fields     []string  `json:"fields,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
