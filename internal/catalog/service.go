// internal/catalog/service.go
package catalog

import (
	"context"
	"iter"
)

// Service defines the interface for the catalog service. It owns a single
// Catalog and may be shared between goroutines.
type Service interface {
	AddBooks(ctx context.Context, books ...Book) error
	UpdateBook(ctx context.Context, id int, update BookUpdate) (*Book, error)
	Statistics(ctx context.Context) Statistics
	Search(ctx context.Context, criteria SearchCriteria, caseSensitive bool) []*Book
	FilterByStatus(ctx context.Context, status Status) ([]*Book, error)
	GroupByGenre(ctx context.Context) []GenreGroup
	Analyze(ctx context.Context) (*Analysis, error)
	Titles(ctx context.Context) iter.Seq[string]
	Events(ctx context.Context) []Event
}
