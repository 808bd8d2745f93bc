// internal/catalog/analysis.go
package catalog

import (
	"fmt"
	"iter"
	"slices"
)

// FilterBooksByStatus returns the books whose availability status equals
// status. Books with unknown availability never match.
func FilterBooksByStatus(books []*Book, status Status) []*Book {
	var result []*Book
	for _, b := range books {
		if b.Availability != nil && b.Availability.Status == status {
			result = append(result, b)
		}
	}
	return result
}

// GroupBooksByGenre groups books by genre. Groups appear in the order their
// genre is first seen, and books keep their relative order within a group.
func GroupBooksByGenre(books []*Book) []GenreGroup {
	var groups []GenreGroup
	index := make(map[string]int)
	for _, b := range books {
		i, ok := index[b.Genre]
		if !ok {
			i = len(groups)
			index[b.Genre] = i
			groups = append(groups, GenreGroup{Genre: b.Genre})
		}
		groups[i].Books = append(groups[i].Books, b)
	}
	return groups
}

// GenreDistribution counts books per genre in first-seen genre order.
func GenreDistribution(books []*Book) []GenreCount {
	groups := GroupBooksByGenre(books)
	counts := make([]GenreCount, 0, len(groups))
	for _, g := range groups {
		counts = append(counts, GenreCount{Genre: g.Genre, Count: len(g.Books)})
	}
	return counts
}

// Decade returns the decade a year falls in, rounding toward negative
// infinity.
func Decade(year int) int {
	d := year / 10
	if year%10 < 0 {
		d--
	}
	return d * 10
}

// DecadeDistribution counts books per publication decade, ascending.
func DecadeDistribution(books []*Book) []DecadeCount {
	counts := make(map[int]int)
	for _, b := range books {
		counts[Decade(b.Year)]++
	}
	result := make([]DecadeCount, 0, len(counts))
	for decade, n := range counts {
		result = append(result, DecadeCount{Decade: decade, Count: n})
	}
	slices.SortFunc(result, func(a, b DecadeCount) int {
		return a.Decade - b.Decade
	})
	return result
}

// UniqueAuthors returns the distinct authors in first-seen order.
func UniqueAuthors(books []*Book) []string {
	seen := make(map[string]struct{})
	var authors []string
	for _, b := range books {
		if _, ok := seen[b.Author]; ok {
			continue
		}
		seen[b.Author] = struct{}{}
		authors = append(authors, b.Author)
	}
	return authors
}

func CountUniqueAuthors(books []*Book) int {
	return len(UniqueAuthors(books))
}

// AveragePublicationYear returns the mean publication year. It fails with
// ErrEmptyInput when books is empty.
func AveragePublicationYear(books []*Book) (float64, error) {
	if len(books) == 0 {
		return 0, fmt.Errorf("average publication year: %w", ErrEmptyInput)
	}
	sum := 0
	for _, b := range books {
		sum += b.Year
	}
	return float64(sum) / float64(len(books)), nil
}

// MostRecentBook returns the book with the latest year; the first one wins
// a tie. It fails with ErrEmptyInput when books is empty.
func MostRecentBook(books []*Book) (*Book, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("most recent book: %w", ErrEmptyInput)
	}
	latest := books[0]
	for _, b := range books[1:] {
		if b.Year > latest.Year {
			latest = b
		}
	}
	return latest, nil
}

// BookTitles yields the title of each book in order. The sequence may be
// ranged over any number of times.
func BookTitles(books []*Book) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, b := range books {
			if !yield(b.Title) {
				return
			}
		}
	}
}

// Analyze combines the aggregate views over books. It fails with
// ErrEmptyInput when books is empty.
func Analyze(books []*Book) (*Analysis, error) {
	avg, err := AveragePublicationYear(books)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	latest, err := MostRecentBook(books)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return &Analysis{
		GenreDistribution:      GenreDistribution(books),
		DecadeDistribution:     DecadeDistribution(books),
		UniqueAuthors:          CountUniqueAuthors(books),
		AveragePublicationYear: avg,
		MostRecent:             latest,
		TotalAnalyzed:          len(books),
	}, nil
}
