// internal/catalog/search.go
package catalog

import "strings"

// SearchBooks filters books by substring criteria. All non-empty criteria
// must match. When caseSensitive is false both sides are lower-cased before
// comparison. A book with an empty field matches any criterion on it.
func SearchBooks(books []*Book, criteria SearchCriteria, caseSensitive bool) []*Book {
	var result []*Book
	for _, b := range books {
		if matchField(b.Title, criteria.Title, caseSensitive) &&
			matchField(b.Author, criteria.Author, caseSensitive) &&
			matchField(b.Genre, criteria.Genre, caseSensitive) {
			result = append(result, b)
		}
	}
	return result
}

func matchField(field, value string, caseSensitive bool) bool {
	if value == "" || field == "" {
		return true
	}
	if caseSensitive {
		return strings.Contains(field, value)
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(value))
}
