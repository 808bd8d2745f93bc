// internal/catalog/catalog.go
package catalog

// Catalog is an ordered, in-memory collection of books with cached
// statistics. It is not safe for concurrent use; see Service.
type Catalog struct {
	books      []*Book
	statistics Statistics
}

// NewCatalog creates a catalog holding the given books in order.
func NewCatalog(initial ...*Book) *Catalog {
	c := &Catalog{books: append([]*Book(nil), initial...)}
	c.updateStatistics()
	return c
}

// Books returns the catalog's books in insertion order. The slice is a
// copy; the books are not.
func (c *Catalog) Books() []*Book {
	return append([]*Book(nil), c.books...)
}

func (c *Catalog) Len() int {
	return len(c.books)
}

// AddBooks appends books in argument order. Duplicate IDs are accepted.
func (c *Catalog) AddBooks(books ...*Book) {
	c.books = append(c.books, books...)
	c.updateStatistics()
}

// UpdateBook fills the unset fields of book from update and returns book.
// Fields that already hold a value are never overwritten.
func (c *Catalog) UpdateBook(book *Book, update BookUpdate) *Book {
	c.updateBook(book, update)
	return book
}

// updateBook is UpdateBook returning the names of the fields it filled.
func (c *Catalog) updateBook(book *Book, update BookUpdate) []string {
	filled := fillBook(book, update)
	c.updateStatistics()
	return filled
}

// Find returns the first book with the given id.
func (c *Catalog) Find(id int) (*Book, bool) {
	for _, b := range c.books {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Statistics returns a copy of the cached statistics.
func (c *Catalog) Statistics() Statistics {
	return c.statistics
}

// Search returns the books matching every non-empty criterion, in
// catalog order.
func (c *Catalog) Search(criteria SearchCriteria, caseSensitive bool) []*Book {
	return SearchBooks(c.books, criteria, caseSensitive)
}

// updateStatistics must run at the end of every mutation.
func (c *Catalog) updateStatistics() {
	stats := Statistics{Total: len(c.books)}
	for _, b := range c.books {
		switch b.StatusOf() {
		case StatusAvailable:
			stats.Available++
		case StatusCheckedOut:
			stats.CheckedOut++
		}
	}
	c.statistics = stats
}

func fillBook(book *Book, update BookUpdate) []string {
	var filled []string
	if fillString(&book.Title, update.Title) {
		filled = append(filled, "title")
	}
	if fillString(&book.Author, update.Author) {
		filled = append(filled, "author")
	}
	if update.Year != nil && book.Year == 0 && *update.Year != 0 {
		book.Year = *update.Year
		filled = append(filled, "year")
	}
	if fillString(&book.Genre, update.Genre) {
		filled = append(filled, "genre")
	}

	if update.Availability == nil {
		return filled
	}
	if book.Availability == nil {
		book.Availability = &Availability{}
	}
	a, u := book.Availability, update.Availability
	if u.Status != nil && a.Status == "" && *u.Status != "" {
		a.Status = *u.Status
		filled = append(filled, "availability.status")
	}
	if fillString(&a.Location, u.Location) {
		filled = append(filled, "availability.location")
	}
	if fillString(&a.DueDate, u.DueDate) {
		filled = append(filled, "availability.dueDate")
	}
	return filled
}

func fillString(dst *string, src *string) bool {
	if src == nil || *dst != "" || *src == "" {
		return false
	}
	*dst = *src
	return true
}
