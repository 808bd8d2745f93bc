// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "bookshelf/catalog"

type searchKey struct {
	criteria      SearchCriteria
	caseSensitive bool
}

// service implements the Service interface.
type service struct {
	mu      sync.RWMutex
	catalog *Catalog
	journal []Event

	cacheMu     sync.Mutex
	searchCache map[searchKey][]*Book

	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	booksAdded   metric.Int64Counter
	updates      metric.Int64Counter
	fieldsFilled metric.Int64Counter
}

// Option configures a service.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	now            func() time.Time
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithClock sets the time source used to stamp journal events.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewService creates a catalog service seeded with copies of initial.
func NewService(initial []Book, opts ...Option) (Service, error) {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &service{
		catalog:     NewCatalog(cloneValues(initial)...),
		searchCache: make(map[searchKey][]*Book),
		logger:      o.logger,
		tracer:      o.tracerProvider.Tracer(instrumentationName),
		now:         o.now,
	}
	if err := s.registerInstruments(o.meterProvider.Meter(instrumentationName)); err != nil {
		return nil, fmt.Errorf("register instruments: %w", err)
	}
	return s, nil
}

func (s *service) registerInstruments(meter metric.Meter) error {
	var err error
	s.booksAdded, err = meter.Int64Counter("catalog.books.added",
		metric.WithDescription("Books appended to the catalog"))
	if err != nil {
		return err
	}
	s.updates, err = meter.Int64Counter("catalog.updates",
		metric.WithDescription("Partial updates applied to catalog books"))
	if err != nil {
		return err
	}
	s.fieldsFilled, err = meter.Int64Counter("catalog.fields.filled",
		metric.WithDescription("Unset fields filled by partial updates"))
	if err != nil {
		return err
	}
	_, err = meter.Int64ObservableGauge("catalog.books",
		metric.WithDescription("Books in the catalog by availability status"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			stats := s.snapshotStatistics()
			o.Observe(int64(stats.Available), metric.WithAttributes(attribute.String("status", string(StatusAvailable))))
			o.Observe(int64(stats.CheckedOut), metric.WithAttributes(attribute.String("status", string(StatusCheckedOut))))
			o.Observe(int64(stats.Total-stats.Available-stats.CheckedOut), metric.WithAttributes(attribute.String("status", "unknown")))
			return nil
		}),
	)
	return err
}

// AddBooks appends copies of books to the catalog.
func (s *service) AddBooks(ctx context.Context, books ...Book) error {
	ctx, span := s.tracer.Start(ctx, "catalog.add_books",
		trace.WithAttributes(attribute.Int("book.count", len(books))),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("add books: %w", err)
	}

	s.mu.Lock()
	s.catalog.AddBooks(cloneValues(books)...)
	for _, b := range books {
		s.record(span, EventBookAdded, b.ID, nil)
	}
	s.invalidateSearches()
	stats := s.catalog.Statistics()
	s.mu.Unlock()

	s.booksAdded.Add(ctx, int64(len(books)))
	span.SetAttributes(attribute.Int("catalog.total", stats.Total))
	s.logger.InfoContext(ctx, "books added", "count", len(books), "total", stats.Total)
	return nil
}

// UpdateBook fills the unset fields of the first book with the given id.
func (s *service) UpdateBook(ctx context.Context, id int, update BookUpdate) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_book",
		trace.WithAttributes(attribute.Int("book.id", id)),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}

	s.mu.Lock()
	book, ok := s.catalog.Find(id)
	if !ok {
		s.mu.Unlock()
		span.SetAttributes(attribute.Bool("book.found", false))
		return nil, fmt.Errorf("update book %d: %w", id, ErrBookNotFound)
	}
	filled := s.catalog.updateBook(book, update)
	if len(filled) > 0 {
		s.record(span, EventBookUpdated, id, filled)
		s.invalidateSearches()
	}
	result := book.Clone()
	s.mu.Unlock()

	s.updates.Add(ctx, 1)
	s.fieldsFilled.Add(ctx, int64(len(filled)))
	span.SetAttributes(attribute.StringSlice("fields.filled", filled))
	s.logger.InfoContext(ctx, "book updated", "id", id, "filled", filled)
	return result, nil
}

func (s *service) Statistics(ctx context.Context) Statistics {
	_, span := s.tracer.Start(ctx, "catalog.statistics")
	defer span.End()
	return s.snapshotStatistics()
}

func (s *service) snapshotStatistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Statistics()
}

// Search returns copies of the matching books. Results are memoized until
// the next mutation.
func (s *service) Search(ctx context.Context, criteria SearchCriteria, caseSensitive bool) []*Book {
	ctx, span := s.tracer.Start(ctx, "catalog.search",
		trace.WithAttributes(
			attribute.String("criteria.title", criteria.Title),
			attribute.String("criteria.author", criteria.Author),
			attribute.String("criteria.genre", criteria.Genre),
			attribute.Bool("case_sensitive", caseSensitive),
		),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := searchKey{criteria: criteria, caseSensitive: caseSensitive}
	s.cacheMu.Lock()
	found, hit := s.searchCache[key]
	if !hit {
		found = s.catalog.Search(criteria, caseSensitive)
		s.searchCache[key] = found
	}
	s.cacheMu.Unlock()

	span.SetAttributes(attribute.Bool("cache.hit", hit), attribute.Int("result.count", len(found)))
	s.logger.DebugContext(ctx, "search", "criteria", criteria, "cache_hit", hit, "results", len(found))
	return clonePointers(found)
}

func (s *service) FilterByStatus(ctx context.Context, status Status) ([]*Book, error) {
	_, span := s.tracer.Start(ctx, "catalog.filter_by_status",
		trace.WithAttributes(attribute.String("status", string(status))),
	)
	defer span.End()

	if !status.Valid() {
		return nil, fmt.Errorf("filter by status %q: %w", status, ErrInvalidStatus)
	}
	return FilterBooksByStatus(s.snapshot(), status), nil
}

func (s *service) GroupByGenre(ctx context.Context) []GenreGroup {
	_, span := s.tracer.Start(ctx, "catalog.group_by_genre")
	defer span.End()

	groups := GroupBooksByGenre(s.snapshot())
	span.SetAttributes(attribute.Int("genre.count", len(groups)))
	return groups
}

func (s *service) Analyze(ctx context.Context) (*Analysis, error) {
	_, span := s.tracer.Start(ctx, "catalog.analyze")
	defer span.End()

	analysis, err := Analyze(s.snapshot())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return analysis, nil
}

// Titles yields the titles of the books present when it was called.
func (s *service) Titles(ctx context.Context) iter.Seq[string] {
	_, span := s.tracer.Start(ctx, "catalog.titles")
	defer span.End()
	return BookTitles(s.snapshot())
}

func (s *service) Events(_ context.Context) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]Event, len(s.journal))
	for i, e := range s.journal {
		e.Fields = append([]string(nil), e.Fields...)
		events[i] = e
	}
	return events
}

// snapshot returns deep copies of the catalog's books.
func (s *service) snapshot() []*Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePointers(s.catalog.books)
}

// record must be called with mu held.
func (s *service) record(span trace.Span, eventType string, bookID int, fields []string) {
	e := Event{
		ID:         uuid.New(),
		Type:       eventType,
		BookID:     bookID,
		Fields:     fields,
		OccurredAt: s.now().UTC(),
	}
	s.journal = append(s.journal, e)
	span.AddEvent("journal.appended", trace.WithAttributes(
		attribute.String("event.id", e.ID.String()),
		attribute.String("event.type", e.Type),
		attribute.Int("book.id", bookID),
	))
}

// invalidateSearches must be called with mu held for writing.
func (s *service) invalidateSearches() {
	s.cacheMu.Lock()
	clear(s.searchCache)
	s.cacheMu.Unlock()
}

func cloneValues(books []Book) []*Book {
	out := make([]*Book, len(books))
	for i := range books {
		out[i] = books[i].Clone()
	}
	return out
}

func clonePointers(books []*Book) []*Book {
	if books == nil {
		return nil
	}
	out := make([]*Book, len(books))
	for i, b := range books {
		out[i] = b.Clone()
	}
	return out
}
