package catalog

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testEnv struct {
	svc      Service
	spans    *tracetest.InMemoryExporter
	reader   *sdkmetric.ManualReader
	logs     *bytes.Buffer
	occurred time.Time
}

func sampleValues() []Book {
	var out []Book
	for _, b := range sampleBooks() {
		out = append(out, *b)
	}
	return out
}

func newTestEnv(t *testing.T, initial []Book) *testEnv {
	t.Helper()

	env := &testEnv{
		spans:    tracetest.NewInMemoryExporter(),
		reader:   sdkmetric.NewManualReader(),
		logs:     &bytes.Buffer{},
		occurred: time.Date(2024, 11, 3, 10, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(initial,
		WithLogger(slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(env.spans))),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(env.reader))),
		WithClock(func() time.Time { return env.occurred }),
	)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (e *testEnv) spanNames() []string {
	var names []string
	for _, s := range e.spans.GetSpans() {
		names = append(names, s.Name)
	}
	return names
}

func (e *testEnv) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func (e *testEnv) gauge(t *testing.T, status string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "catalog.books" {
				continue
			}
			g, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok)
			for _, dp := range g.DataPoints {
				if v, _ := dp.Attributes.Value(attribute.Key("status")); v.AsString() == status {
					return dp.Value
				}
			}
		}
	}
	t.Fatalf("no gauge data point for status %q", status)
	return 0
}

func TestServiceAddBooks(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()

	err := env.svc.AddBooks(ctx,
		Book{ID: 5, Title: "Refactoring", Author: "Martin Fowler", Year: 1999, Genre: "Programming",
			Availability: &Availability{Status: StatusCheckedOut, DueDate: "2025-01-15"}},
		Book{ID: 6, Title: "The Pragmatic Programmer", Author: "Andy Hunt", Year: 1999, Genre: "Programming"},
	)
	require.NoError(t, err)

	assert.Equal(t, Statistics{Total: 6, Available: 2, CheckedOut: 2}, env.svc.Statistics(ctx))
	assert.Equal(t, int64(2), env.counter(t, "catalog.books.added"))
	assert.Equal(t, int64(2), env.gauge(t, "unknown"))

	events := env.svc.Events(ctx)
	require.Len(t, events, 2)
	assert.Equal(t, EventBookAdded, events[0].Type)
	assert.Equal(t, 5, events[0].BookID)
	assert.Equal(t, 6, events[1].BookID)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.Equal(t, env.occurred, events[0].OccurredAt)

	assert.Contains(t, env.spanNames(), "catalog.add_books")
	assert.Contains(t, env.logs.String(), "books added")
}

func TestServiceAddBooksCopiesInput(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	b := Book{ID: 1, Title: "Original", Availability: &Availability{Status: StatusAvailable, Location: "A1-01"}}
	require.NoError(t, env.svc.AddBooks(ctx, b))
	b.Availability.Status = StatusCheckedOut

	assert.Equal(t, Statistics{Total: 1, Available: 1}, env.svc.Statistics(ctx))
}

func TestServiceAddBooksCanceledContext(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.svc.AddBooks(ctx, Book{ID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, env.svc.Statistics(context.Background()).Total)
}

func TestServiceUpdateBook(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()

	got, err := env.svc.UpdateBook(ctx, 3, BookUpdate{
		Availability: &AvailabilityUpdate{Status: ptr(StatusAvailable), Location: ptr("A1-23")},
	})
	require.NoError(t, err)
	assert.Equal(t, &Availability{Status: StatusAvailable, Location: "A1-23"}, got.Availability)
	assert.Equal(t, Statistics{Total: 4, Available: 3, CheckedOut: 1}, env.svc.Statistics(ctx))

	got, err = env.svc.UpdateBook(ctx, 2, BookUpdate{
		Availability: &AvailabilityUpdate{Status: ptr(StatusAvailable)},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedOut, got.Availability.Status)

	events := env.svc.Events(ctx)
	require.Len(t, events, 1, "a no-op update is not journaled")
	assert.Equal(t, EventBookUpdated, events[0].Type)
	assert.Equal(t, []string{"availability.status", "availability.location"}, events[0].Fields)

	assert.Equal(t, int64(2), env.counter(t, "catalog.updates"))
	assert.Equal(t, int64(2), env.counter(t, "catalog.fields.filled"))
}

func TestServiceUpdateBookReturnsCopy(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()

	got, err := env.svc.UpdateBook(ctx, 1, BookUpdate{})
	require.NoError(t, err)
	got.Availability.Status = StatusCheckedOut

	assert.Equal(t, 2, env.svc.Statistics(ctx).Available)
}

func TestServiceUpdateBookNotFound(t *testing.T) {
	env := newTestEnv(t, sampleValues())

	_, err := env.svc.UpdateBook(context.Background(), 99, BookUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestServiceSearchMemoizedUntilMutation(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()
	criteria := SearchCriteria{Genre: "Programming"}

	first := env.svc.Search(ctx, criteria, false)
	assert.Equal(t, []int{1, 2, 4}, ids(first))

	first[0].Title = "mutated by caller"
	second := env.svc.Search(ctx, criteria, false)
	assert.Equal(t, "The Clean Coder", second[0].Title)

	require.NoError(t, env.svc.AddBooks(ctx, Book{ID: 5, Title: "Refactoring", Genre: "Programming"}))
	third := env.svc.Search(ctx, criteria, false)
	assert.Equal(t, []int{1, 2, 4, 5}, ids(third))

	var hits []bool
	for _, s := range env.spans.GetSpans() {
		if s.Name != "catalog.search" {
			continue
		}
		for _, a := range s.Attributes {
			if a.Key == "cache.hit" {
				hits = append(hits, a.Value.AsBool())
			}
		}
	}
	assert.Equal(t, []bool{false, true, false}, hits)
}

func TestServiceFilterByStatus(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()

	available, err := env.svc.FilterByStatus(ctx, StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, ids(available))

	_, err = env.svc.FilterByStatus(ctx, "lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestServiceGroupByGenre(t *testing.T) {
	env := newTestEnv(t, sampleValues())

	groups := env.svc.GroupByGenre(context.Background())
	require.Len(t, groups, 2)
	assert.Equal(t, "Programming", groups[0].Genre)
	assert.Equal(t, []int{3}, ids(groups[1].Books))
}

func TestServiceAnalyze(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()

	a, err := env.svc.Analyze(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Clean Architecture", a.MostRecent.Title)
	assert.Equal(t, 3, a.UniqueAuthors)

	empty := newTestEnv(t, nil)
	_, err = empty.svc.Analyze(ctx)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestServiceTitlesSnapshot(t *testing.T) {
	env := newTestEnv(t, sampleValues())
	ctx := context.Background()

	titles := env.svc.Titles(ctx)
	require.NoError(t, env.svc.AddBooks(ctx, Book{ID: 5, Title: "Refactoring"}))

	want := []string{"The Clean Coder", "You Don't Know JS", "Design Patterns", "Clean Architecture"}
	assert.Equal(t, want, slices.Collect(titles))
	assert.Equal(t, want, slices.Collect(titles))
	assert.Len(t, slices.Collect(env.svc.Titles(ctx)), 5)
}

func TestServiceConcurrentUse(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			status := StatusAvailable
			if i%2 == 0 {
				status = StatusCheckedOut
			}
			_ = env.svc.AddBooks(ctx, Book{ID: i, Title: "Book", Genre: "Programming",
				Availability: &Availability{Status: status}})
		}()
		go func() {
			defer wg.Done()
			env.svc.Search(ctx, SearchCriteria{Genre: "prog"}, false)
			env.svc.Statistics(ctx)
		}()
	}
	wg.Wait()

	stats := env.svc.Statistics(ctx)
	assert.Equal(t, Statistics{Total: 20, Available: 10, CheckedOut: 10}, stats)
	assert.Len(t, env.svc.Search(ctx, SearchCriteria{Genre: "prog"}, false), 20)
	assert.Len(t, env.svc.Events(ctx), 20)
}
