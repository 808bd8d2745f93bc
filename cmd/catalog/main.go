// cmd/catalog/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"

	"bookshelf/internal/catalog"
	"bookshelf/internal/config"
	"bookshelf/internal/seed"
	"bookshelf/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger()

	if err := run(context.Background(), cfg, logger, os.Stdout); err != nil {
		logger.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	providers, err := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	ds, err := seed.LoadFile(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("load seed data: %w", err)
	}

	svc, err := catalog.NewService(ds.Books, catalog.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create catalog service: %w", err)
	}
	logger.Info("catalog ready", "books", len(ds.Books), "genres", len(ds.Genres))

	return demo(ctx, svc, ds, jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out))
}

type encoder interface {
	SetIndent(prefix, indent string)
	Encode(v interface{}) error
}

type section struct {
	Section string      `json:"section"`
	Data    interface{} `json:"data"`
}

type genreView struct {
	catalog.GenreGroup
	Description string `json:"description,omitempty"`
}

func demo(ctx context.Context, svc catalog.Service, ds *seed.Dataset, enc encoder) error {
	enc.SetIndent("", "  ")
	emit := func(name string, data interface{}) error {
		if err := enc.Encode(section{Section: name, Data: data}); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	if err := emit("statistics", svc.Statistics(ctx)); err != nil {
		return err
	}

	available, err := svc.FilterByStatus(ctx, catalog.StatusAvailable)
	if err != nil {
		return err
	}
	if err := emit("available", available); err != nil {
		return err
	}

	var groups []genreView
	for _, g := range svc.GroupByGenre(ctx) {
		desc, _ := ds.Describe(g.Genre)
		groups = append(groups, genreView{GenreGroup: g, Description: desc})
	}
	if err := emit("genres", groups); err != nil {
		return err
	}

	if err := emit("search", svc.Search(ctx, catalog.SearchCriteria{Genre: "Programming"}, false)); err != nil {
		return err
	}

	if err := emit("titles", slices.Collect(svc.Titles(ctx))); err != nil {
		return err
	}

	analysis, err := svc.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analyze catalog: %w", err)
	}
	if err := emit("analysis", analysis); err != nil {
		return err
	}

	status, location := catalog.StatusAvailable, "A1-23"
	for _, b := range ds.Books {
		if b.Availability != nil {
			continue
		}
		updated, err := svc.UpdateBook(ctx, b.ID, catalog.BookUpdate{
			Availability: &catalog.AvailabilityUpdate{Status: &status, Location: &location},
		})
		if err != nil {
			return err
		}
		if err := emit("updated", updated); err != nil {
			return err
		}
	}

	if err := emit("statistics", svc.Statistics(ctx)); err != nil {
		return err
	}
	return emit("events", svc.Events(ctx))
}
