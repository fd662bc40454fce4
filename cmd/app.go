package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/gutenshelf/internal/cache"
	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/config"
	"github.com/lepinkainen/gutenshelf/internal/datastore"
	"github.com/lepinkainen/gutenshelf/internal/gutendex"
	"github.com/lepinkainen/gutenshelf/internal/library"
	"github.com/lepinkainen/gutenshelf/internal/ratelimit"
	"github.com/lepinkainen/gutenshelf/internal/reconcile"
	"github.com/lepinkainen/gutenshelf/internal/tui"
)

// app bundles what a command needs: the opened store, the service built on
// it and the interactive chooser.
type app struct {
	store   datastore.Store
	service *library.Service
	choose  library.Chooser
}

// openApp is swapped in tests.
var openApp = newApp

func newApp(ctx context.Context) (*app, error) {
	matching, err := catalog.ParseNameMatching(config.NameMatching)
	if err != nil {
		return nil, err
	}

	store, err := datastore.Open(ctx, config.CatalogDriver, config.CatalogDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := store.EnsureNameMatching(ctx, matching); err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := reconcile.New(store,
		reconcile.WithResolver(catalog.NewResolver(matching)),
		reconcile.WithRunLog(store),
	)

	return &app{
		store:   store,
		service: library.NewService(store, newSource(), engine),
		choose:  tui.ChooseBook,
	}, nil
}

func newSource() *gutendex.Client {
	src := config.SourceSettings()
	opts := []gutendex.Option{
		gutendex.WithBaseURL(src.BaseURL),
		gutendex.WithTimeout(src.Timeout),
		gutendex.WithUserAgent(src.UserAgent),
		gutendex.WithRateLimiter(sourceLimiter(src.RatePerSecond)),
	}

	if config.CacheEnabled() {
		c, err := cache.GetGlobalCache()
		if err != nil {
			slog.Warn("Response cache unavailable, continuing without it", "error", err)
		} else {
			opts = append(opts, gutendex.WithCache(c, cache.TTLFromConfig()))
		}
	}

	return gutendex.NewClient(opts...)
}

// sourceLimiter converts a possibly fractional rate into a limiter.
// A non-positive rate disables limiting.
func sourceLimiter(perSecond float64) *ratelimit.Limiter {
	if perSecond <= 0 {
		return ratelimit.New("Gutendex", 0)
	}
	return ratelimit.Every("Gutendex", time.Duration(float64(time.Second)/perSecond))
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close catalog", "error", err)
	}
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
