package cache

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: gutendex, or all" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	tables, err := tablesFor(i.Source)
	if err != nil {
		return err
	}

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	slog.Info("Invalidating cache", "source", i.Source, "database", cacheInstance.Path())

	var total int64
	for _, table := range tables {
		rowsDeleted, err := cacheInstance.InvalidateSource(table)
		if err != nil {
			return fmt.Errorf("failed to invalidate cache: %w", err)
		}
		total += rowsDeleted
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", total)
	return nil
}

// PruneCacheCmd removes entries older than the configured TTL
type PruneCacheCmd struct{}

func (p *PruneCacheCmd) Run() error {
	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	ttl := TTLFromConfig()
	var total int64
	for _, table := range slices.Sorted(maps.Values(SourceTables)) {
		rows, err := cacheInstance.ClearExpired(table, ttl)
		if err != nil {
			return err
		}
		total += rows
	}

	slog.Info("Cache pruned", "ttl", ttl, "rows_deleted", total)
	return nil
}

func tablesFor(source string) ([]string, error) {
	if source == "all" {
		return slices.Sorted(maps.Values(SourceTables)), nil
	}
	table, ok := SourceTables[source]
	if !ok {
		valid := slices.Sorted(maps.Keys(SourceTables))
		return nil, fmt.Errorf("invalid cache source '%s'; valid sources are: %s, all", source, strings.Join(valid, ", "))
	}
	return []string{table}, nil
}
