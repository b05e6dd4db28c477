package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/solatis/fieldcomp/internal/compose"
	"github.com/solatis/fieldcomp/internal/core/db"
	"github.com/solatis/fieldcomp/internal/ingest"
	"github.com/solatis/fieldcomp/internal/types"
)

// openStore opens --db-url and returns the definition store over it.
// The caller closes the returned database.
func openStore(ctx context.Context) (*sqlx.DB, *db.DefinitionStore, error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, db.NewDefinitionStore(queries), nil
}

// loadDefinitions reads definitions from the store when --db-url is set,
// otherwise from the configuration file. engine.datatypes filters both.
func loadDefinitions(ctx context.Context) ([]types.DefinitionConfig, error) {
	if dbURL == "" {
		return cfg.Definitions, nil
	}

	database, store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	if len(cfg.Engine.Datatypes) == 0 {
		return store.List(ctx, "")
	}
	var out []types.DefinitionConfig
	for _, dt := range cfg.Engine.Datatypes {
		defs, err := store.List(ctx, dt)
		if err != nil {
			return nil, err
		}
		out = append(out, defs...)
	}
	return out, nil
}

// newProcessor compiles the active definitions into a record processor.
func newProcessor(ctx context.Context) (*ingest.Processor, error) {
	defs, err := loadDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	table, err := compose.BuildTable(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid definitions: %w", err)
	}

	onConflict, err := ingest.ParseOnConflict(cfg.Engine.OnConflict)
	if err != nil {
		return nil, err
	}

	log.Info("definitions loaded",
		zap.Int("definitions", table.Len()),
		zap.Strings("datatypes", table.Datatypes()),
		zap.String("on_conflict", onConflict.String()))

	return ingest.NewProcessor(
		compose.NewEngine(table, nil),
		ingest.TextNormalizer{},
		ingest.WithOnConflict(onConflict),
		ingest.WithLogger(log),
	), nil
}
