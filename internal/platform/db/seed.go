package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"facultyleave/internal/domain/faculty"
	"facultyleave/internal/platform/config"
)

// Seed loads the faculty roster from the workbook at SEED_ROSTER_PATH. Without a path
// there is nothing to seed.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedRosterPath == "" {
		return nil
	}
	f, err := os.Open(cfg.SeedRosterPath)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	svc := faculty.NewService(faculty.NewStore(pool), nil, 0)
	res, err := svc.ImportRoster(ctx, f)
	if err != nil {
		return fmt.Errorf("import roster %s: %w", cfg.SeedRosterPath, err)
	}
	for _, rowErr := range res.Errors {
		slog.Warn("roster row skipped", "row", rowErr.Row, "reason", rowErr.Reason)
	}
	slog.Info("roster seeded", "path", cfg.SeedRosterPath, "imported", res.Imported, "skipped", res.Skipped)
	return nil
}
