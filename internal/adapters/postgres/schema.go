package postgres_adapter

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// EnsureSchema применяет встроенные миграции по порядку имен. Все они идемпотентны (IF NOT EXISTS).
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "EnsureSchema"})

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		script, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(script)); err != nil {
			logger.Error("Failed to apply migration", err, port.Fields{"migration": name})
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		logger.Debug("Migration applied", port.Fields{"migration": name})
	}
	return nil
}
