package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed sql/0*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations. Goose tracks versions in
// the database, so running it on every startup is idempotent. Migrations run
// through a short-lived database/sql connection because goose speaks that
// interface; the collector itself uses the pgx pool.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	subFS, err := fs.Sub(migrations, "sql")
	if err != nil {
		return fmt.Errorf("create sub filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, subFS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply schema migrations: %w", err)
	}
	return nil
}
