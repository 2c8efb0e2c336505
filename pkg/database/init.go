package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EnsureDatabases creates each named database on the server behind server
// when it does not exist yet. It connects through the postgres database.
func EnsureDatabases(ctx context.Context, server Config, names []string) error {
	if len(names) == 0 {
		return errors.New("no database names configured")
	}
	conn, err := connect(ctx, server.Maintenance())
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, name := range names {
		created, err := createIfMissing(ctx, conn, name)
		if err != nil {
			return fmt.Errorf("database %q: %w", name, err)
		}
		if created {
			slog.InfoContext(ctx, "database created", "name", name)
		}
	}
	return nil
}

func createIfMissing(ctx context.Context, conn *sqlx.DB, name string) (bool, error) {
	var exists bool
	if err := conn.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	// CREATE DATABASE takes no bind parameters.
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, err
	}
	return true, nil
}
