package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/zanzhit/flameguard/internal/config"
)

const SubmissionsTable = "submissions"

func New(ctx context.Context, cfg config.DB) (*sqlx.DB, error) {
	return Connect(ctx, fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.DBName, cfg.Password, cfg.SSLMode))
}

func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	const op = "storage.postgres.Connect"

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return db, nil
}

// MigrationURL is the DSN golang-migrate expects for cfg.
func MigrationURL(cfg config.DB, migrationsTable string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&x-migrations-table=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode, migrationsTable)
}
