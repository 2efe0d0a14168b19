package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/logger"
	"go.uber.org/fx"
)

// DB wraps sqlx.DB for the expense ledger. The ledger is filled by the
// intake pipeline and only read here, so no transaction helpers are
// exposed.
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// Querier interface defines the read operations the expense ledger supports
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Module provides an fx.Option to integrate the expense ledger DB with the application
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewDB),
	)
}

// NewDB creates a new DB instance
func NewDB(config *config.Configuration, logger *logger.Logger) (*DB, error) {
	dsn := config.Postgres.GetDSN()
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(config.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	logger.Infow("connected to expense ledger",
		"host", config.Postgres.Host,
		"database", config.Postgres.DBName,
	)

	return &DB{DB: db, logger: logger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing expense ledger connection", "error", err)
	}
}

// GetQuerier returns the handle queries run against
func (db *DB) GetQuerier(ctx context.Context) Querier {
	return db.DB
}
