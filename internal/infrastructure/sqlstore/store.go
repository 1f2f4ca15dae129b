// Package sqlstore keeps users and verification codes in PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-api-auth/internal/domain"
	"github.com/go-api-auth/internal/infrastructure/sqlstore/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sql driver name and goose dialect per configured driver.
var drivers = map[string]struct{ sqlName, dialect string }{
	DriverPostgres: {sqlName: "pgx", dialect: "pgx"},
	DriverSQLite:   {sqlName: "sqlite", dialect: "sqlite3"},
}

// Open connects and pings the database.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	d, ok := drivers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Open(d.sqlName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer; also keeps every query of a transaction on one connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Migrate applies the embedded goose migrations for driver.
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	d, ok := drivers[driver]
	if !ok {
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(d.dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, driver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Store vends repositories bound either to the pool or to one transaction.
type Store struct {
	db  *sqlx.DB // nil when bound to a transaction
	ext sqlx.ExtContext
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) Users() domain.UserRepository {
	return NewUserRepo(s.ext)
}

func (s *Store) VerificationCodes() domain.VerificationCodeRepository {
	return NewVerificationRepo(s.ext)
}

// WithTx runs fn in a transaction, committing on success and rolling back
// on error or panic. Calling WithTx on a transaction-bound Store reuses it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) (err error) {
	if s.db == nil {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, &Store{ext: tx})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...), "component", "goose")
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), "component", "goose")
	os.Exit(1)
}
