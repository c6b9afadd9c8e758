package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver "sqlite" (Go puro)

	"github.com/cipa-correagro/notas-credito/pkg/config"
)

// Dialect motor SQL del almacén.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Querier abstrae *sqlx.DB y *sqlx.Tx: los repositorios funcionan dentro y fuera de una transacción.
type Querier = sqlx.ExtContext

// DB conexión al almacén con su dialecto.
type DB struct {
	*sqlx.DB
	Dialect Dialect

	pgConfig *pgx.ConnConfig // migraciones en PostgreSQL: pool aparte
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open abre (y crea si no existe) el almacén y aplica las migraciones pendientes.
// Con DatabaseURL usa PostgreSQL; si no, SQLite en Path.
func Open(ctx context.Context, cfg config.StoreConfig) (*DB, error) {
	if cfg.DatabaseURL != "" {
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return OpenSQLite(ctx, cfg.Path)
}

// OpenSQLite abre el archivo SQLite en path creando el directorio si hace falta.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("crear directorio del almacén: %w", err)
		}
	}
	return openSQLite(ctx, path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
}

// OpenMemory almacén SQLite en memoria (tests, corridas en seco).
func OpenMemory(ctx context.Context) (*DB, error) {
	return openSQLite(ctx, ":memory:?_pragma=foreign_keys(1)")
}

func openSQLite(ctx context.Context, dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir SQLite: %w", err)
	}
	// Una sola conexión: las transacciones se serializan y la base en memoria sobrevive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("activar foreign_keys: %w", err)
	}
	return ready(ctx, &DB{DB: db, Dialect: SQLite})
}

// OpenPostgres abre PostgreSQL vía pgx (database/sql) con el codec NUMERIC -> shopspring/decimal.
func OpenPostgres(ctx context.Context, databaseURL string) (*DB, error) {
	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	sqlDB := stdlib.OpenDB(*connCfg, stdlib.OptionAfterConnect(func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}))
	db := sqlx.NewDb(sqlDB, "pgx")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
	return ready(ctx, &DB{DB: db, Dialect: Postgres, pgConfig: connCfg})
}

func ready(ctx context.Context, db *DB) (*DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
