package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
)

// Un directorio por dialecto. Nunca se reescribe un paso publicado; se agrega uno nuevo.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embeddedMigrations embed.FS

const (
	migrationsDir   = "migrations"
	migrationsTable = "schema_migrations"
	// legacyVersion esquema de la versión anterior de la aplicación (clave por factura y producto).
	legacyVersion = 1
)

// LatestVersion versión de esquema que deja Migrate.
func LatestVersion() int {
	names, _ := fs.Glob(embeddedMigrations, path.Join(migrationsDir, string(SQLite), "*.up.sql"))
	latest := 0
	for _, name := range names {
		prefix, _, _ := strings.Cut(path.Base(name), "_")
		if v, err := strconv.Atoi(prefix); err == nil && v > latest {
			latest = v
		}
	}
	return latest
}

// Migrate aplica en orden las migraciones pendientes. Es idempotente.
// Una base creada por la versión anterior de la aplicación (tablas sin schema_migrations)
// se marca como versión 1 para que el paso 2 reescriba su clave.
func Migrate(ctx context.Context, db *DB) error {
	m, release, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer release()

	if _, _, err := m.Version(); errors.Is(err, migrate.ErrNilVersion) {
		legacy, err := tableExists(ctx, db, "invoice_lines")
		if err != nil {
			return err
		}
		if legacy {
			if err := m.Force(legacyVersion); err != nil {
				return fmt.Errorf("marcar esquema legacy: %w", err)
			}
		}
	} else if err != nil {
		return fmt.Errorf("leer versión de esquema: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("aplicar migraciones: %w", err)
	}
	return nil
}

// newMigrator arma el migrador sobre las migraciones embebidas del dialecto.
// En SQLite usa la misma conexión (la base en memoria vive en ella) y no se cierra:
// Close del driver cerraría el *sql.DB compartido. En PostgreSQL el driver retiene una
// conexión propia para el advisory lock, así que corre sobre un pool aparte que se
// libera al terminar.
func newMigrator(db *DB) (*migrate.Migrate, func(), error) {
	sub, err := fs.Sub(embeddedMigrations, path.Join(migrationsDir, string(db.Dialect)))
	if err != nil {
		return nil, nil, fmt.Errorf("abrir migraciones: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("crear fuente de migraciones: %w", err)
	}

	var (
		driver  database.Driver
		release = func() {}
	)
	switch db.Dialect {
	case Postgres:
		instance := db.DB.DB
		if db.pgConfig != nil {
			instance = stdlib.OpenDB(*db.pgConfig)
		}
		driver, err = postgres.WithInstance(instance, &postgres.Config{MigrationsTable: migrationsTable})
		if err != nil {
			closeDedicated(db, instance)
			return nil, nil, fmt.Errorf("crear driver de migración: %w", err)
		}
		release = func() {
			if db.pgConfig != nil {
				_ = driver.Close()
				closeDedicated(db, instance)
			}
		}
	default:
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{MigrationsTable: migrationsTable})
		if err != nil {
			return nil, nil, fmt.Errorf("crear driver de migración: %w", err)
		}
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.Dialect), driver)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("crear migrador: %w", err)
	}
	return m, release, nil
}

func closeDedicated(db *DB, instance *sql.DB) {
	if instance != db.DB.DB {
		_ = instance.Close()
	}
}

// SchemaVersion versión aplicada (0 si no hay ninguna). Un esquema dirty es un error:
// una migración quedó a medias y hay que revisarla a mano.
func SchemaVersion(ctx context.Context, db *DB) (int, error) {
	var row struct {
		Version int64 `db:"version"`
		Dirty   bool  `db:"dirty"`
	}
	err := db.GetContext(ctx, &row, `SELECT version, dirty FROM `+migrationsTable+` LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("leer %s: %w", migrationsTable, err)
	case row.Dirty:
		return int(row.Version), fmt.Errorf("esquema en versión %d marcado dirty", row.Version)
	}
	return int(row.Version), nil
}

func tableExists(ctx context.Context, db *DB, table string) (bool, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if db.Dialect == Postgres {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	var n int
	if err := db.GetContext(ctx, &n, db.Rebind(query), table); err != nil {
		return false, fmt.Errorf("inspeccionar tabla %s: %w", table, err)
	}
	return n > 0, nil
}
