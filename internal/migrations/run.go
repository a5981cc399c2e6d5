// Package migrations применяет SQL-миграции схемы к базе PostgreSQL.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// Источник миграций из файловой системы.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtySchema означает, что прошлая миграция оборвалась и схему нужно чинить вручную.
var ErrDirtySchema = errors.New("schema is dirty")

// Run накатывает все миграции из каталога path и возвращает версию схемы.
// Повторный запуск без новых миграций не считается ошибкой.
func Run(db *sql.DB, path string) (uint, error) {
	const op = "migrations.Run"

	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "pgx_v5", driver)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return uint(dirty.Version), fmt.Errorf("%s: %w at version %d", op, ErrDirtySchema, dirty.Version)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return version, nil
}
