// Package migrations applies the embedded schema with golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var files embed.FS

func newMigrate(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// Up applies all pending migrations. databaseURL uses the pgx:// scheme.
func Up(ctx context.Context, databaseURL string) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Ctx(ctx).Info().Msg("schema is up to date")
			return nil
		}
		return err
	}
	version, dirty, _ := m.Version()
	log.Ctx(ctx).Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	return nil
}

// Down reverts every migration.
func Down(ctx context.Context, databaseURL string) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Ctx(ctx).Info().Msg("schema reverted")
	return nil
}
