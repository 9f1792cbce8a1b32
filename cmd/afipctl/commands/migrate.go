package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// RunMigrations aplica las migraciones pendientes de dir sobre la base del registro de tenants.
func RunMigrations(log *logger.Logger, dir, databaseURL string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("ruta de migraciones: %w", err)
	}
	log.Info().Str("dir", abs).Msg("aplicando migraciones")

	m, err := migrate.New("file://"+filepath.ToSlash(abs), databaseURL)
	if err != nil {
		return fmt.Errorf("iniciar migraciones: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Error().AnErr("source_error", srcErr).AnErr("database_error", dbErr).Msg("cerrar migraciones")
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("aplicar migraciones: %w", err)
	}
	log.Info().Msg("migraciones aplicadas")
	return nil
}
