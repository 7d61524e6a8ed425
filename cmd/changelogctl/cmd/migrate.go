package cmd

import (
	"errors"
	"fmt"

	"changelog/internal/config"
	"changelog/internal/infrastructure/migration"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции схемы PostgreSQL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Storage.Type != config.StoragePostgres || cfg.Database.DSN == "" {
			return errors.New("миграции нужны только для storage.type=postgres с заданным database.dsn")
		}

		version, err := migration.NewMigration(cfg.Database.DSN, nil, log).Up()
		if err != nil {
			return fmt.Errorf("ошибка миграции: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s схема на версии %d\n", okColor.Sprint("✓"), version)
		return nil
	},
}
