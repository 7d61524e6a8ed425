package cmd

import (
	"errors"
	"fmt"
	"time"

	"changelog/internal/infrastructure/storage"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Пометить запись удаленной",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}

		err = b.SoftDelete(ctx, args[0], time.Now().UTC().Truncate(time.Millisecond))
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("активная запись %s не найдена", args[0])
		}
		if err != nil {
			return fmt.Errorf("ошибка удаления: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s запись %s удалена\n", okColor.Sprint("✓"), args[0])
		return nil
	},
}
