package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var gcDays int

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Физически удалить записи, удаленные дольше срока хранения",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		days := gcDays
		if days <= 0 {
			days = cfg.GC.RetentionDays
		}

		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		n, err := b.PruneDeleted(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			return fmt.Errorf("ошибка очистки: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]int{"removed": n, "retention_days": days})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s удалено записей: %d (срок хранения %d дн.)\n", okColor.Sprint("✓"), n, days)
		return nil
	},
}

func init() {
	gcCmd.Flags().IntVar(&gcDays, "days", 0, "срок хранения в днях (по умолчанию gc.retention_days)")
}
