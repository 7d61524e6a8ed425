package cmd

import (
	"fmt"
	"strings"
	"time"

	"changelog/internal/domain/record"

	"github.com/spf13/cobra"
)

var (
	addAuthor   string
	addCategory string
)

var addCmd = &cobra.Command{
	Use:   "add <текст>",
	Short: "Добавить запись",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		v := record.NewValidator(cfg.Limits.MinContentLength, cfg.Limits.MaxContentLength)
		content, err := v.Content(strings.Join(args, " "))
		if err != nil {
			return err
		}
		category, err := v.Category(addCategory)
		if err != nil {
			return err
		}

		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		snap, err := b.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("ошибка загрузки записей: %w", err)
		}

		var seq int64
		for _, r := range snap.Records {
			seq = max(seq, r.Seq)
		}

		rec := record.New(content, addAuthor, category, seq+1, time.Now().UTC().Truncate(time.Millisecond))
		if err := b.Insert(ctx, rec); err != nil {
			return fmt.Errorf("ошибка сохранения записи: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s запись %s добавлена как %s\n",
			okColor.Sprint("✓"), rec.ID, ordinalColor.Sprintf("#%d", len(snap.Records)+1))
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addAuthor, "author", "a", "console", "автор записи")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "категория")
}
