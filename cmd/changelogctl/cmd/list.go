package cmd

import (
	"fmt"

	"changelog/internal/domain/record"

	"github.com/spf13/cobra"
)

var (
	listAuthor   string
	listCategory string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список активных записей, от новых к старым",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}

		snap, err := b.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("ошибка загрузки записей: %w", err)
		}
		ords := ordinals(snap.Records)

		records := snap.Records
		switch {
		case listAuthor != "" || listCategory != "":
			ins, err := inspector(ctx)
			if err != nil {
				return err
			}
			if listAuthor != "" {
				records, err = ins.ListByAuthor(ctx, listAuthor, listLimit)
			} else {
				records, err = ins.ListByCategory(ctx, listCategory, listLimit)
			}
			if err != nil {
				return fmt.Errorf("ошибка поиска записей: %w", err)
			}
			if listAuthor != "" && listCategory != "" {
				records = filterCategory(records, listCategory)
			}
		case listLimit > 0 && len(records) > listLimit:
			records = records[:listLimit]
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), records)
		}
		return printRecords(cmd.OutOrStdout(), records, ords)
	},
}

func filterCategory(records []record.Record, category string) []record.Record {
	out := records[:0:0]
	for _, r := range records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func init() {
	listCmd.Flags().StringVarP(&listAuthor, "author", "a", "", "только записи автора")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "только записи категории")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "ограничение количества записей")
}
