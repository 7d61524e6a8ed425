package cmd

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Статистика по записям",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		ins, err := inspector(ctx)
		if err != nil {
			return err
		}
		st, err := ins.Stats(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения статистики: %w", err)
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(w, st)
		}

		fmt.Fprintf(w, "Хранилище: %s\n", backend.Mode())
		fmt.Fprintf(w, "Активных: %s, удаленных: %d\n\n", okColor.Sprint(st.Active), st.Deleted)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Автор\tЗаписей\n")
		for _, author := range slices.Sorted(maps.Keys(st.ByAuthor)) {
			fmt.Fprintf(tw, "%s\t%d\n", authorColor.Sprint(author), st.ByAuthor[author])
		}
		fmt.Fprintf(tw, "\nКатегория\tЗаписей\n")
		for _, category := range slices.Sorted(maps.Keys(st.ByCategory)) {
			name := category
			if name == "" {
				name = dimColor.Sprint("(без категории)")
			}
			fmt.Fprintf(tw, "%s\t%d\n", name, st.ByCategory[category])
		}
		return tw.Flush()
	},
}
