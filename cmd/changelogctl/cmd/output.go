package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"changelog/internal/domain/record"

	"github.com/fatih/color"
)

var (
	ordinalColor = color.New(color.FgCyan, color.Bold)
	authorColor  = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

// ordinals: самая старая активная запись - #1
func ordinals(active []record.Record) map[string]string {
	oldest := slices.Clone(active)
	record.SortNewestFirst(oldest)
	slices.Reverse(oldest)

	out := make(map[string]string, len(oldest))
	for i, r := range oldest {
		out[r.ID] = "#" + strconv.Itoa(i+1)
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecords(w io.Writer, records []record.Record, ords map[string]string) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "Записи не найдены")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "№\tАвтор\tКатегория\tСоздано\tТекст\tID\n")
	for _, r := range records {
		ord, ok := ords[r.ID]
		if !ok {
			ord = "#?"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ordinalColor.Sprint(ord),
			authorColor.Sprint(r.Author),
			r.Category,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Content, 60),
			dimColor.Sprint(r.ID),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nВсего записей: %d\n", len(records))
	return nil
}

func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return string(runes[:length-3]) + "..."
}
