package postgres

import (
	"context"
	"fmt"

	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var entryColumns = []string{
	"id", "content", "author", "created_at", "modified_at", "deleted", "COALESCE(category, '')", "seq",
}

// ListByAuthor - активные записи автора, от новых к старым (индекс по author)
func (b *Backend) ListByAuthor(ctx context.Context, author string, limit int) ([]record.Record, error) {
	return b.listWhere(ctx, sq.Eq{"author": author}, limit)
}

// ListByCategory - активные записи категории (индекс по category)
func (b *Backend) ListByCategory(ctx context.Context, category string, limit int) ([]record.Record, error) {
	return b.listWhere(ctx, sq.Eq{"category": category}, limit)
}

func (b *Backend) listWhere(ctx context.Context, where sq.Sqlizer, limit int) ([]record.Record, error) {
	qb := psql.Select(entryColumns...).
		From(tableEntries).
		Where(sq.Eq{"deleted": false}).
		Where(where).
		OrderBy(orderNewestFirst...)
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var out []record.Record
	err = b.withConn(ctx, func(q Querier) error {
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list records: %w", classify(err))
		}
		out, err = scanRecords(rows)
		if err != nil {
			return fmt.Errorf("scan records: %w", classify(err))
		}
		return nil
	})

	return out, err
}

// Stats считает активные и удаленные записи и разбивку активных по авторам и категориям
func (b *Backend) Stats(ctx context.Context) (storage.Stats, error) {
	st := storage.Stats{
		ByAuthor:   make(map[string]int),
		ByCategory: make(map[string]int),
	}

	totals, totalsArgs, err := psql.
		Select("COUNT(*) FILTER (WHERE NOT deleted)", "COUNT(*) FILTER (WHERE deleted)").
		From(tableEntries).
		ToSql()
	if err != nil {
		return st, fmt.Errorf("build stats query: %w", err)
	}

	byAuthor, byAuthorArgs, err := groupCount("author", nil).ToSql()
	if err != nil {
		return st, fmt.Errorf("build stats query: %w", err)
	}

	byCategory, byCategoryArgs, err := groupCount("category", sq.NotEq{"category": nil}).ToSql()
	if err != nil {
		return st, fmt.Errorf("build stats query: %w", err)
	}

	err = b.withConn(ctx, func(q Querier) error {
		if err := q.QueryRow(ctx, totals, totalsArgs...).Scan(&st.Active, &st.Deleted); err != nil {
			return fmt.Errorf("count records: %w", classify(err))
		}
		if err := collectCounts(ctx, q, byAuthor, byAuthorArgs, st.ByAuthor); err != nil {
			return fmt.Errorf("count by author: %w", err)
		}
		if err := collectCounts(ctx, q, byCategory, byCategoryArgs, st.ByCategory); err != nil {
			return fmt.Errorf("count by category: %w", err)
		}
		return nil
	})

	return st, err
}

func groupCount(column string, extra sq.Sqlizer) sq.SelectBuilder {
	qb := psql.Select(column, "COUNT(*)").
		From(tableEntries).
		Where(sq.Eq{"deleted": false})
	if extra != nil {
		qb = qb.Where(extra)
	}
	return qb.GroupBy(column).OrderBy(column)
}

func collectCounts(ctx context.Context, q Querier, query string, args []any, into map[string]int) error {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return classify(rows.Err())
}
