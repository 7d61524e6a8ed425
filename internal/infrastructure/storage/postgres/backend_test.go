package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newMockBackend(t *testing.T) (*Backend, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	b := NewWithQuerier(mock, slog.Default())
	require.NoError(t, b.Connect(context.Background()))
	return b, mock
}

func entryRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "content", "author", "created_at", "modified_at", "deleted", "category", "seq"})
}

func TestBackend_Insert(t *testing.T) {
	ctx := context.Background()
	rec := record.New("new entry", "alice", "", 7, base)

	t.Run("success", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectExec(`INSERT INTO changelog_entries`).
			WithArgs(rec.ID, rec.Content, rec.Author, base, false, base, base, pgxmock.AnyArg(), int64(7)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, b.Insert(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectExec(`INSERT INTO changelog_entries`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := b.Insert(ctx, rec)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("connection refused", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectExec(`INSERT INTO changelog_entries`).
			WillReturnError(&pgconn.PgError{Code: "08006"})

		err := b.Insert(ctx, rec)
		assert.ErrorIs(t, err, storage.ErrUnavailable)
		assert.True(t, storage.Retryable(err))
	})
}

func TestBackend_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectExec(`SET content = \$1`).
			WithArgs("edited", base, "id-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, b.Update(ctx, "id-1", "edited", base))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown or deleted", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectExec(`SET content = \$1`).
			WithArgs("edited", base, "missing").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, b.Update(ctx, "missing", "edited", base), storage.ErrNotFound)
	})
}

func TestBackend_SoftDelete(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectExec(`SET deleted = TRUE`).
		WithArgs(base, "id-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`SET deleted = TRUE`).
		WithArgs(base, "id-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, b.SoftDelete(ctx, "id-1", base))
	assert.ErrorIs(t, b.SoftDelete(ctx, "id-1", base), storage.ErrNotFound, "second delete")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_PruneDeleted(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)
	now := base.Add(60 * 24 * time.Hour)
	b.now = func() time.Time { return now }

	cutoff := now.Add(-30 * 24 * time.Hour)
	mock.ExpectExec(`DELETE FROM changelog_entries WHERE deleted = TRUE AND modified_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM changelog_entries`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	n, err := b.PruneDeleted(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.PruneDeleted(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_LoadAll(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	// порядок совпадает с индексом (deleted, "timestamp" DESC, seq DESC)
	mock.ExpectQuery(`FROM changelog_entries\s+WHERE deleted = FALSE\s+ORDER BY "timestamp" DESC, seq DESC$`).
		WillReturnRows(entryRows().
			AddRow("b", "newer", "bob", base.Add(time.Minute), base.Add(time.Minute), false, "fix", int64(2)).
			AddRow("a", "older", "alice", base, base.Add(time.Hour), false, "", int64(1)))
	mock.ExpectQuery(`FROM changelog_lastseen`).
		WillReturnRows(pgxmock.NewRows([]string{"player_id", "timestamp"}).
			AddRow("steve", base.Add(2*time.Hour)))

	snap, err := b.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, "b", snap.Records[0].ID)
	assert.Equal(t, "fix", snap.Records[0].Category)
	assert.Equal(t, "a", snap.Records[1].ID)
	assert.Equal(t, int64(1), snap.Records[1].Seq)
	assert.True(t, snap.Visits["steve"].Equal(base.Add(2*time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_LoadAll_AuthFailure(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery(`FROM changelog_entries`).
		WillReturnError(&pgconn.PgError{Code: "28P01", Message: "password authentication failed"})

	_, err := b.LoadAll(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuth)
	assert.False(t, storage.Retryable(err))
}

func TestBackend_Visits(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectExec(`INSERT INTO changelog_lastseen`).
		WithArgs("steve", base).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`FROM changelog_lastseen WHERE player_id = \$1`).
		WithArgs("steve").
		WillReturnRows(pgxmock.NewRows([]string{"timestamp"}).AddRow(base))
	mock.ExpectQuery(`FROM changelog_lastseen WHERE player_id = \$1`).
		WithArgs("alex").
		WillReturnError(pgx.ErrNoRows)

	require.NoError(t, b.UpsertVisit(ctx, "steve", base))

	seen, ok, err := b.GetVisit(ctx, "steve")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, seen.Equal(base))

	_, ok, err = b.GetVisit(ctx, "alex")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Cooldowns(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectExec(`INSERT INTO changelog_cooldowns`).
		WithArgs("steve", "daily", base).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`FROM changelog_cooldowns`).
		WillReturnRows(pgxmock.NewRows([]string{"player_id", "reward_type", "timestamp"}).
			AddRow("steve", "daily", base).
			AddRow("steve", "weekly", base.Add(time.Hour)).
			AddRow("alex", "daily", base.Add(2*time.Hour)))

	require.NoError(t, b.UpsertCooldown(ctx, "steve", "daily", base))

	cds, err := b.LoadAllCooldowns(ctx)
	require.NoError(t, err)
	assert.Len(t, cds, 2)
	assert.Len(t, cds["steve"], 2)
	assert.True(t, cds["alex"]["daily"].Equal(base.Add(2*time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_ListByAuthor(t *testing.T) {
	b, mock := newMockBackend(t)

	mock.ExpectQuery(`FROM changelog_entries WHERE deleted = \$1 AND author = \$2 ORDER BY "timestamp" DESC, seq DESC LIMIT 5`).
		WithArgs(false, "alice").
		WillReturnRows(entryRows().
			AddRow("a", "by alice", "alice", base, base, false, "", int64(1)))

	out, err := b.ListByAuthor(context.Background(), "alice", 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "by alice", out[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Stats(t *testing.T) {
	b, mock := newMockBackend(t)

	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WillReturnRows(pgxmock.NewRows([]string{"active", "deleted"}).AddRow(3, 1))
	mock.ExpectQuery(`GROUP BY author`).
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows([]string{"author", "count"}).
			AddRow("alice", 2).
			AddRow("bob", 1))
	mock.ExpectQuery(`GROUP BY category`).
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows([]string{"category", "count"}).
			AddRow("fix", 1))

	st, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Active)
	assert.Equal(t, 1, st.Deleted)
	assert.Equal(t, map[string]int{"alice": 2, "bob": 1}, st.ByAuthor)
	assert.Equal(t, map[string]int{"fix": 1}, st.ByCategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_ClosedBackend(t *testing.T) {
	b, _ := newMockBackend(t)
	require.NoError(t, b.Close())

	err := b.Insert(context.Background(), record.New("late", "a", "", 1, base))
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestClassifyAcquire(t *testing.T) {
	deadline := context.DeadlineExceeded

	exhausted := classifyAcquire(deadline, 10, 10)
	assert.ErrorIs(t, exhausted, storage.ErrPoolExhausted)
	assert.Contains(t, exhausted.Error(), "10/10")
	assert.True(t, storage.Retryable(exhausted))

	slow := classifyAcquire(deadline, 3, 10)
	assert.ErrorIs(t, slow, storage.ErrTimeout)
	assert.NotErrorIs(t, slow, storage.ErrPoolExhausted)

	auth := classifyAcquire(&pgconn.PgError{Code: "28000"}, 0, 10)
	assert.ErrorIs(t, auth, storage.ErrAuth)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, storage.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, storage.ErrAlreadyExists},
		{"bad password", &pgconn.PgError{Code: "28P01"}, storage.ErrAuth},
		{"too many connections", &pgconn.PgError{Code: "53300"}, storage.ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, storage.ErrUnavailable},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, storage.ErrTimeout},
		{"deadline", context.DeadlineExceeded, storage.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "cause kept")
		})
	}

	assert.NoError(t, classify(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}
