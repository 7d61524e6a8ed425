package migration

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockMigrator - мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)

	// Настраиваем поведение
	mockM.On("Up").Return(nil)
	mockM.On("Version").Return(uint(2), false, nil)
	mockM.On("Close").Return(nil, nil)

	// Инжектим мок через фабрику
	var gotDSN string
	engine := func(db string) (Migrator, error) {
		gotDSN = db
		return mockM, nil
	}

	mg := NewMigration("postgres://localhost/changelog", engine, slog.Default())
	version, err := mg.Up()

	assert.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.Equal(t, "postgres://localhost/changelog", gotDSN)
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Version").Return(uint(2), false, nil)
	mockM.On("Close").Return(nil, nil)

	engine := func(db string) (Migrator, error) {
		return mockM, nil
	}

	mg := NewMigration("", engine, slog.Default())
	_, err := mg.Up()

	assert.NoError(t, err)
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	mg := NewMigration("", engine, slog.Default())
	_, err := mg.Up()

	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}

func TestMigration_Up_Failure(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("syntax error"))
	mockM.On("Close").Return(nil, errors.New("conn reset"))

	engine := func(db string) (Migrator, error) {
		return mockM, nil
	}

	mg := NewMigration("", engine, slog.Default())
	_, err := mg.Up()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Contains(t, err.Error(), "conn reset")
	mockM.AssertNotCalled(t, "Version")
}

func TestMigration_NilVersionIsFine(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Version").Return(uint(0), false, migrate.ErrNilVersion)
	mockM.On("Close").Return(nil, nil)

	mg := NewMigration("", func(string) (Migrator, error) { return mockM, nil }, slog.Default())
	version, err := mg.Up()

	assert.NoError(t, err)
	assert.Zero(t, version)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	data, err := fs.ReadFile(migrationsFS, "migrations/000001_changelog_entries.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS changelog_entries")
	assert.Contains(t, string(data), "idx_changelog_entries_deleted_timestamp")

	// список и перезагрузка сортируют активные записи по "timestamp", seq
	data, err = fs.ReadFile(migrationsFS, "migrations/000003_changelog_entries_order.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), `(deleted, "timestamp" DESC, seq DESC)`)
}
