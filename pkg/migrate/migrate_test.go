package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRunAppliesEmbeddedMigrations(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, "sqlite3", "", "up"))

	var name string
	row := sqlDB.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='session_state'")
	require.NoError(t, row.Scan(&name))
	require.Equal(t, "session_state", name)

	require.NoError(t, Run(ctx, sqlDB, "sqlite3", "", "down"))
	row = sqlDB.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name='session_state'")
	var count int
	require.NoError(t, row.Scan(&count))
	require.Zero(t, count)
}

func TestRunRequiresDB(t *testing.T) {
	require.Error(t, Run(context.Background(), nil, "sqlite3", "", "up"))
}

func TestMigrateToVersionRejectsBadVersion(t *testing.T) {
	require.Error(t, MigrateToVersion(context.Background(), nil, "sqlite3", "", ""))
	require.Error(t, MigrateToVersion(context.Background(), nil, "sqlite3", "", "latest"))
}

func TestShippedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
	require.NoError(t, ValidateDir(embeddedDir))
}

func TestSessionStateMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(embeddedDir, "*_create_session_state_table.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS session_state",
		"PRIMARY KEY (session_id, state_key)",
		"CREATE INDEX IF NOT EXISTS idx_session_state_expires_at",
		"DROP TABLE IF EXISTS session_state",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Cart Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_cart_index.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestCreateSQLMigrationBumpsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	future := filepath.Join(dir, "99990101000000_future.sql")
	require.NoError(t, os.WriteFile(future, []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := CreateSQLMigration(dir, "next")
	require.NoError(t, err)
	require.Equal(t, "99990101000001_next.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))
}

func TestValidateDirRejectsMissingDownSection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}
