package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnExists(t *testing.T, db *DB, table, column string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := getMigrationsFS()
	require.NoError(t, err)
	latest, err := GetLatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)
}

func TestMigrateUpDownVersion(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(migrations))
	require.NoError(t, db.MigrateUp(migrations), "second up is a no-op")
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.True(t, columnExists(t, db, "sessions", "config_json"))

	require.NoError(t, db.MigrateDown(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, columnExists(t, db, "sessions", "config_json"))
	assert.True(t, columnExists(t, db, "sessions", "fps"))

	require.NoError(t, db.MigrateTo(migrations, 2))
	status, err := db.GetMigrationStatus(migrations)
	require.NoError(t, err)
	assert.Equal(t, MigrationStatus{CurrentVersion: 2, LatestVersion: 2, SchemaMigrationsExists: true}, status)
	assert.Zero(t, status.Pending())
}

func TestRunMigrateCommand(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "cli.db")

	var out bytes.Buffer
	require.NoError(t, RunMigrateCommand([]string{"status"}, dbPath, &out))
	assert.Contains(t, out.String(), "Current version: 0")
	assert.Contains(t, out.String(), "2 migration(s) pending")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"up"}, dbPath, &out))
	assert.Contains(t, out.String(), "Current version: 2 (dirty: false)")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"version", "1"}, dbPath, &out))
	assert.Contains(t, out.String(), "Migrated to version 1")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"force", "2"}, dbPath, &out))
	require.NoError(t, RunMigrateCommand([]string{"status"}, dbPath, &out))
	assert.Contains(t, out.String(), "Current version: 2")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"help"}, dbPath, &out))
	assert.Contains(t, out.String(), "force <N>")

	for _, args := range [][]string{nil, {"sideways"}, {"version"}, {"force", "two"}, {"version", "-1"}} {
		err := RunMigrateCommand(args, dbPath, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrUsage, "args %v", args)
	}
}
