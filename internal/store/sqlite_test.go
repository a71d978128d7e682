package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4bek4be/unrealircd/internal/logging"
)

var testMigrations = []Migration{
	{Version: 1, Name: "create things", SQL: "CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"},
	{Version: 2, Name: "add kind", SQL: "ALTER TABLE things ADD COLUMN kind TEXT NOT NULL DEFAULT ''"},
}

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log, testMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	log := logging.New(nil, "silent")
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Open(path, log, testMigrations)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.SQL().Exec("INSERT INTO things (name) VALUES ('x')")
	assert.NoError(t, err)
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(testMigrations), count)

	// The second migration's column is usable.
	_, err = db.SQL().Exec("INSERT INTO things (name, kind) VALUES ('a', 'b')")
	assert.NoError(t, err)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate(testMigrations)
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(testMigrations), count)
}

func TestMigrations_PersistAcrossReopen(t *testing.T) {
	log := logging.New(nil, "silent")
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path, log, testMigrations[:1])
	require.NoError(t, err)
	_, err = db.SQL().Exec("INSERT INTO things (name) VALUES ('kept')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening applies only the pending migration and keeps the data.
	db, err = Open(path, log, testMigrations)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.SQL().QueryRow("SELECT name FROM things").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "kept", name)
}

func TestMigrations_BadSQLRollsBack(t *testing.T) {
	log := logging.New(nil, "silent")
	_, err := Open(":memory:", log, []Migration{
		{Version: 1, Name: "broken", SQL: "CREATE TABLE ("},
	})
	require.Error(t, err)
}
