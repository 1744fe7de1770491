package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)

		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM games").Scan(&count))
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestClose_Twice(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestOpen_SchemaTables(t *testing.T) {
	s := createTestStore(t)

	for _, table := range []string{"games", "moves", "snapshots", "trigger_log"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}
