package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "waypoint.db")

	db, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenSQLite_Memory(t *testing.T) {
	db, err := OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO t (id) VALUES (1)").Error)

	var count int64
	require.NoError(t, db.Table("t").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
