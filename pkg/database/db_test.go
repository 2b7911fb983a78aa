package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateCreatesTitles(t *testing.T) {
	cfg := Config{Path: filepath.Join(t.TempDir(), "nested", "data.db")}

	db, err := OpenAndMigrate(cfg)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='titles'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "titles", name)

	// idempotent
	require.NoError(t, Migrate(db))
}

func TestDefaultConfigHonoursEnv(t *testing.T) {
	t.Setenv("TITLETRACK_DB_PATH", "/data/tt.db")
	assert.Equal(t, "/data/tt.db", DefaultConfig().Path)
	assert.Equal(t, "/x.db", ConfigFor("/x.db").Path)
}
