package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mbolis/formforge/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	db, err := Open(config.Config{
		DBUrl: filepath.Join(t.TempDir(), "test.sqlite"),
	})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	// pin the connection that ran the migrations so the query below is
	// served by a fresh one from the pool
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:app.sqlite?_foreign_keys=on", dsn("app.sqlite"))
	assert.Equal(t, "file:app.sqlite?cache=shared&_foreign_keys=on", dsn("file:app.sqlite?cache=shared"))
}
