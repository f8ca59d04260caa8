package db

import (
	"errors"
	"io/fs"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactDSN(t *testing.T) {
	got := redactDSN("postgres://notes:hunter2@db:5432/notes?sslmode=disable")
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "@db:5432/notes")
}

func TestExtractDBName(t *testing.T) {
	u, err := url.Parse("postgres://u@h/notes?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "notes", extractDBName(u))
	assert.Equal(t, "", extractDBName(nil))
}

func TestIsDatabaseDoesNotExist(t *testing.T) {
	assert.True(t, isDatabaseDoesNotExist(errors.New(`pq: database "notes" does not exist`)))
	assert.False(t, isDatabaseDoesNotExist(errors.New("connection refused")))
	assert.False(t, isDatabaseDoesNotExist(nil))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_init.sql", entries[0].Name())
}
