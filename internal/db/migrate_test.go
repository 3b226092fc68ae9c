package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_AreEmbeddedInPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	assert.Positive(t, up)
	assert.Equal(t, up, down)
}

// Account ids are Go ints; the column must hold any id the API accepts.
func TestMigrations_UserIDIsBigint(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_create_users.up.sql")
	require.NoError(t, err)

	schema := string(data)
	assert.Contains(t, schema, "id            BIGSERIAL PRIMARY KEY")
	assert.NotContains(t, schema, " SERIAL PRIMARY KEY")
}
