package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestSchemaCoversStoredTables(t *testing.T) {
	snap, err := fs.ReadFile(FS, "000001_snapshots.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(snap), "CREATE TABLE IF NOT EXISTS snapshots")

	auditSQL, err := fs.ReadFile(FS, "000002_audit_log.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(auditSQL), "details    JSONB")
}
