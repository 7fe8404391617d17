package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurmdbdops/internal/dbdconf"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	content := `
DebugLevel: debug5
CommitDelay: "1"
PurgeJobAfter: 12month
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	overrides, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug5", overrides[dbdconf.DebugLevel])
	assert.Equal(t, "1", overrides[dbdconf.CommitDelay])
	assert.Equal(t, "12month", overrides[dbdconf.PurgeJobAfter])
	assert.Len(t, overrides, 3)
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("NotAKey: x\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized slurmdbd configuration option")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
