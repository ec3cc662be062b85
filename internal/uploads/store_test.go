package uploads

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndOverwrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "mirror")
	s := NewStore(dir)

	path, err := s.Save("passport", "acc-1", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passport_acc-1.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	// A second save replaces the previous mirror.
	_, err = s.Save("passport", "acc-1", []byte("v2"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestStore_PathIsDeterministic(t *testing.T) {
	t.Parallel()

	s := NewStore("uploads")
	assert.Equal(t, filepath.Join("uploads", "visa_acc-2.pdf"), s.Path("visa", "acc-2"))
}
