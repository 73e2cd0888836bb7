package gateway_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tinyfs/tinyfs/gateway"
	"github.com/go-tinyfs/tinyfs/tinyfs"
)

func TestAdapterSatisfiesFSOperations(t *testing.T) {
	var _ gateway.FSOperations = (*gateway.Adapter)(nil)

	fs, err := tinyfs.Mkfs(filepath.Join(t.TempDir(), "image.tfs"), 32, 64)
	require.NoError(t, err)
	defer fs.Unmount()

	adapter := gateway.New(fs)
	require.NoError(t, adapter.Create("/a.txt"))

	stat, err := adapter.GetAttr("/a.txt")
	require.NoError(t, err)
	assert.True(t, stat.IsFile())
}
