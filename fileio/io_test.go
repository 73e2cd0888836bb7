package fileio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tinyfs/tinyfs/datablock"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/fileio"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/internal/tinyfstest"
	"github.com/go-tinyfs/tinyfs/layout"
)

func newTestEngine(t *testing.T) (*fileio.Engine, layout.RawInode) {
	t.Helper()
	dev, sb := tinyfstest.NewFormattedDevice(t)

	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)

	file, err := inodes.Alloc(layout.InodeTypeRegular, 0644, 0, 0, 1)
	require.NoError(t, err)

	return fileio.New(dev, inodes, blocks), file
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	eng, file := newTestEngine(t)

	data := []byte("hello, tinyfs")
	file, n, err := eng.Write(file, 0, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.EqualValues(t, len(data), file.Size)

	out := make([]byte, len(data))
	n, err = eng.Read(file, 0, out)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestReadPastEndOfFileReturnsZero(t *testing.T) {
	eng, file := newTestEngine(t)
	file, _, err := eng.Write(file, 0, []byte("short"))
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := eng.Read(file, 100, buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteAcrossMultipleBlocks(t *testing.T) {
	eng, file := newTestEngine(t)

	data := make([]byte, layout.BlockSize+100)
	for i := range data {
		data[i] = byte(i)
	}

	file, n, err := eng.Write(file, 0, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.NotEqual(t, layout.UnusedPointer, file.DirectPtr[0])
	assert.NotEqual(t, layout.UnusedPointer, file.DirectPtr[1])

	out := make([]byte, len(data))
	n, err = eng.Read(file, 0, out)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestWriteAtOffsetExtendsSize(t *testing.T) {
	eng, file := newTestEngine(t)

	file, _, err := eng.Write(file, 10, []byte("tail"))
	require.NoError(t, err)
	assert.EqualValues(t, 14, file.Size)

	out := make([]byte, 4)
	n, err := eng.Read(file, 10, out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "tail", string(out))
}

func TestWriteCapsAtMaxFileSize(t *testing.T) {
	eng, file := newTestEngine(t)

	data := make([]byte, layout.MaxFileSize+500)
	file, n, err := eng.Write(file, 0, data)
	require.NoError(t, err)
	assert.Equal(t, layout.MaxFileSize, n)
	assert.EqualValues(t, layout.MaxFileSize, file.Size)
}

func TestTruncateFreesAllBlocks(t *testing.T) {
	eng, file := newTestEngine(t)

	file, _, err := eng.Write(file, 0, []byte("data to free"))
	require.NoError(t, err)
	require.NotEqual(t, layout.UnusedPointer, file.DirectPtr[0])

	file, err = eng.Truncate(file)
	require.NoError(t, err)
	assert.Zero(t, file.Size)
	for _, ptr := range file.DirectPtr {
		assert.Equal(t, layout.UnusedPointer, ptr)
	}
}

func TestWriteNoSpaceReturnsPartialCount(t *testing.T) {
	dev, sb := tinyfstest.NewFormattedDevice(t)
	// Shrink the data-bitmap's effective pool by exhausting it through the
	// store directly before handing off to the engine.
	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)

	file, err := inodes.Alloc(layout.InodeTypeRegular, 0644, 0, 0, 1)
	require.NoError(t, err)

	eng := fileio.New(dev, inodes, blocks)

	for i := uint32(0); i < sb.MaxDataBlockCount; i++ {
		_, err := blocks.Alloc()
		require.NoError(t, err)
	}

	data := []byte("will not fit")
	_, n, err := eng.Write(file, 0, data)
	assert.ErrorIs(t, err, tfserrors.ErrNoSpaceOnDevice)
	assert.Zero(t, n)
}
