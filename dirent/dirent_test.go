package dirent_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tinyfs/tinyfs/datablock"
	"github.com/go-tinyfs/tinyfs/dirent"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/internal/tinyfstest"
	"github.com/go-tinyfs/tinyfs/layout"
)

func newTestEngine(t *testing.T) (*dirent.Engine, *inode.Store, layout.RawInode) {
	t.Helper()
	dev, sb := tinyfstest.NewFormattedDevice(t)

	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)

	dir, err := inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)

	return dirent.New(dev, inodes, blocks), inodes, dir
}

func TestAddThenFind(t *testing.T) {
	eng, _, dir := newTestEngine(t)

	dir, err := eng.Add(dir, 5, "hello.txt")
	require.NoError(t, err)

	entry, err := eng.Find(dir, "hello.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, entry.Ino)
	assert.Equal(t, "hello.txt", entry.NameString())
}

func TestAddDuplicateRejected(t *testing.T) {
	eng, _, dir := newTestEngine(t)

	dir, err := eng.Add(dir, 5, "dup")
	require.NoError(t, err)

	_, err = eng.Add(dir, 6, "dup")
	assert.ErrorIs(t, err, tfserrors.ErrExists)
}

func TestAddRejectsEmptyAndTooLongNames(t *testing.T) {
	eng, _, dir := newTestEngine(t)

	_, err := eng.Add(dir, 1, "")
	assert.ErrorIs(t, err, tfserrors.ErrInvalidArgument)

	tooLong := make([]byte, layout.MaxNameLength+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	_, err = eng.Add(dir, 1, string(tooLong))
	assert.ErrorIs(t, err, tfserrors.ErrNameTooLong)
}

func TestFindMissingReturnsNotFound(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	_, err := eng.Find(dir, "nope")
	assert.ErrorIs(t, err, tfserrors.ErrNotFound)
}

func TestRemoveThenFindFails(t *testing.T) {
	eng, _, dir := newTestEngine(t)

	dir, err := eng.Add(dir, 9, "gone")
	require.NoError(t, err)

	require.NoError(t, eng.Remove(dir, "gone"))
	_, err = eng.Find(dir, "gone")
	assert.ErrorIs(t, err, tfserrors.ErrNotFound)
}

func TestAddGrowsDirectoryAcrossPages(t *testing.T) {
	eng, _, dir := newTestEngine(t)

	entriesPerPage := layout.EntriesPerBlock
	var err error
	for i := 0; i < entriesPerPage+1; i++ {
		dir, err = eng.Add(dir, uint32(i+1), fmt.Sprintf("file-%d", i))
		require.NoError(t, err)
	}

	assert.EqualValues(t, 2*layout.BlockSize, dir.Size)
	assert.NotEqual(t, layout.UnusedPointer, dir.DirectPtr[1])
}

func TestListSkipsRemovedEntries(t *testing.T) {
	eng, _, dir := newTestEngine(t)

	dir, err := eng.Add(dir, 1, "a")
	require.NoError(t, err)
	dir, err = eng.Add(dir, 2, "b")
	require.NoError(t, err)
	require.NoError(t, eng.Remove(dir, "a"))

	entries, err := eng.List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].NameString())
}
