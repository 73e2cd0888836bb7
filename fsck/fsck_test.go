package fsck_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tinyfs/tinyfs/datablock"
	"github.com/go-tinyfs/tinyfs/dirent"
	"github.com/go-tinyfs/tinyfs/fsck"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/internal/tinyfstest"
	"github.com/go-tinyfs/tinyfs/layout"
)

func TestCheckConsistencyCleanImage(t *testing.T) {
	dev, sb := tinyfstest.NewFormattedDevice(t)
	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)

	root, err := inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)
	rootBlock, err := blocks.Alloc()
	require.NoError(t, err)
	require.NoError(t, dev.WriteBlock(blocks.AbsoluteBlock(rootBlock), make([]byte, layout.BlockSize)))
	root.DirectPtr[0] = int32(rootBlock)
	root.Size = layout.BlockSize
	require.NoError(t, inodes.Write(root))

	assert.NoError(t, fsck.CheckConsistency(dev, sb, inodes, blocks))
}

func TestCheckConsistencyDetectsOrphanedDirectPointer(t *testing.T) {
	dev, sb := tinyfstest.NewFormattedDevice(t)
	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)

	root, err := inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)
	root.DirectPtr[0] = 0 // relative index 0, never allocated via blocks.Alloc
	require.NoError(t, inodes.Write(root))

	err = fsck.CheckConsistency(dev, sb, inodes, blocks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid allocated data block")
}

func TestDumpInodeTableProducesCSVHeader(t *testing.T) {
	dev, sb := tinyfstest.NewFormattedDevice(t)
	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	_, err = inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, fsck.DumpInodeTable(&buf, sb, inodes))

	out := buf.String()
	assert.Contains(t, out, "ino")
	assert.Contains(t, out, "is_dir")
}

func TestCheckConsistencyDetectsDuplicateDirectoryEntries(t *testing.T) {
	dev, sb := tinyfstest.NewFormattedDevice(t)
	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)
	dirs := dirent.New(dev, inodes, blocks)

	root, err := inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)
	child, err := inodes.Alloc(layout.InodeTypeRegular, 0644, 0, 0, 1)
	require.NoError(t, err)

	root, err = dirs.Add(root, child.Ino, "a")
	require.NoError(t, err)
	require.NoError(t, inodes.Write(root))

	// Forge a second "a" entry directly on disk to simulate corruption that
	// dir_add's own duplicate check would normally prevent.
	buf := make([]byte, layout.BlockSize)
	absoluteBlock := blocks.AbsoluteBlock(uint32(root.DirectPtr[0]))
	require.NoError(t, dev.ReadBlock(absoluteBlock, buf))
	dup := layout.RawDirent{Valid: 1, Ino: child.Ino}
	dup.SetName("a")
	copy(buf[layout.DirentSize:], dup.Encode())
	require.NoError(t, dev.WriteBlock(absoluteBlock, buf))

	err = fsck.CheckConsistency(dev, sb, inodes, blocks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate directory entry")
}
