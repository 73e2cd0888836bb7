// Package tinyfstest provides shared fixtures for package tests: an
// in-memory block device, pre-formatted with a valid superblock, the way
// package testing's LoadDiskImage gives the teacher's driver tests a ready
// stream to mount.
package tinyfstest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/go-tinyfs/tinyfs/blockio"
	"github.com/go-tinyfs/tinyfs/layout"
)

// DefaultInodeCount and DefaultDataBlockCount size the small images these
// helpers build; big enough to exercise allocation exhaustion without
// slowing tests down.
const (
	DefaultInodeCount     = 32
	DefaultDataBlockCount = 64
)

// NewBlankDevice returns an unformatted in-memory device sized to hold the
// superblock, both bitmaps, the inode table, and the data region for
// inodeCount inodes and dataBlockCount data blocks.
func NewBlankDevice(t *testing.T, inodeCount, dataBlockCount uint32) *blockio.Device {
	t.Helper()

	inodeTableBlocks := (inodeCount + layout.NumInodesPerBlock - 1) / layout.NumInodesPerBlock
	totalBlocks := 3 + inodeTableBlocks + dataBlockCount // superblock + 2 bitmaps + inode table + data

	backing := make([]byte, int(totalBlocks)*layout.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(backing)
	return blockio.Wrap(stream, totalBlocks)
}

// DefaultSuperblock returns the superblock layout for an image of
// DefaultInodeCount inodes and DefaultDataBlockCount data blocks.
func DefaultSuperblock() layout.RawSuperblock {
	return Superblock(DefaultInodeCount, DefaultDataBlockCount)
}

// Superblock computes the superblock record for a from-scratch image with
// inodeCount inodes and dataBlockCount data blocks, laid out contiguously:
// superblock, inode bitmap, data bitmap, inode table, data region.
func Superblock(inodeCount, dataBlockCount uint32) layout.RawSuperblock {
	inodeTableBlocks := (inodeCount + layout.NumInodesPerBlock - 1) / layout.NumInodesPerBlock
	inodeStart := uint32(layout.DataBitmapBlock + 1)

	return layout.RawSuperblock{
		MagicNumber:       layout.MagicNumber,
		MaxInodeCount:     inodeCount,
		MaxDataBlockCount: dataBlockCount,
		InodeBitmapBlock:  layout.InodeBitmapBlock,
		DataBitmapBlock:   layout.DataBitmapBlock,
		InodeStartBlock:   inodeStart,
		DataStartBlock:    inodeStart + inodeTableBlocks,
	}
}

// NewFormattedDevice returns a device with DefaultSuperblock already written
// to block 0, and both bitmaps zeroed, ready for inode.Init/datablock.Init.
func NewFormattedDevice(t *testing.T) (*blockio.Device, layout.RawSuperblock) {
	t.Helper()

	sb := DefaultSuperblock()
	dev := NewBlankDevice(t, sb.MaxInodeCount, sb.MaxDataBlockCount)

	require.NoError(t, dev.WriteBlock(0, sb.Encode()))

	emptyBitmap := make([]byte, layout.BlockSize)
	require.NoError(t, dev.WriteBlock(layout.InodeBitmapBlock, emptyBitmap))
	require.NoError(t, dev.WriteBlock(layout.DataBitmapBlock, emptyBitmap))

	return dev, sb
}
