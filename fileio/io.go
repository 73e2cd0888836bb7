// Package fileio implements block-granular read and write over a regular
// file's direct pointer table, extending the file by allocating new data
// blocks as a write demands them.
package fileio

import (
	"github.com/go-tinyfs/tinyfs/blockio"
	"github.com/go-tinyfs/tinyfs/datablock"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/layout"
)

// Engine reads and writes regular-file content addressed by an inode's
// direct pointer table.
type Engine struct {
	dev    *blockio.Device
	inodes *inode.Store
	blocks *datablock.Store
}

// New builds a file I/O Engine over the given stores.
func New(dev *blockio.Device, inodes *inode.Store, blocks *datablock.Store) *Engine {
	return &Engine{dev: dev, inodes: inodes, blocks: blocks}
}

// Read copies up to len(buf) bytes starting at offset into buf, clamped to
// the file's current size, and returns the number of bytes copied. Reading
// at or past the end of the file returns 0 with no error.
func (e *Engine) Read(file layout.RawInode, offset int64, buf []byte) (int, error) {
	if offset >= int64(file.Size) {
		return 0, nil
	}

	end := offset + int64(len(buf))
	if end > int64(file.Size) {
		end = int64(file.Size)
	}

	blockBuf := make([]byte, layout.BlockSize)
	totalRead := 0

	firstBlock := offset / layout.BlockSize
	lastBlock := (end - 1) / layout.BlockSize

	for i := firstBlock; i <= lastBlock; i++ {
		ptr := file.DirectPtr[i]
		blockStart := i * layout.BlockSize
		blockEnd := blockStart + layout.BlockSize

		copyStart := maxInt64(offset, blockStart)
		copyEnd := minInt64(end, blockEnd)

		if ptr == layout.UnusedPointer {
			// A hole: treated as zero-filled, matching the teacher's
			// zero-initialized pages convention elsewhere.
			dstStart := copyStart - offset
			dstEnd := copyEnd - offset
			for j := dstStart; j < dstEnd; j++ {
				buf[j] = 0
			}
			totalRead += int(copyEnd - copyStart)
			continue
		}

		if err := e.dev.ReadBlock(e.blocks.AbsoluteBlock(uint32(ptr)), blockBuf); err != nil {
			return totalRead, tfserrors.ErrIOFailed.Wrap(err)
		}

		srcStart := copyStart - blockStart
		srcEnd := copyEnd - blockStart
		dstStart := copyStart - offset
		dstEnd := copyEnd - offset
		copy(buf[dstStart:dstEnd], blockBuf[srcStart:srcEnd])
		totalRead += int(copyEnd - copyStart)
	}

	return totalRead, nil
}

// Write writes data starting at offset into file, allocating new data blocks
// as needed, and returns the file's updated inode record along with the
// number of bytes actually written. If the write would extend the file past
// layout.MaxFileSize, it is capped at the last direct-pointer-addressable
// byte and a short write is returned with no error — matching the spec's
// "cap at block 15, return the partial count" rule.
func (e *Engine) Write(file layout.RawInode, offset int64, data []byte) (layout.RawInode, int, error) {
	if len(data) == 0 {
		return file, 0, nil
	}

	end := offset + int64(len(data))
	written := len(data)
	if end > layout.MaxFileSize {
		end = layout.MaxFileSize
		written = int(end - offset)
		if written < 0 {
			written = 0
		}
	}
	if written == 0 {
		return file, 0, nil
	}

	blockBuf := make([]byte, layout.BlockSize)
	firstBlock := offset / layout.BlockSize
	lastBlock := (end - 1) / layout.BlockSize
	bytesWritten := 0

	for i := firstBlock; i <= lastBlock; i++ {
		if file.DirectPtr[i] == layout.UnusedPointer {
			newBlock, err := e.blocks.Alloc()
			if err != nil {
				// Persist whatever blocks were already allocated and
				// written before the allocator ran dry, and report the
				// partial count — per the spec's short-write convention.
				if uint64(offset)+uint64(bytesWritten) > file.Size {
					file.Size = uint64(offset) + uint64(bytesWritten)
				}
				if savedErr := e.inodes.Write(file); savedErr != nil {
					return file, bytesWritten, savedErr
				}
				return file, bytesWritten, err
			}
			if err := e.dev.WriteBlock(e.blocks.AbsoluteBlock(newBlock), make([]byte, layout.BlockSize)); err != nil {
				return file, bytesWritten, tfserrors.ErrIOFailed.Wrap(err)
			}
			file.DirectPtr[i] = int32(newBlock)
		}

		blockStart := i * layout.BlockSize
		blockEnd := blockStart + layout.BlockSize

		copyStart := maxInt64(offset, blockStart)
		copyEnd := minInt64(end, blockEnd)

		absoluteBlock := e.blocks.AbsoluteBlock(uint32(file.DirectPtr[i]))
		if err := e.dev.ReadBlock(absoluteBlock, blockBuf); err != nil {
			return file, bytesWritten, tfserrors.ErrIOFailed.Wrap(err)
		}

		dstStart := copyStart - blockStart
		dstEnd := copyEnd - blockStart
		srcStart := copyStart - offset
		srcEnd := copyEnd - offset
		copy(blockBuf[dstStart:dstEnd], data[srcStart:srcEnd])

		if err := e.dev.WriteBlock(absoluteBlock, blockBuf); err != nil {
			return file, bytesWritten, tfserrors.ErrIOFailed.Wrap(err)
		}
		bytesWritten += int(copyEnd - copyStart)
	}

	if uint64(end) > file.Size {
		file.Size = uint64(end)
	}
	if err := e.inodes.Write(file); err != nil {
		return file, bytesWritten, err
	}

	return file, bytesWritten, nil
}

// Truncate releases every data block owned by file and resets its size and
// direct pointers, used by unlink and rmdir to reclaim storage.
func (e *Engine) Truncate(file layout.RawInode) (layout.RawInode, error) {
	for i, ptr := range file.DirectPtr {
		if ptr == layout.UnusedPointer {
			continue
		}
		if err := e.blocks.Free(uint32(ptr)); err != nil {
			return file, err
		}
		file.DirectPtr[i] = layout.UnusedPointer
	}
	file.Size = 0
	return file, e.inodes.Write(file)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
