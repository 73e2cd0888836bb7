// Package blockio provides the block device abstraction every other tinyfs
// package builds on: a backing file accessed one fixed-size block at a time.
package blockio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-tinyfs/tinyfs/layout"
)

// Device is a block-oriented view of a backing file. All reads and writes go
// through ReadBlock/WriteBlock, one block at a time; there is no cache here —
// per SPEC_FULL.md §5, caching beyond per-operation scratch buffers is a
// declared non-goal, so every call round-trips to the stream.
type Device struct {
	stream      io.ReadWriteSeeker
	closer      io.Closer
	totalBlocks uint32
}

// Init creates (or truncates) the file at path and sizes it to hold
// totalBlocks blocks of layout.BlockSize bytes each.
func Init(path string, totalBlocks uint32) (*Device, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("blockio: create %q: %w", path, err)
	}

	if err := file.Truncate(int64(totalBlocks) * layout.BlockSize); err != nil {
		file.Close()
		return nil, fmt.Errorf("blockio: truncate %q: %w", path, err)
	}

	return &Device{stream: file, closer: file, totalBlocks: totalBlocks}, nil
}

// Open opens an existing backing file at path. totalBlocks is derived from
// the file's size.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("blockio: open %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blockio: stat %q: %w", path, err)
	}

	return &Device{
		stream:      file,
		closer:      file,
		totalBlocks: uint32(info.Size() / layout.BlockSize),
	}, nil
}

// Wrap builds a Device directly on top of an in-memory stream, for tests.
// The stream's length, in blocks, is fixed at totalBlocks for the life of the
// Device.
func Wrap(stream io.ReadWriteSeeker, totalBlocks uint32) *Device {
	return &Device{stream: stream, totalBlocks: totalBlocks}
}

// Close releases the backing file, if one was opened by Init/Open.
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// TotalBlocks returns the number of blocks in the backing file.
func (d *Device) TotalBlocks() uint32 {
	return d.totalBlocks
}

func (d *Device) checkBounds(blockIdx uint32) error {
	if blockIdx >= d.totalBlocks {
		return fmt.Errorf(
			"blockio: block %d out of range [0, %d)", blockIdx, d.totalBlocks,
		)
	}
	return nil
}

func (d *Device) seekToBlock(blockIdx uint32) error {
	_, err := d.stream.Seek(int64(blockIdx)*layout.BlockSize, io.SeekStart)
	return err
}

// ReadBlock fills buf (exactly layout.BlockSize bytes) with the contents of
// block blockIdx.
func (d *Device) ReadBlock(blockIdx uint32, buf []byte) error {
	if len(buf) != layout.BlockSize {
		return fmt.Errorf("blockio: buffer must be exactly %d bytes, got %d", layout.BlockSize, len(buf))
	}
	if err := d.checkBounds(blockIdx); err != nil {
		return err
	}
	if err := d.seekToBlock(blockIdx); err != nil {
		return err
	}

	_, err := io.ReadFull(d.stream, buf)
	return err
}

// WriteBlock writes buf (exactly layout.BlockSize bytes) to block blockIdx.
func (d *Device) WriteBlock(blockIdx uint32, buf []byte) error {
	if len(buf) != layout.BlockSize {
		return fmt.Errorf("blockio: buffer must be exactly %d bytes, got %d", layout.BlockSize, len(buf))
	}
	if err := d.checkBounds(blockIdx); err != nil {
		return err
	}
	if err := d.seekToBlock(blockIdx); err != nil {
		return err
	}

	_, err := d.stream.Write(buf)
	return err
}
