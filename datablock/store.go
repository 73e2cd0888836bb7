// Package datablock manages allocation and persistence of the data-block
// bitmap, the mirror image of package inode's inode-table bitmap.
package datablock

import (
	"github.com/go-tinyfs/tinyfs/bitmap"
	"github.com/go-tinyfs/tinyfs/blockio"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/layout"
)

// Store mediates allocation of data blocks. Block numbers it hands out and
// accepts are relative indices into the data region (0-based), matching the
// indices stored in a RawInode's DirectPtr array. Callers that need to
// address the device directly must convert through AbsoluteBlock.
type Store struct {
	dev            *blockio.Device
	alloc          *bitmap.Allocator
	dataStartBlock uint32
	maxBlockCount  uint32
}

// Open loads the data bitmap from its fixed block.
func Open(dev *blockio.Device, sb layout.RawSuperblock) (*Store, error) {
	buf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(sb.DataBitmapBlock, buf); err != nil {
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	return &Store{
		dev:            dev,
		alloc:          bitmap.Load(buf, uint(sb.MaxDataBlockCount)),
		dataStartBlock: sb.DataStartBlock,
		maxBlockCount:  sb.MaxDataBlockCount,
	}, nil
}

// Init formats a fresh, fully-free data bitmap. Used by Mkfs.
func Init(dev *blockio.Device, sb layout.RawSuperblock) (*Store, error) {
	store := &Store{
		dev:            dev,
		alloc:          bitmap.NewAllocator(uint(sb.MaxDataBlockCount)),
		dataStartBlock: sb.DataStartBlock,
		maxBlockCount:  sb.MaxDataBlockCount,
	}
	return store, store.flush()
}

func (s *Store) flush() error {
	if err := s.dev.WriteBlock(layout.DataBitmapBlock, s.alloc.Encode()); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Alloc claims the lowest-numbered free data block (first-fit, per
// SPEC_FULL.md §4.2) and returns its relative index within the data region.
func (s *Store) Alloc() (uint32, error) {
	relative, err := s.alloc.Allocate()
	if err != nil {
		return 0, err
	}
	if err := s.flush(); err != nil {
		s.alloc.Free(relative)
		return 0, err
	}
	return uint32(relative), nil
}

// Free releases a relative data block index back to the pool.
func (s *Store) Free(relativeBlock uint32) error {
	if relativeBlock >= s.maxBlockCount {
		return tfserrors.ErrInvalidArgument.WithMessage("block is not in the data region")
	}
	if err := s.alloc.Free(uint(relativeBlock)); err != nil {
		return err
	}
	return s.flush()
}

// CountFree returns the number of unallocated data blocks.
func (s *Store) CountFree() uint {
	return s.alloc.CountFree()
}

// MaxBlockCount returns the total number of data blocks this store manages.
func (s *Store) MaxBlockCount() uint32 {
	return s.maxBlockCount
}

// IsAllocated reports whether the data block at the given relative index is
// currently marked allocated, used by the consistency checker.
func (s *Store) IsAllocated(relativeBlock uint32) bool {
	if relativeBlock >= s.maxBlockCount {
		return false
	}
	return s.alloc.IsSet(uint(relativeBlock))
}

// DataStartBlock returns the first absolute block index in the data region.
func (s *Store) DataStartBlock() uint32 {
	return s.dataStartBlock
}

// AbsoluteBlock converts a relative data-region index, as stored in a
// RawInode's DirectPtr, into the absolute block index blockio.Device expects.
func (s *Store) AbsoluteBlock(relativeBlock uint32) uint32 {
	return s.dataStartBlock + relativeBlock
}
