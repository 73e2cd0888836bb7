// Package inode provides the on-disk inode table: allocation, lookup, and
// persistence of layout.RawInode records.
package inode

import (
	"github.com/go-tinyfs/tinyfs/bitmap"
	"github.com/go-tinyfs/tinyfs/blockio"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/layout"
)

// Store mediates all access to the inode bitmap and inode table. It holds no
// cached inode records between calls; only the bitmap is kept resident, since
// it must be consulted on nearly every operation.
type Store struct {
	dev             *blockio.Device
	alloc           *bitmap.Allocator
	inodeStartBlock uint32
	maxInodeCount   uint32
}

// Open loads the inode bitmap from its fixed block and returns a Store ready
// to service Alloc/Free/Read/Write calls.
func Open(dev *blockio.Device, sb layout.RawSuperblock) (*Store, error) {
	buf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(sb.InodeBitmapBlock, buf); err != nil {
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	return &Store{
		dev:             dev,
		alloc:           bitmap.Load(buf, uint(sb.MaxInodeCount)),
		inodeStartBlock: sb.InodeStartBlock,
		maxInodeCount:   sb.MaxInodeCount,
	}, nil
}

// Init formats a fresh inode bitmap for a filesystem with maxInodeCount
// inodes, none allocated, and writes it to the bitmap block. Used by Mkfs.
func Init(dev *blockio.Device, sb layout.RawSuperblock) (*Store, error) {
	store := &Store{
		dev:             dev,
		alloc:           bitmap.NewAllocator(uint(sb.MaxInodeCount)),
		inodeStartBlock: sb.InodeStartBlock,
		maxInodeCount:   sb.MaxInodeCount,
	}
	return store, store.flushBitmap()
}

func (s *Store) flushBitmap() error {
	if err := s.dev.WriteBlock(layout.InodeBitmapBlock, s.alloc.Encode()); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (s *Store) blockAndOffset(ino uint32) (uint32, uint32) {
	block := s.inodeStartBlock + ino/layout.NumInodesPerBlock
	offset := (ino % layout.NumInodesPerBlock) * layout.InodeSize
	return block, offset
}

// Read fetches the raw inode record numbered ino.
func (s *Store) Read(ino uint32) (layout.RawInode, error) {
	if ino >= s.maxInodeCount {
		return layout.RawInode{}, tfserrors.ErrInvalidArgument.WithMessage("inode number out of range")
	}

	block, offset := s.blockAndOffset(ino)
	buf := make([]byte, layout.BlockSize)
	if err := s.dev.ReadBlock(block, buf); err != nil {
		return layout.RawInode{}, tfserrors.ErrIOFailed.Wrap(err)
	}

	raw, err := layout.DecodeInode(buf[offset : offset+layout.InodeSize])
	if err != nil {
		return layout.RawInode{}, tfserrors.ErrFileSystemCorrupted.Wrap(err)
	}
	return raw, nil
}

// Write persists a raw inode record back to the inode table.
func (s *Store) Write(raw layout.RawInode) error {
	if raw.Ino >= s.maxInodeCount {
		return tfserrors.ErrInvalidArgument.WithMessage("inode number out of range")
	}

	block, offset := s.blockAndOffset(raw.Ino)
	buf := make([]byte, layout.BlockSize)
	if err := s.dev.ReadBlock(block, buf); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}

	copy(buf[offset:offset+layout.InodeSize], raw.Encode())
	if err := s.dev.WriteBlock(block, buf); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Alloc claims the lowest free inode number, marks it valid with the given
// type, persists both the bitmap and the fresh record, and returns it.
func (s *Store) Alloc(inodeType layout.InodeType, mode, uid, gid uint32, now int64) (layout.RawInode, error) {
	ino, err := s.alloc.Allocate()
	if err != nil {
		return layout.RawInode{}, err
	}

	raw := layout.RawInode{
		Ino:        uint32(ino),
		Valid:      1,
		Type:       inodeType,
		NLink:      1,
		Mode:       mode,
		UID:        uid,
		GID:        gid,
		CreatedAt:  now,
		ModifiedAt: now,
		AccessedAt: now,
	}
	for i := range raw.DirectPtr {
		raw.DirectPtr[i] = layout.UnusedPointer
	}

	if err := s.Write(raw); err != nil {
		s.alloc.Free(ino)
		return layout.RawInode{}, err
	}
	if err := s.flushBitmap(); err != nil {
		return layout.RawInode{}, err
	}
	return raw, nil
}

// Free releases an inode's slot in the bitmap and marks its record invalid.
// It does not free the inode's data blocks; callers must do that first via
// the data-block allocator.
func (s *Store) Free(ino uint32) error {
	if ino >= s.maxInodeCount {
		return tfserrors.ErrInvalidArgument.WithMessage("inode number out of range")
	}

	raw, err := s.Read(ino)
	if err != nil {
		return err
	}
	raw.Valid = 0
	if err := s.Write(raw); err != nil {
		return err
	}

	if err := s.alloc.Free(uint(ino)); err != nil {
		return err
	}
	return s.flushBitmap()
}

// CountFree returns the number of unallocated inode slots.
func (s *Store) CountFree() uint {
	return s.alloc.CountFree()
}

// MaxInodeCount returns the total number of inode slots this store manages.
func (s *Store) MaxInodeCount() uint32 {
	return s.maxInodeCount
}

// IsAllocated reports whether a given inode number is currently marked
// allocated in the bitmap, used by the consistency checker.
func (s *Store) IsAllocated(ino uint32) bool {
	return s.alloc.IsSet(uint(ino))
}
