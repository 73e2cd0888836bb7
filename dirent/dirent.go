// Package dirent implements the directory engine: finding, adding, and
// removing fixed-size directory entries inside a directory inode's data
// pages.
package dirent

import (
	"github.com/go-tinyfs/tinyfs/blockio"
	"github.com/go-tinyfs/tinyfs/datablock"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/layout"
)

// Engine operates on directory inodes' data pages. It needs the block device
// to load/store pages, the data-block allocator to grow a directory, and the
// inode store to persist the directory inode's updated size/pointers.
type Engine struct {
	dev    *blockio.Device
	inodes *inode.Store
	blocks *datablock.Store
}

// New builds a directory Engine over the given stores.
func New(dev *blockio.Device, inodes *inode.Store, blocks *datablock.Store) *Engine {
	return &Engine{dev: dev, inodes: inodes, blocks: blocks}
}

// location identifies one slot in a directory's pages: which allocated page
// (by DirectPtr index) and which entry slot within that page.
type location struct {
	ptrIndex  int
	slotIndex int
}

// Find looks up name inside directory dir and returns the entry it names.
// It returns tfserrors.ErrNotFound if no live entry matches.
func (e *Engine) Find(dir layout.RawInode, name string) (layout.RawDirent, error) {
	entry, _, err := e.find(dir, name)
	return entry, err
}

func (e *Engine) find(dir layout.RawInode, name string) (layout.RawDirent, location, error) {
	buf := make([]byte, layout.BlockSize)

	for ptrIndex, blockIdx := range dir.DirectPtr {
		if blockIdx == layout.UnusedPointer {
			continue
		}
		if err := e.dev.ReadBlock(e.blocks.AbsoluteBlock(uint32(blockIdx)), buf); err != nil {
			return layout.RawDirent{}, location{}, tfserrors.ErrIOFailed.Wrap(err)
		}

		for slot := 0; slot < layout.EntriesPerBlock; slot++ {
			entry, err := layout.DecodeDirent(buf[slot*layout.DirentSize:])
			if err != nil {
				return layout.RawDirent{}, location{}, tfserrors.ErrFileSystemCorrupted.Wrap(err)
			}
			if entry.IsValid() && entry.NameString() == name {
				return entry, location{ptrIndex: ptrIndex, slotIndex: slot}, nil
			}
		}
	}

	return layout.RawDirent{}, location{}, tfserrors.ErrNotFound
}

// List returns every live entry in directory dir, in on-disk order. tinyfs
// directories carry no "." or ".." entries, so nothing is filtered out.
func (e *Engine) List(dir layout.RawInode) ([]layout.RawDirent, error) {
	var out []layout.RawDirent
	buf := make([]byte, layout.BlockSize)

	for _, blockIdx := range dir.DirectPtr {
		if blockIdx == layout.UnusedPointer {
			continue
		}
		if err := e.dev.ReadBlock(e.blocks.AbsoluteBlock(uint32(blockIdx)), buf); err != nil {
			return nil, tfserrors.ErrIOFailed.Wrap(err)
		}

		for slot := 0; slot < layout.EntriesPerBlock; slot++ {
			entry, err := layout.DecodeDirent(buf[slot*layout.DirentSize:])
			if err != nil {
				return nil, tfserrors.ErrFileSystemCorrupted.Wrap(err)
			}
			if entry.IsValid() {
				out = append(out, entry)
			}
		}
	}

	return out, nil
}

// Add inserts a new entry (name -> ino) into directory dir, growing the
// directory by one page if every existing page is full. It returns the
// directory inode's updated record, since Size/DirectPtr may have changed.
func (e *Engine) Add(dir layout.RawInode, ino uint32, name string) (layout.RawInode, error) {
	if len(name) == 0 {
		return dir, tfserrors.ErrInvalidArgument.WithMessage("empty name")
	}
	if len(name) > layout.MaxNameLength {
		return dir, tfserrors.ErrNameTooLong
	}

	if _, _, err := e.find(dir, name); err == nil {
		return dir, tfserrors.ErrExists
	}

	buf := make([]byte, layout.BlockSize)

	for _, blockIdx := range dir.DirectPtr {
		if blockIdx == layout.UnusedPointer {
			continue
		}
		if err := e.dev.ReadBlock(e.blocks.AbsoluteBlock(uint32(blockIdx)), buf); err != nil {
			return dir, tfserrors.ErrIOFailed.Wrap(err)
		}

		for slot := 0; slot < layout.EntriesPerBlock; slot++ {
			entry, err := layout.DecodeDirent(buf[slot*layout.DirentSize:])
			if err != nil {
				return dir, tfserrors.ErrFileSystemCorrupted.Wrap(err)
			}
			if !entry.IsValid() {
				return dir, e.writeEntry(e.blocks.AbsoluteBlock(uint32(blockIdx)), slot, ino, name)
			}
		}
	}

	return e.growAndAdd(dir, ino, name)
}

// growAndAdd allocates a new directory page, zero-initializes it, places the
// new entry at slot 0, and records the page in the directory inode.
func (e *Engine) growAndAdd(dir layout.RawInode, ino uint32, name string) (layout.RawInode, error) {
	freeSlot := -1
	for i, ptr := range dir.DirectPtr {
		if ptr == layout.UnusedPointer {
			freeSlot = i
			break
		}
	}
	if freeSlot == -1 {
		return dir, tfserrors.ErrNoSpaceOnDevice.WithMessage("directory has no free direct pointer slots")
	}

	newBlock, err := e.blocks.Alloc()
	if err != nil {
		return dir, err
	}
	absoluteBlock := e.blocks.AbsoluteBlock(newBlock)

	if err := e.dev.WriteBlock(absoluteBlock, make([]byte, layout.BlockSize)); err != nil {
		e.blocks.Free(newBlock)
		return dir, tfserrors.ErrIOFailed.Wrap(err)
	}

	dir.DirectPtr[freeSlot] = int32(newBlock)
	dir.Size += layout.BlockSize
	if err := e.inodes.Write(dir); err != nil {
		return dir, err
	}

	if err := e.writeEntry(absoluteBlock, 0, ino, name); err != nil {
		return dir, err
	}
	return dir, nil
}

func (e *Engine) writeEntry(blockIdx uint32, slot int, ino uint32, name string) error {
	buf := make([]byte, layout.BlockSize)
	if err := e.dev.ReadBlock(blockIdx, buf); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}

	entry := layout.RawDirent{Valid: 1, Ino: ino}
	entry.SetName(name)
	copy(buf[slot*layout.DirentSize:], entry.Encode())

	if err := e.dev.WriteBlock(blockIdx, buf); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Remove clears the entry named name in directory dir. Pages are never
// compacted or reclaimed here; an empty page is only freed when the whole
// directory is removed.
func (e *Engine) Remove(dir layout.RawInode, name string) error {
	_, loc, err := e.find(dir, name)
	if err != nil {
		return err
	}

	blockIdx := e.blocks.AbsoluteBlock(uint32(dir.DirectPtr[loc.ptrIndex]))
	buf := make([]byte, layout.BlockSize)
	if err := e.dev.ReadBlock(blockIdx, buf); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}

	cleared := layout.RawDirent{}
	copy(buf[loc.slotIndex*layout.DirentSize:], cleared.Encode())

	if err := e.dev.WriteBlock(blockIdx, buf); err != nil {
		return tfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}
