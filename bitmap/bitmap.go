// Package bitmap provides the first-fit allocator tinyfs uses for both the
// inode bitmap and the data-block bitmap. Both bitmaps live in a single block
// each, addressed by layout.InodeBitmapBlock/layout.DataBitmapBlock.
package bitmap

import (
	gobitmap "github.com/boljen/go-bitmap"

	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/layout"
)

// Allocator is an in-memory view of one on-disk bitmap block. Load it from a
// block, mutate it with Allocate/Free, then Encode it back before writing the
// block out.
type Allocator struct {
	bits       gobitmap.Bitmap
	totalUnits uint
}

// NewAllocator builds an empty allocator for totalUnits bits, all free.
func NewAllocator(totalUnits uint) *Allocator {
	return &Allocator{
		bits:       gobitmap.New(int(totalUnits)),
		totalUnits: totalUnits,
	}
}

// Load reconstructs an allocator from the raw contents of a bitmap block.
// totalUnits is the number of meaningful bits in the block; anything beyond
// that (padding out to layout.BlockSize) is ignored.
func Load(buf []byte, totalUnits uint) *Allocator {
	return &Allocator{
		bits:       gobitmap.Bitmap(buf),
		totalUnits: totalUnits,
	}
}

// Encode returns the bitmap's backing bytes, zero-padded to layout.BlockSize
// so it can be written straight to a block.
func (a *Allocator) Encode() []byte {
	out := make([]byte, layout.BlockSize)
	copy(out, a.bits)
	return out
}

// IsSet reports whether unit i is allocated.
func (a *Allocator) IsSet(i uint) bool {
	return a.bits.Get(int(i))
}

// Allocate claims the lowest-indexed free unit, in keeping with tinyfs's
// deterministic first-fit allocation policy (SPEC_FULL.md §4.2), and returns
// its index. It returns tfserrors.ErrNoSpaceOnDevice if every unit is taken.
func (a *Allocator) Allocate() (uint, error) {
	for i := uint(0); i < a.totalUnits; i++ {
		if !a.bits.Get(int(i)) {
			a.bits.Set(int(i), true)
			return i, nil
		}
	}
	return 0, tfserrors.ErrNoSpaceOnDevice
}

// Free releases unit i back to the pool.
func (a *Allocator) Free(i uint) error {
	if i >= a.totalUnits {
		return tfserrors.ErrInvalidArgument.WithMessage("bitmap index out of range")
	}
	a.bits.Set(int(i), false)
	return nil
}

// CountFree returns the number of unallocated units.
func (a *Allocator) CountFree() uint {
	free := uint(0)
	for i := uint(0); i < a.totalUnits; i++ {
		if !a.bits.Get(int(i)) {
			free++
		}
	}
	return free
}

// TotalUnits returns the number of bits this allocator tracks.
func (a *Allocator) TotalUnits() uint {
	return a.totalUnits
}
