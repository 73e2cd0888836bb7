// Package layout defines the fixed-size, on-disk binary records tinyfs reads
// and writes, and the layout constants that locate them on the backing file.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// MagicNumber identifies a tinyfs image. It's checked on every Mount.
const MagicNumber uint32 = 0x54465321 // "TFS!"

// BlockSize is the fixed size, in bytes, of every block on a tinyfs image.
const BlockSize = 4096

// NumDirectPointers is the number of direct data-block pointers an inode
// carries. There is no indirect-block addressing (a declared non-goal), so
// this is also the hard cap on how many blocks a file can occupy.
const NumDirectPointers = 16

// UnusedPointer marks a DirectPtr slot as not pointing to any data block.
const UnusedPointer int32 = -1

// MaxFileSize is the largest a regular file's Size can ever grow to.
const MaxFileSize = NumDirectPointers * BlockSize

// Fixed superblock layout. Block 0 always holds the superblock record,
// zero-padded to BlockSize.
const (
	InodeBitmapBlock = 1
	DataBitmapBlock  = 2
)

// InodeType distinguishes directories from regular files. There are no other
// object kinds (no symlinks, no devices — declared non-goals).
type InodeType uint8

const (
	InodeTypeRegular InodeType = iota
	InodeTypeDirectory
)

// NameFieldSize is the number of bytes reserved for a directory entry's name,
// including its NUL terminator.
const NameFieldSize = 28

// RawSuperblock is the on-disk superblock record. It occupies block 0,
// zero-padded to BlockSize, and is written exactly once by Mkfs.
type RawSuperblock struct {
	MagicNumber       uint32
	MaxInodeCount     uint32
	MaxDataBlockCount uint32
	InodeBitmapBlock  uint32
	DataBitmapBlock   uint32
	InodeStartBlock   uint32
	DataStartBlock    uint32
}

// SuperblockSize is the encoded size of RawSuperblock, in bytes.
const SuperblockSize = 4 * 7

// Encode serializes the superblock into a zero-padded, block-sized buffer.
func (sb *RawSuperblock) Encode() []byte {
	buf := make([]byte, BlockSize)
	writer := bytewriter.New(buf)
	binary.Write(writer, binary.LittleEndian, sb)
	return buf
}

// DecodeSuperblock reads a RawSuperblock from the first SuperblockSize bytes
// of a block-sized buffer.
func DecodeSuperblock(buf []byte) (RawSuperblock, error) {
	if len(buf) < SuperblockSize {
		return RawSuperblock{}, fmt.Errorf("superblock buffer too small: %d bytes", len(buf))
	}

	var sb RawSuperblock
	reader := bytes.NewReader(buf[:SuperblockSize])
	if err := binary.Read(reader, binary.LittleEndian, &sb); err != nil {
		return RawSuperblock{}, err
	}
	return sb, nil
}

// RawInode is the fixed-size on-disk inode record. NumInodesPerBlock of these
// pack into a single block of the inode table.
type RawInode struct {
	Ino        uint32
	Valid      uint8
	Type       InodeType
	_          [2]byte // alignment padding, always zero
	NLink      uint32
	Size       uint64
	DirectPtr  [NumDirectPointers]int32 // relative data-block indices; UnusedPointer if unset
	Mode       uint32
	UID        uint32
	GID        uint32
	CreatedAt  int64
	ModifiedAt int64
	AccessedAt int64
}

// InodeSize is the encoded size of RawInode, in bytes.
const InodeSize = 4 + 1 + 1 + 2 + 4 + 8 + (4 * NumDirectPointers) + 4 + 4 + 4 + 8 + 8 + 8

// NumInodesPerBlock is how many RawInode records fit in one block.
const NumInodesPerBlock = BlockSize / InodeSize

// Encode serializes the inode into a fixed-size byte slice.
func (inode *RawInode) Encode() []byte {
	out := make([]byte, InodeSize)
	writer := bytewriter.New(out)
	binary.Write(writer, binary.LittleEndian, inode)
	return out
}

// DecodeInode reads a RawInode from an InodeSize-byte slice.
func DecodeInode(buf []byte) (RawInode, error) {
	if len(buf) < InodeSize {
		return RawInode{}, fmt.Errorf("inode buffer too small: %d bytes", len(buf))
	}

	var inode RawInode
	reader := bytes.NewReader(buf[:InodeSize])
	if err := binary.Read(reader, binary.LittleEndian, &inode); err != nil {
		return RawInode{}, err
	}
	return inode, nil
}

// IsValid reports whether the inode bit is set for this record.
func (inode *RawInode) IsValid() bool {
	return inode.Valid != 0
}

// IsDirectory reports whether this inode describes a directory.
func (inode *RawInode) IsDirectory() bool {
	return inode.Type == InodeTypeDirectory
}

// NumDirectoryPages returns Size / BlockSize, the number of allocated
// directory pages for a directory inode. Invariant 5 in SPEC_FULL.md ties
// this exactly to the number of allocated DirectPtr slots.
func (inode *RawInode) NumDirectoryPages() uint64 {
	return inode.Size / BlockSize
}

// RawDirent is the fixed-size on-disk directory entry record.
type RawDirent struct {
	Valid uint8
	_     [3]byte // alignment padding, always zero
	Ino   uint32
	Len   uint8
	Name  [NameFieldSize]byte
}

// DirentSize is the encoded size of RawDirent, in bytes.
const DirentSize = 1 + 3 + 4 + 1 + NameFieldSize

// EntriesPerBlock is how many RawDirent records fit in one directory page.
const EntriesPerBlock = BlockSize / DirentSize

// Encode serializes the directory entry into a fixed-size byte slice.
func (d *RawDirent) Encode() []byte {
	out := make([]byte, DirentSize)
	writer := bytewriter.New(out)
	binary.Write(writer, binary.LittleEndian, d)
	return out
}

// DecodeDirent reads a RawDirent from a DirentSize-byte slice.
func DecodeDirent(buf []byte) (RawDirent, error) {
	if len(buf) < DirentSize {
		return RawDirent{}, fmt.Errorf("dirent buffer too small: %d bytes", len(buf))
	}

	var d RawDirent
	reader := bytes.NewReader(buf[:DirentSize])
	if err := binary.Read(reader, binary.LittleEndian, &d); err != nil {
		return RawDirent{}, err
	}
	return d, nil
}

// IsValid reports whether this directory entry slot is in use.
func (d *RawDirent) IsValid() bool {
	return d.Valid != 0
}

// NameString returns the entry's name, truncated at the first NUL byte.
func (d *RawDirent) NameString() string {
	end := bytes.IndexByte(d.Name[:], 0)
	if end < 0 {
		end = len(d.Name)
	}
	return string(d.Name[:end])
}

// SetName copies name into the entry's fixed-width Name field, NUL-terminating
// it. The caller must have already validated the length.
func (d *RawDirent) SetName(name string) {
	d.Name = [NameFieldSize]byte{}
	copy(d.Name[:], name)
	d.Len = uint8(len(name))
}

// MaxNameLength is the longest name RawDirent's Name field can hold; the
// field's last byte is kept for the NUL terminator.
const MaxNameLength = NameFieldSize - 1
