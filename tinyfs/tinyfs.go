// Package tinyfs is the file-system facade: mkfs, mount, unmount, and the
// create/open/read/write/unlink/mkdir/rmdir/readdir/getattr surface every
// upper layer — gateway adapter, CLI, or test — calls.
package tinyfs

import (
	posixpath "path"
	"time"

	"github.com/go-tinyfs/tinyfs/blockio"
	"github.com/go-tinyfs/tinyfs/datablock"
	"github.com/go-tinyfs/tinyfs/dirent"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/fileio"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/layout"
	"github.com/go-tinyfs/tinyfs/pathresolve"
)

// nowFunc is overridden in tests that need a fixed clock.
var nowFunc = time.Now

// DefaultInodeCount and DefaultDataBlockCount size a new image when the CLI's
// mkfs command isn't given explicit sizes.
const (
	DefaultInodeCount     = 1024
	DefaultDataBlockCount = 4096
)

// FileSystem is a mounted tinyfs image. The backing file is owned
// exclusively by this instance for the life of the mount. The inode and data
// bitmaps are loaded once at mount and kept in memory by the inode and
// datablock stores; every change to them is written through to dev at once.
// They are not re-read from dev between operations. Inode records and data
// blocks are read from dev on every operation.
type FileSystem struct {
	dev        *blockio.Device
	superblock layout.RawSuperblock
	inodes     *inode.Store
	blocks     *datablock.Store
	dirs       *dirent.Engine
	files      *fileio.Engine
	resolver   *pathresolve.Resolver
	readOnly   bool
}

// Mkfs initializes a fresh backing file at path, sized for maxInodeCount
// inodes and maxDataBlockCount data blocks, and returns it mounted.
// It lays out the superblock, both bitmaps, the inode table, and the root
// directory's single (empty) page, per SPEC_FULL.md §4.7.
func Mkfs(path string, maxInodeCount, maxDataBlockCount uint32) (*FileSystem, error) {
	inodeTableBlocks := (maxInodeCount + layout.NumInodesPerBlock - 1) / layout.NumInodesPerBlock
	inodeStartBlock := uint32(layout.DataBitmapBlock + 1)
	dataStartBlock := inodeStartBlock + inodeTableBlocks
	totalBlocks := dataStartBlock + maxDataBlockCount

	dev, err := blockio.Init(path, totalBlocks)
	if err != nil {
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	sb := layout.RawSuperblock{
		MagicNumber:       layout.MagicNumber,
		MaxInodeCount:     maxInodeCount,
		MaxDataBlockCount: maxDataBlockCount,
		InodeBitmapBlock:  layout.InodeBitmapBlock,
		DataBitmapBlock:   layout.DataBitmapBlock,
		InodeStartBlock:   inodeStartBlock,
		DataStartBlock:    dataStartBlock,
	}
	if err := dev.WriteBlock(0, sb.Encode()); err != nil {
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	inodes, err := inode.Init(dev, sb)
	if err != nil {
		return nil, err
	}
	blocks, err := datablock.Init(dev, sb)
	if err != nil {
		return nil, err
	}

	now := nowFunc().Unix()
	root, err := inodes.Alloc(layout.InodeTypeDirectory, uint32(DefaultDirPermissions), 0, 0, now)
	if err != nil {
		return nil, err
	}
	if root.Ino != pathresolve.RootIno {
		return nil, tfserrors.ErrFileSystemCorrupted.WithMessage("root inode did not get number 0")
	}

	rootDataBlock, err := blocks.Alloc()
	if err != nil {
		return nil, err
	}
	if err := dev.WriteBlock(blocks.AbsoluteBlock(rootDataBlock), make([]byte, layout.BlockSize)); err != nil {
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	root.DirectPtr[0] = int32(rootDataBlock)
	root.Size = layout.BlockSize
	root.NLink = 2
	if err := inodes.Write(root); err != nil {
		return nil, err
	}

	return mountFrom(dev, sb, inodes, blocks, false)
}

// Mount opens an existing backing file at path, validates its superblock,
// and returns it ready for use. It does not format: a missing or corrupt
// image is an error, and a new image has to be made with Mkfs.
func Mount(path string, readOnly bool) (*FileSystem, error) {
	dev, err := blockio.Open(path)
	if err != nil {
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	buf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		dev.Close()
		return nil, tfserrors.ErrIOFailed.Wrap(err)
	}

	sb, err := layout.DecodeSuperblock(buf)
	if err != nil {
		dev.Close()
		return nil, tfserrors.ErrFileSystemCorrupted.Wrap(err)
	}
	if sb.MagicNumber != layout.MagicNumber {
		dev.Close()
		return nil, tfserrors.ErrFileSystemCorrupted.WithMessage("bad magic number")
	}

	inodes, err := inode.Open(dev, sb)
	if err != nil {
		dev.Close()
		return nil, err
	}
	blocks, err := datablock.Open(dev, sb)
	if err != nil {
		dev.Close()
		return nil, err
	}

	return mountFrom(dev, sb, inodes, blocks, readOnly)
}

func mountFrom(
	dev *blockio.Device,
	sb layout.RawSuperblock,
	inodes *inode.Store,
	blocks *datablock.Store,
	readOnly bool,
) (*FileSystem, error) {
	dirs := dirent.New(dev, inodes, blocks)
	return &FileSystem{
		dev:        dev,
		superblock: sb,
		inodes:     inodes,
		blocks:     blocks,
		dirs:       dirs,
		files:      fileio.New(dev, inodes, blocks),
		resolver:   pathresolve.New(inodes, dirs),
		readOnly:   readOnly,
	}, nil
}

// Unmount releases the backing file. The FileSystem must not be used
// afterward.
func (fs *FileSystem) Unmount() error {
	return fs.dev.Close()
}

func normalizePath(path string) string {
	cleaned := posixpath.Clean(path)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}

func (fs *FileSystem) checkWritable() error {
	if fs.readOnly {
		return tfserrors.ErrReadOnlyFileSystem
	}
	return nil
}

// GetAttr resolves path and returns its metadata.
func (fs *FileSystem) GetAttr(path string) (FileStat, error) {
	raw, err := fs.resolver.Resolve(normalizePath(path))
	if err != nil {
		return FileStat{}, err
	}
	return fs.statFromInode(raw), nil
}

func (fs *FileSystem) statFromInode(raw layout.RawInode) FileStat {
	mode := DefaultFilePermissions
	if raw.IsDirectory() {
		mode = ModeDir | DefaultDirPermissions
	}

	numBlocks := int64(0)
	for _, ptr := range raw.DirectPtr {
		if ptr != layout.UnusedPointer {
			numBlocks++
		}
	}

	return FileStat{
		InodeNumber:  uint64(raw.Ino),
		Nlinks:       uint64(raw.NLink),
		ModeFlags:    mode,
		Uid:          raw.UID,
		Gid:          raw.GID,
		Size:         int64(raw.Size),
		BlockSize:    layout.BlockSize,
		NumBlocks:    numBlocks,
		CreatedAt:    time.Unix(raw.CreatedAt, 0),
		LastAccessed: time.Unix(raw.AccessedAt, 0),
		LastModified: time.Unix(raw.ModifiedAt, 0),
	}
}

// ReadDir resolves path to a directory and returns its live entries.
func (fs *FileSystem) ReadDir(path string) ([]DirEntry, error) {
	dir, err := fs.resolver.Resolve(normalizePath(path))
	if err != nil {
		return nil, err
	}
	if !dir.IsDirectory() {
		return nil, tfserrors.ErrNotADirectory
	}

	rawEntries, err := fs.dirs.List(dir)
	if err != nil {
		return nil, err
	}

	out := make([]DirEntry, 0, len(rawEntries))
	for _, entry := range rawEntries {
		childInode, err := fs.inodes.Read(entry.Ino)
		if err != nil {
			return nil, err
		}
		out = append(out, DirEntry{
			Name:        entry.NameString(),
			InodeNumber: uint64(entry.Ino),
			IsDir:       childInode.IsDirectory(),
		})
	}
	return out, nil
}

// resolveParentAndChild resolves the parent directory of path and returns it
// along with path's base name, failing if the parent doesn't exist or isn't
// a directory.
func (fs *FileSystem) resolveParentAndChild(path string) (layout.RawInode, string, error) {
	parentPath, child := pathresolve.SplitParentChild(normalizePath(path))
	if child == "" {
		return layout.RawInode{}, "", tfserrors.ErrInvalidArgument.WithMessage("path has no base name")
	}

	parent, err := fs.resolver.Resolve(parentPath)
	if err != nil {
		return layout.RawInode{}, "", err
	}
	if !parent.IsDirectory() {
		return layout.RawInode{}, "", tfserrors.ErrNotADirectory
	}
	return parent, child, nil
}

// Mkdir creates a new, empty directory at path.
func (fs *FileSystem) Mkdir(path string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	parent, name, err := fs.resolveParentAndChild(path)
	if err != nil {
		return err
	}

	now := nowFunc().Unix()
	child, err := fs.inodes.Alloc(layout.InodeTypeDirectory, uint32(DefaultDirPermissions), 0, 0, now)
	if err != nil {
		return err
	}
	child.NLink = 2
	if err := fs.inodes.Write(child); err != nil {
		return err
	}

	if _, err := fs.dirs.Add(parent, child.Ino, name); err != nil {
		fs.inodes.Free(child.Ino)
		return err
	}
	return nil
}

// Rmdir removes the empty directory at path. It fails with
// tfserrors.ErrDirectoryNotEmpty if the directory still has live entries.
func (fs *FileSystem) Rmdir(path string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}
	if normalizePath(path) == "/" {
		return tfserrors.ErrNotPermitted.WithMessage("cannot remove the root directory")
	}

	parent, name, err := fs.resolveParentAndChild(path)
	if err != nil {
		return err
	}

	target, err := fs.resolver.ResolveFrom(parent.Ino, name)
	if err != nil {
		return err
	}
	if !target.IsDirectory() {
		return tfserrors.ErrNotADirectory
	}

	entries, err := fs.dirs.List(target)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return tfserrors.ErrDirectoryNotEmpty
	}

	if _, err := fs.files.Truncate(target); err != nil {
		return err
	}
	if err := fs.inodes.Free(target.Ino); err != nil {
		return err
	}
	return fs.dirs.Remove(parent, name)
}

// Create makes a new, empty regular file at path.
func (fs *FileSystem) Create(path string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	parent, name, err := fs.resolveParentAndChild(path)
	if err != nil {
		return err
	}

	now := nowFunc().Unix()
	child, err := fs.inodes.Alloc(layout.InodeTypeRegular, uint32(DefaultFilePermissions), 0, 0, now)
	if err != nil {
		return err
	}
	child.NLink = 2
	if err := fs.inodes.Write(child); err != nil {
		return err
	}

	if _, err := fs.dirs.Add(parent, child.Ino, name); err != nil {
		fs.inodes.Free(child.Ino)
		return err
	}
	return nil
}

// Open resolves path and succeeds if the file exists, matching the facade's
// "open" contract (SPEC_FULL.md §4.7): no handle table, since Read and
// Write take a path and resolve it each time.
func (fs *FileSystem) Open(path string) (layout.RawInode, error) {
	return fs.resolver.Resolve(normalizePath(path))
}

// Read reads up to len(buf) bytes from the regular file at path, starting
// at offset.
func (fs *FileSystem) Read(path string, offset int64, buf []byte) (int, error) {
	file, err := fs.resolver.Resolve(normalizePath(path))
	if err != nil {
		return 0, err
	}
	if file.IsDirectory() {
		return 0, tfserrors.ErrIsADirectory
	}
	return fs.files.Read(file, offset, buf)
}

// Write writes data to the regular file at path, starting at offset,
// extending the file as needed.
func (fs *FileSystem) Write(path string, offset int64, data []byte) (int, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}

	file, err := fs.resolver.Resolve(normalizePath(path))
	if err != nil {
		return 0, err
	}
	if file.IsDirectory() {
		return 0, tfserrors.ErrIsADirectory
	}

	_, n, err := fs.files.Write(file, offset, data)
	return n, err
}

// Unlink removes the regular file at path and reclaims its data blocks.
func (fs *FileSystem) Unlink(path string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	parent, name, err := fs.resolveParentAndChild(path)
	if err != nil {
		return err
	}

	target, err := fs.resolver.ResolveFrom(parent.Ino, name)
	if err != nil {
		return err
	}
	if target.IsDirectory() {
		return tfserrors.ErrIsADirectory
	}

	if _, err := fs.files.Truncate(target); err != nil {
		return err
	}
	if err := fs.inodes.Free(target.Ino); err != nil {
		return err
	}
	return fs.dirs.Remove(parent, name)
}

// Superblock returns the mounted file system's superblock record, used by
// the CLI's fsck and dump-inodes commands.
func (fs *FileSystem) Superblock() layout.RawSuperblock {
	return fs.superblock
}

// Device exposes the underlying block device, used by package fsck to read
// directory pages directly.
func (fs *FileSystem) Device() *blockio.Device {
	return fs.dev
}

// InodeStore exposes the inode table, used by package fsck and the CLI's
// dump-inodes command.
func (fs *FileSystem) InodeStore() *inode.Store {
	return fs.inodes
}

// DataBlockStore exposes the data-block allocator, used by package fsck.
func (fs *FileSystem) DataBlockStore() *datablock.Store {
	return fs.blocks
}
