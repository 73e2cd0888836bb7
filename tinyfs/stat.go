package tinyfs

import (
	"os"
	"time"
)

// Mode bits for FileStat.ModeFlags, trimmed from the POSIX set to the ones
// tinyfs actually produces: it only ever reports a directory or a regular
// file, each with a single fixed permission pattern (SPEC_FULL.md §4.7).
const (
	ModeDir    = os.ModeDir
	ModeRegular os.FileMode = 0

	// DefaultDirPermissions and DefaultFilePermissions are the fixed
	// permission bits getattr reports for directories and regular files,
	// respectively; tinyfs has no chmod operation.
	DefaultDirPermissions  os.FileMode = 0755
	DefaultFilePermissions os.FileMode = 0777
)

// FileStat is a platform-independent stat record, trimmed down from the
// general-purpose form used across the dargueta-disko driver family to the
// fields tinyfs's single fixed on-disk format can actually populate: no
// device ID, no rdev, no changed/deleted timestamps, since tinyfs inodes
// don't carry them.
type FileStat struct {
	InodeNumber  uint64
	Nlinks       uint64
	ModeFlags    os.FileMode
	Uid          uint32
	Gid          uint32
	Size         int64
	BlockSize    int64
	NumBlocks    int64
	CreatedAt    time.Time
	LastAccessed time.Time
	LastModified time.Time
}

// IsDir reports whether this stat record describes a directory.
func (s *FileStat) IsDir() bool {
	return s.ModeFlags.IsDir()
}

// IsFile reports whether this stat record describes a regular file.
func (s *FileStat) IsFile() bool {
	return s.ModeFlags.IsRegular()
}

// DirEntry is one entry returned by ReadDir: a name plus a type bit, enough
// for a gateway adapter to build an os.DirEntry-compatible wrapper without
// tinyfs depending on that interface directly.
type DirEntry struct {
	Name        string
	InodeNumber uint64
	IsDir       bool
}
