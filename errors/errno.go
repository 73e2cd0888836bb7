// This file enumerates the error kinds tinyfs actually raises, plus the
// errno mapping ToErrno needs. It exists separately from errors.go for the
// same reason the teacher kept its errno shim apart from its DriverError
// plumbing: the set of error kinds and the set of mechanics for wrapping them
// change independently.
package errors

import "syscall"

// Error kinds. These mirror the error taxonomy in SPEC_FULL.md §7.
const (
	// ErrNotFound indicates path resolution failed to find the named entry.
	ErrNotFound = DiskoError("no such file or directory")
	// ErrExists indicates dirent.Add found a live entry with the same name.
	ErrExists = DiskoError("file exists")
	// ErrNoSpaceOnDevice indicates a bitmap has no free slot.
	ErrNoSpaceOnDevice = DiskoError("no space left on device")
	// ErrNameTooLong indicates an entry name exceeds the name field width.
	ErrNameTooLong = DiskoError("file name too long")
	// ErrInvalidArgument indicates a zero-length name or other bad argument.
	ErrInvalidArgument = DiskoError("invalid argument")
	// ErrDirectoryNotEmpty indicates Rmdir was called on a non-empty directory.
	ErrDirectoryNotEmpty = DiskoError("directory not empty")
	// ErrNotADirectory indicates an operation that requires a directory was
	// given a regular file instead, such as ReadDir on a file or a parent
	// path that names a file.
	ErrNotADirectory = DiskoError("not a directory")
	// ErrIsADirectory indicates an operation that requires a regular file was
	// given a directory instead.
	ErrIsADirectory = DiskoError("is a directory")
	// ErrIOFailed indicates the underlying block device failed.
	ErrIOFailed = DiskoError("input/output error")
	// ErrFileSystemCorrupted indicates the superblock's magic number didn't
	// match, or another consistency check failed, on mount. Fatal.
	ErrFileSystemCorrupted = DiskoError("file system structure needs cleaning")
	// ErrReadOnlyFileSystem indicates a write was attempted on a read-only mount.
	ErrReadOnlyFileSystem = DiskoError("read-only file system")
	// ErrNotPermitted indicates an operation that isn't allowed under any
	// circumstance, such as removing the root directory.
	ErrNotPermitted = DiskoError("operation not permitted")
)

var errnoByKind = map[DiskoError]syscall.Errno{
	ErrNotFound:            syscall.ENOENT,
	ErrExists:              syscall.EEXIST,
	ErrNoSpaceOnDevice:     syscall.ENOSPC,
	ErrNameTooLong:         syscall.ENAMETOOLONG,
	ErrInvalidArgument:     syscall.EINVAL,
	ErrDirectoryNotEmpty:   syscall.ENOTEMPTY,
	ErrNotADirectory:       syscall.ENOTDIR,
	ErrIsADirectory:        syscall.EISDIR,
	ErrIOFailed:            syscall.EIO,
	ErrFileSystemCorrupted: syscall.EUCLEAN,
	ErrReadOnlyFileSystem:  syscall.EROFS,
	ErrNotPermitted:        syscall.EPERM,
}
