// Package gateway defines the contract a user-space file-system adapter
// (FUSE or otherwise) implements against package tinyfs. SPEC_FULL.md §1
// scopes the adapter itself out of the core, so this package holds only the
// interface and a pass-through Adapter over tinyfs.FileSystem: it wires no
// FUSE binding, the way the core deliberately doesn't either.
package gateway

import "github.com/go-tinyfs/tinyfs/tinyfs"

// FSOperations is the operation set a gateway adapter calls against a
// mounted tinyfs.FileSystem. It mirrors SPEC_FULL.md §4.7 one-to-one: every
// method here is a thin pass-through to the corresponding FileSystem method,
// so an adapter can depend on this interface instead of the concrete type.
type FSOperations interface {
	GetAttr(path string) (tinyfs.FileStat, error)
	ReadDir(path string) ([]tinyfs.DirEntry, error)
	Mkdir(path string) error
	Rmdir(path string) error
	Create(path string) error
	Open(path string) error
	Read(path string, offset int64, buf []byte) (int, error)
	Write(path string, offset int64, data []byte) (int, error)
	Unlink(path string) error
}

// Adapter wraps a *tinyfs.FileSystem to satisfy FSOperations, translating
// Open's richer return value (the resolved inode) down to the error-only
// shape a gateway callback expects.
type Adapter struct {
	FS *tinyfs.FileSystem
}

// New wraps fs as an FSOperations implementation.
func New(fs *tinyfs.FileSystem) *Adapter {
	return &Adapter{FS: fs}
}

func (a *Adapter) GetAttr(path string) (tinyfs.FileStat, error) {
	return a.FS.GetAttr(path)
}

func (a *Adapter) ReadDir(path string) ([]tinyfs.DirEntry, error) {
	return a.FS.ReadDir(path)
}

func (a *Adapter) Mkdir(path string) error {
	return a.FS.Mkdir(path)
}

func (a *Adapter) Rmdir(path string) error {
	return a.FS.Rmdir(path)
}

func (a *Adapter) Create(path string) error {
	return a.FS.Create(path)
}

func (a *Adapter) Open(path string) error {
	_, err := a.FS.Open(path)
	return err
}

func (a *Adapter) Read(path string, offset int64, buf []byte) (int, error) {
	return a.FS.Read(path, offset, buf)
}

func (a *Adapter) Write(path string, offset int64, data []byte) (int, error) {
	return a.FS.Write(path, offset, data)
}

func (a *Adapter) Unlink(path string) error {
	return a.FS.Unlink(path)
}
