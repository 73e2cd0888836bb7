// Package pathresolve walks slash-separated paths against the directory
// engine to find the inode a path names. It never modifies state.
package pathresolve

import (
	"strings"

	"github.com/go-tinyfs/tinyfs/dirent"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/layout"
)

// RootIno is the inode number of the root directory, fixed for the lifetime
// of the file system.
const RootIno = 0

// Resolver looks up paths against an inode store and directory engine.
type Resolver struct {
	inodes *inode.Store
	dirs   *dirent.Engine
}

// New builds a Resolver over the given stores.
func New(inodes *inode.Store, dirs *dirent.Engine) *Resolver {
	return &Resolver{inodes: inodes, dirs: dirs}
}

// Split breaks path into '/'-separated components, dropping empty leading
// and trailing segments produced by a leading or trailing slash.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitParentChild splits path into its parent directory path and its base
// name, the way mkdir/create/unlink/rmdir need to resolve the containing
// directory separately from the entry being added or removed.
func SplitParentChild(path string) (parent string, child string) {
	components := Split(path)
	if len(components) == 0 {
		return "/", ""
	}

	child = components[len(components)-1]
	parentComponents := components[:len(components)-1]
	parent = "/" + strings.Join(parentComponents, "/")
	return parent, child
}

// Resolve walks path starting from the root directory and returns the
// inode it names. A bare "/" resolves to the root inode.
func (r *Resolver) Resolve(path string) (layout.RawInode, error) {
	return r.ResolveFrom(RootIno, path)
}

// ResolveFrom walks path starting from startIno, rather than always the
// root; the facade uses it to look up a path's final component inside its
// already-resolved parent directory.
func (r *Resolver) ResolveFrom(startIno uint32, path string) (layout.RawInode, error) {
	current, err := r.inodes.Read(startIno)
	if err != nil {
		return layout.RawInode{}, err
	}
	if !current.IsValid() {
		return layout.RawInode{}, tfserrors.ErrNotFound
	}

	components := Split(path)
	for _, name := range components {
		// current names a regular file but path has a further component to
		// walk into it — there's nothing to descend into.
		if !current.IsDirectory() {
			return layout.RawInode{}, tfserrors.ErrNotFound
		}

		entry, err := r.dirs.Find(current, name)
		if err != nil {
			return layout.RawInode{}, tfserrors.ErrNotFound
		}

		current, err = r.inodes.Read(entry.Ino)
		if err != nil {
			return layout.RawInode{}, err
		}
		if !current.IsValid() {
			return layout.RawInode{}, tfserrors.ErrFileSystemCorrupted
		}
	}

	return current, nil
}
