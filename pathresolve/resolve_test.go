package pathresolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tinyfs/tinyfs/datablock"
	"github.com/go-tinyfs/tinyfs/dirent"
	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/go-tinyfs/tinyfs/inode"
	"github.com/go-tinyfs/tinyfs/internal/tinyfstest"
	"github.com/go-tinyfs/tinyfs/layout"
	"github.com/go-tinyfs/tinyfs/pathresolve"
)

type fixture struct {
	inodes *inode.Store
	dirs   *dirent.Engine
	res    *pathresolve.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev, sb := tinyfstest.NewFormattedDevice(t)

	inodes, err := inode.Init(dev, sb)
	require.NoError(t, err)
	blocks, err := datablock.Init(dev, sb)
	require.NoError(t, err)
	dirs := dirent.New(dev, inodes, blocks)

	root, err := inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)
	require.EqualValues(t, pathresolve.RootIno, root.Ino)

	return &fixture{inodes: inodes, dirs: dirs, res: pathresolve.New(inodes, dirs)}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{}, pathresolve.Split("/"))
	assert.Equal(t, []string{"a", "b"}, pathresolve.Split("/a/b"))
	assert.Equal(t, []string{"a", "b"}, pathresolve.Split("/a/b/"))
}

func TestSplitParentChild(t *testing.T) {
	parent, child := pathresolve.SplitParentChild("/a/b/c")
	assert.Equal(t, "/a/b", parent)
	assert.Equal(t, "c", child)

	parent, child = pathresolve.SplitParentChild("/top")
	assert.Equal(t, "/", parent)
	assert.Equal(t, "top", child)
}

func TestResolveRoot(t *testing.T) {
	f := newFixture(t)
	root, err := f.res.Resolve("/")
	require.NoError(t, err)
	assert.True(t, root.IsDirectory())
}

func TestResolveNestedPath(t *testing.T) {
	f := newFixture(t)
	root, err := f.inodes.Read(pathresolve.RootIno)
	require.NoError(t, err)

	child, err := f.inodes.Alloc(layout.InodeTypeDirectory, 0755, 0, 0, 1)
	require.NoError(t, err)
	_, err = f.dirs.Add(root, child.Ino, "sub")
	require.NoError(t, err)

	file, err := f.inodes.Alloc(layout.InodeTypeRegular, 0644, 0, 0, 1)
	require.NoError(t, err)
	_, err = f.dirs.Add(child, file.Ino, "leaf.txt")
	require.NoError(t, err)

	found, err := f.res.Resolve("/sub/leaf.txt")
	require.NoError(t, err)
	assert.EqualValues(t, file.Ino, found.Ino)
}

func TestResolveMissingComponentNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.res.Resolve("/nope")
	assert.ErrorIs(t, err, tfserrors.ErrNotFound)
}

func TestResolveThroughRegularFileNotFound(t *testing.T) {
	f := newFixture(t)
	root, err := f.inodes.Read(pathresolve.RootIno)
	require.NoError(t, err)

	file, err := f.inodes.Alloc(layout.InodeTypeRegular, 0644, 0, 0, 1)
	require.NoError(t, err)
	_, err = f.dirs.Add(root, file.Ino, "afile")
	require.NoError(t, err)

	_, err = f.res.Resolve("/afile/more")
	assert.ErrorIs(t, err, tfserrors.ErrNotFound)
}
