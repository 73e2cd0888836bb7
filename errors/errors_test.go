package errors_test

import (
	"errors"
	"testing"

	tfserrors "github.com/go-tinyfs/tinyfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestDiskoErrorWithMessage(t *testing.T) {
	newErr := tfserrors.ErrNotFound.WithMessage("/a/b/c")
	assert.Equal(
		t, "no such file or directory: /a/b/c", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, tfserrors.ErrNotFound)
}

func TestDiskoErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := tfserrors.ErrExists.Wrap(originalErr)
	expectedMessage := "file exists: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
}

func TestToErrno(t *testing.T) {
	assert.Equal(t, 0, tfserrors.ToErrno(nil))
	assert.Equal(t, -int(tfserrors.ErrNotFound.Errno()), tfserrors.ToErrno(tfserrors.ErrNotFound))
	assert.Equal(
		t,
		-int(tfserrors.ErrNoSpaceOnDevice.Errno()),
		tfserrors.ToErrno(tfserrors.ErrNoSpaceOnDevice.WithMessage("full")),
	)
}
