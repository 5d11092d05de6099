//go:build !windows

package infra

import (
	"errors"
	"syscall"

	"github.com/google/renameio/v2"
)

func writeAtomic(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o644, renameio.WithExistingPermissions())
}

// renameUnsupported reports a rename that can never succeed for this path.
func renameUnsupported(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EXDEV)
}
