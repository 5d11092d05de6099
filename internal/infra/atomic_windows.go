//go:build windows

package infra

import (
	"github.com/google/renameio/v2/maybe"
)

// Windows cannot replace an open file by rename; maybe writes in place.
func writeAtomic(path string, data []byte) error {
	return maybe.WriteFile(path, data, 0o644)
}

func renameUnsupported(error) bool { return false }
