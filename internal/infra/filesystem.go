package infra

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// HostsFile implements domain.BlockFile over a hosts file on disk.
type HostsFile struct {
	path   string
	logger *zap.Logger
}

// NewHostsFile creates a hosts file accessor. An empty path uses the
// platform default.
func NewHostsFile(path string, logger *zap.Logger) *HostsFile {
	if path == "" {
		path = DefaultHostsPath()
	}
	return &HostsFile{path: path, logger: logger}
}

// Path returns the hosts file location.
func (h *HostsFile) Path() string {
	return h.path
}

// ReadBlockFile returns the file contents; a missing file reads as "".
func (h *HostsFile) ReadBlockFile(context.Context) (string, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteBlockFile replaces the file atomically where the platform allows it.
// A hosts file that cannot be renamed over (a container bind mount, a
// different filesystem) is rewritten in place instead.
func (h *HostsFile) WriteBlockFile(_ context.Context, contents string) error {
	err := writeAtomic(h.path, []byte(contents))
	if err == nil || !renameUnsupported(err) {
		return err
	}
	h.logger.Debug("atomic replace failed, writing in place",
		zap.String("path", h.path),
		zap.Error(err))
	return os.WriteFile(h.path, []byte(contents), 0o644)
}

var _ domain.BlockFile = (*HostsFile)(nil)
