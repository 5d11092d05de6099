package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

const registryFileName = "daemon.json"

// FileRegistry implements domain.DaemonRegistry using a JSON file in the
// data directory.
type FileRegistry struct {
	path  string
	alive func(pid int32) (bool, error)
	now   func() time.Time
}

// NewFileRegistry creates a registry in dataDir.
func NewFileRegistry(dataDir string) *FileRegistry {
	return NewFileRegistryWithPath(filepath.Join(dataDir, registryFileName))
}

// NewFileRegistryWithPath creates a registry at a specific path (for testing).
func NewFileRegistryWithPath(path string) *FileRegistry {
	return &FileRegistry{
		path:  path,
		alive: process.PidExists,
		now:   time.Now,
	}
}

// Path returns the registry file path.
func (r *FileRegistry) Path() string {
	return r.path
}

// Register records the daemon. StartedAt and LastHeartbeat default to now
// and Mode to the detected execution mode.
func (r *FileRegistry) Register(info domain.DaemonInfo) error {
	now := r.now().Unix()
	if info.StartedAt == 0 {
		info.StartedAt = now
	}
	info.LastHeartbeat = now
	if info.Mode == "" {
		info.Mode = string(DetectExecMode().Mode)
	}
	return r.atomicWrite(&info)
}

// UpdateHeartbeat updates timestamp for liveness check.
func (r *FileRegistry) UpdateHeartbeat() error {
	info, err := r.Get()
	if err != nil {
		return err
	}
	if info == nil {
		return errors.New("daemon not registered")
	}
	info.LastHeartbeat = r.now().Unix()
	return r.atomicWrite(info)
}

// Get returns the registered daemon, or nil when the file does not exist.
func (r *FileRegistry) Get() (*domain.DaemonInfo, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var info domain.DaemonInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("corrupt registry %s: %w", r.path, err)
	}
	return &info, nil
}

// IsAlive checks if the registered daemon's pid is running.
func (r *FileRegistry) IsAlive() (bool, error) {
	info, err := r.Get()
	if err != nil || info == nil || info.PID == 0 {
		return false, err
	}
	return r.alive(int32(info.PID))
}

// Clear removes the registry file. A missing file is not an error.
func (r *FileRegistry) Clear() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// atomicWrite writes the registry via a temp file and rename.
func (r *FileRegistry) atomicWrite(info *domain.DaemonInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}

	// Unique per process so a CLI and the daemon never share a temp file.
	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

var _ domain.DaemonRegistry = (*FileRegistry)(nil)
