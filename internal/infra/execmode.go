package infra

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// ExecMode represents the privilege level the agent runs with.
type ExecMode string

const (
	// ExecModeUser runs unprivileged: enforcement actions will mostly fail,
	// useful for trying the control API.
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root/Administrator and can enforce.
	ExecModeSystem ExecMode = "system"
)

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode      ExecMode
	DataDir   string // journal, encrypted store, key and registry
	HostsPath string
	IsRoot    bool
}

// DetectExecMode determines the execution mode from the effective UID.
func DetectExecMode() *ExecModeConfig {
	if IsElevated() {
		return &ExecModeConfig{
			Mode:      ExecModeSystem,
			DataDir:   systemDataDir(),
			HostsPath: DefaultHostsPath(),
			IsRoot:    true,
		}
	}
	return &ExecModeConfig{
		Mode:      ExecModeUser,
		DataDir:   filepath.Join(GetRealUserHome(), ".parentguard"),
		HostsPath: DefaultHostsPath(),
	}
}

// IsElevated reports whether the process may edit system files. On
// Windows os.Geteuid returns -1; the agent is expected to run as a service.
func IsElevated() bool {
	if runtime.GOOS == "windows" {
		return true
	}
	return os.Geteuid() == 0
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root, enforcing)"
	case ExecModeUser:
		return "user (non-root, enforcement will fail)"
	default:
		return "unknown"
	}
}

// DefaultHostsPath returns the system hosts file for this OS.
func DefaultHostsPath() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return filepath.Join(root, "System32", "drivers", "etc", "hosts")
	}
	return "/etc/hosts"
}

func systemDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if pd := os.Getenv("ProgramData"); pd != "" {
			return filepath.Join(pd, "ParentGuard")
		}
		return `C:\ProgramData\ParentGuard`
	case "darwin":
		return "/Library/Application Support/ParentGuard"
	default:
		return "/var/lib/parentguard"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns /root, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
