package domain

import (
	"context"
	"time"
)

// ProcessSupervisor enumerates and terminates OS processes.
// Implementation: uses gopsutil for cross-platform support.
type ProcessSupervisor interface {
	// ListActiveProcessNames returns lowercase names of running processes.
	ListActiveProcessNames(ctx context.Context) ([]string, error)

	// TerminateProcess kills every process whose name matches name.
	// Returns false when nothing matched.
	TerminateProcess(ctx context.Context, name string) (bool, error)
}

// NetworkToggle cuts or restores the device's connectivity.
// One implementation per platform, selected at build time.
type NetworkToggle interface {
	SetNetworkEnabled(ctx context.Context, enabled bool) error
}

// BlockFile reads and writes the system hosts file.
type BlockFile interface {
	// ReadBlockFile returns the whole file. A missing file reads as "".
	ReadBlockFile(ctx context.Context) (string, error)

	// WriteBlockFile replaces the file contents atomically.
	WriteBlockFile(ctx context.Context, contents string) error

	// Path returns the file location (for watchers and messages).
	Path() string
}

// ResolverCache flushes cached DNS answers. Best-effort.
type ResolverCache interface {
	FlushResolverCache(ctx context.Context) error
}

// Platform bundles every OS capability the core depends on.
type Platform interface {
	ProcessSupervisor
	NetworkToggle
	BlockFile
	ResolverCache
}

// Clock returns the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// Enforcer runs enforcement cycles.
type Enforcer interface {
	// RunCycle performs one enforcement pass over the current state.
	RunCycle(ctx context.Context) CycleReport

	// ResyncBlockList reapplies the managed hosts section if needed.
	ResyncBlockList(ctx context.Context) error
}

// ActivityJournal records what enforcement did, for parents to review.
type ActivityJournal interface {
	Record(ctx context.Context, ev ActivityEvent) error

	// List returns newest-first events, optionally filtered by profile.
	List(ctx context.Context, profileID string, limit int) ([]ActivityEvent, error)
}

// Notifier delivers a human-readable alert somewhere.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// DaemonRegistry lets the CLI discover the running daemon.
// Implementation: JSON file in the data directory.
type DaemonRegistry interface {
	// Register records the daemon's pid and API address.
	Register(info DaemonInfo) error

	// UpdateHeartbeat updates timestamp for liveness check.
	UpdateHeartbeat() error

	// Get returns the registered daemon, or nil when none is registered.
	Get() (*DaemonInfo, error)

	// IsAlive checks the registered pid.
	IsAlive() (bool, error)

	// Clear removes the registry file.
	Clear() error

	// Path returns the registry file path (for tests).
	Path() string
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// SecretAdminPINHash is the secret key holding the bcrypt hash of the
// admin PIN.
const SecretAdminPINHash = "admin_pin_hash"

// SecretStore provides encrypted persistent storage for secrets
// such as the admin PIN hash.
type SecretStore interface {
	// GetSecret retrieves a secret by key. Missing keys return ErrSecretNotFound.
	GetSecret(key string) (string, error)

	// SetSecret stores a secret.
	SetSecret(key, value string) error

	// DeleteSecret removes a secret; deleting a missing key is not an error.
	DeleteSecret(key string) error

	// Close releases resources (e.g., database connection).
	Close() error
}
