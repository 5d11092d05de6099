package api

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// MinPINLength is the shortest admin PIN accepted.
const MinPINLength = 4

var (
	ErrPINRequired = errors.New("admin PIN required")
	ErrWrongPIN    = errors.New("wrong admin PIN")
)

// PINGuard checks the admin PIN against the bcrypt hash kept in the
// secret store. With no store, or no PIN set, every request passes.
type PINGuard struct {
	store domain.SecretStore
	cost  int
}

func NewPINGuard(store domain.SecretStore) *PINGuard {
	return &PINGuard{store: store, cost: bcrypt.DefaultCost}
}

// Required reports whether a PIN has been set.
func (g *PINGuard) Required() (bool, error) {
	_, set, err := g.hash()
	return set, err
}

// Verify returns nil when pin matches or no PIN is set.
func (g *PINGuard) Verify(pin string) error {
	hash, set, err := g.hash()
	if err != nil {
		return err
	}
	if !set {
		return nil
	}
	if pin == "" {
		return ErrPINRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
		return ErrWrongPIN
	}
	return nil
}

// Set hashes and stores a new PIN.
func (g *PINGuard) Set(pin string) error {
	if g.store == nil {
		return errors.New("no secret store configured")
	}
	if utf8.RuneCountInString(pin) < MinPINLength {
		return fmt.Errorf("%w: PIN must be at least %d characters", domain.ErrInvalidInput, MinPINLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), g.cost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	return g.store.SetSecret(domain.SecretAdminPINHash, string(hash))
}

// Clear removes the PIN, opening the mutating routes again.
func (g *PINGuard) Clear() error {
	if g.store == nil {
		return nil
	}
	return g.store.DeleteSecret(domain.SecretAdminPINHash)
}

func (g *PINGuard) hash() (string, bool, error) {
	if g.store == nil {
		return "", false, nil
	}
	hash, err := g.store.GetSecret(domain.SecretAdminPINHash)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read admin PIN: %w", err)
	}
	return hash, hash != "", nil
}

func (s *Server) requirePIN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := s.pins.Verify(r.Header.Get(HeaderAdminPIN))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, ErrPINRequired), errors.Is(err, ErrWrongPIN):
			s.logger.Info("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, Response{Message: err.Error()})
		default:
			s.logger.Error("PIN check failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Response{Message: err.Error()})
		}
	})
}
