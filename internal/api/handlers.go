package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500

	elevationHint = "re-run parentguard with elevated privileges (sudo or an administrator shell)"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{OK: true, Message: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	required, err := s.pins.Required()
	if err != nil {
		s.logger.Warn("failed to read admin PIN state", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Version:     s.config.Version,
		StartedAt:   s.startedAt,
		PINRequired: required,
		State:       s.ctrl.Status(),
	})
}

func (s *Server) handleScreenTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ScreenTimeResponse{
		MinutesUsed:       s.ctrl.ScreenTime(),
		DailyLimitMinutes: s.ctrl.Status().Rules.DailyLimitMinutes,
	})
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	names, err := s.ctrl.ListProcesses(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessesResponse{Processes: names})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("%w: limit %q", domain.ErrInvalidInput, raw))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	events, err := s.ctrl.Activity(r.Context(), r.URL.Query().Get("profile"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Events: events})
}

func (s *Server) handleUpdateRules(w http.ResponseWriter, r *http.Request) {
	var spec policy.RuleSpec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		s.writeError(w, fmt.Errorf("%w: rules body: %v", domain.ErrInvalidInput, err))
		return
	}

	rules, err := spec.ToRuleSet(s.presets)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	s.reply(r.Context(), w, func(ctx context.Context) (string, error) {
		return s.ctrl.UpdateRules(ctx, rules)
	})
}

func (s *Server) handleBlockSite(w http.ResponseWriter, r *http.Request) {
	site := pathParam(r, "domain")
	s.reply(r.Context(), w, func(ctx context.Context) (string, error) {
		return s.ctrl.BlockSite(ctx, site)
	})
}

func (s *Server) handleUnblockSite(w http.ResponseWriter, r *http.Request) {
	site := pathParam(r, "domain")
	s.reply(r.Context(), w, func(ctx context.Context) (string, error) {
		return s.ctrl.UnblockSite(ctx, site)
	})
}

func (s *Server) handleKillProcess(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if name == "" {
		s.writeError(w, fmt.Errorf("%w: empty process name", domain.ErrInvalidInput))
		return
	}
	s.reply(r.Context(), w, func(ctx context.Context) (string, error) {
		return s.ctrl.KillProcess(ctx, name)
	})
}

// pathParam returns the unescaped route parameter; chi matches on the
// raw path, so an escaped URL such as https:%2F%2Fexample.com arrives
// still escaped.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// command adapts a no-argument command to a handler.
func (s *Server) command(fn func(context.Context) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.reply(r.Context(), w, fn)
	}
}

func (s *Server) reply(ctx context.Context, w http.ResponseWriter, fn func(context.Context) (string, error)) {
	msg, err := fn(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{OK: true, Message: msg})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("command failed", zap.Error(err))
	}
	writeJSON(w, status, Response{Message: errorMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProcessNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLockContention):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage appends a privilege hint to permission failures.
func errorMessage(err error) string {
	if errors.Is(err, fs.ErrPermission) {
		return err.Error() + ": " + elevationHint
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
