package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// StartDetached re-executes the current binary with args, detached from
// the terminal, and returns the child's pid. Child output is appended to
// logPath when it is set and discarded otherwise.
func StartDetached(args []string, logPath string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, err
	}
	return startDetached(executable, args, logPath)
}

func startDetached(executable string, args []string, logPath string) (int, error) {
	cmd := exec.Command(executable, args...)
	cmd.SysProcAttr = detachedProcAttr()
	cmd.Stdin = nil

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return 0, fmt.Errorf("open daemon log: %w", err)
		}
		// The child holds its own descriptor once started.
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", executable, err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// StripDetachFlag removes --detach in any of its spellings so the child
// runs in the foreground of its own session.
func StripDetachFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || a == "-d" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
