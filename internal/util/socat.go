package util

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"qclctl/internal/logger"
)

// SocatManager manages lifecycle of socat-created virtual serial pairs.
// The simulator serves one end while a client opens the other like a real port.
type SocatManager struct {
	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool
	log    logger.Logger
}

// NewSocatManager initializes an empty manager.
func NewSocatManager(l logger.Logger) *SocatManager {
	if l == nil {
		l = logger.Nop()
	}
	return &SocatManager{log: l.With("component", "virt-serial")}
}

// CreatePair starts a socat process that links two PTYs (bidirectional) and
// waits until both links exist.
func (m *SocatManager) CreatePair(left, right string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("socat manager closed")
	}

	cmd := exec.Command(
		"socat", "-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}

	m.log.Info("started socat", "pid", cmd.Process.Pid, "left", left, "right", right)
	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)

	return WaitForLinks(2*time.Second, left, right)
}

// WaitForLinks polls until every path exists or timeout elapses.
func WaitForLinks(timeout time.Duration, paths ...string) error {
	deadline := time.Now().Add(timeout)
	for _, p := range paths {
		for {
			if _, err := os.Lstat(p); err == nil {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("virtual port %s not ready after %s", p, timeout)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	return nil
}

// Cleanup stops all socat processes and removes created links.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			m.log.Debug("killing socat", "pid", cmd.Process.Pid)
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}

	for _, path := range m.links {
		if _, err := os.Lstat(path); err == nil {
			_ = os.Remove(path)
			m.log.Debug("removed link", "path", path)
		}
	}

	m.log.Info("cleanup complete", "pairs", len(m.links)/2)
}
