package bus

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	SockName = "control.sock"
	PidName  = "tsukkomi.pid"
)

// ~/.cache/tsukkomi
func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tsukkomi"), nil
}

func SockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func PidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

type pidManager struct {
	path string
}

func newPidManager() (*pidManager, error) {
	p, err := PidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: p}, nil
}

func (pm *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(pm.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pm.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (pm *pidManager) remove() error {
	return os.Remove(pm.path)
}

// checkExisting fails if the pid file names a live process. Stale and
// unreadable pid files are removed.
func (pm *pidManager) checkExisting() error {
	data, err := os.ReadFile(pm.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !pm.isProcessAlive(pid) {
		_ = pm.remove()
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (pm *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

type socketManager struct {
	path string
}

func newSocketManager() (*socketManager, error) {
	p, err := SockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: p}, nil
}

func (sm *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(sm.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sm.path) // stale socket from last run
	return net.Listen("unix", sm.path)
}

func (sm *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", sm.path)
}

func Listen() (net.Listener, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

func CheckExistingDaemon() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}
