// Package bus is the control channel between the CLI and the daemon: a unix
// socket speaking one-byte commands and a pid file guarding single instances.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/procexec"
)

const SockName = "control.sock"
const PidName = "hyprdictate.pid"
const ProtoVer = "1.0"

// Control commands.
const (
	CmdToggle  byte = 't'
	CmdCancel  byte = 'c'
	CmdStatus  byte = 's'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

var (
	ErrDaemonRunning = errors.New("daemon already running")
	ErrNotRunning    = errors.New("daemon not running (start it with: hyprdictate serve)")
)

// Endpoint is the directory holding the socket and pid file.
type Endpoint struct {
	Dir string
}

// DefaultEndpoint returns ~/.cache/hyprdictate.
func DefaultEndpoint() (Endpoint, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Dir: filepath.Join(dir, "hyprdictate")}, nil
}

func (e Endpoint) SockPath() string { return filepath.Join(e.Dir, SockName) }
func (e Endpoint) PidPath() string  { return filepath.Join(e.Dir, PidName) }

func (e Endpoint) Listen() (net.Listener, error) {
	sp := e.SockPath()
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

func (e Endpoint) Dial() (net.Conn, error) {
	c, err := net.DialTimeout("unix", e.SockPath(), 2*time.Second)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrNotRunning
		}
		return nil, err
	}
	return c, nil
}

// SendCommand sends cmd and returns the daemon's one-line reply without the
// trailing newline.
func (e Endpoint) SendCommand(cmd byte) (string, error) {
	c, err := e.Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(10 * time.Second))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimRight(resp, "\n"), nil
}

// ReadPid returns the pid recorded in the pid file.
func (e Endpoint) ReadPid() (int, error) {
	data, err := os.ReadFile(e.PidPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file %s: %w", e.PidPath(), err)
	}
	return pid, nil
}

// CheckExistingDaemon fails when the pid file names a live process. Stale or
// unreadable pid files are removed.
func (e Endpoint) CheckExistingDaemon() error {
	pid, err := e.ReadPid()
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil || !procexec.Alive(pid) {
		return e.RemovePidFile()
	}
	return fmt.Errorf("%w with PID %d", ErrDaemonRunning, pid)
}

func (e Endpoint) CreatePidFile() error {
	pidPath := e.PidPath()
	if err := os.MkdirAll(filepath.Dir(pidPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (e Endpoint) RemovePidFile() error {
	err := os.Remove(e.PidPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ParseReply splits a reply line into its status word and key=value fields,
// e.g. "STATUS state=idle run=" -> ("STATUS", {"state": "idle", "run": ""}).
func ParseReply(line string) (string, map[string]string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	kv := make(map[string]string)
	for _, f := range fields[1:] {
		k, v, _ := strings.Cut(f, "=")
		kv[k] = v
	}
	return fields[0], kv
}
