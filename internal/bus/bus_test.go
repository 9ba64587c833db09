package bus

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"
)

func testEndpoint(t *testing.T) Endpoint {
	t.Helper()
	return Endpoint{Dir: t.TempDir()}
}

func TestPidFile(t *testing.T) {
	e := testEndpoint(t)

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := e.CreatePidFile(); err != nil {
			t.Fatalf("CreatePidFile failed: %v", err)
		}

		pidData, err := os.ReadFile(e.PidPath())
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if expected := strconv.Itoa(os.Getpid()); string(pidData) != expected {
			t.Errorf("PID file contains %q, expected %q", string(pidData), expected)
		}

		pid, err := e.ReadPid()
		if err != nil || pid != os.Getpid() {
			t.Errorf("ReadPid() = %d, %v", pid, err)
		}

		if err := e.RemovePidFile(); err != nil {
			t.Fatalf("RemovePidFile failed: %v", err)
		}
		if _, err := os.Stat(e.PidPath()); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
		if err := e.RemovePidFile(); err != nil {
			t.Errorf("removing a missing PID file should not fail: %v", err)
		}
	})

	t.Run("no PID file", func(t *testing.T) {
		if err := e.CheckExistingDaemon(); err != nil {
			t.Errorf("CheckExistingDaemon should not error when no PID file exists: %v", err)
		}
	})

	t.Run("live process", func(t *testing.T) {
		if err := e.CreatePidFile(); err != nil {
			t.Fatalf("CreatePidFile failed: %v", err)
		}
		defer e.RemovePidFile()

		err := e.CheckExistingDaemon()
		if !errors.Is(err, ErrDaemonRunning) {
			t.Errorf("CheckExistingDaemon error = %v, want ErrDaemonRunning", err)
		}
	})

	t.Run("stale PID file", func(t *testing.T) {
		cmd := exec.Command("true")
		if err := cmd.Run(); err != nil {
			t.Skipf("cannot run true: %v", err)
		}
		stale := strconv.Itoa(cmd.Process.Pid)
		if err := os.WriteFile(e.PidPath(), []byte(stale), 0o600); err != nil {
			t.Fatalf("failed to write stale PID file: %v", err)
		}

		if err := e.CheckExistingDaemon(); err != nil {
			t.Errorf("CheckExistingDaemon should succeed with stale PID: %v", err)
		}
		if _, err := os.Stat(e.PidPath()); !os.IsNotExist(err) {
			t.Error("stale PID file should be removed")
		}
	})

	t.Run("invalid PID file", func(t *testing.T) {
		if err := os.WriteFile(e.PidPath(), []byte("invalid"), 0o600); err != nil {
			t.Fatalf("failed to write invalid PID file: %v", err)
		}

		if err := e.CheckExistingDaemon(); err != nil {
			t.Errorf("CheckExistingDaemon should succeed with invalid PID: %v", err)
		}
		if _, err := os.Stat(e.PidPath()); !os.IsNotExist(err) {
			t.Error("invalid PID file should be removed")
		}
	})
}

func TestSocketRoundTrip(t *testing.T) {
	e := testEndpoint(t)

	ln, err := e.Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(c).ReadString('\n')
			fmt.Fprintf(c, "OK got=%c\n", line[0])
			c.Close()
		}
	}()

	for _, cmd := range []byte{CmdToggle, CmdStatus, CmdQuit} {
		resp, err := e.SendCommand(cmd)
		if err != nil {
			t.Fatalf("SendCommand(%c) failed: %v", cmd, err)
		}
		if want := fmt.Sprintf("OK got=%c", cmd); resp != want {
			t.Errorf("SendCommand(%c) = %q, want %q", cmd, resp, want)
		}
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	e := testEndpoint(t)
	if err := os.WriteFile(e.SockPath(), []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := e.Listen()
	if err != nil {
		t.Fatalf("Listen should replace a stale socket file: %v", err)
	}
	ln.Close()
}

func TestDialNotRunning(t *testing.T) {
	e := testEndpoint(t)

	start := time.Now()
	_, err := e.SendCommand(CmdStatus)
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("SendCommand without daemon error = %v, want ErrNotRunning", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("dialing a missing socket should fail fast")
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		line   string
		status string
		fields map[string]string
	}{
		{"STATUS state=idle proto=1.0", "STATUS", map[string]string{"state": "idle", "proto": "1.0"}},
		{"OK recording", "OK", map[string]string{"recording": ""}},
		{"ERR busy", "ERR", map[string]string{"busy": ""}},
		{"", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			status, fields := ParseReply(tt.line)
			if status != tt.status {
				t.Errorf("status = %q, want %q", status, tt.status)
			}
			if len(fields) != len(tt.fields) {
				t.Fatalf("fields = %v, want %v", fields, tt.fields)
			}
			for k, v := range tt.fields {
				if fields[k] != v {
					t.Errorf("fields[%q] = %q, want %q", k, fields[k], v)
				}
			}
		})
	}
}
