//go:build unix

package procexec

import (
	"errors"
	"log"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// SetProcessGroup makes cmd the leader of a new process group.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// KillProcessGroup sends SIGKILL to every process in the group led by pid.
// A group that is already gone is not an error.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	err := unix.Kill(-pid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		log.Printf("Invoker: kill process group %d: %v", pid, err)
	}
}
