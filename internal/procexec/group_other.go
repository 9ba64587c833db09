//go:build !unix

package procexec

import (
	"os"
	"os/exec"
)

func SetProcessGroup(cmd *exec.Cmd) {}

// KillProcessGroup falls back to killing the direct child; platforms without
// process groups can leak grandchildren.
func KillProcessGroup(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}
