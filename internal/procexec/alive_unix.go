//go:build unix

package procexec

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Alive reports whether pid refers to a running process. Zombies that are
// waiting to be reaped count as gone.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid)); err == nil {
		// state is the first field after the parenthesised command name
		if i := bytes.LastIndexByte(stat, ')'); i >= 0 && i+2 < len(stat) {
			return stat[i+2] != 'Z' && stat[i+2] != 'X'
		}
	}
	return unix.Kill(pid, 0) == nil
}
