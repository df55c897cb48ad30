//go:build unix

package launcher

import (
	"os/exec"
	"syscall"
)

// configureDetached puts the child in its own process group so signals sent
// to the launcher's group do not reach it.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
