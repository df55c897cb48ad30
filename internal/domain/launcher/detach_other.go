//go:build !unix && !windows

package launcher

import "os/exec"

func configureDetached(*exec.Cmd) {}
