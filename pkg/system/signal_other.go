//go:build !unix

package system

import (
	"os"
	"os/exec"
)

func signalName(state *os.ProcessState) (string, bool) {
	return "", false
}

func setProcessGroup(cmd *exec.Cmd) {}

func KillGroup(p *os.Process) error {
	return p.Kill()
}
