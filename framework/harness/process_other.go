//go:build !unix

package harness

import (
	"errors"
	"os"
	"os/exec"
)

func configureProcessGroup(cmd *exec.Cmd) {}

// Without Unix signals there is no equivalent of SIGINT that can be sent to another process, so the graceful step
// is skipped and the grace period simply elapses before the process is killed.
func interruptProcess(p *os.Process) error {
	return nil
}

func killProcess(p *os.Process) error {
	err := p.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
