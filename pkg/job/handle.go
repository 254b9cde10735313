package job

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// cmdHandle wraps a spawned user command. The command runs in its own
// process group so that Kill reaches every descendant, not just the
// immediate child.
type cmdHandle struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// startCommand spawns argv with inherited standard streams in a fresh
// process group and begins reaping it in the background.
func startCommand(argv []string) (*cmdHandle, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	h := &cmdHandle{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

// Done is closed once the command has exited and been reaped.
func (h *cmdHandle) Done() <-chan struct{} {
	return h.done
}

// Kill delivers SIGKILL to the command's process group. A group that has
// already exited is not an error.
func (h *cmdHandle) Kill() error {
	err := unix.Kill(-h.cmd.Process.Pid, unix.SIGKILL)
	if err == unix.ESRCH {
		return nil
	}
	return err
}

// ExitErr returns the command's wait error once it has exited, nil while
// it is still running.
func (h *cmdHandle) ExitErr() error {
	select {
	case <-h.done:
		return h.waitErr
	default:
		return nil
	}
}
