package runtime

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

const (
	chunkSize = 4096

	// waitDelay bounds how long Wait keeps draining output after the
	// process exited, e.g. when a grandchild still holds the pipe.
	waitDelay = 2 * time.Second
)

// execProcess runs an exec.Cmd and streams its combined output.
type execProcess struct {
	cmd  *exec.Cmd
	out  chan string
	done chan struct{}

	mu       sync.Mutex
	exitCode int
	err      error
}

// startProcess starts cmd in its own process group. onChunk, when set,
// sees every chunk before it is delivered on Output.
func startProcess(cmd *exec.Cmd, onChunk func(string)) (*execProcess, error) {
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.WaitDelay = waitDelay
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, err
	}
	logging.Debug("process started", "pid", cmd.Process.Pid, "args", cmd.Args)

	p := &execProcess{
		cmd:  cmd,
		out:  make(chan string, 64),
		done: make(chan struct{}),
	}

	go func() {
		defer close(p.out)
		buf := make([]byte, chunkSize)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				chunk := string(buf[:n])
				if onChunk != nil {
					onChunk(chunk)
				}
				p.out <- chunk
			}
			if err != nil {
				return
			}
		}
	}()

	go func() {
		code, err := exitStatus(cmd.Wait())
		p.mu.Lock()
		p.exitCode, p.err = code, err
		p.mu.Unlock()
		_ = pw.Close()
		close(p.done)
		logging.Debug("process exited", "pid", cmd.Process.Pid, "code", code)
	}()

	return p, nil
}

// exitStatus converts a Wait error into an exit code. A non-zero exit is
// not an error.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *execProcess) Output() <-chan string {
	return p.out
}

func (p *execProcess) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.exitCode, p.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Kill terminates the whole process group so dev servers started through
// npm go away with it.
func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

func (p *execProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// readyURLRe matches the local URL dev servers print once listening.
var readyURLRe = regexp.MustCompile(`https?://(?:localhost|127\.0\.0\.1|0\.0\.0\.0|\[::1?\]):(\d{2,5})\S*`)

// readyWatcher finds the first server URL in a stream of output chunks.
type readyWatcher struct {
	pending string
	fired   bool
}

const maxPending = 4096

// feed returns the port and URL the first time one appears in the output.
func (w *readyWatcher) feed(chunk string) (int, string, bool) {
	if w.fired {
		return 0, "", false
	}
	w.pending += ansi.Strip(chunk)

	// Only complete lines can be matched reliably.
	cut := strings.LastIndexAny(w.pending, "\r\n")
	if cut < 0 {
		if len(w.pending) > maxPending {
			w.pending = w.pending[len(w.pending)-maxPending:]
		}
		return 0, "", false
	}
	complete := w.pending[:cut]
	w.pending = w.pending[cut+1:]

	m := readyURLRe.FindStringSubmatch(complete)
	if m == nil {
		return 0, "", false
	}
	port, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	w.fired = true
	return port, strings.TrimRight(m[0], "/"), true
}
