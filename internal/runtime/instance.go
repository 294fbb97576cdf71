package runtime

import (
	"context"
	"os/exec"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/mount"
)

// commandFunc builds the command that runs opts inside an instance.
type commandFunc func(ctx context.Context, opts SpawnOptions) (*exec.Cmd, error)

// urlFunc maps a URL seen in process output to one reachable from the host.
type urlFunc func(ctx context.Context, port int, url string) (int, string)

// hostInstance is an instance whose project root is a host directory.
// Local and container runtimes differ only in how commands are built,
// how URLs are mapped and how the instance is torn down.
type hostInstance struct {
	root    string
	fs      billy.Filesystem
	command commandFunc
	mapURL  urlFunc
	cleanup func() error

	mu        sync.Mutex
	listeners map[int]ServerReadyFunc
	nextID    int
	procs     []*execProcess
	closed    bool
}

func newHostInstance(root string, command commandFunc, mapURL urlFunc, cleanup func() error) *hostInstance {
	return &hostInstance{
		root:      root,
		fs:        osfs.New(root),
		command:   command,
		mapURL:    mapURL,
		cleanup:   cleanup,
		listeners: make(map[int]ServerReadyFunc),
	}
}

// Root returns the host directory holding the project.
func (i *hostInstance) Root() string {
	return i.root
}

func (i *hostInstance) Mount(ctx context.Context, tree mount.Tree) error {
	logging.Debug("mounting project", "root", i.root, "files", len(mount.Files(tree)))
	return mount.Materialize(i.fs, tree)
}

func (i *hostInstance) Spawn(ctx context.Context, opts SpawnOptions) (Process, error) {
	cmd, err := i.command(ctx, opts)
	if err != nil {
		return nil, err
	}

	watcher := &readyWatcher{}
	proc, err := startProcess(cmd, func(chunk string) {
		if port, url, ok := watcher.feed(chunk); ok {
			i.announce(port, url)
		}
	})
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	live := i.procs[:0]
	for _, p := range i.procs {
		if !p.exited() {
			live = append(live, p)
		}
	}
	i.procs = append(live, proc)
	i.mu.Unlock()

	return proc, nil
}

func (i *hostInstance) announce(port int, url string) {
	if i.mapURL != nil {
		port, url = i.mapURL(context.Background(), port, url)
	}
	logging.Debug("server ready", "port", port, "url", url)

	i.mu.Lock()
	fns := make([]ServerReadyFunc, 0, len(i.listeners))
	for _, fn := range i.listeners {
		fns = append(fns, fn)
	}
	i.mu.Unlock()

	for _, fn := range fns {
		fn(port, url)
	}
}

func (i *hostInstance) OnServerReady(fn ServerReadyFunc) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextID
	i.nextID++
	i.listeners[id] = fn
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.listeners, id)
	}
}

func (i *hostInstance) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	procs := i.procs
	i.procs = nil
	i.mu.Unlock()

	for _, p := range procs {
		if err := p.Kill(); err != nil {
			logging.Debug("failed to kill process", "error", err)
		}
	}
	if i.cleanup != nil {
		return i.cleanup()
	}
	return nil
}
