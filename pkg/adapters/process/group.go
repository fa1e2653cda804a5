// Package process manages external processes scoped to one session.
//
// Processes are only ever started from configured Specs. Session values are
// passed through environment variables, never as command-line flags.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/roomservice/internal/logging"
)

// DefaultGrace is how long a process gets to exit after SIGTERM before it is killed.
const DefaultGrace = 3 * time.Second

// EnvPrefix prefixes every variable passed to a started process.
const EnvPrefix = "ROOMSERVICE_"

// ErrStopped is returned by Start after the group has been stopped.
var ErrStopped = errors.New("process group stopped")

type proc struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
}

// Group tracks the processes of one session.
type Group struct {
	mu      sync.Mutex
	procs   map[int]*proc
	stopped bool

	grace  time.Duration
	dir    string
	logger *slog.Logger
}

// Option configures the Group.
type Option func(*Group)

// WithGrace sets the terminate-to-kill window.
func WithGrace(d time.Duration) Option {
	return func(g *Group) {
		g.grace = d
	}
}

// WithBaseDir sets the working directory for started processes.
func WithBaseDir(dir string) Option {
	return func(g *Group) {
		g.dir = dir
	}
}

// WithLogger configures a logger for the Group.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Group) {
		g.logger = logger
	}
}

// NewGroup creates an empty Group.
func NewGroup(opts ...Option) *Group {
	g := &Group{
		procs:  make(map[int]*proc),
		grace:  DefaultGrace,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start launches spec with vars exported as ROOMSERVICE_<KEY>=value.
// The process is not bound to ctx; it lives until it exits or Stop is called.
func (g *Group) Start(ctx context.Context, spec Spec, vars map[string]string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return 0, ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = g.dir
	cmd.Env = append(cmd.Environ(), environment(spec.Environment, vars)...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}

	p := &proc{name: spec.Name, cmd: cmd, done: make(chan struct{})}
	pid := cmd.Process.Pid
	g.procs[pid] = p

	go func() {
		err := cmd.Wait()
		close(p.done)
		g.mu.Lock()
		delete(g.procs, pid)
		g.mu.Unlock()
		g.logger.Debug("Session process exited", "name", spec.Name, "pid", pid, "err", err)
	}()

	g.logger.Info("Session process started", "name", spec.Name, "pid", pid)
	return pid, nil
}

// Len returns the number of running processes.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.procs)
}

// Stop asks every process to terminate and kills those still running after
// the grace window. It blocks until all of them exited. Later Start calls fail.
func (g *Group) Stop() {
	g.mu.Lock()
	g.stopped = true
	procs := make([]*proc, 0, len(g.procs))
	for _, p := range g.procs {
		procs = append(procs, p)
	}
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p *proc) {
			defer wg.Done()
			g.terminate(p)
		}(p)
	}
	wg.Wait()
}

func (g *Group) terminate(p *proc) {
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		g.logger.Debug("SIGTERM not delivered, killing", "name", p.name, "err", err)
		_ = p.cmd.Process.Kill()
	}

	timer := time.NewTimer(g.grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return
	case <-timer.C:
		g.logger.Warn("Session process ignored SIGTERM, killing", "name", p.name, "pid", p.cmd.Process.Pid, "grace", g.grace)
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}

func environment(static, vars map[string]string) []string {
	env := make([]string, 0, len(static)+len(vars))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+vars[k])
	}
	return env
}
