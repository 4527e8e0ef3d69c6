package exec

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	osexec "os/exec"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/subproc/errors"
	"github.com/jmgilman/go/subproc/stream"
)

// State is the lifecycle phase of a Command.
type State int

const (
	// StateCreated means the command has not been started.
	StateCreated State = iota
	// StateRunning means the program or callable is live.
	StateRunning
	// StateExited means the program or callable has finished.
	StateExited
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Command is one invocation of an external program or an in-process Func,
// with its three standard streams.
//
// The streams are created by New and never replaced. A Command is started at
// most once.
type Command struct {
	Stdin  *stream.Stream
	Stdout *stream.Stream
	Stderr *stream.Stream

	id     string
	target Target
	cfg    *config
	log    *Logger

	// ctx is handed to callables and canceled by Signal and Kill.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	returnCode int
	hasCode    bool
	signaled   os.Signal
	err        error
	proc       *os.Process
	files      []*os.File

	exited chan struct{}
	pumps  errgroup.Group
}

// New validates target and opts and returns an unstarted Command. No
// goroutine or process exists until Start.
func New(target Target, opts ...Option) (*Command, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Command{
		id:     uuid.NewString(),
		target: target,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		exited: make(chan struct{}),
	}
	c.log = cfg.logger.With("command_id", c.id, "argv", c.String())

	if err := c.wireStreams(); err != nil {
		cancel()
		return nil, err
	}

	return c, nil
}

func validateTarget(target Target) error {
	switch t := target.(type) {
	case nil:
		return errors.New(errors.CodeInvalidInput, "invalid command: nil target")
	case ProgramTarget:
		if len(t.Args) == 0 {
			return errors.New(errors.CodeInvalidInput, "invalid command: empty argv")
		}
		if t.Args[0] == "" {
			return errors.New(errors.CodeInvalidInput, "invalid command: empty program name")
		}
	case CallableTarget:
		if t.Fn == nil {
			return errors.New(errors.CodeInvalidInput, "invalid command: nil callable")
		}
	default:
		return errors.Newf(errors.CodeInvalidInput, "invalid command: unsupported target %T", target)
	}
	return nil
}

func (c *Command) wireStreams() error {
	c.Stdin = stream.New(stream.WithKeep(), stream.WithName("stdin"))
	switch c.cfg.stdin {
	case stdinValues:
		if err := c.Stdin.WriteAll(c.cfg.stdinValues...); err != nil {
			return err
		}
	case stdinDiscard, stdinInherit:
		c.Stdin.Close()
	}

	var err error
	if c.Stdout, err = newOutput("stdout", c.cfg.stdout); err != nil {
		return err
	}
	if c.Stderr, err = newOutput("stderr", c.cfg.stderr); err != nil {
		return err
	}
	return nil
}

func newOutput(name string, out output) (*stream.Stream, error) {
	s := stream.New(stream.WithName(name))
	switch {
	case out.mode != outputCapture:
		s.Close()
	case !out.custom:
		s.SetKeep(true)
	default:
		if err := s.Subscribe(out.sinks...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start launches the command and returns without waiting for it. Starting a
// command a second time fails with ErrAlreadyRunning, even after it exited.
func (c *Command) Start() error {
	c.mu.Lock()
	if c.state != StateCreated {
		c.mu.Unlock()
		return c.annotate(errors.Wrapf(ErrAlreadyRunning, errors.CodeAlreadyRunning, "start %s", c))
	}
	c.state = StateRunning
	c.mu.Unlock()

	switch c.cfg.stdin {
	case stdinValues:
		c.Stdin.Close()
	case stdinChan:
		c.pumps.Go(c.guard("stdin", c.Stdin, c.feedChan))
	}

	switch t := c.target.(type) {
	case ProgramTarget:
		if err := c.startProgram(t); err != nil {
			c.log.Warn(c.ctx, "command failed to start", "error", err)
			c.fail(err)
			return err
		}
	case CallableTarget:
		c.startCallable(t)
	}

	c.log.Debug(c.ctx, "command started")
	return nil
}

// Run starts the command and waits for it. See Wait.
func (c *Command) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	return c.Wait(ctx)
}

// pipeSet tracks the pipe ends created for one spawn.
type pipeSet struct {
	child  []*os.File
	parent []*os.File
}

func (p *pipeSet) open() (r, w *os.File, err error) {
	r, w, err = os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return r, w, nil
}

func (p *pipeSet) output(mode outputMode, inherit *os.File) (io.Writer, *os.File, error) {
	switch mode {
	case outputInherit:
		return inherit, nil, nil
	case outputDiscard:
		return nil, nil, nil
	}

	r, w, err := p.open()
	if err != nil {
		return nil, nil, err
	}
	p.child = append(p.child, w)
	p.parent = append(p.parent, r)
	return w, r, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func (c *Command) startProgram(t ProgramTarget) (err error) {
	cmd := osexec.Command(t.Args[0], t.Args[1:]...)
	cmd.Dir = c.cfg.dir
	cmd.Env = c.cfg.environ()

	var p pipeSet
	defer func() {
		closeAll(p.child)
		if err != nil {
			closeAll(p.parent)
		}
	}()

	var stdinW *os.File
	switch c.cfg.stdin {
	case stdinInherit:
		cmd.Stdin = os.Stdin
	case stdinValues, stdinOpen, stdinChan:
		r, w, perr := p.open()
		if perr != nil {
			return c.spawnError(perr)
		}
		p.child = append(p.child, r)
		p.parent = append(p.parent, w)
		cmd.Stdin = r
		stdinW = w
	}

	var stdoutR, stderrR *os.File
	if cmd.Stdout, stdoutR, err = p.output(c.cfg.stdout.mode, os.Stdout); err != nil {
		return c.spawnError(err)
	}
	if cmd.Stderr, stderrR, err = p.output(c.cfg.stderr.mode, os.Stderr); err != nil {
		return c.spawnError(err)
	}

	if err := cmd.Start(); err != nil {
		return c.spawnError(err)
	}

	c.mu.Lock()
	c.proc = cmd.Process
	c.files = p.parent
	c.mu.Unlock()

	if stdinW != nil {
		c.pumps.Go(c.guard("stdin", c.Stdin, func() error {
			return c.pumpError("stdin", feed(stdinW, c.Stdin, c.cfg.binary))
		}))
	}
	if stdoutR != nil {
		c.pumps.Go(c.guard("stdout", c.Stdout, func() error { return c.drain("stdout", stdoutR, c.Stdout) }))
	}
	if stderrR != nil {
		c.pumps.Go(c.guard("stderr", c.Stderr, func() error { return c.drain("stderr", stderrR, c.Stderr) }))
	}

	go c.watch(cmd)
	return nil
}

func (c *Command) spawnError(err error) error {
	return c.annotate(errors.Wrapf(err, errors.CodeExecutionFailed, "start %s", c))
}

// fail records a spawn failure as the outcome of the command.
func (c *Command) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.state = StateExited
	c.mu.Unlock()

	c.closeStreams()
	close(c.exited)
}

func (c *Command) closeStreams() {
	c.Stdin.Close()
	c.Stdout.Close()
	c.Stderr.Close()
}

// watch waits for the process, records its status and releases stdin.
func (c *Command) watch(cmd *osexec.Cmd) {
	waitErr := cmd.Wait()

	c.mu.Lock()
	if ps := cmd.ProcessState; ps != nil {
		code, sig := exitStatus(ps)
		c.returnCode, c.hasCode = code, true
		if sig != nil {
			c.signaled = sig
		}
	} else {
		c.err = c.annotate(errors.Wrapf(waitErr, errors.CodeInternal, "wait for %s", c))
	}
	c.state = StateExited
	code := c.returnCode
	c.mu.Unlock()

	c.Stdin.Close()
	c.log.Debug(c.ctx, "command exited", "returncode", code)
	close(c.exited)
}

// exitStatus returns the return code of a finished process. A process killed
// by a signal reports the negated signal number.
func exitStatus(ps *os.ProcessState) (int, os.Signal) {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal()), ws.Signal()
	}
	return ps.ExitCode(), nil
}

func (c *Command) drain(name string, r *os.File, out *stream.Stream) error {
	defer out.Close()
	defer r.Close()

	var err error
	if c.cfg.binary {
		err = readChunks(r, out, c.cfg.bufsize)
	} else {
		err = readLines(r, out, c.cfg.rstrip)
	}
	return c.pumpError(name, err)
}

func (c *Command) feedChan() error {
	for {
		select {
		case v, ok := <-c.cfg.stdinCh:
			if !ok {
				c.Stdin.Close()
				return nil
			}
			if err := c.Stdin.Write(v); err != nil {
				return c.pumpError("stdin", err)
			}
		case <-c.Stdin.Done():
			return nil
		}
	}
}

// guard wraps a pump so that a panic, usually raised by a subscribed sink,
// closes s and is returned as a CodeInternal error instead of crashing the
// program.
func (c *Command) guard(name string, s *stream.Stream, pump func() error) func() error {
	return func() (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			s.Close()
			if perr, ok := r.(error); ok {
				err = errors.Wrapf(perr, errors.CodeInternal, "%s pump for %s panicked", name, c)
			} else {
				err = errors.Newf(errors.CodeInternal, "%s pump for %s panicked: %v", name, c, r)
			}
			err = errors.WithContext(c.annotate(err), "stack", string(debug.Stack()))
			c.log.Warn(c.ctx, "stream pump panicked", "stream", name, "panic", r)
		}()
		return pump()
	}
}

func (c *Command) pumpError(name string, err error) error {
	if err == nil {
		return nil
	}
	c.log.Warn(c.ctx, "stream pump failed", "stream", name, "error", err)
	return c.annotate(errors.Wrapf(err, errors.CodeInternal, "%s pump for %s", name, c))
}

func (c *Command) startCallable(t CallableTarget) {
	go func() {
		code, err := c.invoke(t)

		c.mu.Lock()
		c.returnCode, c.hasCode = code, err == nil
		c.err = err
		c.state = StateExited
		c.mu.Unlock()

		c.closeStreams()
		if err != nil {
			c.log.Debug(c.ctx, "callable failed", "error", err)
		} else {
			c.log.Debug(c.ctx, "command exited", "returncode", code)
		}
		close(c.exited)
	}()
}

func (c *Command) invoke(t CallableTarget) (code int, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		code = 0
		if perr, ok := r.(error); ok {
			err = errors.Wrapf(perr, errors.CodeCallableFailed, "%s panicked", c)
		} else {
			err = errors.Newf(errors.CodeCallableFailed, "%s panicked: %v", c, r)
		}
		err = errors.WithContext(c.annotate(err), "stack", string(debug.Stack()))
	}()

	code, err = t.Fn(c.ctx, c, slices.Clone(t.Args))
	if err != nil {
		return 0, c.annotate(errors.Wrapf(err, errors.CodeCallableFailed, "%s failed", c))
	}
	return code, nil
}

// Wait blocks until the command has finished, its three streams have reached
// end of data and its pumps have stopped. It returns nil for a command that
// was never started.
//
// A callable's error is returned as soon as the callable has finished. If ctx
// ends first Wait returns an error with code CodeTimeout or CodeCanceled and
// the command keeps running.
func (c *Command) Wait(ctx context.Context) error {
	if c.State() == StateCreated {
		return nil
	}

	if err := c.await(ctx, c.exited); err != nil {
		return err
	}
	if err := c.Err(); err != nil {
		return err
	}

	for _, s := range []*stream.Stream{c.Stdin, c.Stdout, c.Stderr} {
		if err := c.await(ctx, s.Done()); err != nil {
			return err
		}
	}

	joined := make(chan struct{})
	var pumpErr error
	go func() {
		pumpErr = c.pumps.Wait()
		close(joined)
	}()
	if err := c.await(ctx, joined); err != nil {
		return err
	}
	return pumpErr
}

func (c *Command) await(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	err := ctx.Err()
	code := errors.CodeCanceled
	if stderrors.Is(err, context.DeadlineExceeded) {
		code = errors.CodeTimeout
	}
	return c.annotate(errors.Wrapf(err, code, "wait for %s", c))
}

// Signal delivers sig. For a program the signal is sent to the process; for a
// callable the command context is canceled. Signaling a finished program is a
// no-op.
func (c *Command) Signal(sig os.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCreated {
		return c.annotate(errors.Wrapf(ErrNotStarted, errors.CodeInvalidInput, "signal %s", c))
	}

	if _, ok := c.target.(CallableTarget); ok {
		c.signaled = sig
		c.cancel()
		c.log.Debug(c.ctx, "callable signaled", "signal", sig)
		return nil
	}

	if c.proc == nil {
		return nil
	}
	if err := c.proc.Signal(sig); err != nil {
		if stderrors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return c.annotate(errors.Wrapf(err, errors.CodeExecutionFailed, "signal %s", c))
	}
	c.signaled = sig
	c.log.Debug(c.ctx, "process signaled", "signal", sig)
	return nil
}

// Kill sends SIGKILL. For a program it also waits for the process to exit and
// closes the parent's pipe ends so no pump outlives it.
func (c *Command) Kill() error {
	if err := c.Signal(syscall.SIGKILL); err != nil {
		return err
	}
	if _, ok := c.target.(ProgramTarget); !ok {
		return nil
	}

	<-c.exited

	c.mu.Lock()
	files := c.files
	c.files = nil
	c.mu.Unlock()
	closeAll(files)

	return nil
}

// Poll reports the return code and state without blocking. The code is only
// meaningful in StateExited, and not at all for a callable that returned an
// error or panicked: such a command has no return code, so use ReturnCode or
// Err to tell a failed run from a successful one.
func (c *Command) Poll() (int, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.returnCode, c.state
}

// State returns the lifecycle phase.
func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReturnCode returns the return code and whether one has been recorded.
func (c *Command) ReturnCode() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.returnCode, c.hasCode
}

// Err returns the error captured from a failed callable or a failed spawn.
func (c *Command) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Signaled returns the last signal delivered, or nil.
func (c *Command) Signaled() os.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signaled
}

// Killed returns a channel closed once the command has been signaled. Callables
// poll it, or the ctx they were given, to stop cooperatively.
func (c *Command) Killed() <-chan struct{} {
	return c.ctx.Done()
}

// Check returns Err, or an *ExecError when the command finished with a
// non-zero return code.
func (c *Command) Check() error {
	c.mu.Lock()
	code, ok, err := c.returnCode, c.hasCode, c.err
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok || code == 0 {
		return nil
	}

	execErr := &ExecError{
		Command:  c.Argv(),
		ExitCode: code,
		Stdout:   c.Stdout.Strings(),
		Stderr:   c.Stderr.Strings(),
	}
	return c.annotate(errors.Wrapf(execErr, errors.CodeExecutionFailed, "check %s", c))
}

// ID returns the unique identifier assigned at construction.
func (c *Command) ID() string {
	return c.id
}

// Argv returns the argument vector. Callables render as "name()" followed by
// their arguments.
func (c *Command) Argv() []string {
	return slices.Clone(c.target.argv())
}

func (c *Command) String() string {
	return strings.Join(c.target.argv(), " ")
}

func (c *Command) annotate(err error) error {
	return errors.WithContextMap(err, map[string]any{
		"command_id": c.id,
		"argv":       c.target.argv(),
	})
}
