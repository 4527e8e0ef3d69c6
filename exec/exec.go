package exec

import (
	"context"
	"slices"
)

// Runner spawns programs from an argument vector. It is the seam between code
// that runs programs and tests that mock them.
type Runner interface {
	// Start constructs and starts a command without waiting for it.
	Start(argv []string, opts ...Option) (*Command, error)

	// Run constructs, starts and waits for a command. The command is returned
	// whenever it was constructed, even if it failed.
	Run(ctx context.Context, argv []string, opts ...Option) (*Command, error)
}

// Start constructs a command for target and starts it.
func Start(target Target, opts ...Option) (*Command, error) {
	c, err := New(target, opts...)
	if err != nil {
		return nil, err
	}
	return c, c.Start()
}

// Run constructs a command for target, starts it and waits for it.
func Run(ctx context.Context, target Target, opts ...Option) (*Command, error) {
	c, err := New(target, opts...)
	if err != nil {
		return nil, err
	}
	return c, c.Run(ctx)
}

// ProcRunner is the Runner that spawns real processes. Its default options are
// applied before the options given to each call, so per-call options win.
type ProcRunner struct {
	defaults []Option
}

// NewRunner creates a ProcRunner with the given default options.
func NewRunner(defaults ...Option) *ProcRunner {
	return &ProcRunner{defaults: slices.Clone(defaults)}
}

// With returns a copy of r with opts appended to its defaults.
func (r *ProcRunner) With(opts ...Option) *ProcRunner {
	clone := r.Clone()
	clone.defaults = append(clone.defaults, opts...)
	return clone
}

// Clone creates a copy of the runner with the same defaults.
func (r *ProcRunner) Clone() *ProcRunner {
	return &ProcRunner{defaults: slices.Clone(r.defaults)}
}

// Start implements Runner.
func (r *ProcRunner) Start(argv []string, opts ...Option) (*Command, error) {
	return Start(Program(argv...), r.options(opts)...)
}

// Run implements Runner.
func (r *ProcRunner) Run(ctx context.Context, argv []string, opts ...Option) (*Command, error) {
	return Run(ctx, Program(argv...), r.options(opts)...)
}

func (r *ProcRunner) options(opts []Option) []Option {
	return append(slices.Clone(r.defaults), opts...)
}
