package exec

import (
	"context"
	"slices"
)

// CommandWrapper wraps a Runner to provide a command-specific interface.
// It prepends a program name to every argv, making it convenient for tools
// that are called frequently with different arguments (e.g., git, docker).
// CommandWrapper implements Runner, so it can wrap a mock as easily as a
// ProcRunner.
type CommandWrapper struct {
	runner Runner
	cmd    string
	opts   []Option
}

// NewWrapper creates a CommandWrapper that prepends cmd to every argv.
func NewWrapper(runner Runner, cmd string, opts ...Option) *CommandWrapper {
	return &CommandWrapper{
		runner: runner,
		cmd:    cmd,
		opts:   slices.Clone(opts),
	}
}

// Start implements Runner.
func (w *CommandWrapper) Start(args []string, opts ...Option) (*Command, error) {
	return w.runner.Start(w.argv(args), w.options(opts)...)
}

// Run implements Runner.
func (w *CommandWrapper) Run(ctx context.Context, args []string, opts ...Option) (*Command, error) {
	return w.runner.Run(ctx, w.argv(args), w.options(opts)...)
}

// Exec runs the wrapped program with args and waits for it.
func (w *CommandWrapper) Exec(ctx context.Context, args ...string) (*Command, error) {
	return w.Run(ctx, args)
}

// Clone creates a copy of the wrapper with the same configuration.
func (w *CommandWrapper) Clone() *CommandWrapper {
	return NewWrapper(w.runner, w.cmd, w.opts...)
}

func (w *CommandWrapper) argv(args []string) []string {
	return append([]string{w.cmd}, args...)
}

func (w *CommandWrapper) options(opts []Option) []Option {
	return append(slices.Clone(w.opts), opts...)
}
