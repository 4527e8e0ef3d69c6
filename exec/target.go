package exec

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Func is the body of an in-process command. It reads c.Stdin and writes
// c.Stdout and c.Stderr like a program would. ctx is canceled when the command
// is killed or signaled; returning is the only way for the callable to stop.
//
// The returned int becomes the return code. A non-nil error is surfaced by
// Wait and leaves the return code unset.
type Func func(ctx context.Context, c *Command, args []string) (int, error)

// Target is what a Command runs: either an external program or a Func.
type Target interface {
	argv() []string
	target()
}

// ProgramTarget runs an external program found through PATH.
type ProgramTarget struct {
	Args []string
}

// CallableTarget runs a Func on its own goroutine.
type CallableTarget struct {
	Fn   Func
	Args []string
	// Name is used when rendering the command; defaults to the function name.
	Name string
}

// Program returns a Target for the given argument vector. argv[0] is the
// program.
func Program(argv ...string) ProgramTarget {
	return ProgramTarget{Args: argv}
}

// Callable returns a Target running fn with args.
func Callable(fn Func, args ...string) CallableTarget {
	return CallableTarget{Fn: fn, Args: args}
}

func (t ProgramTarget) argv() []string { return t.Args }
func (ProgramTarget) target()          {}

func (t CallableTarget) argv() []string {
	return append([]string{t.name() + "()"}, t.Args...)
}

func (CallableTarget) target() {}

func (t CallableTarget) name() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Fn == nil {
		return "<nil>"
	}
	name := runtime.FuncForPC(reflect.ValueOf(t.Fn).Pointer()).Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
