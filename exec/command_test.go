package exec

import (
	"context"
	stderrors "errors"
	"fmt"
	osexec "os/exec"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/subproc/errors"
	"github.com/jmgilman/go/subproc/stream"
)

type customError struct {
	msg string
}

func (e *customError) Error() string { return e.msg }

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		opts   []Option
	}{
		{name: "nil target", target: nil},
		{name: "empty argv", target: Program()},
		{name: "empty program", target: Program("", "-l")},
		{name: "nil callable", target: Callable(nil)},
		{name: "nil stdout sink", target: Program("true"), opts: []Option{WithStdout(nil)}},
		{name: "nil stderr sink", target: Program("true"), opts: []Option{WithStderr(stream.History, nil)}},
		{name: "nil stdin channel", target: Program("true"), opts: []Option{WithStdinChan(nil)}},
		{name: "nil stdout channel sink", target: Program("true"), opts: []Option{WithStdout(stream.ChanSink(nil))}},
		{name: "nil stderr func sink", target: Program("true"), opts: []Option{WithStderr(stream.Func(nil))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.target, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestCommand_Nl(t *testing.T) {
	c, err := Run(context.Background(),
		Program("nl", "-w", "1", "-s", ":"),
		WithStdin("hello", "world"),
	)
	require.NoError(t, err)

	code, ok := c.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"1:hello", "2:world"}, c.Stdout.Strings())
	assert.Empty(t, c.Stderr.Lines())
	assert.Equal(t, []any{"hello", "world"}, c.Stdin.Lines())
	assert.True(t, c.Stdin.Closed())
	assert.True(t, c.Stdout.Closed())
	assert.True(t, c.Stderr.Closed())
}

func TestCommand_PipeChain(t *testing.T) {
	p1, err := New(Program("nl", "-w", "1", "-s", ":"), WithStdin("hello", "world"))
	require.NoError(t, err)
	p2, err := New(Program("nl", "-w", "1", "-s", "/"), WithOpenStdin())
	require.NoError(t, err)

	h, err := stream.Pipe(p1.Stdout, p2.Stdin)
	require.NoError(t, err)

	require.NoError(t, p1.Start())
	require.NoError(t, p2.Start())

	ctx := context.Background()
	require.NoError(t, p1.Wait(ctx))
	require.NoError(t, p2.Wait(ctx))
	require.NoError(t, h.Join())

	assert.Equal(t, []string{"1:hello", "2:world"}, p1.Stdout.Strings())
	assert.Equal(t, []string{"1/1:hello", "2/2:world"}, p2.Stdout.Strings())
}

func TestCommand_CallableError(t *testing.T) {
	fn := func(ctx context.Context, c *Command, args []string) (int, error) {
		return 0, &customError{msg: "wah"}
	}

	c, err := Run(context.Background(), Callable(fn))
	require.Error(t, err)

	var ce *customError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "wah", ce.msg)
	assert.Equal(t, errors.CodeCallableFailed, errors.GetCode(err))

	_, ok := c.ReturnCode()
	assert.False(t, ok)
	assert.Equal(t, StateExited, c.State())
	_, state := c.Poll()
	assert.Equal(t, StateExited, state)
	assert.Error(t, c.Err())
	require.ErrorAs(t, c.Wait(context.Background()), &ce)
	require.ErrorAs(t, c.Check(), &ce)
}

func TestCommand_CallablePanic(t *testing.T) {
	fn := func(ctx context.Context, c *Command, args []string) (int, error) {
		panic("boom")
	}

	c, err := Run(context.Background(), Callable(fn))
	require.Error(t, err)
	assert.Equal(t, errors.CodeCallableFailed, errors.GetCode(err))
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, c.Stdout.Closed())
}

func TestCommand_CallableIO(t *testing.T) {
	echo := func(ctx context.Context, c *Command, args []string) (int, error) {
		for _, arg := range args {
			_ = c.Stdout.WriteLine(arg)
		}
		for v := range c.Stdin.All() {
			_ = c.Stderr.WriteLine(fmt.Sprint(v))
		}
		return len(args), nil
	}

	c, err := Run(context.Background(), Callable(echo, "a", "b"), WithStdin("x", "y"))
	require.NoError(t, err)

	code, ok := c.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, 2, code)
	assert.Equal(t, []string{"a", "b"}, c.Stdout.Strings())
	assert.Equal(t, []string{"x", "y"}, c.Stderr.Strings())
}

func TestCommand_KillCallable(t *testing.T) {
	started := make(chan struct{})
	fn := func(ctx context.Context, c *Command, args []string) (int, error) {
		close(started)
		<-ctx.Done()
		return 1, nil
	}

	c, err := Start(Callable(fn))
	require.NoError(t, err)
	<-started

	require.NoError(t, c.Kill())
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, syscall.SIGKILL, c.Signaled())
	code, ok := c.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, 1, code)

	select {
	case <-c.Killed():
	default:
		t.Fatal("killed channel not closed")
	}
}

func TestCommand_KillFinishedCallable(t *testing.T) {
	fn := func(ctx context.Context, c *Command, args []string) (int, error) {
		return 0, nil
	}

	c, err := Run(context.Background(), Callable(fn))
	require.NoError(t, err)

	require.NoError(t, c.Signal(syscall.SIGTERM))
	assert.Equal(t, syscall.SIGTERM, c.Signaled())
}

func TestCommand_WaitTimeout(t *testing.T) {
	c, err := Start(Program("sleep", "10"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = c.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, errors.CodeTimeout, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
	assert.Less(t, time.Since(start), 2*time.Second)

	_, state := c.Poll()
	assert.Equal(t, StateRunning, state)

	require.NoError(t, c.Kill())
	require.NoError(t, c.Wait(context.Background()))

	code, state := c.Poll()
	assert.Equal(t, StateExited, state)
	assert.Equal(t, -int(syscall.SIGKILL), code)
	assert.Equal(t, syscall.SIGKILL, c.Signaled())
}

func TestCommand_WaitCanceled(t *testing.T) {
	c, err := Start(Program("sleep", "10"))
	require.NoError(t, err)
	defer func() { _ = c.Kill() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
}

func TestCommand_Poll(t *testing.T) {
	c, err := New(Program("sleep", "0.2"))
	require.NoError(t, err)

	_, state := c.Poll()
	assert.Equal(t, StateCreated, state)
	assert.NoError(t, c.Wait(context.Background()))

	require.NoError(t, c.Start())
	_, state = c.Poll()
	assert.Equal(t, StateRunning, state)

	require.NoError(t, c.Wait(context.Background()))
	code, state := c.Poll()
	assert.Equal(t, StateExited, state)
	assert.Equal(t, 0, code)
}

func TestCommand_Signal(t *testing.T) {
	c, err := Start(Program("cat"), WithOpenStdin())
	require.NoError(t, err)

	require.NoError(t, c.Stdin.WriteLine("wah"))
	require.NoError(t, c.Signal(syscall.SIGTERM))
	require.NoError(t, c.Wait(context.Background()))

	code, ok := c.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, -int(syscall.SIGTERM), code)
	assert.Equal(t, syscall.SIGTERM, c.Signaled())
	assert.True(t, c.Stdin.Closed())
}

func TestCommand_SignalNotStarted(t *testing.T) {
	c, err := New(Program("true"))
	require.NoError(t, err)

	err = c.Signal(syscall.SIGTERM)
	require.ErrorIs(t, err, ErrNotStarted)
	assert.Nil(t, c.Signaled())
}

func TestCommand_AlreadyRunning(t *testing.T) {
	c, err := Run(context.Background(), Program("true"))
	require.NoError(t, err)

	err = c.Start()
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, errors.CodeAlreadyRunning, errors.GetCode(err))
}

func TestCommand_SpawnFailure(t *testing.T) {
	c, err := Start(Program("subproc-test-no-such-program"))
	require.Error(t, err)
	require.ErrorIs(t, err, osexec.ErrNotFound)
	assert.Equal(t, errors.CodeExecutionFailed, errors.GetCode(err))

	require.NotNil(t, c)
	assert.Equal(t, StateExited, c.State())
	assert.True(t, c.Stdout.Closed())
	require.ErrorIs(t, c.Wait(context.Background()), osexec.ErrNotFound)
}

func TestCommand_Check(t *testing.T) {
	c, err := Run(context.Background(), Program("sh", "-c", "echo oops >&2; exit 3"))
	require.NoError(t, err)

	err = c.Check()
	require.Error(t, err)
	assert.Equal(t, errors.CodeExecutionFailed, errors.GetCode(err))

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Equal(t, []string{"sh", "-c", "echo oops >&2; exit 3"}, execErr.Command)
	assert.Equal(t, []string{"oops"}, execErr.Stderr)

	passed, err := Run(context.Background(), Program("true"))
	require.NoError(t, err)
	assert.NoError(t, passed.Check())
}

func TestCommand_OpenStdinDelayedWrite(t *testing.T) {
	c, err := Start(Program("cat"), WithOpenStdin())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Stdin.WriteLine("wah"))
	c.Stdin.Close()

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, []string{"wah"}, c.Stdout.Strings())
}

func TestCommand_WriteBeforeStart(t *testing.T) {
	c, err := New(Program("cat"), WithOpenStdin())
	require.NoError(t, err)

	require.NoError(t, c.Stdin.WriteLines([]string{"a", "b"}))
	require.NoError(t, c.Start())
	c.Stdin.Close()

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, []string{"a", "b"}, c.Stdout.Strings())
}

func TestCommand_StdinChan(t *testing.T) {
	ch := make(chan any)
	c, err := Start(Program("cat"), WithStdinChan(ch))
	require.NoError(t, err)

	ch <- "a"
	ch <- 2
	close(ch)

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, []string{"a", "2"}, c.Stdout.Strings())
}

func TestCommand_MergedOutput(t *testing.T) {
	merged := stream.New(stream.WithKeep())

	c, err := Run(context.Background(),
		Program("sh", "-c", "echo out; echo err >&2"),
		WithStdout(merged),
		WithStderr(merged),
	)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"out", "err"}, merged.Strings())
	assert.Empty(t, c.Stdout.Lines())
	assert.Empty(t, c.Stderr.Lines())
	assert.False(t, merged.Closed())
}

func TestCommand_StdoutHistoryAndSinks(t *testing.T) {
	var got []any
	c, err := Run(context.Background(),
		Program("seq", "3"),
		WithStdout(stream.History, stream.Callback(func(v any) { got = append(got, v) })),
	)
	require.NoError(t, err)

	assert.Equal(t, []any{"1", "2", "3"}, got)
	assert.Equal(t, []string{"1", "2", "3"}, c.Stdout.Strings())
}

func TestCommand_DiscardStdout(t *testing.T) {
	c, err := Run(context.Background(), Program("echo", "wah"), WithDiscardStdout())
	require.NoError(t, err)

	assert.True(t, c.Stdout.Closed())
	assert.Empty(t, c.Stdout.Lines())
}

func TestCommand_InheritStdio(t *testing.T) {
	c, err := Run(context.Background(), Program("true"), WithInheritStdin(), WithInheritStderr())
	require.NoError(t, err)

	assert.True(t, c.Stdin.Closed())
	assert.True(t, c.Stderr.Closed())
	assert.Empty(t, c.Stderr.Lines())
	assert.Empty(t, c.Stdout.Lines())

	code, ok := c.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, 0, code)
}

func TestCommand_Loopback(t *testing.T) {
	collatz := func(ctx context.Context, c *Command, args []string) (int, error) {
		for v := range c.Stdin.All() {
			n := v.(int)
			_ = c.Stdout.Write(n)
			switch {
			case n == 1:
				return 0, nil
			case n%2 == 0:
				_ = c.Stdin.Write(n / 2)
			default:
				_ = c.Stdin.Write(3*n + 1)
			}
		}
		return 1, nil
	}

	c, err := New(Callable(collatz), WithOpenStdin())
	require.NoError(t, err)
	require.NoError(t, c.Stdin.Write(6))
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []any{6, 3, 10, 5, 16, 8, 4, 2, 1}, c.Stdout.Lines())
	code, _ := c.ReturnCode()
	assert.Equal(t, 0, code)
}

func TestCommand_Binary(t *testing.T) {
	c, err := Run(context.Background(), Program("sh", "-c", `printf 'ab\ncd'`), WithBinary())
	require.NoError(t, err)
	assert.Equal(t, []any{[]byte("ab\ncd")}, c.Stdout.Lines())

	c, err = Run(context.Background(), Program("sh", "-c", `printf 'ab\ncd'`), WithBinary(), WithBufSize(2))
	require.NoError(t, err)
	assert.Equal(t, []any{[]byte("ab"), []byte("\nc"), []byte("d")}, c.Stdout.Lines())
}

func TestCommand_BinaryStdin(t *testing.T) {
	c, err := Run(context.Background(),
		Program("cat"),
		WithBinary(),
		WithStdin([]byte("x"), "y", 3),
	)
	require.NoError(t, err)
	assert.Equal(t, []any{[]byte("xy3")}, c.Stdout.Lines())
}

func TestCommand_RStrip(t *testing.T) {
	script := `printf 'a  \nb\r\n'`

	c, err := Run(context.Background(), Program("sh", "-c", script))
	require.NoError(t, err)
	assert.Equal(t, []string{"a  ", "b"}, c.Stdout.Strings())

	c, err = Run(context.Background(), Program("sh", "-c", script), WithRStrip(" \r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Stdout.Strings())
}

func TestCommand_InvalidUTF8(t *testing.T) {
	c, err := Run(context.Background(), Program("sh", "-c", `printf '\377x\n'`))
	require.NoError(t, err)
	assert.Equal(t, []string{`\xffx`}, c.Stdout.Strings())
}

func TestCommand_ManyLines(t *testing.T) {
	c, err := Run(context.Background(), Program("seq", "10000"))
	require.NoError(t, err)

	lines := c.Stdout.Strings()
	require.Len(t, lines, 10000)
	for i, line := range lines {
		require.Equal(t, strconv.Itoa(i+1), line)
	}
}

func TestCommand_DirAndEnv(t *testing.T) {
	dir := t.TempDir()

	c, err := Run(context.Background(),
		Program("sh", "-c", `pwd; echo "$SUBPROC_VAR"`),
		WithDir(dir),
		WithEnv(map[string]string{"SUBPROC_VAR": "value", "PATH": "/usr/bin:/bin"}),
	)
	require.NoError(t, err)

	lines := c.Stdout.Strings()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], dir)
	assert.Equal(t, "value", lines[1])
}

func TestCommand_StringAndArgv(t *testing.T) {
	c, err := New(Program("ls", "-a", "-l"))
	require.NoError(t, err)
	assert.Equal(t, "ls -a -l", c.String())
	assert.Equal(t, []string{"ls", "-a", "-l"}, c.Argv())
	assert.NotEmpty(t, c.ID())

	target := Callable(func(context.Context, *Command, []string) (int, error) { return 0, nil }, "x")
	target.Name = "wah"
	c, err = New(target)
	require.NoError(t, err)
	assert.Equal(t, "wah() x", c.String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "exited", StateExited.String())
}

func TestCommand_StdoutSinkPanic(t *testing.T) {
	c, err := New(Program("echo", "hi"), WithStdout(stream.Callback(func(any) { panic("sink boom") })))
	require.NoError(t, err)
	require.NoError(t, c.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))
	assert.Contains(t, err.Error(), "sink boom")
	assert.True(t, c.Stdout.Closed())
}

func TestCommand_StdinSinkPanic(t *testing.T) {
	ch := make(chan any, 1)
	ch <- "wah"

	c, err := New(Program("cat"), WithStdinChan(ch))
	require.NoError(t, err)
	require.NoError(t, c.Stdin.Subscribe(stream.Callback(func(any) { panic("stdin boom") })))
	require.NoError(t, c.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))
	assert.Contains(t, err.Error(), "stdin boom")
	assert.True(t, c.Stdin.Closed())
}

func TestCommand_StdoutSinkError(t *testing.T) {
	boom := stderrors.New("boom")
	var seen []any
	sink := stream.Func(func(v any) error {
		seen = append(seen, v)
		if len(seen) == 2 {
			return boom
		}
		return nil
	})

	c, err := Run(context.Background(), Program("seq", "5"), WithStdout(stream.History, sink))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))

	// the pump keeps draining after the failing write
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, c.Stdout.Strings())
	assert.Len(t, seen, 5)

	code, ok := c.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, 0, code)
}
