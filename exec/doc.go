// Package exec runs external programs and in-process functions behind a common
// line-oriented stream interface.
//
// A Command wraps either a program (Program) or a Func (Callable). Each
// command owns three stream.Stream values, Stdin, Stdout and Stderr. For a
// program, goroutines pump stdin into the process and split its output into
// lines; a callable reads and writes the streams directly. Either way the
// caller sees the same API.
//
// # Basic Usage
//
//	cmd, err := exec.Run(ctx, exec.Program("nl", "-w", "1", "-s", ":"),
//		exec.WithStdin("hello", "world"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cmd.Stdout.Strings()) // [1:hello 2:world]
//
// # Callables
//
// A Func runs on its own goroutine and returns a return code:
//
//	upper := func(ctx context.Context, c *exec.Command, args []string) (int, error) {
//		for line := range c.Stdin.All() {
//			c.Stdout.WriteLine(strings.ToUpper(line.(string)))
//		}
//		return 0, nil
//	}
//	cmd, err := exec.Run(ctx, exec.Callable(upper), exec.WithStdin("wah"))
//
// An error returned by the callable, or a panic, is surfaced by Wait with code
// CodeCallableFailed. Kill and Signal cancel the context passed to the
// callable; stopping is up to the callable.
//
// # Standard Streams
//
// Stdout and stderr are captured with history by default. WithStdout and
// WithStderr capture into the given sinks instead, WithInherit* passes the
// parent's descriptors through and WithDiscard* uses the null device. Stdin is
// discarded unless WithStdin, WithOpenStdin, WithStdinChan or WithInheritStdin
// is given.
//
// Streams can be chained with stream.Pipe:
//
//	p1, _ := exec.New(exec.Program("nl", "-w", "1", "-s", ":"), exec.WithStdin("hello", "world"))
//	p2, _ := exec.New(exec.Program("nl", "-w", "1", "-s", "/"), exec.WithOpenStdin())
//	h, err := stream.Pipe(p1.Stdout, p2.Stdin)
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = p1.Start()
//	_ = p2.Start()
//	_ = p2.Wait(ctx)
//	_ = h.Join()
//
// Pipe before starting the source: a source that has already finished has a
// closed stdout and Pipe rejects it with stream.ErrEOF.
//
// # Runners
//
// Code that spawns programs should accept a Runner. ProcRunner carries default
// options that every call inherits, and CommandWrapper prepends a fixed
// program name:
//
//	git := exec.NewWrapper(exec.NewRunner(exec.WithDisableColors()), "git")
//	cmd, err := git.Exec(ctx, "status", "--short")
//
// In tests the mock package provides a Runner that resolves argv against
// registered patterns instead of spawning anything.
//
// # Timeouts
//
// Wait and Run take a context. When it expires the returned error has code
// CodeTimeout and the command keeps running; call Kill to stop it.
package exec
