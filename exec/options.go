package exec

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/jmgilman/go/subproc/errors"
	"github.com/jmgilman/go/subproc/stream"
)

type stdinMode int

const (
	stdinDiscard stdinMode = iota
	stdinInherit
	stdinValues
	stdinOpen
	stdinChan
)

type outputMode int

const (
	outputCapture outputMode = iota
	outputInherit
	outputDiscard
)

// output describes how one of stdout or stderr is wired.
type output struct {
	mode outputMode
	// sinks replaces the default history retention when custom is set.
	sinks  []stream.Sink
	custom bool
}

// config holds the configuration for a single command.
// Runner defaults are applied first and per-call options override them.
type config struct {
	stdin       stdinMode
	stdinValues []any
	stdinCh     <-chan any

	stdout output
	stderr output

	env           map[string]string
	inheritEnv    bool
	disableColors bool
	dir           string

	binary  bool
	rstrip  string
	bufsize int

	logger *Logger
}

// newConfig creates a new configuration with default values.
func newConfig() *config {
	return &config{
		rstrip:  "\r\n",
		bufsize: -1,
	}
}

// clone creates a deep copy of the configuration.
func (c *config) clone() *config {
	clone := *c
	clone.stdinValues = slices.Clone(c.stdinValues)
	clone.stdout.sinks = slices.Clone(c.stdout.sinks)
	clone.stderr.sinks = slices.Clone(c.stderr.sinks)
	clone.env = maps.Clone(c.env)
	return &clone
}

func (c *config) validate() error {
	if c.stdin == stdinChan && c.stdinCh == nil {
		return errors.New(errors.CodeInvalidInput, "invalid stdin: nil channel")
	}
	for name, out := range map[string]output{"stdout": c.stdout, "stderr": c.stderr} {
		for _, sink := range out.sinks {
			if err := stream.ValidateSink(sink); err != nil {
				return errors.Wrapf(err, errors.CodeInvalidInput, "invalid %s", name)
			}
		}
	}
	return nil
}

// environ returns the environment for the child process in os/exec form. A
// nil result means the parent environment is inherited unchanged.
func (c *config) environ() []string {
	if c.env == nil && !c.disableColors {
		return nil
	}

	env := make(map[string]string)
	if c.env == nil || c.inheritEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			}
		}
	}

	maps.Copy(env, c.env)

	if c.disableColors {
		env["NO_COLOR"] = "1"
		env["TERM"] = "dumb"
		env["CLICOLOR"] = "0"
		env["CLICOLOR_FORCE"] = "0"
		env["FORCE_COLOR"] = "0"
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

// Option configures a Command.
type Option func(*config)

// WithStdin supplies finite input. The values are written to the stdin stream
// at construction and the stream is closed when the command starts.
func WithStdin(values ...any) Option {
	return func(c *config) {
		c.stdin = stdinValues
		c.stdinValues = values
	}
}

// WithOpenStdin leaves the stdin stream open for the caller to write to and
// eventually close.
func WithOpenStdin() Option {
	return func(c *config) {
		c.stdin = stdinOpen
		c.stdinValues = nil
	}
}

// WithStdinChan feeds stdin from ch until stdin is closed or ch is closed.
func WithStdinChan(ch <-chan any) Option {
	return func(c *config) {
		c.stdin = stdinChan
		c.stdinCh = ch
	}
}

// WithInheritStdin connects the child to the parent's standard input.
func WithInheritStdin() Option {
	return func(c *config) {
		c.stdin = stdinInherit
	}
}

// WithDiscardStdin connects the child to the null device. This is the default.
func WithDiscardStdin() Option {
	return func(c *config) {
		c.stdin = stdinDiscard
	}
}

// WithStdout captures stdout and delivers each line to sinks. History is only
// retained if stream.History is among them.
func WithStdout(sinks ...stream.Sink) Option {
	return func(c *config) {
		c.stdout = output{mode: outputCapture, sinks: sinks, custom: true}
	}
}

// WithStderr is WithStdout for standard error.
func WithStderr(sinks ...stream.Sink) Option {
	return func(c *config) {
		c.stderr = output{mode: outputCapture, sinks: sinks, custom: true}
	}
}

// WithInheritStdout passes the parent's standard output through.
func WithInheritStdout() Option {
	return func(c *config) {
		c.stdout = output{mode: outputInherit}
	}
}

// WithInheritStderr passes the parent's standard error through.
func WithInheritStderr() Option {
	return func(c *config) {
		c.stderr = output{mode: outputInherit}
	}
}

// WithDiscardStdout sends stdout to the null device.
func WithDiscardStdout() Option {
	return func(c *config) {
		c.stdout = output{mode: outputDiscard}
	}
}

// WithDiscardStderr sends stderr to the null device.
func WithDiscardStderr() Option {
	return func(c *config) {
		c.stderr = output{mode: outputDiscard}
	}
}

// WithEnv sets environment variables. Without WithInheritEnv the child sees
// only the variables set here.
func WithEnv(env map[string]string) Option {
	return func(c *config) {
		if c.env == nil {
			c.env = make(map[string]string, len(env))
		}
		maps.Copy(c.env, env)
	}
}

// WithInheritEnv merges the parent environment underneath WithEnv.
func WithInheritEnv() Option {
	return func(c *config) {
		c.inheritEnv = true
	}
}

// WithDir sets the working directory.
func WithDir(dir string) Option {
	return func(c *config) {
		c.dir = dir
	}
}

// WithDisableColors disables color output by setting common environment
// variables. This sets NO_COLOR=1, TERM=dumb, and other common color-disabling
// variables.
func WithDisableColors() Option {
	return func(c *config) {
		c.disableColors = true
	}
}

// WithBinary switches the pumps to raw bytes: stdout and stderr deliver
// []byte chunks and stdin values are written without a trailing newline.
func WithBinary() Option {
	return func(c *config) {
		c.binary = true
	}
}

// WithRStrip sets the characters trimmed from the end of each output line.
func WithRStrip(cutset string) Option {
	return func(c *config) {
		c.rstrip = cutset
	}
}

// WithBufSize sets the binary chunk size. A negative size reads each stream to
// EOF as a single chunk.
func WithBufSize(n int) Option {
	return func(c *config) {
		c.bufsize = n
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
