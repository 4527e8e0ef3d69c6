package mock

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync"

	"github.com/jmgilman/go/subproc/errors"
	"github.com/jmgilman/go/subproc/exec"
)

// ErrUnregistered is the cause of invocations that match no rule.
var ErrUnregistered = stderrors.New("unregistered command")

var _ exec.Runner = (*RunMocker)(nil)

type rule struct {
	pattern   Pattern
	callbacks []exec.Func
}

// RunMocker is an exec.Runner that resolves argv against registered rules and
// runs the matching callback in-process instead of spawning a program.
//
// Resolution picks the last registered Args pattern that matches argv. If
// none matches, a Name pattern equal to argv[0] is used. Rules registered
// more than once with the same pattern queue their callbacks: each call
// consumes the head of the queue and the last callback is reused forever.
type RunMocker struct {
	mu     sync.Mutex
	rules  []*rule
	index  map[string]*rule
	calls  [][]string
	logger *exec.Logger
}

// Option configures a RunMocker.
type Option func(*RunMocker)

// WithLogger sets the logger used to report resolutions.
func WithLogger(logger *exec.Logger) Option {
	return func(m *RunMocker) {
		m.logger = logger
	}
}

// New creates a RunMocker with no rules.
func New(opts ...Option) *RunMocker {
	m := &RunMocker{
		index: make(map[string]*rule),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type ruleDef struct {
	callback   exec.Func
	stdout     []string
	stderr     []string
	returnCode int

	hasStdout     bool
	hasStderr     bool
	hasReturnCode bool
}

func (s *ruleDef) canned() bool {
	return s.hasStdout || s.hasStderr || s.hasReturnCode
}

// RuleOption describes what a rule does when it matches.
type RuleOption func(*ruleDef)

// WithCallback runs fn for matching invocations.
func WithCallback(fn exec.Func) RuleOption {
	return func(s *ruleDef) {
		s.callback = fn
	}
}

// WithStdout writes lines to stdout.
func WithStdout(lines ...string) RuleOption {
	return func(s *ruleDef) {
		s.stdout = lines
		s.hasStdout = true
	}
}

// WithStderr writes lines to stderr.
func WithStderr(lines ...string) RuleOption {
	return func(s *ruleDef) {
		s.stderr = lines
		s.hasStderr = true
	}
}

// WithReturnCode sets the return code. Canned rules without one return 0.
func WithReturnCode(code int) RuleOption {
	return func(s *ruleDef) {
		s.returnCode = code
		s.hasReturnCode = true
	}
}

// Register adds a rule for pattern. A rule needs either a callback or canned
// output, not both.
func (m *RunMocker) Register(pattern Pattern, opts ...RuleOption) error {
	if !pattern.valid() {
		return errors.New(errors.CodeInvalidInput, "invalid mock: empty pattern")
	}

	var def ruleDef
	for _, opt := range opts {
		opt(&def)
	}

	fn := def.callback
	switch {
	case fn == nil && !def.canned():
		return errors.Newf(errors.CodeInvalidInput, "meaningless mock for %q", pattern)
	case fn != nil && def.canned():
		return errors.Newf(errors.CodeInvalidInput, "ambiguous mock for %q", pattern)
	case fn == nil:
		fn = cannedFunc(def)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.index[pattern.key()]
	if !ok {
		r = &rule{pattern: pattern}
		m.index[pattern.key()] = r
		m.rules = append(m.rules, r)
	}
	r.callbacks = append(r.callbacks, fn)
	return nil
}

// MustRegister is like Register but panics on error. It returns m so calls
// can be chained.
func (m *RunMocker) MustRegister(pattern Pattern, opts ...RuleOption) *RunMocker {
	if err := m.Register(pattern, opts...); err != nil {
		panic(err)
	}
	return m
}

func cannedFunc(def ruleDef) exec.Func {
	stdout := slices.Clone(def.stdout)
	stderr := slices.Clone(def.stderr)
	code := def.returnCode

	return func(ctx context.Context, c *exec.Command, args []string) (int, error) {
		if err := c.Stdout.WriteLines(stdout); err != nil {
			return 0, err
		}
		if err := c.Stderr.WriteLines(stderr); err != nil {
			return 0, err
		}
		return code, nil
	}
}

// resolve finds the callback for argv and the arguments to pass to it.
func (m *RunMocker) resolve(argv []string) (exec.CallableTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, slices.Clone(argv))

	var matched *rule
	var args []string
	for _, r := range m.rules {
		if r.pattern.IsName() {
			continue
		}
		if captured, ok := r.pattern.match(argv); ok {
			matched, args = r, captured
		}
	}

	if matched == nil && len(argv) > 0 {
		if r, ok := m.index[Name(argv[0]).key()]; ok {
			matched, args = r, slices.Clone(argv[1:])
		}
	}

	if matched == nil {
		err := errors.Wrapf(ErrUnregistered, errors.CodeNotFound, "resolve %q", strings.Join(argv, " "))
		return exec.CallableTarget{}, errors.WithContext(err, "argv", slices.Clone(argv))
	}

	fn := matched.callbacks[0]
	if len(matched.callbacks) > 1 {
		matched.callbacks = matched.callbacks[1:]
	}

	m.logger.Debug(context.Background(), "mock resolved",
		"argv", argv,
		"pattern", matched.pattern.String(),
		"args", args)

	target := exec.Callable(fn, args...)
	if len(argv) > 0 {
		target.Name = argv[0]
	}
	return target, nil
}

// Start implements exec.Runner.
func (m *RunMocker) Start(argv []string, opts ...exec.Option) (*exec.Command, error) {
	target, err := m.resolve(argv)
	if err != nil {
		return nil, err
	}
	return exec.Start(target, opts...)
}

// Run implements exec.Runner.
func (m *RunMocker) Run(ctx context.Context, argv []string, opts ...exec.Option) (*exec.Command, error) {
	target, err := m.resolve(argv)
	if err != nil {
		return nil, err
	}
	return exec.Run(ctx, target, opts...)
}

// Calls returns the argv of every invocation, in order.
func (m *RunMocker) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([][]string, len(m.calls))
	for i, call := range m.calls {
		calls[i] = slices.Clone(call)
	}
	return calls
}

// Reset removes all rules and recorded calls.
func (m *RunMocker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = nil
	m.index = make(map[string]*rule)
	m.calls = nil
}
