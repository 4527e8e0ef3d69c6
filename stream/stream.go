package stream

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/jmgilman/go/subproc/errors"
)

// Stream is a one-directional, line-oriented channel of opaque values.
//
// Writers append to an unbounded FIFO queue; readers dequeue in write order
// and block while the queue is empty and the stream is open. When keep is
// enabled every written value is also retained in the history. Subscribed
// sinks receive each value synchronously on the writer's goroutine.
//
// Closing is monotonic: once closed a stream stays closed, further writes are
// dropped and readers observe end of data after draining the queue.
type Stream struct {
	name string

	// wmu serializes writers so that history, queue and sinks observe the
	// same order.
	wmu sync.Mutex

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []any
	history []any
	keep    bool
	closed  bool
	done    chan struct{}

	hub Broadcaster[any]
}

// Option configures a Stream at creation time.
type Option func(*Stream)

// WithKeep enables history retention.
func WithKeep() Option {
	return func(s *Stream) {
		s.keep = true
	}
}

// WithName sets the name reported by String.
func WithName(name string) Option {
	return func(s *Stream) {
		s.name = name
	}
}

// New creates an open, empty stream.
func New(opts ...Option) *Stream {
	s := &Stream{
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Write enqueues v and delivers it to all sinks. Writing to a closed stream
// is a silent no-op. Sink errors are returned after v has been enqueued.
func (s *Stream) Write(v any) error {
	return s.write(v, true)
}

// WriteStrict is like Write but returns ErrBrokenPipe if the stream is closed.
func (s *Stream) WriteStrict(v any) error {
	return s.write(v, false)
}

// WriteLine writes a single line.
func (s *Stream) WriteLine(line string) error {
	return s.Write(line)
}

// WriteLines writes each line in order, stopping at the first error.
func (s *Stream) WriteLines(lines []string) error {
	for _, line := range lines {
		if err := s.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// WriteAll writes each value in order, stopping at the first error.
func (s *Stream) WriteAll(values ...any) error {
	for _, v := range values {
		if err := s.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// Put implements Sink so a stream can subscribe to another stream.
func (s *Stream) Put(v any) error {
	return s.Write(v)
}

func (s *Stream) write(v any, suppress bool) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if suppress {
			return nil
		}
		return errors.Wrapf(ErrBrokenPipe, errors.CodeBrokenPipe, "write to closed %s", s)
	}
	if s.keep {
		s.history = append(s.history, v)
	}
	s.queue = append(s.queue, v)
	s.cond.Broadcast()
	s.mu.Unlock()

	return s.hub.Broadcast(v)
}

// Close marks the stream as finished and releases all blocked readers.
// Closing an already closed stream does nothing.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Done returns a channel that is closed when the stream is closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// ReadLine dequeues the next value, blocking while the stream is open and
// empty. It returns false once the stream is closed and drained.
func (s *Stream) ReadLine() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	return s.dequeue()
}

// ReadLineContext is like ReadLine but gives up with ctx's error when ctx is
// done before a value becomes available.
func (s *Stream) ReadLineContext(ctx context.Context) (any, bool, error) {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && !s.closed {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		s.cond.Wait()
	}
	v, ok := s.dequeue()
	return v, ok, nil
}

// dequeue pops the queue head. The caller must hold s.mu.
func (s *Stream) dequeue() (any, bool) {
	if len(s.queue) == 0 {
		return nil, false
	}
	v := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return v, true
}

// All iterates over the stream.
//
// A closed stream with history retention replays its history, so iterating it
// again yields the same values. Otherwise iteration consumes the queue until
// end of data: a second pass over a drained stream yields nothing.
func (s *Stream) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		s.mu.Lock()
		var replay []any
		closedKeep := s.closed && s.keep
		if closedKeep {
			replay = slices.Clone(s.history)
		}
		s.mu.Unlock()

		if closedKeep {
			for _, v := range replay {
				if !yield(v) {
					return
				}
			}
			return
		}

		for {
			v, ok := s.ReadLine()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Subscribe registers sinks in order. Every value written afterwards is
// delivered to each sink exactly once; earlier values are not replayed.
// Subscribing History enables history retention. Sinks must not write back
// into the stream they are subscribed to.
//
// Nothing is registered if any sink is invalid.
func (s *Stream) Subscribe(sinks ...Sink) error {
	for _, sink := range sinks {
		if err := s.checkSink(sink); err != nil {
			return err
		}
	}
	for _, sink := range sinks {
		s.attach(sink)
	}
	return nil
}

// Attach registers a single sink like Subscribe and returns an ID that
// Unsubscribe accepts. Attaching History returns the zero ID.
func (s *Stream) Attach(sink Sink) (HandlerID, error) {
	if err := s.checkSink(sink); err != nil {
		return 0, err
	}
	return s.attach(sink), nil
}

// Unsubscribe stops delivery to the sink registered under id. A write already
// in progress may still reach it. It returns false if id is unknown.
func (s *Stream) Unsubscribe(id HandlerID) bool {
	return s.hub.Remove(id)
}

func (s *Stream) checkSink(sink Sink) error {
	if err := ValidateSink(sink); err != nil {
		return err
	}
	if sk, ok := sink.(*Stream); ok && sk == s {
		return errors.New(errors.CodeInvalidInput, "invalid subscriber: stream cannot subscribe to itself")
	}
	return nil
}

func (s *Stream) attach(sink Sink) HandlerID {
	if _, ok := sink.(historySink); ok {
		s.SetKeep(true)
		return 0
	}
	return s.hub.Add(sink.Put)
}

// Keep reports whether history retention is enabled.
func (s *Stream) Keep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keep
}

// SetKeep turns history retention on or off for subsequent writes.
func (s *Stream) SetKeep(keep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keep = keep
}

// Lines returns a copy of the history.
func (s *Stream) Lines() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Strings returns the history rendered as text. Strings are returned as-is,
// byte slices are converted and any other value is formatted with fmt.Sprint.
func (s *Stream) Strings() []string {
	lines := s.Lines()
	out := make([]string, len(lines))
	for i, v := range lines {
		out[i] = toString(v)
	}
	return out
}

// Len returns the number of values in the history.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Empty reports whether the stream has neither history nor queued values.
func (s *Stream) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) == 0 && len(s.queue) == 0
}

// String returns the stream name.
func (s *Stream) String() string {
	if s.name == "" {
		return "stream"
	}
	return s.name
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
