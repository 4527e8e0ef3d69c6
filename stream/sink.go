package stream

import (
	"context"

	"github.com/jmgilman/go/subproc/errors"
)

// Sink receives every value written to a Stream after it subscribed.
//
// The package provides a closed set of adapters: ChanSink and *Stream are
// queue-like sinks, Func and Callback wrap functions, and History enables
// history retention on the subscribed stream.
type Sink interface {
	Put(v any) error
}

// ChanSink forwards values into a channel. Sends block while the channel is
// full, which in turn blocks the writer.
type ChanSink chan<- any

// Put sends v on the channel.
func (c ChanSink) Put(v any) error {
	c <- v
	return nil
}

// ContextChanSink forwards values into a channel, giving up with ctx's error
// when ctx is done before the send completes.
func ContextChanSink(ctx context.Context, ch chan<- any) Sink {
	if ch == nil {
		return ChanSink(nil)
	}
	return Func(func(v any) error {
		select {
		case ch <- v:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Func adapts a function to a Sink. Errors are returned to the writer.
type Func func(v any) error

// Put calls f(v).
func (f Func) Put(v any) error {
	return f(v)
}

// Callback adapts a function that cannot fail to a Sink.
func Callback(fn func(v any)) Sink {
	if fn == nil {
		return Func(nil)
	}
	return Func(func(v any) error {
		fn(v)
		return nil
	})
}

type historySink struct{}

func (historySink) Put(any) error { return nil }

// History is a marker Sink: subscribing it turns on history retention for
// the stream instead of registering a handler.
var History Sink = historySink{}

// ValidateSink reports an error with code CodeInvalidInput for sinks that
// could never accept a value: nil, a nil ChanSink, a nil Func or a nil
// *Stream.
func ValidateSink(sink Sink) error {
	var invalid bool
	switch sk := sink.(type) {
	case nil:
		return errors.New(errors.CodeInvalidInput, "invalid subscriber: nil sink")
	case ChanSink:
		invalid = sk == nil
	case Func:
		invalid = sk == nil
	case *Stream:
		invalid = sk == nil
	}
	if invalid {
		return errors.Newf(errors.CodeInvalidInput, "invalid subscriber: nil %T", sink)
	}
	return nil
}
