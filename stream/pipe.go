package stream

import (
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/subproc/errors"
)

// PipeHandle tracks the pump goroutine started by Pipe.
type PipeHandle struct {
	group errgroup.Group
	done  chan struct{}
}

// Pipe forwards every value of src to each of dsts, in order, on a dedicated
// goroutine. When src reaches end of data, or a write fails, every destination
// is closed; a failure also closes src and is reported by Join. A panic in a
// destination's sink is reported the same way.
//
// Pipe fails immediately with ErrEOF if src is closed and with ErrBrokenPipe
// if any destination is closed.
func Pipe(src *Stream, dsts ...*Stream) (*PipeHandle, error) {
	if src == nil {
		return nil, errors.New(errors.CodeInvalidInput, "pipe: nil source stream")
	}
	if src.Closed() {
		return nil, errors.Wrapf(ErrEOF, errors.CodeEOF, "pipe from closed %s", src)
	}
	for _, dst := range dsts {
		if dst == nil {
			return nil, errors.New(errors.CodeInvalidInput, "pipe: nil destination stream")
		}
		if dst.Closed() {
			return nil, errors.Wrapf(ErrBrokenPipe, errors.CodeBrokenPipe, "pipe into closed %s", dst)
		}
	}

	h := &PipeHandle{done: make(chan struct{})}
	h.group.Go(func() error {
		defer close(h.done)
		return pump(src, dsts)
	})

	return h, nil
}

func pump(src *Stream, dsts []*Stream) (err error) {
	defer func() {
		for _, dst := range dsts {
			dst.Close()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			src.Close()
			err = errors.Newf(errors.CodeInternal, "pipe from %s panicked: %v", src, r)
		}
	}()

	for v := range src.All() {
		for _, dst := range dsts {
			if err := dst.Write(v); err != nil {
				src.Close()
				return errors.Wrapf(err, errors.CodeBrokenPipe, "pipe: write to %s failed", dst)
			}
		}
	}

	return nil
}

// Join blocks until the pump finishes and returns its error, if any.
func (h *PipeHandle) Join() error {
	return h.group.Wait()
}

// Done returns a channel that is closed when the pump finishes.
func (h *PipeHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the pump error once it has finished, or nil while it is running.
func (h *PipeHandle) Err() error {
	select {
	case <-h.done:
		return h.group.Wait()
	default:
		return nil
	}
}
