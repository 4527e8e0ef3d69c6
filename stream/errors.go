package stream

import stderrors "errors"

var (
	// ErrBrokenPipe is the cause of strict writes to a closed stream and of
	// Pipe calls whose destination is already closed.
	ErrBrokenPipe = stderrors.New("broken pipe")

	// ErrEOF is the cause of Pipe calls whose source is already closed.
	ErrEOF = stderrors.New("end of stream")
)
