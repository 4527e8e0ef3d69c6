package exec

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/jmgilman/go/subproc/stream"
)

// encode renders a stdin value for the child process.
func encode(v any, binary bool) []byte {
	var b []byte
	switch val := v.(type) {
	case []byte:
		return val
	case string:
		b = []byte(val)
	default:
		b = []byte(fmt.Sprint(val))
	}
	if !binary {
		b = append(b, '\n')
	}
	return b
}

// feed copies every value of in to w and closes w at end of data. A child that
// stops reading is not an error.
func feed(w io.WriteCloser, in *stream.Stream, binary bool) error {
	defer w.Close()

	bw := bufio.NewWriter(w)
	for v := range in.All() {
		if _, err := bw.Write(encode(v, binary)); err != nil {
			return ignoreClosed(err)
		}
		if err := bw.Flush(); err != nil {
			return ignoreClosed(err)
		}
	}
	return nil
}

// readLines splits r into lines trimmed by cutset and writes them to out.
// Sink errors do not stop the drain; the first one is returned at EOF.
func readLines(r io.Reader, out *stream.Stream, cutset string) error {
	br := bufio.NewReader(r)

	var sinkErr error
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = escapeInvalid(strings.TrimRight(line, cutset))
			if werr := out.Write(line); werr != nil && sinkErr == nil {
				sinkErr = werr
			}
		}
		if err != nil {
			if err = ignoreClosed(err); err != nil {
				return err
			}
			return sinkErr
		}
	}
}

// readChunks writes r to out as byte chunks of size bufsize. The final chunk
// may be shorter. A negative bufsize reads everything as one chunk.
func readChunks(r io.Reader, out *stream.Stream, bufsize int) error {
	if bufsize < 0 {
		data, err := io.ReadAll(r)
		if len(data) > 0 {
			if werr := out.Write(data); werr != nil {
				return werr
			}
		}
		return ignoreClosed(err)
	}

	buf := make([]byte, max(bufsize, 1))

	var sinkErr error
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if werr := out.Write(bytes.Clone(buf[:n])); werr != nil && sinkErr == nil {
				sinkErr = werr
			}
		}
		if err != nil {
			if stderrors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			if err = ignoreClosed(err); err != nil {
				return err
			}
			return sinkErr
		}
	}
}

// escapeInvalid replaces bytes that are not valid UTF-8 with \xNN escapes.
func escapeInvalid(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, `\x%02x`, s[i])
		} else {
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	return sb.String()
}

// ignoreClosed maps the ways a pipe ends to nil.
func ignoreClosed(err error) error {
	switch {
	case err == nil,
		stderrors.Is(err, io.EOF),
		stderrors.Is(err, os.ErrClosed),
		stderrors.Is(err, syscall.EPIPE):
		return nil
	}
	return err
}
