// Package stream provides thread-safe, subscribable channels of values and the
// pumps that connect them.
//
// A Stream is the unit of data exchange between a running command and its
// consumers: stdin, stdout and stderr of every exec.Command are Streams.
//
// # Writing and Reading
//
// Writers enqueue values; readers dequeue them in write order:
//
//	s := stream.New()
//	_ = s.WriteLine("hello")
//	_ = s.WriteLine("world")
//	s.Close()
//
//	for v := range s.All() {
//		fmt.Println(v) // "hello", then "world"
//	}
//
// Iteration is destructive unless history is retained. A stream created with
// WithKeep (or subscribed to History) records every value; once such a stream
// is closed, iterating it replays the history:
//
//	s := stream.New(stream.WithKeep())
//	_ = s.WriteLines([]string{"a", "b"})
//	s.Close()
//	fmt.Println(s.Lines()) // [a b]
//
// # Subscribers
//
// Sinks receive every value written after they subscribe, synchronously and
// in order, on the writer's goroutine:
//
//	ch := make(chan any, 16)
//	_ = s.Subscribe(stream.ChanSink(ch), stream.Callback(func(v any) {
//		log.Println(v)
//	}))
//
// A failing sink returns its error to the writer.
//
// # Closed Streams
//
// Writing to a closed stream is silently ignored by Write; WriteStrict returns
// ErrBrokenPipe instead. Closing is idempotent.
//
// # Pipes
//
// Pipe connects one source to any number of destinations through a dedicated
// goroutine and closes the destinations when the source ends:
//
//	h, err := stream.Pipe(producer.Stdout, consumer.Stdin)
//	if err != nil {
//		return err
//	}
//	defer h.Join()
package stream
