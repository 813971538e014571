package compression

import (
	"bytes"
	"errors"
	"io"

	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// flusher is implemented by encoders that can make buffered input decodable
// without ending the stream.
type flusher interface {
	Flush() error
}

// pending holds produced bytes that did not fit into the output window yet.
type pending struct {
	buf bytes.Buffer
}

// Write implements io.Writer so encoders can target the pending buffer.
func (p *pending) Write(b []byte) (int, error) {
	return p.buf.Write(b)
}

// drain moves as much pending output as fits into the window.
func (p *pending) drain(st *transform.Stream) {
	if p.buf.Len() == 0 || len(st.Avail) == 0 {
		return
	}

	n, _ := p.buf.Read(st.Avail)
	st.Produce(n)
}

func (p *pending) empty() bool {
	return p.buf.Len() == 0
}

// writerSession adapts a streaming encoder that writes into an io.Writer.
type writerSession struct {
	pending
	w      io.WriteCloser
	closed bool
	failed bool
}

func (s *writerSession) Step(st *transform.Stream, flush transform.Flush) (transform.Status, error) {
	if len(st.Next) > 0 && !s.closed {
		if _, err := s.w.Write(st.Next); err != nil {
			s.failed = true

			return transform.StatusOK, err
		}

		st.Consume(len(st.Next))
	}

	if !s.closed {
		switch flush {
		case transform.FlushSync:
			if f, ok := s.w.(flusher); ok {
				if err := f.Flush(); err != nil {
					s.failed = true

					return transform.StatusOK, err
				}
			}
		case transform.FlushFinish:
			s.closed = true

			if err := s.w.Close(); err != nil {
				s.failed = true

				return transform.StatusOK, err
			}
		}
	}

	s.drain(st)

	if s.closed && s.empty() {
		return transform.StatusStreamEnd, nil
	}

	return transform.StatusOK, nil
}

func (s *writerSession) End() error {
	if s.closed {
		return nil
	}

	s.closed = true

	err := s.w.Close()
	if s.failed {
		return nil
	}

	return err
}

// readerSession adapts a streaming decoder that reads from an io.Reader.
//
// Encoded input is collected until the finishing step, after which the
// decoder writes straight into the output window. A non-nil check inspects
// the complete input before the decoder is opened.
type readerSession struct {
	open   func(r io.Reader) (io.ReadCloser, error)
	check  func(input []byte) error
	input  []byte
	src    *bytes.Reader
	r      io.ReadCloser
	peeked []byte
	failed bool
}

func (s *readerSession) Step(st *transform.Stream, flush transform.Flush) (transform.Status, error) {
	if len(st.Next) > 0 {
		s.input = append(s.input, st.Consume(len(st.Next))...)
	}

	if flush != transform.FlushFinish {
		return transform.StatusOK, nil
	}

	if s.r == nil {
		if s.check != nil {
			if err := s.check(s.input); err != nil {
				s.failed = true

				return transform.StatusOK, classify(err)
			}
		}

		s.src = bytes.NewReader(s.input)

		r, err := s.open(s.src)
		if err != nil {
			s.failed = true

			return transform.StatusOK, classify(err)
		}

		s.r = r
	}

	if len(s.peeked) > 0 {
		if len(st.Avail) == 0 {
			return transform.StatusOK, nil
		}

		st.Emit(s.peeked)
		s.peeked = nil
	}

	for len(st.Avail) > 0 {
		n, err := io.ReadAtLeast(s.r, st.Avail, 1)
		st.Produce(n)

		if errors.Is(err, io.EOF) && n == 0 {
			return s.finish()
		}

		if err != nil {
			s.failed = true

			return transform.StatusOK, classify(err)
		}
	}

	// The window is full. Read ahead one byte to tell an exact fill apart
	// from more output to come.
	var one [1]byte

	n, err := io.ReadAtLeast(s.r, one[:], 1)
	if n == 1 {
		s.peeked = one[:]

		return transform.StatusOK, nil
	}

	if errors.Is(err, io.EOF) {
		return s.finish()
	}

	s.failed = true

	return transform.StatusOK, classify(err)
}

func (s *readerSession) finish() (transform.Status, error) {
	if left := s.src.Len(); left > 0 {
		s.failed = true

		return transform.StatusOK, transform.DataError(errTrailingData(left))
	}

	return transform.StatusStreamEnd, nil
}

func (s *readerSession) End() error {
	if s.r == nil {
		return nil
	}

	err := s.r.Close()
	s.r = nil

	if s.failed {
		return nil
	}

	return err
}

// bufferSession runs a one-shot transform over the whole input once it has
// been handed over in full. apply receives the run's output limit.
type bufferSession struct {
	pending
	apply func(input []byte, limit int) ([]byte, error)
	input []byte
	done  bool
}

func (s *bufferSession) Step(st *transform.Stream, flush transform.Flush) (transform.Status, error) {
	if len(st.Next) > 0 {
		s.input = append(s.input, st.Consume(len(st.Next))...)
	}

	if flush == transform.FlushFinish && !s.done {
		out, err := s.apply(s.input, st.Limit)
		if err != nil {
			return transform.StatusOK, err
		}

		s.done = true
		s.buf.Write(out)
	}

	s.drain(st)

	if s.done && s.empty() {
		return transform.StatusStreamEnd, nil
	}

	return transform.StatusOK, nil
}

func (s *bufferSession) End() error {
	s.input = nil

	return nil
}

// classify sorts decoder errors into truncated and corrupt input.
func classify(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return transform.TruncatedError(err)
	}

	return transform.DataError(err)
}
