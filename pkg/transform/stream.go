package transform

import "fmt"

// Direction describes which way an engine transforms bytes.
type Direction int

const (
	// DirectionEncode turns plain bytes into an encoded stream.
	DirectionEncode Direction = iota
	// DirectionDecode turns an encoded stream back into plain bytes.
	DirectionDecode
)

// String returns the label used in logs and metrics.
func (d Direction) String() string {
	switch d {
	case DirectionEncode:
		return "encode"
	case DirectionDecode:
		return "decode"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Flush tells a session how much it may hold back when a step returns.
type Flush int

const (
	// FlushNone lets the session buffer input for better results.
	FlushNone Flush = iota
	// FlushSync asks the session to make all input so far decodable.
	FlushSync
	// FlushFinish signals that no further input will arrive.
	FlushFinish
)

func (f Flush) String() string {
	switch f {
	case FlushNone:
		return "none"
	case FlushSync:
		return "sync"
	case FlushFinish:
		return "finish"
	default:
		return fmt.Sprintf("flush(%d)", int(f))
	}
}

// Status is the non-error outcome of a single step.
type Status int

const (
	// StatusOK means the step made what progress it could and the stream
	// has not ended yet.
	StatusOK Status = iota
	// StatusStreamEnd means the transform has emitted its final byte.
	StatusStreamEnd
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStreamEnd:
		return "stream_end"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Mode selects how the driver hands input to a session.
type Mode int

const (
	// ModeFinish passes the whole input as the last and only chunk.
	ModeFinish Mode = iota
	// ModeIncremental feeds the input without flushing and only switches
	// to FlushFinish once every input byte has been consumed.
	ModeIncremental
)

func (m Mode) String() string {
	switch m {
	case ModeFinish:
		return "finish"
	case ModeIncremental:
		return "incremental"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Stream is the pair of windows a session works on during a step.
//
// Next holds input the session has not consumed yet and Avail is the
// unwritten tail of the output buffer. Sessions advance both in place and
// keep TotalIn and TotalOut in step with what they consumed and produced.
//
// Limit is the most output the run may produce, or 0 for no limit. Sessions
// that learn the output size up front reject larger outputs with an error
// matching ErrOutputLimit before allocating for them.
type Stream struct {
	Next     []byte
	Avail    []byte
	TotalIn  uint64
	TotalOut uint64
	Limit    int
}

// Consume marks the first n bytes of Next as read and returns them.
func (s *Stream) Consume(n int) []byte {
	p := s.Next[:n]
	s.Next = s.Next[n:]
	s.TotalIn += uint64(n)

	return p
}

// Emit copies as much of p as fits into Avail and returns the count copied.
func (s *Stream) Emit(p []byte) int {
	n := copy(s.Avail, p)
	s.Produce(n)

	return n
}

// Produce records that the first n bytes of Avail were written directly.
func (s *Stream) Produce(n int) {
	s.Avail = s.Avail[n:]
	s.TotalOut += uint64(n)
}

// Session is an initialised transform. It is owned by a single driver run
// and must be ended exactly once.
type Session interface {
	// Step consumes from s.Next and writes into s.Avail. A hard error ends
	// the run; StatusStreamEnd completes it.
	Step(s *Stream, flush Flush) (Status, error)
	// End releases the session. It is called on every exit path.
	End() error
}

// Engine creates sessions for one direction of one algorithm.
type Engine interface {
	// Name identifies the algorithm, e.g. "zlib".
	Name() string
	// Direction reports whether sessions encode or decode.
	Direction() Direction
	// Init creates a fresh session.
	Init() (Session, error)
}

// Bounder is implemented by engines that can report the worst-case output
// size for an input of n bytes.
type Bounder interface {
	Bound(n int) int
}

// Codec pairs the encoder and decoder engines of one algorithm.
//
// ID identifies the codec together with its settings, so codecs with equal
// IDs produce and accept the same bytes. An empty ID means Name alone.
type Codec struct {
	Name    string
	ID      string
	Encoder Engine
	Decoder Engine
}

// Identity returns ID, or Name when no ID is set.
func (c Codec) Identity() string {
	if c.ID != "" {
		return c.ID
	}

	return c.Name
}
