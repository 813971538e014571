package transform

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return logger
}

// copyEngine passes bytes through unchanged and counts its sessions.
type copyEngine struct {
	mu        sync.Mutex
	direction Direction
	bound     bool
	inits     int
	ends      int
	initErr   error
	endErr    error
	stepErr   error
	stall     bool
}

type boundedCopyEngine struct {
	*copyEngine
}

func (e boundedCopyEngine) Bound(n int) int { return n }

func (e *copyEngine) Name() string         { return "copy" }
func (e *copyEngine) Direction() Direction { return e.direction }

func (e *copyEngine) Init() (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initErr != nil {
		return nil, e.initErr
	}

	e.inits++

	return &copySession{engine: e}, nil
}

func (e *copyEngine) counts() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inits, e.ends
}

type copySession struct {
	engine *copyEngine
	ended  bool
}

func (s *copySession) Step(st *Stream, flush Flush) (Status, error) {
	if s.engine.stepErr != nil {
		return StatusOK, s.engine.stepErr
	}

	if s.engine.stall {
		return StatusOK, nil
	}

	n := min(len(st.Next), len(st.Avail))
	st.Emit(st.Consume(n))

	if flush == FlushFinish && len(st.Next) == 0 {
		return StatusStreamEnd, nil
	}

	return StatusOK, nil
}

func (s *copySession) End() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()

	if s.ended {
		return errors.New("session ended twice")
	}

	s.ended = true
	s.engine.ends++

	return s.engine.endErr
}

// liarEngine reports more output than it writes.
type liarEngine struct{}

func (liarEngine) Name() string           { return "liar" }
func (liarEngine) Direction() Direction   { return DirectionEncode }
func (liarEngine) Init() (Session, error) { return liarSession{}, nil }

type liarSession struct{}

func (liarSession) Step(st *Stream, _ Flush) (Status, error) {
	st.TotalOut += 7

	return StatusOK, nil
}

func (liarSession) End() error { return nil }

// earlyEndEngine finishes after consuming a single byte.
type earlyEndEngine struct{}

func (earlyEndEngine) Name() string           { return "early" }
func (earlyEndEngine) Direction() Direction   { return DirectionDecode }
func (earlyEndEngine) Init() (Session, error) { return earlyEndSession{}, nil }

type earlyEndSession struct{}

func (earlyEndSession) Step(st *Stream, _ Flush) (Status, error) {
	st.Consume(1)

	return StatusStreamEnd, nil
}

func (earlyEndSession) End() error { return nil }
