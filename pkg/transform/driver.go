package transform

import (
	"errors"
	"fmt"
	"time"

	"github.com/chuckpreslar/emission"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of a completed run.
type Result struct {
	// Output holds exactly the produced bytes.
	Output   []byte
	TotalIn  uint64
	TotalOut uint64
	Steps    int
	Growths  int
	State    State
	Duration time.Duration
}

// Driver runs engines to completion over in-memory input.
//
// A Driver holds no per-run state, so one Driver may serve concurrent runs.
// Each run owns its session and output buffer.
type Driver struct {
	log     logrus.FieldLogger
	config  *Config
	metrics *Metrics
	emitter *emission.Emitter
}

// NewDriver creates a new Driver. A nil config falls back to DefaultConfig
// and a nil metrics disables instrumentation.
func NewDriver(log logrus.FieldLogger, config *Config, metrics *Metrics) *Driver {
	if config == nil {
		config = DefaultConfig()
	}

	return &Driver{
		log:     log.WithField("component", "transform"),
		config:  config,
		metrics: metrics,
		emitter: emission.NewEmitter(),
	}
}

// Config returns the driver configuration.
func (d *Driver) Config() *Config {
	return d.config
}

// WithMaxOutputSize returns a driver sharing logger, metrics and event
// listeners whose output buffer is capped at limit bytes.
func (d *Driver) WithMaxOutputSize(limit int) *Driver {
	cfg := *d.config
	cfg.MaxOutputSize = limit

	return &Driver{
		log:     d.log,
		config:  &cfg,
		metrics: d.metrics,
		emitter: d.emitter,
	}
}

// Encode runs the codec's encoder over input.
func (d *Driver) Encode(codec Codec, input []byte, mode Mode) (*Result, error) {
	return d.Run(codec.Encoder, input, mode)
}

// Decode runs the codec's decoder over input.
func (d *Driver) Decode(codec Codec, input []byte, mode Mode) (*Result, error) {
	return d.Run(codec.Decoder, input, mode)
}

// Run drives one session of engine over input until it completes or fails.
// The session is ended exactly once on every path after a successful Init.
func (d *Driver) Run(engine Engine, input []byte, mode Mode) (*Result, error) {
	r := &run{
		driver: d,
		engine: engine,
		input:  input,
		mode:   mode,
		log: d.log.WithFields(logrus.Fields{
			"engine":    engine.Name(),
			"direction": engine.Direction().String(),
		}),
	}

	return r.execute()
}

// run is the state of a single Driver.Run call.
type run struct {
	driver *Driver
	engine Engine
	input  []byte
	mode   Mode
	log    logrus.FieldLogger

	state   State
	steps   int
	growths int
	stream  Stream
	buffer  *Buffer
	fed     int
}

func (r *run) execute() (res *Result, err error) {
	start := time.Now()

	session, err := r.engine.Init()
	if err != nil {
		r.state = StateFailed
		err = newError(ErrInit, err, r.engine, StateInitialized)
		r.finish(start, err)

		return nil, err
	}

	if r.driver.metrics != nil {
		r.driver.metrics.RecordSessionStarted(r.engine.Name(), r.engine.Direction())
	}

	defer func() {
		endErr := session.End()

		if r.driver.metrics != nil {
			r.driver.metrics.RecordSessionEnded(r.engine.Name(), r.engine.Direction())
		}

		if endErr != nil {
			r.log.WithError(endErr).Warn("Failed to end transform session")

			if err == nil {
				r.state = StateFailed
				res = nil
				err = newError(ErrEnd, endErr, r.engine, StateCompleted)
			}
		}

		r.finish(start, err)

		if res != nil {
			res.Duration = time.Since(start)
		}
	}()

	r.state = StateInitialized
	r.buffer = NewBuffer(r.initialSize())
	r.stream.Avail = r.buffer.Window(0)
	r.stream.Limit = r.driver.config.MaxOutputSize

	if err := r.loop(session); err != nil {
		return nil, err
	}

	return &Result{
		Output:   r.buffer.Bytes(r.stream.TotalOut),
		TotalIn:  r.stream.TotalIn,
		TotalOut: r.stream.TotalOut,
		Steps:    r.steps,
		Growths:  r.growths,
		State:    r.state,
	}, nil
}

func (r *run) loop(session Session) error {
	for {
		r.feed()

		flush := r.flush()

		r.transition(StateStepping)

		inBefore, outBefore := r.stream.TotalIn, r.stream.TotalOut

		status, err := session.Step(&r.stream, flush)
		r.steps++

		if err != nil {
			if errors.Is(err, ErrOutputLimit) {
				return r.fail(ErrOutputLimit, err)
			}

			return r.fail(ErrStep, err)
		}

		if err := r.checkAccounting(); err != nil {
			return r.fail(ErrStep, err)
		}

		if status == StatusStreamEnd {
			if len(r.stream.Next) > 0 || r.fed < len(r.input) {
				return r.fail(ErrStep, DataError(fmt.Errorf("%d input bytes left after end of stream",
					len(r.input)-int(r.stream.TotalIn))))
			}

			r.transition(StateCompleted)
			r.log.WithFields(logrus.Fields{
				"in":      r.stream.TotalIn,
				"out":     r.stream.TotalOut,
				"steps":   r.steps,
				"growths": r.growths,
			}).Debug("Transform completed")

			return nil
		}

		if limit := r.driver.config.MaxSteps; limit > 0 && r.steps >= limit {
			return r.fail(ErrStep, fmt.Errorf("%w after %d steps", ErrStalled, r.steps))
		}

		if len(r.stream.Avail) == 0 {
			if err := r.grow(); err != nil {
				return err
			}

			continue
		}

		progressed := r.stream.TotalIn != inBefore || r.stream.TotalOut != outBefore
		if !progressed && (flush == FlushFinish || len(r.stream.Next) > 0) {
			return r.fail(ErrStep, fmt.Errorf("%w with %s flush and %d bytes of output space",
				ErrStalled, flush, len(r.stream.Avail)))
		}
	}
}

// feed hands the session its next input window once the previous one has
// been consumed.
func (r *run) feed() {
	if len(r.stream.Next) > 0 || r.fed >= len(r.input) {
		return
	}

	n := len(r.input) - r.fed
	if r.mode == ModeIncremental && r.driver.config.InputChunkSize > 0 && n > r.driver.config.InputChunkSize {
		n = r.driver.config.InputChunkSize
	}

	r.stream.Next = r.input[r.fed : r.fed+n : r.fed+n]
	r.fed += n
}

func (r *run) flush() Flush {
	if r.mode == ModeFinish {
		return FlushFinish
	}

	if r.fed >= len(r.input) && len(r.stream.Next) == 0 {
		return FlushFinish
	}

	return FlushNone
}

func (r *run) grow() error {
	r.transition(StateGrowingBuffer)

	from := r.buffer.Cap()
	if err := r.buffer.Grow(r.driver.config.GrowthFactor, r.driver.config.MaxOutputSize); err != nil {
		return r.fail(ErrOutputLimit, err)
	}

	r.growths++
	r.stream.Avail = r.buffer.Window(r.stream.TotalOut)

	r.log.WithFields(logrus.Fields{
		"from": from,
		"to":   r.buffer.Cap(),
	}).Debug("Grew output buffer")

	r.driver.emitter.Emit(BufferGrownEvent, r.engine.Name(), from, r.buffer.Cap())

	return nil
}

// checkAccounting verifies that the session's output counter matches the
// window it was given.
func (r *run) checkAccounting() error {
	written := uint64(r.buffer.Cap() - len(r.stream.Avail))
	if written != r.stream.TotalOut {
		return fmt.Errorf("session reported %d output bytes but wrote %d", r.stream.TotalOut, written)
	}

	return nil
}

func (r *run) transition(to State) {
	from := r.state
	if from == to && to != StateStepping {
		return
	}

	if !canTransition(from, to) {
		r.log.WithFields(logrus.Fields{
			"from": from.String(),
			"to":   to.String(),
		}).Error("Invalid transform state transition")
	}

	r.state = to

	if from != to {
		r.driver.emitter.Emit(StateChangedEvent, r.engine.Name(), from, to)
	}
}

func (r *run) fail(kind, err error) error {
	failedIn := r.state
	r.transition(StateFailed)

	return newError(kind, err, r.engine, failedIn)
}

// finish records metrics and fires the terminal event.
func (r *run) finish(start time.Time, err error) {
	result := "success"
	if err != nil {
		result = resultLabel(err)
	}

	if r.driver.metrics != nil {
		r.driver.metrics.RecordRun(
			r.engine.Name(),
			r.engine.Direction(),
			result,
			r.steps,
			r.growths,
			r.stream.TotalIn,
			r.stream.TotalOut,
			time.Since(start),
		)
	}

	if err != nil {
		r.log.WithError(err).Debug("Transform failed")
		r.driver.emitter.Emit(RunFailedEvent, r.engine.Name(), err)

		return
	}

	r.driver.emitter.Emit(RunCompletedEvent, r.engine.Name(), &Result{
		TotalIn:  r.stream.TotalIn,
		TotalOut: r.stream.TotalOut,
		Steps:    r.steps,
		Growths:  r.growths,
		State:    r.state,
		Duration: time.Since(start),
	})
}

func (r *run) initialSize() int {
	size := r.driver.config.InitialBufferSize

	if r.driver.config.PreSize {
		if b, ok := r.engine.(Bounder); ok {
			size = b.Bound(len(r.input))
		}
	}

	if limit := r.driver.config.MaxOutputSize; limit > 0 && size > limit {
		size = limit
	}

	return size
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrInit):
		return "init_error"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrData):
		return "data_error"
	case errors.Is(err, ErrStalled):
		return "stalled"
	case errors.Is(err, ErrOutputLimit):
		return "output_limit"
	case errors.Is(err, ErrEnd):
		return "end_error"
	default:
		return "step_error"
	}
}
