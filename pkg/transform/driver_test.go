package transform

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsizedConfig(initial int) *Config {
	cfg := DefaultConfig()
	cfg.InitialBufferSize = initial
	cfg.PreSize = false

	return cfg
}

func TestDriverEmptyInput(t *testing.T) {
	engine := &copyEngine{}
	d := NewDriver(testLogger(), nil, nil)

	res, err := d.Run(engine, nil, ModeFinish)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Empty(t, res.Output)
	assert.Equal(t, uint64(0), res.TotalIn)
	assert.Equal(t, 1, res.Steps)

	inits, ends := engine.counts()
	assert.Equal(t, 1, inits)
	assert.Equal(t, 1, ends)
}

func TestDriverGrowsByDoubling(t *testing.T) {
	input := bytes.Repeat([]byte("abc"), 1000)
	d := NewDriver(testLogger(), unsizedConfig(4), nil)

	res, err := d.Run(&copyEngine{}, input, ModeFinish)
	require.NoError(t, err)

	assert.Equal(t, input, res.Output)
	assert.Equal(t, uint64(3000), res.TotalOut)
	// 4, 8, ... 4096
	assert.Equal(t, 10, res.Growths)
	assert.Equal(t, 11, res.Steps)
}

func TestDriverPreSizedSingleStep(t *testing.T) {
	input := bytes.Repeat([]byte("abc"), 1000)
	d := NewDriver(testLogger(), DefaultConfig(), nil)

	res, err := d.Run(boundedCopyEngine{&copyEngine{}}, input, ModeFinish)
	require.NoError(t, err)

	assert.Equal(t, input, res.Output)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, 0, res.Growths)
}

func TestDriverIncrementalChunks(t *testing.T) {
	input := bytes.Repeat([]byte{0x42}, 100)
	cfg := DefaultConfig()
	cfg.InputChunkSize = 7

	d := NewDriver(testLogger(), cfg, nil)

	res, err := d.Run(boundedCopyEngine{&copyEngine{}}, input, ModeIncremental)
	require.NoError(t, err)

	assert.Equal(t, input, res.Output)
	// 15 chunks fed without finish, then one finishing step.
	assert.Equal(t, 16, res.Steps)
}

func TestDriverFailures(t *testing.T) {
	tests := []struct {
		name      string
		engine    func() *copyEngine
		config    *Config
		input     []byte
		wantKinds []error
		wantInits int
		wantEnds  int
	}{
		{
			name:      "init error skips end",
			engine:    func() *copyEngine { return &copyEngine{initErr: errors.New("no memory")} },
			input:     []byte("x"),
			wantKinds: []error{ErrInit},
			wantInits: 0,
			wantEnds:  0,
		},
		{
			name:      "data error",
			engine:    func() *copyEngine { return &copyEngine{stepErr: DataError(errors.New("bad header"))} },
			input:     []byte("x"),
			wantKinds: []error{ErrStep, ErrData},
			wantInits: 1,
			wantEnds:  1,
		},
		{
			name:      "truncated",
			engine:    func() *copyEngine { return &copyEngine{stepErr: TruncatedError(errors.New("eof"))} },
			input:     []byte("x"),
			wantKinds: []error{ErrStep, ErrTruncated},
			wantInits: 1,
			wantEnds:  1,
		},
		{
			name:      "stalled",
			engine:    func() *copyEngine { return &copyEngine{stall: true} },
			input:     []byte("x"),
			wantKinds: []error{ErrStep, ErrStalled},
			wantInits: 1,
			wantEnds:  1,
		},
		{
			name:      "end error on success",
			engine:    func() *copyEngine { return &copyEngine{endErr: errors.New("leak")} },
			input:     []byte("x"),
			wantKinds: []error{ErrEnd},
			wantInits: 1,
			wantEnds:  1,
		},
		{
			name:   "output limit",
			engine: func() *copyEngine { return &copyEngine{} },
			config: func() *Config {
				cfg := unsizedConfig(4)
				cfg.MaxOutputSize = 16

				return cfg
			}(),
			input:     bytes.Repeat([]byte("z"), 100),
			wantKinds: []error{ErrOutputLimit},
			wantInits: 1,
			wantEnds:  1,
		},
		{
			name: "output limit reported by session",
			engine: func() *copyEngine {
				return &copyEngine{stepErr: fmt.Errorf("%w: header declares 536870912 bytes", ErrOutputLimit)}
			},
			input:     []byte("x"),
			wantKinds: []error{ErrOutputLimit},
			wantInits: 1,
			wantEnds:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := tt.engine()
			d := NewDriver(testLogger(), tt.config, nil)

			res, err := d.Run(engine, tt.input, ModeFinish)
			require.Error(t, err)
			assert.Nil(t, res)

			for _, kind := range tt.wantKinds {
				assert.ErrorIs(t, err, kind)
			}

			var runErr *Error
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, "copy", runErr.Engine())

			inits, ends := engine.counts()
			assert.Equal(t, tt.wantInits, inits)
			assert.Equal(t, tt.wantEnds, ends)
		})
	}
}

func TestDriverEndErrorDoesNotMaskStepError(t *testing.T) {
	engine := &copyEngine{stepErr: DataError(errors.New("bad")), endErr: errors.New("leak")}
	d := NewDriver(testLogger(), nil, nil)

	_, err := d.Run(engine, []byte("x"), ModeFinish)
	require.ErrorIs(t, err, ErrData)
	assert.NotErrorIs(t, err, ErrEnd)
}

func TestDriverMaxSteps(t *testing.T) {
	cfg := unsizedConfig(4)
	cfg.MaxSteps = 3

	d := NewDriver(testLogger(), cfg, nil)

	_, err := d.Run(&copyEngine{}, bytes.Repeat([]byte("s"), 100), ModeFinish)
	require.ErrorIs(t, err, ErrStalled)
	assert.ErrorContains(t, err, "after 3 steps")

	res, err := d.Run(&copyEngine{}, []byte("abc"), ModeFinish)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Steps)
}

func TestDriverRejectsAccountingMismatch(t *testing.T) {
	d := NewDriver(testLogger(), nil, nil)

	_, err := d.Run(liarEngine{}, []byte("x"), ModeFinish)
	require.ErrorIs(t, err, ErrStep)
	assert.ErrorContains(t, err, "reported 7 output bytes")
}

func TestDriverTrailingInputAfterStreamEnd(t *testing.T) {
	d := NewDriver(testLogger(), nil, nil)

	_, err := d.Run(earlyEndEngine{}, []byte("abc"), ModeFinish)
	require.ErrorIs(t, err, ErrData)
	assert.ErrorContains(t, err, "2 input bytes left")
}

func TestDriverWithMaxOutputSize(t *testing.T) {
	d := NewDriver(testLogger(), unsizedConfig(4), nil)
	limited := d.WithMaxOutputSize(8)

	assert.Equal(t, 0, d.Config().MaxOutputSize)
	assert.Equal(t, 8, limited.Config().MaxOutputSize)

	_, err := limited.Run(&copyEngine{}, bytes.Repeat([]byte("q"), 9), ModeFinish)
	require.ErrorIs(t, err, ErrOutputLimit)

	res, err := limited.Run(&copyEngine{}, bytes.Repeat([]byte("q"), 8), ModeFinish)
	require.NoError(t, err)
	assert.Len(t, res.Output, 8)
}

func TestDriverConcurrentRuns(t *testing.T) {
	engine := &copyEngine{}
	d := NewDriver(testLogger(), unsizedConfig(16), nil)

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			input := bytes.Repeat([]byte{byte(i)}, 100*i)

			res, err := d.Run(engine, input, ModeFinish)
			if assert.NoError(t, err) {
				assert.Equal(t, len(input), len(res.Output))
			}
		}(i)
	}

	wg.Wait()

	inits, ends := engine.counts()
	assert.Equal(t, 16, inits)
	assert.Equal(t, 16, ends)
}

func TestDriverEvents(t *testing.T) {
	d := NewDriver(testLogger(), unsizedConfig(4), nil)

	var (
		mu          sync.Mutex
		transitions []State
		grown       [][2]int
		completed   []*Result
		failed      []error
	)

	d.OnStateChanged(func(engine string, from, to State) {
		mu.Lock()
		defer mu.Unlock()

		transitions = append(transitions, to)
	})
	d.OnBufferGrown(func(engine string, from, to int) {
		mu.Lock()
		defer mu.Unlock()

		grown = append(grown, [2]int{from, to})
	})
	d.OnRunCompleted(func(engine string, result *Result) {
		mu.Lock()
		defer mu.Unlock()

		completed = append(completed, result)
	})
	d.OnRunFailed(func(engine string, err error) {
		mu.Lock()
		defer mu.Unlock()

		failed = append(failed, err)
	})

	_, err := d.Run(&copyEngine{}, []byte("hello"), ModeFinish)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []State{StateStepping, StateGrowingBuffer, StateStepping, StateCompleted}, transitions)
	assert.Equal(t, [][2]int{{4, 8}}, grown)
	require.Len(t, completed, 1)
	assert.Equal(t, uint64(5), completed[0].TotalOut)
	assert.Empty(t, failed)
	mu.Unlock()

	_, err = d.Run(&copyEngine{stall: true}, []byte("hello"), ModeFinish)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], ErrStalled)
	assert.Equal(t, StateFailed, transitions[len(transitions)-1])
}

func TestDriverMetrics(t *testing.T) {
	metrics := NewMetrics("test")
	require.NoError(t, metrics.Register(prometheus.NewRegistry()))

	d := NewDriver(testLogger(), unsizedConfig(4), metrics)

	_, err := d.Run(&copyEngine{}, []byte("hello"), ModeFinish)
	require.NoError(t, err)

	_, err = d.Run(&copyEngine{stall: true}, []byte("hello"), ModeFinish)
	require.Error(t, err)

	_, err = d.Run(&copyEngine{initErr: errors.New("nope")}, nil, ModeFinish)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("copy", "encode", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("copy", "encode", "stalled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("copy", "encode", "init_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Growths.WithLabelValues("copy", "encode")))
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.BytesOut.WithLabelValues("copy", "encode")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ActiveSessions.WithLabelValues("copy", "encode")))
}

func TestMetricsRegisterTwiceFails(t *testing.T) {
	registry := prometheus.NewRegistry()

	require.NoError(t, NewMetrics("test").Register(registry))
	assert.Error(t, NewMetrics("test").Register(registry))
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, canTransition(StateInitialized, StateStepping))
	assert.True(t, canTransition(StateStepping, StateGrowingBuffer))
	assert.True(t, canTransition(StateGrowingBuffer, StateStepping))
	assert.True(t, canTransition(StateStepping, StateCompleted))
	assert.False(t, canTransition(StateCompleted, StateStepping))
	assert.False(t, canTransition(StateFailed, StateStepping))
	assert.False(t, canTransition(StateInitialized, StateCompleted))

	assert.True(t, StateCompleted.Terminal())
	assert.False(t, StateGrowingBuffer.Terminal())
	assert.Equal(t, "growing_buffer", StateGrowingBuffer.String())
}

// limitSession records the output limit it was offered and then fails the
// run the way a session that reads a size header would.
type limitSession struct {
	seen *int
}

func (s *limitSession) Step(st *Stream, _ Flush) (Status, error) {
	*s.seen = st.Limit

	return StatusOK, fmt.Errorf("%w: header declares %d bytes", ErrOutputLimit, st.Limit+1)
}

func (s *limitSession) End() error { return nil }

type limitEngine struct {
	seen int
}

func (e *limitEngine) Name() string           { return "limit" }
func (e *limitEngine) Direction() Direction   { return DirectionDecode }
func (e *limitEngine) Init() (Session, error) { return &limitSession{seen: &e.seen}, nil }

func TestSessionSeesOutputLimit(t *testing.T) {
	engine := &limitEngine{}

	_, err := NewDriver(testLogger(), nil, nil).WithMaxOutputSize(1024).Run(engine, []byte("x"), ModeFinish)
	require.Error(t, err)

	assert.Equal(t, 1024, engine.seen)
	assert.ErrorIs(t, err, ErrOutputLimit)
	assert.NotErrorIs(t, err, ErrStep)

	var runErr *Error
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, ErrOutputLimit, runErr.Kind())
	assert.Equal(t, StateStepping, runErr.State())
}
