package compression

import "github.com/ethpandaops/streamcodec/pkg/transform"

// engine is a transform.Engine backed by a session constructor.
type engine struct {
	name      string
	direction transform.Direction
	init      func() (transform.Session, error)
}

func (e *engine) Name() string                     { return e.name }
func (e *engine) Direction() transform.Direction   { return e.direction }
func (e *engine) Init() (transform.Session, error) { return e.init() }

// boundedEngine is an engine that can size its output up front.
type boundedEngine struct {
	*engine
	bound func(n int) int
}

func (e *boundedEngine) Bound(n int) int {
	if n < 0 {
		n = 0
	}

	return e.bound(n)
}

var (
	_ transform.Engine  = (*engine)(nil)
	_ transform.Bounder = (*boundedEngine)(nil)
)
