package transform

// Event names for the driver event system.
var (
	// Lifecycle events.
	StateChangedEvent = "transform:state"
	RunCompletedEvent = "transform:completed"
	RunFailedEvent    = "transform:failed"

	// Buffer events
	BufferGrownEvent = "transform:buffer:grown"
)

// Event callback function types
type StateChangedCallback func(engine string, from, to State)
type RunCompletedCallback func(engine string, result *Result)
type RunFailedCallback func(engine string, err error)
type BufferGrownCallback func(engine string, from, to int)

// Event registration methods for Driver
func (d *Driver) OnStateChanged(callback StateChangedCallback) {
	d.emitter.On(StateChangedEvent, callback)
}

func (d *Driver) OnRunCompleted(callback RunCompletedCallback) {
	d.emitter.On(RunCompletedEvent, callback)
}

func (d *Driver) OnRunFailed(callback RunFailedCallback) {
	d.emitter.On(RunFailedEvent, callback)
}

func (d *Driver) OnBufferGrown(callback BufferGrownCallback) {
	d.emitter.On(BufferGrownEvent, callback)
}
