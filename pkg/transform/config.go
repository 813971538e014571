package transform

import "fmt"

// MaxGrowthFactor is the largest accepted GrowthFactor.
const MaxGrowthFactor = 16

// Config controls buffer sizing for driver runs.
type Config struct {
	// InitialBufferSize is the starting output capacity when the engine
	// cannot bound its output or PreSize is off.
	InitialBufferSize int `yaml:"initialBufferSize" default:"16384"`
	// PreSize sizes the output buffer with the engine's worst-case bound.
	PreSize bool `yaml:"preSize" default:"true"`
	// GrowthFactor multiplies the capacity each time the window fills up.
	GrowthFactor int `yaml:"growthFactor" default:"2"`
	// MaxOutputSize caps the output buffer. Zero means no cap.
	MaxOutputSize int `yaml:"maxOutputSize" default:"0"`
	// InputChunkSize splits input into windows in ModeIncremental.
	// Zero hands over the whole input at once.
	InputChunkSize int `yaml:"inputChunkSize" default:"0"`
	// MaxSteps fails a run that has not finished after this many steps.
	// Zero means no limit.
	MaxSteps int `yaml:"maxSteps" default:"0"`
}

// DefaultConfig returns a Config with doubling growth and bound pre-sizing.
func DefaultConfig() *Config {
	return &Config{
		InitialBufferSize: 16 * 1024,
		PreSize:           true,
		GrowthFactor:      2,
		MaxOutputSize:     0,
		InputChunkSize:    0,
		MaxSteps:          0,
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.InitialBufferSize <= 0 {
		return fmt.Errorf("InitialBufferSize must be positive, got %d", c.InitialBufferSize)
	}

	if c.GrowthFactor < 2 || c.GrowthFactor > MaxGrowthFactor {
		return fmt.Errorf("GrowthFactor must be between 2 and %d, got %d", MaxGrowthFactor, c.GrowthFactor)
	}

	if c.MaxOutputSize < 0 {
		return fmt.Errorf("MaxOutputSize must not be negative, got %d", c.MaxOutputSize)
	}

	if c.InputChunkSize < 0 {
		return fmt.Errorf("InputChunkSize must not be negative, got %d", c.InputChunkSize)
	}

	if c.MaxSteps < 0 {
		return fmt.Errorf("MaxSteps must not be negative, got %d", c.MaxSteps)
	}

	return nil
}
