package output

import (
	"image"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

// Output is a sink for captured window frames. Frames arrive keyed by the
// window they were captured from; Drop is called once the window is gone.
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame publishes a new frame for window h
	WriteFrame(h engine.Handle, frame *image.RGBA) error

	// Drop releases everything held for window h
	Drop(h engine.Handle)

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for all output types
type Config struct {
	// Quality is the JPEG quality, 1-100
	Quality int
	// ClientBuffer is how many frames a slow client may lag behind
	ClientBuffer int
}

// DefaultConfig returns the settings used by the serve command
func DefaultConfig() Config {
	return Config{Quality: 90, ClientBuffer: 2}
}
