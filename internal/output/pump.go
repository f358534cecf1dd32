package output

import (
	"context"
	"errors"
	"image"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
)

// FrameSource resolves the latest captured pixels of a window
type FrameSource interface {
	Frame(h engine.Handle) (*image.RGBA, bool)
}

// Decorator draws onto a frame before it is written
type Decorator interface {
	Decorate(h engine.Handle, img *image.RGBA)
}

// Pump forwards captured frames from events into out until ctx is done or
// events is closed. Removed windows are dropped from out. dec may be nil.
func Pump(ctx context.Context, events <-chan window.Event, src FrameSource, out Output, dec Decorator) {
	log := logger.WithComponent("mjpeg")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case engine.MessageWindowCaptured:
				frame, ok := src.Frame(ev.Handle)
				if !ok {
					continue
				}
				if dec != nil {
					dec.Decorate(ev.Handle, frame)
				}
				if err := out.WriteFrame(ev.Handle, frame); err != nil && !errors.Is(err, ErrNotRunning) {
					log.Warn().Err(err).Stringer("handle", ev.Handle).Msg("Failed to write frame")
				}
			case engine.MessageWindowRemoved:
				out.Drop(ev.Handle)
			}
		}
	}
}
