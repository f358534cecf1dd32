package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

func (e *Engine) captureLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stop:
			return
		case <-e.requests.ready:
		}

		for {
			select {
			case <-e.stop:
				return
			default:
			}
			id, _, ok := e.requests.pop()
			if !ok {
				break
			}
			e.capture(id)
		}
	}
}

// capture grabs one window into its bound texture and queues WindowCaptured.
// A missing or stale-sized texture skips the capture; the consumer rebinds
// after the size change it was told about.
func (e *Engine) capture(id engine.ID) {
	w, ok := e.get(id)
	if !ok || w.mode == engine.CaptureModeNone {
		return
	}
	tex := w.texture
	width, height := w.props.width, w.props.height
	if tex == nil || width == 0 || height == 0 {
		return
	}
	if tex.Width() != width || tex.Height() != height {
		e.debugf("skipping capture of 0x%x: texture %dx%d, window %dx%d",
			uint32(w.xid), tex.Width(), tex.Height(), width, height)
		return
	}

	data, err := e.grab(w.xid, width, height)
	if err != nil {
		e.errorf("capture of 0x%x failed: %v", uint32(w.xid), err)
		return
	}
	depth := int(e.screen.RootDepth)
	tex.Write(func(img *image.RGBA) {
		convertImageData(img, data, depth)
	})

	e.mu.Lock()
	if cur, ok := e.windows[id]; ok && cur.texture == tex {
		e.enqueueLocked(engine.MessageWindowCaptured, cur)
	}
	e.mu.Unlock()
}

// grab reads the window's pixels, through its Composite pixmap when the
// extension is available so obscured windows still capture.
func (e *Engine) grab(xid xproto.Window, width, height int) ([]byte, error) {
	drawable := xproto.Drawable(xid)

	if e.compositeEnabled {
		if err := composite.RedirectWindowChecked(e.conn, xid, composite.RedirectAutomatic).Check(); err == nil {
			defer composite.UnredirectWindow(e.conn, xid, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(e.conn); err == nil {
				if err := composite.NameWindowPixmapChecked(e.conn, xid, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(e.conn, pixmap)
				}
			}
		}
	}

	reply, err := xproto.GetImage(
		e.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		uint16(width), uint16(height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return reply.Data, nil
}

// convertImageData copies BGRX pixel data into img. Depths other than 24 and
// 32 leave img untouched.
func convertImageData(img *image.RGBA, data []byte, depth int) {
	if depth != 24 && depth != 32 {
		return
	}
	n := len(img.Pix)
	if len(data) < n {
		n = len(data) / 4 * 4
	}
	for i := 0; i+3 < n; i += 4 {
		img.Pix[i+0] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 0xff
	}
}
