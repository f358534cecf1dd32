package engine

import (
	"image"
	"sync"
)

// Texture is the capture target for one window. The engine writes into it
// after SetWindowTexture; readers take snapshots.
type Texture struct {
	mu     sync.RWMutex
	img    *image.RGBA
	frames uint64
}

// NewTexture allocates a width x height texture
func NewTexture(width, height int) *Texture {
	return &Texture{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width in pixels
func (t *Texture) Width() int {
	return t.img.Rect.Dx()
}

// Height in pixels
func (t *Texture) Height() int {
	return t.img.Rect.Dy()
}

// Write gives fn exclusive access to the pixel buffer and counts a frame.
func (t *Texture) Write(fn func(img *image.RGBA)) {
	t.mu.Lock()
	fn(t.img)
	t.frames++
	t.mu.Unlock()
}

// Frames returns how many times the texture has been written
func (t *Texture) Frames() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frames
}

// Snapshot returns a copy of the current pixels
func (t *Texture) Snapshot() *image.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()

	img := image.NewRGBA(t.img.Rect)
	copy(img.Pix, t.img.Pix)
	return img
}
