// Package pixel holds the authoritative color state of a linear LED array
// and tracks which pixels changed since the last transmitted update.
package pixel

// Color is an 8-bit-per-channel RGB value.
type Color struct {
	R, G, B uint8
}

// Black is the all-off color.
var Black = Color{}

// Pixel represents a single addressable LED cell. Its index is assigned at
// array construction and never changes.
type Pixel struct {
	Index uint16
	Color Color

	dirty    bool
	active   bool
	selected bool
}

// Dirty reports whether the pixel changed since the last drain.
func (p *Pixel) Dirty() bool {
	return p.dirty
}

// Active reports whether the pixel was explicitly set and has not yet
// faded to black.
func (p *Pixel) Active() bool {
	return p.active
}

// Selected reports whether the pixel is exempt from fading.
func (p *Pixel) Selected() bool {
	return p.selected
}

// setColor overwrites the color and marks the pixel dirty unconditionally.
// Repeated identical writes still flush; callers that want to skip no-op
// writes do so above this layer.
func (p *Pixel) setColor(c Color) {
	p.Color = c
	p.dirty = true
	p.active = true
}

// dim subtracts amount from each channel, flooring at zero. Selected pixels
// and pixels that are already dark and inactive are left alone. Returns true
// if the color changed.
func (p *Pixel) dim(amount uint8) bool {
	if p.selected || amount == 0 {
		return false
	}
	if !p.active && p.Color == Black {
		return false
	}

	before := p.Color
	p.Color.R = subFloor(p.Color.R, amount)
	p.Color.G = subFloor(p.Color.G, amount)
	p.Color.B = subFloor(p.Color.B, amount)

	if p.Color == Black {
		p.active = false
	}
	if p.Color != before {
		p.dirty = true
		return true
	}
	return false
}

func subFloor(v, amount uint8) uint8 {
	if v <= amount {
		return 0
	}
	return v - amount
}
