package pixel

import "errors"

// ErrIndexOutOfRange is returned when a pixel index is outside the array.
var ErrIndexOutOfRange = errors.New("pixel index out of range")

// Update is one (index, color) pair as produced by a drain or snapshot and
// consumed by the protocol encoder.
type Update struct {
	Index uint16
	Color Color
}

// Array is an ordered, fixed-length sequence of pixels. Its length is set at
// construction and never changes. The array is not safe for concurrent use;
// a single owner goroutine performs all mutation (see controller).
type Array struct {
	pixels   []Pixel
	selected int // -1 when no pixel is selected
}

// New creates an array of n pixels, all black, none dirty.
func New(n int) *Array {
	a := &Array{
		pixels:   make([]Pixel, n),
		selected: -1,
	}
	for i := range a.pixels {
		a.pixels[i].Index = uint16(i)
	}
	return a
}

// Len returns the number of pixels.
func (a *Array) Len() int {
	return len(a.pixels)
}

// At returns the pixel at index i for inspection.
func (a *Array) At(i int) (*Pixel, error) {
	if i < 0 || i >= len(a.pixels) {
		return nil, ErrIndexOutOfRange
	}
	return &a.pixels[i], nil
}

// Set overwrites the color at index and marks the pixel dirty, even if the
// new color equals the old one.
func (a *Array) Set(index uint16, c Color) error {
	if int(index) >= len(a.pixels) {
		return ErrIndexOutOfRange
	}
	a.pixels[index].setColor(c)
	return nil
}

// Fill sets every pixel to c, marking all dirty.
func (a *Array) Fill(c Color) {
	for i := range a.pixels {
		a.pixels[i].setColor(c)
	}
}

// Clear sets every pixel to black, marking all dirty, and deactivates them.
func (a *Array) Clear() {
	for i := range a.pixels {
		a.pixels[i].setColor(Black)
		a.pixels[i].active = false
	}
}

// DrainDirty returns every dirty pixel in ascending index order and clears
// their dirty flags in the same pass. A second immediate drain returns nil.
func (a *Array) DrainDirty() []Update {
	var out []Update
	for i := range a.pixels {
		if !a.pixels[i].dirty {
			continue
		}
		a.pixels[i].dirty = false
		out = append(out, Update{Index: a.pixels[i].Index, Color: a.pixels[i].Color})
	}
	return out
}

// Snapshot returns every pixel regardless of dirtiness, in ascending index
// order. Used for full-frame synchronization; dirty flags are untouched.
func (a *Array) Snapshot() []Update {
	out := make([]Update, len(a.pixels))
	for i := range a.pixels {
		out[i] = Update{Index: a.pixels[i].Index, Color: a.pixels[i].Color}
	}
	return out
}

// Dim fades every active, unselected pixel toward black by amount per
// channel. Pixels whose color changed are marked dirty.
func (a *Array) Dim(amount uint8) {
	for i := range a.pixels {
		a.pixels[i].dim(amount)
	}
}

// Select marks index as the selected pixel, exempting it from Dim. The
// previously selected pixel, if any, is deselected. A negative index clears
// the selection.
func (a *Array) Select(index int) error {
	if index >= len(a.pixels) {
		return ErrIndexOutOfRange
	}
	if a.selected >= 0 {
		a.pixels[a.selected].selected = false
	}
	a.selected = -1
	if index >= 0 {
		a.pixels[index].selected = true
		a.selected = index
	}
	return nil
}

// Selected returns the selected pixel index, or -1.
func (a *Array) Selected() int {
	return a.selected
}
