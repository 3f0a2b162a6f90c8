package controller

import "pixeldrive/pixel"

// Binding is the pixel a key lights up and the color it uses.
type Binding struct {
	Index uint16
	Color pixel.Color
}

// Keymap maps key codes to pixel bindings. It is data, not code: explicit
// bindings come from configuration; when wrapping is enabled, any unmapped
// code falls back to pixel `code % N` with the default color, so every key
// does something on a fresh install.
type Keymap struct {
	bindings     map[uint16]Binding
	n            uint16
	defaultColor pixel.Color
	wrap         bool
}

// NewKeymap creates a keymap over an array of n pixels.
func NewKeymap(n int, defaultColor pixel.Color, wrap bool) *Keymap {
	return &Keymap{
		bindings:     make(map[uint16]Binding),
		n:            uint16(n),
		defaultColor: defaultColor,
		wrap:         wrap,
	}
}

// DefaultColor returns the color used for fallback bindings and the cursor.
func (m *Keymap) DefaultColor() pixel.Color {
	return m.defaultColor
}

// Bind adds or replaces the explicit binding for a key code.
func (m *Keymap) Bind(code uint16, b Binding) {
	m.bindings[code] = b
}

// Lookup resolves a key code. The second result is false when the code has
// no binding and wrapping is disabled; such keys are inert.
func (m *Keymap) Lookup(code uint16) (Binding, bool) {
	if b, ok := m.bindings[code]; ok {
		return b, true
	}
	if !m.wrap || m.n == 0 {
		return Binding{}, false
	}
	return Binding{Index: code % m.n, Color: m.defaultColor}, true
}
