package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pixeldrive/pixel"
)

func TestKeymapExplicitBindingWins(t *testing.T) {
	km := NewKeymap(10, pixel.Color{R: 1}, true)
	km.Bind(30, Binding{Index: 7, Color: pixel.Color{G: 255}})

	b, ok := km.Lookup(30)
	assert.True(t, ok)
	assert.Equal(t, uint16(7), b.Index)
	assert.Equal(t, pixel.Color{G: 255}, b.Color)
}

func TestKeymapWrapFallback(t *testing.T) {
	km := NewKeymap(10, pixel.Color{B: 9}, true)

	b, ok := km.Lookup(23)
	assert.True(t, ok)
	assert.Equal(t, uint16(3), b.Index) // 23 % 10
	assert.Equal(t, pixel.Color{B: 9}, b.Color)
}

func TestKeymapNoWrapLeavesUnmappedInert(t *testing.T) {
	km := NewKeymap(10, pixel.Color{R: 1}, false)

	_, ok := km.Lookup(23)
	assert.False(t, ok)

	km.Bind(23, Binding{Index: 2, Color: pixel.Color{R: 1}})
	_, ok = km.Lookup(23)
	assert.True(t, ok)
}
