package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArrayStartsCleanAndBlack(t *testing.T) {
	a := New(4)
	require.Equal(t, 4, a.Len())

	assert.Empty(t, a.DrainDirty())

	snap := a.Snapshot()
	require.Len(t, snap, 4)
	for i, u := range snap {
		assert.Equal(t, uint16(i), u.Index)
		assert.Equal(t, Black, u.Color)
	}
}

func TestSetOutOfRange(t *testing.T) {
	a := New(3)
	err := a.Set(3, Color{R: 1})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// The failed write leaves nothing dirty.
	assert.Empty(t, a.DrainDirty())
}

func TestDrainDirtyAscendingWithLatestColor(t *testing.T) {
	a := New(8)

	// Written out of order, overwritten in between.
	require.NoError(t, a.Set(5, Color{R: 10}))
	require.NoError(t, a.Set(1, Color{G: 20}))
	require.NoError(t, a.Set(5, Color{B: 30}))
	require.NoError(t, a.Set(3, Color{R: 40}))

	got := a.DrainDirty()
	require.Len(t, got, 3)
	assert.Equal(t, Update{Index: 1, Color: Color{G: 20}}, got[0])
	assert.Equal(t, Update{Index: 3, Color: Color{R: 40}}, got[1])
	assert.Equal(t, Update{Index: 5, Color: Color{B: 30}}, got[2])

	// Drained pixels stay clean until rewritten.
	assert.Empty(t, a.DrainDirty())

	require.NoError(t, a.Set(3, Color{R: 40}))
	got = a.DrainDirty()
	require.Len(t, got, 1)
	assert.Equal(t, uint16(3), got[0].Index)
}

func TestSetIdenticalColorStillDirty(t *testing.T) {
	a := New(2)
	require.NoError(t, a.Set(0, Color{R: 7}))
	a.DrainDirty()

	// Same color again: still flushed. Skipping no-op writes is the
	// caller's business.
	require.NoError(t, a.Set(0, Color{R: 7}))
	got := a.DrainDirty()
	require.Len(t, got, 1)
	assert.Equal(t, Color{R: 7}, got[0].Color)
}

func TestSnapshotDoesNotClearDirty(t *testing.T) {
	a := New(3)
	require.NoError(t, a.Set(1, Color{R: 255}))

	snap := a.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, Color{R: 255}, snap[1].Color)

	got := a.DrainDirty()
	require.Len(t, got, 1)
	assert.Equal(t, uint16(1), got[0].Index)
}

func TestClearMarksEverythingDirty(t *testing.T) {
	a := New(3)
	require.NoError(t, a.Set(2, Color{B: 9}))
	a.DrainDirty()

	a.Clear()
	got := a.DrainDirty()
	require.Len(t, got, 3)
	for _, u := range got {
		assert.Equal(t, Black, u.Color)
	}
}

func TestFill(t *testing.T) {
	a := New(2)
	a.Fill(Color{R: 1, G: 2, B: 3})
	got := a.DrainDirty()
	require.Len(t, got, 2)
	assert.Equal(t, Color{R: 1, G: 2, B: 3}, got[0].Color)
	assert.Equal(t, Color{R: 1, G: 2, B: 3}, got[1].Color)
}

func TestDimFadesActivePixels(t *testing.T) {
	a := New(2)
	require.NoError(t, a.Set(0, Color{R: 100, G: 5, B: 0}))
	a.DrainDirty()

	a.Dim(10)
	got := a.DrainDirty()
	require.Len(t, got, 1)
	assert.Equal(t, Color{R: 90, G: 0, B: 0}, got[0].Color)

	// Untouched black pixel is never dimmed or dirtied.
	for _, u := range got {
		assert.NotEqual(t, uint16(1), u.Index)
	}
}

func TestDimToBlackDeactivates(t *testing.T) {
	a := New(1)
	require.NoError(t, a.Set(0, Color{R: 5}))
	a.DrainDirty()

	a.Dim(5)
	got := a.DrainDirty()
	require.Len(t, got, 1)
	assert.Equal(t, Black, got[0].Color)

	p, err := a.At(0)
	require.NoError(t, err)
	assert.False(t, p.Active())

	// Further dims are no-ops.
	a.Dim(50)
	assert.Empty(t, a.DrainDirty())
}

func TestDimSkipsSelectedPixel(t *testing.T) {
	a := New(2)
	require.NoError(t, a.Set(0, Color{R: 50}))
	require.NoError(t, a.Set(1, Color{R: 50}))
	require.NoError(t, a.Select(0))
	a.DrainDirty()

	a.Dim(10)
	got := a.DrainDirty()
	require.Len(t, got, 1)
	assert.Equal(t, uint16(1), got[0].Index)
	assert.Equal(t, Color{R: 40}, got[0].Color)

	// Deselect: now it fades too.
	require.NoError(t, a.Select(-1))
	a.Dim(10)
	got = a.DrainDirty()
	require.Len(t, got, 2)
}

func TestSelectMovesExemption(t *testing.T) {
	a := New(3)
	require.NoError(t, a.Select(1))
	assert.Equal(t, 1, a.Selected())

	require.NoError(t, a.Select(2))
	assert.Equal(t, 2, a.Selected())

	p1, _ := a.At(1)
	assert.False(t, p1.Selected())
	p2, _ := a.At(2)
	assert.True(t, p2.Selected())

	assert.ErrorIs(t, a.Select(3), ErrIndexOutOfRange)
}
