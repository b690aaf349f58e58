package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molvis/molscene/core"
)

func TestPickColorRoundTrip(t *testing.T) {
	for _, layer := range []uint8{0, 1, 2, 255} {
		for _, slot := range []core.Slot{0, 1, 255, 256, 65535, 1 << 20} {
			c := PickColor(layer, slot)
			gotLayer, gotSlot, ok := DecodePickColor(c)
			require.True(t, ok, "layer %d slot %d", layer, slot)
			assert.Equal(t, layer, gotLayer)
			assert.Equal(t, slot, gotSlot)
		}
	}
}

func TestPickColorInjective(t *testing.T) {
	seen := make(map[[4]float32]struct{})
	for layer := uint8(0); layer < 3; layer++ {
		for slot := core.Slot(0); slot < 4096; slot++ {
			c := PickColor(layer, slot)
			_, dup := seen[c]
			require.False(t, dup, "collision at layer %d slot %d", layer, slot)
			seen[c] = struct{}{}
		}
	}
}

func TestPickColorZeroIsNoHit(t *testing.T) {
	_, _, ok := DecodePickColor([4]float32{0, 0, 0, 0})
	assert.False(t, ok)

	// Slot 0 encodes away from the no-hit color.
	c := PickColor(0, 0)
	assert.NotEqual(t, [4]float32{0, 0, 0, 0}, c)
}
