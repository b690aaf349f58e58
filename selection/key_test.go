package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	refs := []Ref{
		SlotRef("atoms", 0),
		SlotRef("atoms", 1),
		SlotRef("bonds", 123456),
		LayerRef("atoms"),
		LayerRef("box"),
		SlotRef("", 0),
	}
	for _, ref := range refs {
		got, err := ParseKey(ref.Key())
		require.NoError(t, err, "key %q", ref.Key())
		assert.Equal(t, ref, got)
	}
}

func TestKeyStable(t *testing.T) {
	assert.Equal(t, SlotRef("atoms", 7).Key(), SlotRef("atoms", 7).Key())
}

func TestNoSlotDistinctFromSlotZero(t *testing.T) {
	assert.NotEqual(t, SlotRef("atoms", 0).Key(), LayerRef("atoms").Key())
}

func TestParseKeyErrors(t *testing.T) {
	for _, k := range []Key{"", "atoms", "atoms:", "atoms:x1", "atoms:s", "atoms:s-5", "atoms:sfoo"} {
		_, err := ParseKey(k)
		assert.ErrorIs(t, err, ErrMalformedKey, "key %q", k)
	}
}
