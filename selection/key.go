// Package selection encodes pick results into stable keys and maintains
// the selected-entity sets of a scene.
package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/molvis/molscene/core"
)

// ErrMalformedKey is returned when a key cannot be parsed.
var ErrMalformedKey = errors.New("malformed selection key")

// Key is an opaque, stable token for a pick result. Keys are plain strings
// of the form "<layer>:s<slot>" or "<layer>:-" (no slot), which keeps them
// reversible, cheap to compare and free of float round-trip hazards.
//
// Keys are recomputed from the current slot whenever one is needed, never
// cached across mutations: swap-compaction relocates slots.
type Key string

// Ref is a decoded pick result: a layer identity plus an optional slot.
// Presence is tracked explicitly so "no slot" can never collide with slot 0.
type Ref struct {
	Layer   core.LayerID
	Slot    core.Slot
	HasSlot bool
}

// SlotRef returns a Ref addressing one instance of a layer.
func SlotRef(layer core.LayerID, slot core.Slot) Ref {
	return Ref{Layer: layer, Slot: slot, HasSlot: true}
}

// LayerRef returns a Ref addressing a whole layer (no instance).
func LayerRef(layer core.LayerID) Ref {
	return Ref{Layer: layer}
}

// Key encodes the Ref. Encoding is deterministic: identical input yields
// an identical key.
func (r Ref) Key() Key {
	if r.HasSlot {
		return Key(string(r.Layer) + ":s" + strconv.Itoa(int(r.Slot)))
	}
	return Key(string(r.Layer) + ":-")
}

// ParseKey decodes a key back into its layer and optional slot.
func ParseKey(k Key) (Ref, error) {
	s := string(k)
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	layer, tag := core.LayerID(s[:i]), s[i+1:]
	if tag == "-" {
		return LayerRef(layer), nil
	}
	if len(tag) < 2 || tag[0] != 's' {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	slot, err := strconv.Atoi(tag[1:])
	if err != nil || slot < 0 {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	return SlotRef(layer, core.Slot(slot)), nil
}
