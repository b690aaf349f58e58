package buffer

import "github.com/molvis/molscene/core"

// PickColumn is the derived per-instance column holding the picking color.
// It is appended to every store schema automatically.
const PickColumn = "pickColor"

// pickStride is the component count of the picking column (RGBA).
const pickStride = 4

// PickColor maps a layer index and slot to a normalized RGBA color.
//
// The mapping is deterministic and injective for slots below 2^24-1:
// slot+1 fills the RGB bytes, the layer index fills alpha. Slot offsetting
// keeps fully black pixels free to mean "no hit".
func PickColor(layerIndex uint8, slot core.Slot) [4]float32 {
	v := uint32(slot) + 1
	return [4]float32{
		float32(v>>16&0xFF) / 255,
		float32(v>>8&0xFF) / 255,
		float32(v&0xFF) / 255,
		float32(layerIndex) / 255,
	}
}

// DecodePickColor inverts PickColor. ok is false for the "no hit" color
// (zero RGB), which no slot encodes to.
func DecodePickColor(c [4]float32) (layerIndex uint8, slot core.Slot, ok bool) {
	r := uint32(c[0]*255 + 0.5)
	g := uint32(c[1]*255 + 0.5)
	b := uint32(c[2]*255 + 0.5)
	v := r<<16 | g<<8 | b
	if v == 0 {
		return 0, 0, false
	}
	return uint8(c[3]*255 + 0.5), core.Slot(v - 1), true
}
