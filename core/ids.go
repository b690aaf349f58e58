package core

// EntityID is the stable, process-unique identifier for an atom or bond.
// Frame-loaded entities get dense ids (id == row); interactively created
// entities get sparse ids allocated past the frame range.
// It is strictly 32-bit so it fits bitmaps and hot-path maps.
type EntityID uint32

// MaxEntityID is the maximum possible value for an EntityID.
const MaxEntityID = ^EntityID(0)

// Slot is the physical row of an entity inside a buffer store.
// Slots are transient: swap-compaction on removal reassigns them.
type Slot int

// LayerID identifies one renderable layer (one instanced primitive set).
// Layer ids must not contain a colon; selection keys use it as a separator.
type LayerID string

// Kind discriminates the closed set of entity types in a scene.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindAtom represents an atom entity.
	KindAtom
	// KindBond represents a bond entity.
	KindBond
	// KindBox represents the simulation box.
	KindBox
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindBond:
		return "bond"
	case KindBox:
		return "box"
	default:
		return "invalid"
	}
}
