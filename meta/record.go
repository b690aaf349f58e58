package meta

import "github.com/molvis/molscene/core"

// AtomMeta is the domain record of one atom.
type AtomMeta struct {
	Element  string     `json:"element,omitempty"`
	Type     int32      `json:"type,omitempty"`
	Position [3]float32 `json:"position"`
}

// BondMeta is the domain record of one bond.
type BondMeta struct {
	Atom1 core.EntityID `json:"atom1"`
	Atom2 core.EntityID `json:"atom2"`
	Order float32       `json:"order,omitempty"`
}

// BoxMeta describes the simulation box: a 3x3 row-major cell matrix,
// per-axis periodicity flags and the origin.
type BoxMeta struct {
	Matrix [9]float32 `json:"matrix"`
	PBC    [3]bool    `json:"pbc"`
	Origin [3]float32 `json:"origin"`
}

// Record is the tagged union over the closed entity variant set. Exactly
// the field matching Kind is meaningful; Attrs carries generic extension
// properties for any kind.
type Record struct {
	Kind  core.Kind        `json:"kind"`
	Atom  AtomMeta         `json:"atom"`
	Bond  BondMeta         `json:"bond"`
	Box   BoxMeta          `json:"box"`
	Attrs map[string]Value `json:"attrs,omitempty"`
}

// AtomRecord wraps an AtomMeta into a Record.
func AtomRecord(m AtomMeta) Record { return Record{Kind: core.KindAtom, Atom: m} }

// BondRecord wraps a BondMeta into a Record.
func BondRecord(m BondMeta) Record { return Record{Kind: core.KindBond, Bond: m} }

// BoxRecord wraps a BoxMeta into a Record.
func BoxRecord(m BoxMeta) Record { return Record{Kind: core.KindBox, Box: m} }

// cloneAttrs returns a copy of the record with its own attribute map, so
// overlay writes never alias a caller-held record.
func (r Record) cloneAttrs() Record {
	if r.Attrs == nil {
		return r
	}
	attrs := make(map[string]Value, len(r.Attrs))
	for k, v := range r.Attrs {
		attrs[k] = v
	}
	r.Attrs = attrs
	return r
}
