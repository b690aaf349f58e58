// Package meta keeps the id-keyed domain records of a scene: a bulk frame
// view per entity type, overridden by a sparse edit overlay. The overlay
// always wins over frame data for a given id.
package meta

import "github.com/molvis/molscene/core"

// table pairs one read-only frame source with its sparse edit overlay.
type table struct {
	frame *FrameTable
	edits map[core.EntityID]Record
}

// Registry holds the metadata of all entity types in one scene.
// Not safe for concurrent use.
type Registry struct {
	atoms table
	bonds table
	box   *BoxMeta
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		atoms: table{edits: make(map[core.EntityID]Record)},
		bonds: table{edits: make(map[core.EntityID]Record)},
	}
}

func (r *Registry) tableFor(kind core.Kind) *table {
	switch kind {
	case core.KindAtom:
		return &r.atoms
	case core.KindBond:
		return &r.bonds
	default:
		return nil
	}
}

// SetFrame installs the bulk frame view for one entity type.
// The overlay is never cleared by a frame install; callers reset it
// explicitly when they replace a whole scene.
func (r *Registry) SetFrame(kind core.Kind, t *FrameTable) {
	tb := r.tableFor(kind)
	if tb == nil {
		return
	}
	tb.frame = t
}

// Frame returns the installed frame source for one entity type, if any.
func (r *Registry) Frame(kind core.Kind) *FrameTable {
	tb := r.tableFor(kind)
	if tb == nil {
		return nil
	}
	return tb.frame
}

// FrameLen returns the row count of the installed frame source.
func (r *Registry) FrameLen(kind core.Kind) int {
	return r.Frame(kind).Len()
}

// Meta returns the record for id: overlay first, else derived from the
// frame source at row id if in range.
func (r *Registry) Meta(kind core.Kind, id core.EntityID) (Record, bool) {
	tb := r.tableFor(kind)
	if tb == nil {
		return Record{}, false
	}
	if rec, ok := tb.edits[id]; ok {
		return rec, true
	}
	if tb.frame != nil && int(id) < tb.frame.Len() {
		return r.derive(kind, tb.frame, int(id)), true
	}
	return Record{}, false
}

// SetEdit installs or replaces an overlay record for id.
func (r *Registry) SetEdit(kind core.Kind, id core.EntityID, rec Record) {
	tb := r.tableFor(kind)
	if tb == nil {
		return
	}
	rec.Kind = kind
	tb.edits[id] = rec.cloneAttrs()
}

// RemoveEdit drops the overlay record for id. For ids at or past the frame
// range this ends the entity's existence; below it the frame row shows
// through again.
func (r *Registry) RemoveEdit(kind core.Kind, id core.EntityID) {
	if tb := r.tableFor(kind); tb != nil {
		delete(tb.edits, id)
	}
}

// EditIDs returns the overlaid ids for one entity type, in no defined order.
func (r *Registry) EditIDs(kind core.Kind) []core.EntityID {
	tb := r.tableFor(kind)
	if tb == nil {
		return nil
	}
	ids := make([]core.EntityID, 0, len(tb.edits))
	for id := range tb.edits {
		ids = append(ids, id)
	}
	return ids
}

// Edits returns the overlay map for one entity type. The map is live;
// callers must not mutate it.
func (r *Registry) Edits(kind core.Kind) map[core.EntityID]Record {
	tb := r.tableFor(kind)
	if tb == nil {
		return nil
	}
	return tb.edits
}

// SetAttr sets a generic extension property on id. The record is
// materialized into the edit overlay if it only existed as a frame row, so
// attributes participate in overlay semantics automatically.
// Unknown ids are silently ignored.
func (r *Registry) SetAttr(kind core.Kind, id core.EntityID, key string, val Value) {
	tb := r.tableFor(kind)
	if tb == nil {
		return
	}
	rec, ok := tb.edits[id]
	if !ok {
		derived, exists := r.Meta(kind, id)
		if !exists {
			return
		}
		rec = derived.cloneAttrs()
	}
	if rec.Attrs == nil {
		rec.Attrs = make(map[string]Value, 1)
	}
	rec.Attrs[key] = val
	tb.edits[id] = rec
}

// Attr returns a generic extension property of id.
func (r *Registry) Attr(kind core.Kind, id core.EntityID, key string) (Value, bool) {
	rec, ok := r.Meta(kind, id)
	if !ok || rec.Attrs == nil {
		return Value{}, false
	}
	v, ok := rec.Attrs[key]
	return v, ok
}

// PromoteFrame copies every frame-backed record into the edit overlay and
// drops the bulk-source reference. Rows already overlaid keep their edits.
func (r *Registry) PromoteFrame(kind core.Kind) {
	tb := r.tableFor(kind)
	if tb == nil || tb.frame == nil {
		return
	}
	for row := 0; row < tb.frame.Len(); row++ {
		id := core.EntityID(row)
		if _, ok := tb.edits[id]; ok {
			continue
		}
		tb.edits[id] = r.derive(kind, tb.frame, row)
	}
	tb.frame = nil
}

// SetBox installs the simulation box record.
func (r *Registry) SetBox(box *BoxMeta) { r.box = box }

// Box returns the simulation box record, if any.
func (r *Registry) Box() (BoxMeta, bool) {
	if r.box == nil {
		return BoxMeta{}, false
	}
	return *r.box, true
}

// ResetEdits clears the overlay of one entity type.
func (r *Registry) ResetEdits(kind core.Kind) {
	if tb := r.tableFor(kind); tb != nil {
		clear(tb.edits)
	}
}

// Clear discards frame sources, overlays and the box.
func (r *Registry) Clear() {
	r.atoms = table{edits: make(map[core.EntityID]Record)}
	r.bonds = table{edits: make(map[core.EntityID]Record)}
	r.box = nil
}

func (r *Registry) derive(kind core.Kind, t *FrameTable, row int) Record {
	switch kind {
	case core.KindAtom:
		return AtomRecord(AtomMeta{
			Element: t.StringAt(ColElement, row),
			Type:    int32(t.FloatAt(ColType, row)),
			Position: [3]float32{
				t.FloatAt(ColX, row),
				t.FloatAt(ColY, row),
				t.FloatAt(ColZ, row),
			},
		})
	case core.KindBond:
		return BondRecord(BondMeta{
			Atom1: core.EntityID(t.FloatAt(ColBondFrom, row)),
			Atom2: core.EntityID(t.FloatAt(ColBondTo, row)),
			Order: t.FloatAt(ColOrder, row),
		})
	default:
		return Record{Kind: kind}
	}
}
