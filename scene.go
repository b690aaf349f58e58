package molscene

import (
	"context"
	"fmt"

	"github.com/molvis/molscene/buffer"
	"github.com/molvis/molscene/core"
	"github.com/molvis/molscene/meta"
	"github.com/molvis/molscene/topology"
)

// Instance buffer column names understood by the renderer.
const (
	ColumnPosition = "position" // atom center, stride 3
	ColumnRadius   = "radius"   // stride 1
	ColumnStart    = "start"    // bond start point, stride 3
	ColumnEnd      = "end"      // bond end point, stride 3
)

const (
	defaultAtomRadius = 0.5
	defaultBondRadius = 0.15

	layerIndexAtoms uint8 = 1
	layerIndexBonds uint8 = 2
)

// State is the lifecycle state of a scene.
type State uint8

const (
	// StateEmpty is a scene with no registered frame.
	StateEmpty State = iota
	// StateFrameLoaded is a scene serving a bulk-loaded frame plus edits.
	StateFrameLoaded
	// StatePromoted is a scene whose frame segment was converted into
	// individually editable entries.
	StatePromoted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFrameLoaded:
		return "frame-loaded"
	case StatePromoted:
		return "promoted"
	default:
		return "unknown"
	}
}

// FrameInput carries one bulk-loaded frame into RegisterFrame. Atoms and
// AtomTarget are required; the bond layer and the box are optional. Layer
// identities come from the targets.
type FrameInput struct {
	AtomTarget buffer.Renderable
	Atoms      *meta.FrameTable

	BondTarget buffer.Renderable
	Bonds      *meta.FrameTable

	Box *meta.BoxMeta
}

// AtomPatch is a partial atom metadata update; nil fields keep their value.
type AtomPatch struct {
	Element  *string
	Type     *int32
	Position *[3]float32
}

// BondPatch is a partial bond metadata update; nil fields keep their value.
type BondPatch struct {
	Order *float32
}

// Scene is the composition root of the engine. It owns one buffer store per
// entity layer, the topology graph and the metadata registry, and resolves
// renderer picks (layer, slot) to logical identity and back.
//
// All operations run synchronously on the caller's goroutine; the scene is
// not safe for concurrent use.
type Scene struct {
	opts   options
	logger *Logger

	atoms *buffer.Store
	bonds *buffer.Store

	topo *topology.Graph
	reg  *meta.Registry

	nextAtom core.EntityID
	nextBond core.EntityID

	state   State
	unsaved bool
}

// New creates an empty scene. Register a frame before editing.
func New(optFns ...Option) *Scene {
	o := applyOptions(optFns)
	return &Scene{
		opts:   o,
		logger: o.logger,
		topo:   topology.New(),
		reg:    meta.NewRegistry(),
		state:  StateEmpty,
	}
}

// State returns the lifecycle state of the scene.
func (s *Scene) State() State { return s.state }

// HasUnsavedChanges reports whether any mutating command ran since the last
// RegisterFrame, LoadSnapshot or MarkAllSaved.
func (s *Scene) HasUnsavedChanges() bool { return s.unsaved }

// MarkAllSaved clears the unsaved flag after an export.
func (s *Scene) MarkAllSaved() { s.unsaved = false }

// Atoms returns the atom buffer store, or nil before RegisterFrame.
func (s *Scene) Atoms() *buffer.Store { return s.atoms }

// Bonds returns the bond buffer store, or nil if no bond layer is registered.
func (s *Scene) Bonds() *buffer.Store { return s.bonds }

// Topology returns the scene's topology graph.
func (s *Scene) Topology() *topology.Graph { return s.topo }

// Registry returns the scene's metadata registry.
func (s *Scene) Registry() *meta.Registry { return s.reg }

// Box returns the simulation box of the current frame, if any.
func (s *Scene) Box() (meta.BoxMeta, bool) { return s.reg.Box() }

// SetBox installs or replaces the simulation box.
func (s *Scene) SetBox(box meta.BoxMeta) {
	s.reg.SetBox(&box)
	s.unsaved = true
}

// RegisterFrame replaces the whole scene with a bulk-loaded frame: instance
// buffers, frame metadata and topology edges for every source row. Any edits
// from a prior frame, including a promoted one, are discarded. Clears the
// unsaved flag.
func (s *Scene) RegisterFrame(in FrameInput) error {
	err := s.registerFrame(in)
	s.logger.LogRegisterFrame(context.Background(), in.Atoms.Len(), in.Bonds.Len(), err)
	return err
}

func (s *Scene) registerFrame(in FrameInput) error {
	if in.AtomTarget == nil {
		return &ErrBadFrameInput{Reason: "nil atom target"}
	}
	if in.Atoms == nil {
		return &ErrBadFrameInput{Reason: "nil atom frame source"}
	}
	if in.Bonds != nil && in.BondTarget == nil {
		return &ErrBadFrameInput{Reason: "bond frame source without bond target"}
	}

	atomCount := in.Atoms.Len()
	bondCount := in.Bonds.Len()

	// Validate bond endpoints before touching any state.
	for row := 0; row < bondCount; row++ {
		a1 := core.EntityID(in.Bonds.FloatAt(meta.ColBondFrom, row))
		a2 := core.EntityID(in.Bonds.FloatAt(meta.ColBondTo, row))
		if int(a1) >= atomCount {
			return &ErrMissingEndpoint{Bond: core.EntityID(row), Atom: a1}
		}
		if int(a2) >= atomCount {
			return &ErrMissingEndpoint{Bond: core.EntityID(row), Atom: a2}
		}
	}

	atoms, err := buffer.NewStore(in.AtomTarget, layerIndexAtoms, []buffer.ColumnSpec{
		{Name: ColumnPosition, Stride: 3},
		{Name: ColumnRadius, Stride: 1},
	}, s.opts.initialCapacity)
	if err != nil {
		return fmt.Errorf("atom store: %w", err)
	}

	var bonds *buffer.Store
	if in.BondTarget != nil {
		bonds, err = buffer.NewStore(in.BondTarget, layerIndexBonds, []buffer.ColumnSpec{
			{Name: ColumnStart, Stride: 3},
			{Name: ColumnEnd, Stride: 3},
			{Name: ColumnRadius, Stride: 1},
		}, s.opts.initialCapacity)
		if err != nil {
			return fmt.Errorf("bond store: %w", err)
		}
	}

	if err := atoms.SetFrameData(atomBufferData(in.Atoms), atomCount); err != nil {
		return fmt.Errorf("atom frame data: %w", err)
	}
	if bonds != nil {
		if err := bonds.SetFrameData(bondBufferData(in.Atoms, in.Bonds), bondCount); err != nil {
			return fmt.Errorf("bond frame data: %w", err)
		}
	}

	topo := topology.New()
	for row := 0; row < atomCount; row++ {
		topo.AddAtom(core.EntityID(row))
	}
	for row := 0; row < bondCount; row++ {
		topo.AddBond(
			core.EntityID(row),
			core.EntityID(in.Bonds.FloatAt(meta.ColBondFrom, row)),
			core.EntityID(in.Bonds.FloatAt(meta.ColBondTo, row)),
		)
	}

	reg := meta.NewRegistry()
	reg.SetFrame(core.KindAtom, in.Atoms)
	reg.SetFrame(core.KindBond, in.Bonds)
	reg.SetBox(in.Box)

	s.atoms = atoms
	s.bonds = bonds
	s.topo = topo
	s.reg = reg
	s.nextAtom = core.EntityID(atomCount)
	s.nextBond = core.EntityID(bondCount)
	s.state = StateFrameLoaded
	s.unsaved = false
	return nil
}

// atomBufferData assembles the atom store's frame columns from a frame table.
func atomBufferData(t *meta.FrameTable) map[string][]float32 {
	n := t.Len()
	position := make([]float32, n*3)
	radius := make([]float32, n)

	xs, ys, zs := t.Float(meta.ColX), t.Float(meta.ColY), t.Float(meta.ColZ)
	radii := t.Float(meta.ColRadius)
	for row := 0; row < n; row++ {
		if xs != nil {
			position[row*3+0] = xs[row]
		}
		if ys != nil {
			position[row*3+1] = ys[row]
		}
		if zs != nil {
			position[row*3+2] = zs[row]
		}
		if radii != nil {
			radius[row] = radii[row]
		} else {
			radius[row] = defaultAtomRadius
		}
	}

	return map[string][]float32{
		ColumnPosition: position,
		ColumnRadius:   radius,
	}
}

// bondBufferData assembles the bond store's frame columns, with start and
// end points taken from the endpoint atoms' coordinates.
func bondBufferData(atoms, bonds *meta.FrameTable) map[string][]float32 {
	n := bonds.Len()
	start := make([]float32, n*3)
	end := make([]float32, n*3)
	radius := make([]float32, n)

	radii := bonds.Float(meta.ColRadius)
	for row := 0; row < n; row++ {
		a1 := int(bonds.FloatAt(meta.ColBondFrom, row))
		a2 := int(bonds.FloatAt(meta.ColBondTo, row))
		start[row*3+0] = atoms.FloatAt(meta.ColX, a1)
		start[row*3+1] = atoms.FloatAt(meta.ColY, a1)
		start[row*3+2] = atoms.FloatAt(meta.ColZ, a1)
		end[row*3+0] = atoms.FloatAt(meta.ColX, a2)
		end[row*3+1] = atoms.FloatAt(meta.ColY, a2)
		end[row*3+2] = atoms.FloatAt(meta.ColZ, a2)
		if radii != nil {
			radius[row] = radii[row]
		} else {
			radius[row] = defaultBondRadius
		}
	}

	return map[string][]float32{
		ColumnStart:  start,
		ColumnEnd:    end,
		ColumnRadius: radius,
	}
}

// TypeOf resolves a layer identity to its entity kind. It implements
// selection.EntityResolver, so a Scene can back a selection.Manager
// directly.
func (s *Scene) TypeOf(layer core.LayerID) (core.Kind, bool) {
	if s.atoms != nil && layer == s.atoms.Layer() {
		return core.KindAtom, true
	}
	if s.bonds != nil && layer == s.bonds.Layer() {
		return core.KindBond, true
	}
	return core.KindInvalid, false
}

func (s *Scene) storeFor(layer core.LayerID) (*buffer.Store, core.Kind) {
	switch kind, _ := s.TypeOf(layer); kind {
	case core.KindAtom:
		return s.atoms, core.KindAtom
	case core.KindBond:
		return s.bonds, core.KindBond
	default:
		return nil, core.KindInvalid
	}
}

// Layer returns the buffer store owning a layer, or ErrUnknownLayer when
// the scene owns no such layer.
func (s *Scene) Layer(layer core.LayerID) (*buffer.Store, error) {
	store, _ := s.storeFor(layer)
	if store == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	return store, nil
}

// ResolveID translates a renderer pick (layer, slot) into a logical id.
func (s *Scene) ResolveID(layer core.LayerID, slot core.Slot) (core.EntityID, core.Kind, bool) {
	store, kind := s.storeFor(layer)
	if store == nil {
		return 0, core.KindInvalid, false
	}
	id, ok := store.IDAt(slot)
	if !ok {
		return 0, core.KindInvalid, false
	}
	return id, kind, true
}

// Meta resolves a pick to the entity's metadata record.
func (s *Scene) Meta(layer core.LayerID, slot core.Slot) (meta.Record, bool) {
	id, kind, ok := s.ResolveID(layer, slot)
	if !ok {
		return meta.Record{}, false
	}
	return s.reg.Meta(kind, id)
}

// MetaByID returns the metadata record for a logical id.
func (s *Scene) MetaByID(kind core.Kind, id core.EntityID) (meta.Record, bool) {
	return s.reg.Meta(kind, id)
}

// SetAttribute sets a generic extension property on an entity. Unknown ids
// are silently ignored.
func (s *Scene) SetAttribute(kind core.Kind, id core.EntityID, key string, val meta.Value) {
	if _, ok := s.reg.Meta(kind, id); !ok {
		return
	}
	s.reg.SetAttr(kind, id, key, val)
	s.unsaved = true
}

// Attribute returns a generic extension property of an entity.
func (s *Scene) Attribute(kind core.Kind, id core.EntityID, key string) (meta.Value, bool) {
	return s.reg.Attr(kind, id, key)
}

// CreateAtom allocates a new atom id, appends it to the atom buffer store,
// registers its metadata and topology vertex, and flushes. values can
// override or extend the derived buffer columns.
func (s *Scene) CreateAtom(m meta.AtomMeta, values map[string][]float32) (core.EntityID, error) {
	id, err := s.createAtom(m, values)
	s.logger.LogCreate(context.Background(), core.KindAtom, id, err)
	return id, err
}

func (s *Scene) createAtom(m meta.AtomMeta, values map[string][]float32) (core.EntityID, error) {
	if s.state == StateEmpty {
		return 0, ErrNoFrame
	}

	id := s.nextAtom
	cols := map[string][]float32{
		ColumnPosition: {m.Position[0], m.Position[1], m.Position[2]},
		ColumnRadius:   {defaultAtomRadius},
	}
	for name, vals := range values {
		cols[name] = vals
	}

	if _, err := s.atoms.Append(id, cols); err != nil {
		return 0, err
	}
	s.nextAtom++

	s.reg.SetEdit(core.KindAtom, id, meta.AtomRecord(m))
	s.topo.AddAtom(id)
	s.atoms.Flush()
	s.unsaved = true
	return id, nil
}

// CreateBond allocates a new bond id connecting two existing atoms, appends
// it to the bond buffer store with its geometry derived from the endpoint
// positions, registers metadata and the topology edge, and flushes.
func (s *Scene) CreateBond(m meta.BondMeta, values map[string][]float32) (core.EntityID, error) {
	id, err := s.createBond(m, values)
	s.logger.LogCreate(context.Background(), core.KindBond, id, err)
	return id, err
}

func (s *Scene) createBond(m meta.BondMeta, values map[string][]float32) (core.EntityID, error) {
	if s.state == StateEmpty {
		return 0, ErrNoFrame
	}
	if s.bonds == nil {
		return 0, ErrNoBondLayer
	}

	id := s.nextBond
	p1, ok := s.atomPosition(m.Atom1)
	if !ok {
		return 0, &ErrMissingEndpoint{Bond: id, Atom: m.Atom1}
	}
	p2, ok := s.atomPosition(m.Atom2)
	if !ok {
		return 0, &ErrMissingEndpoint{Bond: id, Atom: m.Atom2}
	}

	cols := map[string][]float32{
		ColumnStart:  p1[:],
		ColumnEnd:    p2[:],
		ColumnRadius: {defaultBondRadius},
	}
	for name, vals := range values {
		cols[name] = vals
	}

	if _, err := s.bonds.Append(id, cols); err != nil {
		return 0, err
	}
	s.nextBond++

	s.reg.SetEdit(core.KindBond, id, meta.BondRecord(m))
	s.topo.AddBond(id, m.Atom1, m.Atom2)
	s.bonds.Flush()
	s.unsaved = true
	return id, nil
}

// UpdateAtom merges a partial metadata update and optional buffer column
// overrides into an existing atom, refreshing the geometry of its incident
// bonds when the position changes. Unknown ids are silently ignored.
func (s *Scene) UpdateAtom(id core.EntityID, patch AtomPatch, values map[string][]float32) error {
	if s.state == StateEmpty {
		return ErrNoFrame
	}
	rec, ok := s.reg.Meta(core.KindAtom, id)
	if !ok {
		return nil
	}

	if patch.Element != nil {
		rec.Atom.Element = *patch.Element
	}
	if patch.Type != nil {
		rec.Atom.Type = *patch.Type
	}
	if patch.Position != nil {
		rec.Atom.Position = *patch.Position
	}
	s.reg.SetEdit(core.KindAtom, id, rec)

	if patch.Position != nil {
		p := rec.Atom.Position
		s.atoms.Update(id, map[string][]float32{ColumnPosition: p[:]})
		s.refreshIncidentBonds(id)
	}
	if len(values) > 0 {
		s.atoms.Update(id, values)
	}

	s.atoms.Flush()
	if s.bonds != nil {
		s.bonds.Flush()
	}
	s.unsaved = true
	return nil
}

// UpdateBond merges a partial metadata update and optional buffer column
// overrides into an existing bond. Unknown ids are silently ignored.
func (s *Scene) UpdateBond(id core.EntityID, patch BondPatch, values map[string][]float32) error {
	if s.state == StateEmpty {
		return ErrNoFrame
	}
	if s.bonds == nil {
		return ErrNoBondLayer
	}
	rec, ok := s.reg.Meta(core.KindBond, id)
	if !ok {
		return nil
	}

	if patch.Order != nil {
		rec.Bond.Order = *patch.Order
	}
	s.reg.SetEdit(core.KindBond, id, rec)

	if len(values) > 0 {
		s.bonds.Update(id, values)
	}

	s.bonds.Flush()
	s.unsaved = true
	return nil
}

// DeleteAtom removes an edit atom, cascading into its incident bonds:
// each cascaded bond leaves the bond buffer store and the metadata overlay
// before the atom itself is removed. Frame-resident atoms cannot be deleted
// until the frame is promoted. Unknown ids are silently ignored.
func (s *Scene) DeleteAtom(id core.EntityID) error {
	cascaded, err := s.deleteAtom(id)
	s.logger.LogDelete(context.Background(), core.KindAtom, id, cascaded, err)
	return err
}

func (s *Scene) deleteAtom(id core.EntityID) (int, error) {
	if s.state == StateEmpty {
		return 0, ErrNoFrame
	}
	if !s.topo.HasAtom(id) {
		return 0, nil
	}
	if int(id) < s.atoms.FrameLen() {
		return 0, ErrFrameResident
	}

	removedBonds := s.topo.RemoveAtom(id)
	for _, bondID := range removedBonds {
		if s.bonds != nil {
			s.bonds.Remove(bondID)
		}
		s.reg.RemoveEdit(core.KindBond, bondID)
	}

	s.reg.RemoveEdit(core.KindAtom, id)
	s.atoms.Remove(id)

	s.atoms.Flush()
	if s.bonds != nil {
		s.bonds.Flush()
	}
	s.unsaved = true
	return len(removedBonds), nil
}

// DeleteBond removes an edit bond from the topology, the metadata overlay
// and the bond buffer store. Frame-resident bonds cannot be deleted until
// the frame is promoted. Unknown ids are silently ignored.
func (s *Scene) DeleteBond(id core.EntityID) error {
	err := s.deleteBond(id)
	s.logger.LogDelete(context.Background(), core.KindBond, id, 0, err)
	return err
}

func (s *Scene) deleteBond(id core.EntityID) error {
	if s.state == StateEmpty {
		return ErrNoFrame
	}
	if s.bonds == nil {
		return ErrNoBondLayer
	}
	if !s.topo.HasBond(id) {
		return nil
	}
	if int(id) < s.bonds.FrameLen() {
		return ErrFrameResident
	}

	s.topo.RemoveBond(id)
	s.reg.RemoveEdit(core.KindBond, id)
	s.bonds.Remove(id)

	s.bonds.Flush()
	s.unsaved = true
	return nil
}

// PromoteFrameToEdit converts the frame segments of both stores into
// individually editable entries and materializes the frame metadata into
// the edit overlay. Idempotent; a no-op on an empty scene.
func (s *Scene) PromoteFrameToEdit() {
	if s.state != StateFrameLoaded {
		return
	}

	s.atoms.PromoteFrameToEdit()
	if s.bonds != nil {
		s.bonds.PromoteFrameToEdit()
	}
	s.reg.PromoteFrame(core.KindAtom)
	s.reg.PromoteFrame(core.KindBond)
	s.state = StatePromoted

	s.logger.LogPromote(context.Background(), s.atoms.Len(), s.bondCount())
}

// Bounds scans the position column across the full active range of the atom
// store and returns the axis-aligned bounding box, or ok=false when the
// scene has no atoms.
func (s *Scene) Bounds() (min, max [3]float32, ok bool) {
	if s.atoms == nil || s.atoms.Len() == 0 {
		return min, max, false
	}

	data, stride, _ := s.atoms.ActiveColumn(ColumnPosition)
	for axis := 0; axis < 3; axis++ {
		min[axis] = data[axis]
		max[axis] = data[axis]
	}
	for row := 1; row < s.atoms.Len(); row++ {
		for axis := 0; axis < 3; axis++ {
			v := data[row*stride+axis]
			if v < min[axis] {
				min[axis] = v
			}
			if v > max[axis] {
				max[axis] = v
			}
		}
	}
	return min, max, true
}

// Flush pushes any pending column changes of both stores to their
// renderables. A no-op when nothing is dirty.
func (s *Scene) Flush() {
	if s.atoms != nil {
		s.atoms.Flush()
	}
	if s.bonds != nil {
		s.bonds.Flush()
	}
}

// Clear discards all entities, hides the renderables and resets the scene
// to its empty state.
func (s *Scene) Clear() {
	if s.atoms != nil {
		s.atoms.Clear()
		s.atoms.Flush()
	}
	if s.bonds != nil {
		s.bonds.Clear()
		s.bonds.Flush()
	}
	s.atoms = nil
	s.bonds = nil
	s.topo = topology.New()
	s.reg = meta.NewRegistry()
	s.nextAtom = 0
	s.nextBond = 0
	s.state = StateEmpty
	s.unsaved = false
}

func (s *Scene) atomPosition(id core.EntityID) ([3]float32, bool) {
	rec, ok := s.reg.Meta(core.KindAtom, id)
	if !ok {
		return [3]float32{}, false
	}
	return rec.Atom.Position, true
}

// refreshIncidentBonds rewrites the start/end geometry of every bond
// incident to an atom whose position changed.
func (s *Scene) refreshIncidentBonds(id core.EntityID) {
	if s.bonds == nil {
		return
	}
	for _, bondID := range s.topo.Incident(id) {
		ends, ok := s.topo.Endpoints(bondID)
		if !ok {
			continue
		}
		p1, ok1 := s.atomPosition(ends[0])
		p2, ok2 := s.atomPosition(ends[1])
		if !ok1 || !ok2 {
			continue
		}
		s.bonds.Update(bondID, map[string][]float32{
			ColumnStart: p1[:],
			ColumnEnd:   p2[:],
		})
	}
}

func (s *Scene) bondCount() int {
	if s.bonds == nil {
		return 0
	}
	return s.bonds.Len()
}
