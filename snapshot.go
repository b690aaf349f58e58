package molscene

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/molvis/molscene/blobstore"
	"github.com/molvis/molscene/buffer"
	"github.com/molvis/molscene/codec"
	"github.com/molvis/molscene/core"
	"github.com/molvis/molscene/meta"
	"github.com/molvis/molscene/topology"
)

// Snapshot wire format:
//
//	magic "MSCN" | version u8 | compression u8 | codec name len u8 | codec name
//	then three length-prefixed compressed sections: atoms, bonds, scene.
//
// The header is self-describing so a snapshot written with one codec or
// compression setting loads under any scene configuration.
const (
	snapshotMagic   = "MSCN"
	snapshotVersion = 1
)

var (
	// ErrBadSnapshot is returned when a snapshot blob is malformed.
	ErrBadSnapshot = errors.New("malformed snapshot")

	// ErrSnapshotVersion is returned when a snapshot was written by an
	// incompatible format version.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)

// snapshotEditRow is one appended edit-segment instance, with its buffer
// column values, in slot order. Replaying rows in order reproduces the
// exact slot layout.
type snapshotEditRow struct {
	ID     core.EntityID        `json:"id"`
	Values map[string][]float32 `json:"values"`
}

// snapshotEntity is the persisted form of one entity type: the frame source
// (nil once promoted), the metadata overlay and the buffer edit rows.
type snapshotEntity struct {
	Frame *meta.FrameTable              `json:"frame,omitempty"`
	Edits map[core.EntityID]meta.Record `json:"edits,omitempty"`
	Rows  []snapshotEditRow             `json:"rows,omitempty"`
}

type snapshotScene struct {
	State    uint8         `json:"state"`
	HasBonds bool          `json:"has_bonds"`
	NextAtom core.EntityID `json:"next_atom"`
	NextBond core.EntityID `json:"next_bond"`
	Box      *meta.BoxMeta `json:"box,omitempty"`
}

// LoadInput supplies the renderables a loaded snapshot binds to. Renderer
// handles are process-local and never serialized, so the caller provides
// fresh ones on load.
type LoadInput struct {
	AtomTarget buffer.Renderable
	BondTarget buffer.Renderable
}

// SaveSnapshot serializes the whole scene (frame sources, edit overlays,
// buffer edit rows, topology-implied structure, counters and box) into the
// blob store under name. Sections are encoded and compressed concurrently.
func (s *Scene) SaveSnapshot(ctx context.Context, store blobstore.Store, name string) error {
	payload, err := s.encodeSnapshot(ctx)
	if err == nil {
		err = store.Put(ctx, name, payload)
	}
	s.logger.LogSnapshot(ctx, name, len(payload), err)
	return err
}

func (s *Scene) encodeSnapshot(ctx context.Context) ([]byte, error) {
	atomSec := s.captureEntity(s.atoms, core.KindAtom, nil)
	bondSec := s.captureEntity(s.bonds, core.KindBond, s.touchedFrameBonds())

	var box *meta.BoxMeta
	if b, ok := s.reg.Box(); ok {
		box = &b
	}
	sceneSec := snapshotScene{
		State:    uint8(s.state),
		HasBonds: s.bonds != nil,
		NextAtom: s.nextAtom,
		NextBond: s.nextBond,
		Box:      box,
	}

	sections := []any{atomSec, bondSec, sceneSec}
	blocks := make([][]byte, len(sections))

	g, _ := errgroup.WithContext(ctx)
	for i, sec := range sections {
		g.Go(func() error {
			data, err := s.opts.codec.Marshal(sec)
			if err != nil {
				return fmt.Errorf("encode snapshot section %d: %w", i, err)
			}
			block, err := compressBlock(data, s.opts.compression)
			if err != nil {
				return fmt.Errorf("compress snapshot section %d: %w", i, err)
			}
			blocks[i] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	codecName := s.opts.codec.Name()
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	buf.WriteByte(snapshotVersion)
	buf.WriteByte(byte(s.opts.compression))
	buf.WriteByte(byte(len(codecName)))
	buf.WriteString(codecName)
	for _, block := range blocks {
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(block)))
		buf.Write(size[:])
		buf.Write(block)
	}
	return buf.Bytes(), nil
}

// captureEntity snapshots one entity type. The registry maps are referenced,
// not copied; the caller must not mutate the scene until encoding finishes.
//
// Besides the edit-segment rows, it also captures frame-segment rows whose
// buffer state may have diverged from the frame source: every in-place
// update leaves an overlay record behind, and extraFrame names rows touched
// indirectly (bond geometry refreshed after an endpoint move).
func (s *Scene) captureEntity(store *buffer.Store, kind core.Kind, extraFrame []core.EntityID) snapshotEntity {
	sec := snapshotEntity{
		Frame: s.reg.Frame(kind),
		Edits: s.reg.Edits(kind),
	}
	if store == nil {
		return sec
	}
	columns := store.Columns()
	capture := func(id core.EntityID) {
		row := snapshotEditRow{ID: id, Values: make(map[string][]float32, len(columns))}
		for _, col := range columns {
			row.Values[col] = store.Read(id, col)
		}
		sec.Rows = append(sec.Rows, row)
	}

	frameIDs := make(map[core.EntityID]struct{}, len(extraFrame))
	for _, id := range extraFrame {
		frameIDs[id] = struct{}{}
	}
	for id := range sec.Edits {
		if int(id) < store.FrameLen() {
			frameIDs[id] = struct{}{}
		}
	}
	for _, id := range sortedIDs(frameIDs) {
		capture(id)
	}
	for _, id := range store.EditIDs() {
		capture(id)
	}
	return sec
}

// touchedFrameBonds returns the frame-resident bonds whose buffer geometry
// may differ from the frame source because an endpoint atom was moved.
func (s *Scene) touchedFrameBonds() []core.EntityID {
	if s.atoms == nil || s.bonds == nil {
		return nil
	}
	frameAtoms := s.atoms.FrameLen()
	frameBonds := s.bonds.FrameLen()
	seen := make(map[core.EntityID]struct{})
	for id := range s.reg.Edits(core.KindAtom) {
		if int(id) >= frameAtoms {
			continue
		}
		for _, bondID := range s.topo.Incident(id) {
			if int(bondID) < frameBonds {
				seen[bondID] = struct{}{}
			}
		}
	}
	return sortedIDs(seen)
}

func sortedIDs(set map[core.EntityID]struct{}) []core.EntityID {
	ids := make([]core.EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadSnapshot replaces the scene with the state recorded in the named
// snapshot, binding the rebuilt stores to the given renderables. The scene
// is left unflushed; the next Flush uploads everything. Clears the unsaved
// flag.
func (s *Scene) LoadSnapshot(ctx context.Context, store blobstore.Store, name string, in LoadInput) error {
	err := s.loadSnapshot(ctx, store, name, in)
	s.logger.LogLoad(ctx, name, err)
	return err
}

func (s *Scene) loadSnapshot(ctx context.Context, store blobstore.Store, name string, in LoadInput) error {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return err
	}

	atomSec, bondSec, sceneSec, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	if sceneSec.HasBonds && in.BondTarget == nil {
		return &ErrBadFrameInput{Reason: "snapshot has a bond layer but no bond target was given"}
	}
	if in.AtomTarget == nil && State(sceneSec.State) != StateEmpty {
		return &ErrBadFrameInput{Reason: "nil atom target"}
	}
	if bondSec.Frame != nil && atomSec.Frame == nil {
		return fmt.Errorf("%w: bond frame without atom frame", ErrBadSnapshot)
	}

	if State(sceneSec.State) == StateEmpty {
		s.Clear()
		return nil
	}

	atoms, err := buffer.NewStore(in.AtomTarget, layerIndexAtoms, []buffer.ColumnSpec{
		{Name: ColumnPosition, Stride: 3},
		{Name: ColumnRadius, Stride: 1},
	}, s.opts.initialCapacity)
	if err != nil {
		return fmt.Errorf("atom store: %w", err)
	}
	var bonds *buffer.Store
	if sceneSec.HasBonds {
		bonds, err = buffer.NewStore(in.BondTarget, layerIndexBonds, []buffer.ColumnSpec{
			{Name: ColumnStart, Stride: 3},
			{Name: ColumnEnd, Stride: 3},
			{Name: ColumnRadius, Stride: 1},
		}, s.opts.initialCapacity)
		if err != nil {
			return fmt.Errorf("bond store: %w", err)
		}
	}

	if atomSec.Frame != nil {
		if err := atoms.SetFrameData(atomBufferData(atomSec.Frame), atomSec.Frame.Len()); err != nil {
			return fmt.Errorf("atom frame data: %w", err)
		}
	}
	if bonds != nil && bondSec.Frame != nil {
		if err := bonds.SetFrameData(bondBufferData(atomSec.Frame, bondSec.Frame), bondSec.Frame.Len()); err != nil {
			return fmt.Errorf("bond frame data: %w", err)
		}
	}

	// Replaying edit rows in recorded slot order reproduces the exact
	// slot layout, including the effect of past swap-removals. Rows for
	// frame-resident ids carry in-place updates over the frame source and
	// are applied without appending.
	for _, row := range atomSec.Rows {
		if int(row.ID) < atoms.FrameLen() {
			atoms.Update(row.ID, row.Values)
			continue
		}
		if _, err := atoms.Append(row.ID, row.Values); err != nil {
			return fmt.Errorf("replay atom %d: %w", row.ID, err)
		}
	}
	for _, row := range bondSec.Rows {
		if bonds == nil {
			return fmt.Errorf("%w: bond rows without bond layer", ErrBadSnapshot)
		}
		if int(row.ID) < bonds.FrameLen() {
			bonds.Update(row.ID, row.Values)
			continue
		}
		if _, err := bonds.Append(row.ID, row.Values); err != nil {
			return fmt.Errorf("replay bond %d: %w", row.ID, err)
		}
	}

	reg := meta.NewRegistry()
	reg.SetFrame(core.KindAtom, atomSec.Frame)
	reg.SetFrame(core.KindBond, bondSec.Frame)
	reg.SetBox(sceneSec.Box)
	for id, rec := range atomSec.Edits {
		reg.SetEdit(core.KindAtom, id, rec)
	}
	for id, rec := range bondSec.Edits {
		reg.SetEdit(core.KindBond, id, rec)
	}

	topo, err := rebuildTopology(atomSec, bondSec, reg)
	if err != nil {
		return err
	}

	s.atoms = atoms
	s.bonds = bonds
	s.reg = reg
	s.topo = topo
	s.nextAtom = sceneSec.NextAtom
	s.nextBond = sceneSec.NextBond
	s.state = State(sceneSec.State)
	s.unsaved = false
	return nil
}

// rebuildTopology reconstructs the adjacency graph from frame rows and the
// metadata overlay; topology is derived state and is not serialized.
func rebuildTopology(atomSec, bondSec snapshotEntity, reg *meta.Registry) (*topology.Graph, error) {
	topo := topology.New()
	for row := 0; row < atomSec.Frame.Len(); row++ {
		topo.AddAtom(core.EntityID(row))
	}
	for id := range atomSec.Edits {
		topo.AddAtom(id)
	}
	for row := 0; row < bondSec.Frame.Len(); row++ {
		rec, ok := reg.Meta(core.KindBond, core.EntityID(row))
		if !ok {
			continue
		}
		topo.AddBond(core.EntityID(row), rec.Bond.Atom1, rec.Bond.Atom2)
	}
	for id, rec := range bondSec.Edits {
		if !topo.HasAtom(rec.Bond.Atom1) {
			return nil, fmt.Errorf("%w: bond %d references missing atom %d", ErrBadSnapshot, id, rec.Bond.Atom1)
		}
		if !topo.HasAtom(rec.Bond.Atom2) {
			return nil, fmt.Errorf("%w: bond %d references missing atom %d", ErrBadSnapshot, id, rec.Bond.Atom2)
		}
		topo.AddBond(id, rec.Bond.Atom1, rec.Bond.Atom2)
	}
	return topo, nil
}

func decodeSnapshot(data []byte) (atomSec, bondSec snapshotEntity, sceneSec snapshotScene, err error) {
	if len(data) < len(snapshotMagic)+3 || string(data[:len(snapshotMagic)]) != snapshotMagic {
		err = ErrBadSnapshot
		return
	}
	off := len(snapshotMagic)

	version := data[off]
	if version != snapshotVersion {
		err = fmt.Errorf("%w: %d", ErrSnapshotVersion, version)
		return
	}
	compression := Compression(data[off+1])
	nameLen := int(data[off+2])
	off += 3

	if len(data) < off+nameLen {
		err = ErrBadSnapshot
		return
	}
	codecName := string(data[off : off+nameLen])
	off += nameLen

	c, ok := codec.ByName(codecName)
	if !ok {
		err = fmt.Errorf("%w: unknown codec %q", ErrBadSnapshot, codecName)
		return
	}

	targets := []any{&atomSec, &bondSec, &sceneSec}
	for _, target := range targets {
		if len(data) < off+4 {
			err = ErrBadSnapshot
			return
		}
		size := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if len(data) < off+size {
			err = ErrBadSnapshot
			return
		}

		var raw []byte
		raw, err = decompressBlock(data[off:off+size], compression)
		if err != nil {
			return
		}
		if err = c.Unmarshal(raw, target); err != nil {
			return
		}
		off += size
	}
	return
}
