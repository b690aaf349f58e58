// Package buffer manages the packed, columnar instance arrays a GPU
// rasterizer consumes to draw thousands of instanced primitives.
//
// A Store keeps one index space shared by all of its columns, split into an
// immutable frame segment (bulk-loaded, rows [0, FrameLen)) and a mutable
// edit segment (interactively created, rows [FrameLen, FrameLen+EditCount)).
// The edit segment stays hole-free via swap-on-remove, so every mutation is
// O(1) regardless of resident count.
package buffer

import (
	"errors"
	"fmt"

	"github.com/molvis/molscene/core"
)

var (
	// ErrDuplicateID is returned when an id is appended twice. Silently
	// overwriting would corrupt the id/slot bijection, so this fails hard.
	ErrDuplicateID = errors.New("duplicate entity id")

	// ErrColumnShape is returned when a value slice does not match its
	// column's stride. A short slice would leave stale trailing
	// components in the row.
	ErrColumnShape = errors.New("value length does not match column stride")
)

// DefaultCapacity is the initial instance capacity of a store.
const DefaultCapacity = 1024

// Store is a set of columns sharing one index space, backing a single
// renderable layer. Not safe for concurrent use; all operations are meant
// to run on the render/UI goroutine.
type Store struct {
	layer      core.LayerID
	layerIndex uint8
	target     Renderable

	columns map[string]*Column
	order   []*Column

	capacity  int
	frameLen  int // boundary between frame and edit segments
	editCount int

	// id<->slot maps for the edit segment, kept in lockstep. Slots are
	// absolute; frame ids resolve directly (id == slot) below frameLen.
	slotByID map[core.EntityID]core.Slot
	idBySlot map[core.Slot]core.EntityID

	dirty bool
}

// NewStore creates a store for the given layer with the given schema.
// The derived picking column is appended automatically. layerIndex is the
// small numeric identity baked into picking colors; it must be unique per
// store within a scene.
func NewStore(target Renderable, layerIndex uint8, specs []ColumnSpec, capacity int) (*Store, error) {
	if target == nil {
		return nil, errors.New("buffer: nil renderable")
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &Store{
		layer:      target.Layer(),
		layerIndex: layerIndex,
		target:     target,
		columns:    make(map[string]*Column, len(specs)+1),
		capacity:   capacity,
		slotByID:   make(map[core.EntityID]core.Slot),
		idBySlot:   make(map[core.Slot]core.EntityID),
	}

	for _, spec := range specs {
		if spec.Name == PickColumn {
			return nil, fmt.Errorf("buffer: column %q is reserved", PickColumn)
		}
		if spec.Stride <= 0 {
			return nil, fmt.Errorf("buffer: column %q has invalid stride %d", spec.Name, spec.Stride)
		}
		if _, ok := s.columns[spec.Name]; ok {
			return nil, fmt.Errorf("buffer: column %q declared twice", spec.Name)
		}
		s.addColumn(spec.Name, spec.Stride)
	}
	s.addColumn(PickColumn, pickStride)

	return s, nil
}

func (s *Store) addColumn(name string, stride int) {
	c := &Column{
		name:   name,
		stride: stride,
		data:   make([]float32, s.capacity*stride),
	}
	s.columns[name] = c
	s.order = append(s.order, c)
}

// Layer returns the layer identity of the backing renderable.
func (s *Store) Layer() core.LayerID { return s.layer }

// LayerIndex returns the numeric layer identity used for picking colors.
func (s *Store) LayerIndex() uint8 { return s.layerIndex }

// Len returns the total active instance count (frame + edit).
func (s *Store) Len() int { return s.frameLen + s.editCount }

// FrameLen returns the length of the immutable frame segment.
func (s *Store) FrameLen() int { return s.frameLen }

// EditCount returns the number of instances in the edit segment.
func (s *Store) EditCount() int { return s.editCount }

// Capacity returns the current instance capacity.
func (s *Store) Capacity() int { return s.capacity }

// Dirty reports whether the store has changes not yet flushed to the GPU.
func (s *Store) Dirty() bool { return s.dirty }

// SetFrameData replaces the frame segment wholesale and resets the edit
// segment. Columns absent from data are zero-filled over the frame range.
// Column data length must equal frameCount*stride.
func (s *Store) SetFrameData(data map[string][]float32, frameCount int) error {
	if frameCount < 0 {
		return fmt.Errorf("buffer: negative frame count %d", frameCount)
	}
	for name, vals := range data {
		col, ok := s.columns[name]
		if !ok {
			continue // callers probe optional columns routinely
		}
		if len(vals) != frameCount*col.stride {
			return fmt.Errorf("buffer: column %q has %d values, want %d", name, len(vals), frameCount*col.stride)
		}
	}

	s.ensureCapacity(frameCount)

	for _, col := range s.order {
		if vals, ok := data[col.name]; ok {
			copy(col.data, vals)
		} else {
			col.zeroRange(0, frameCount)
		}
	}

	s.frameLen = frameCount
	s.editCount = 0
	clear(s.slotByID)
	clear(s.idBySlot)

	pick := s.columns[PickColumn]
	for slot := 0; slot < frameCount; slot++ {
		s.derivePick(pick, core.Slot(slot))
	}

	s.dirty = true
	return nil
}

// Append adds a new edit-segment instance for id and returns its slot.
// Each value slice must hold exactly stride components or the append fails
// with ErrColumnShape; columns absent from values are zero-filled.
// Appending a live id fails with ErrDuplicateID.
func (s *Store) Append(id core.EntityID, values map[string][]float32) (core.Slot, error) {
	if _, ok := s.slotByID[id]; ok {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	if int(id) < s.frameLen {
		return 0, fmt.Errorf("%w: %d shadows a frame row", ErrDuplicateID, id)
	}
	for name, vals := range values {
		col, ok := s.columns[name]
		if !ok || name == PickColumn {
			continue
		}
		if len(vals) != col.stride {
			return 0, fmt.Errorf("%w: column %q got %d values, want %d", ErrColumnShape, name, len(vals), col.stride)
		}
	}

	slot := core.Slot(s.frameLen + s.editCount)
	s.ensureCapacity(int(slot) + 1)

	for _, col := range s.order {
		if col.name == PickColumn {
			continue
		}
		if vals, ok := values[col.name]; ok {
			copy(col.row(int(slot)), vals)
		} else {
			col.zeroRange(int(slot), int(slot)+1)
		}
	}
	s.derivePick(s.columns[PickColumn], slot)

	s.slotByID[id] = slot
	s.idBySlot[slot] = id
	s.editCount++
	s.dirty = true
	return slot, nil
}

// Remove deletes an edit-segment instance. Unknown ids are a no-op.
//
// If the vacated slot is not the last edit slot, the last instance is
// swapped into it and its mapping updated, keeping the edit segment
// compact. O(1) regardless of segment size.
func (s *Store) Remove(id core.EntityID) {
	slot, ok := s.slotByID[id]
	if !ok {
		return
	}

	last := core.Slot(s.frameLen + s.editCount - 1)
	if slot != last {
		for _, col := range s.order {
			col.copyRow(int(slot), int(last))
		}
		s.derivePick(s.columns[PickColumn], slot)

		moved := s.idBySlot[last]
		s.slotByID[moved] = slot
		s.idBySlot[slot] = moved
	}

	delete(s.slotByID, id)
	delete(s.idBySlot, last)
	s.editCount--
	s.dirty = true
}

// Update overwrites the given columns of a live instance. Unknown ids,
// unknown columns and value slices that do not match their column's stride
// are silently ignored (tolerates races with deletion).
func (s *Store) Update(id core.EntityID, values map[string][]float32) {
	slot, ok := s.resolve(id)
	if !ok {
		return
	}
	for name, vals := range values {
		col, ok := s.columns[name]
		if !ok || name == PickColumn || len(vals) != col.stride {
			continue
		}
		copy(col.row(int(slot)), vals)
	}
	s.dirty = true
}

// Read returns a copy of one column row for id, or nil if the id or
// column is unknown.
func (s *Store) Read(id core.EntityID, column string) []float32 {
	slot, ok := s.resolve(id)
	if !ok {
		return nil
	}
	col, ok := s.columns[column]
	if !ok {
		return nil
	}
	out := make([]float32, col.stride)
	copy(out, col.row(int(slot)))
	return out
}

// Flush uploads the active prefix of every column to the renderable and
// clears the dirty flag. A no-op when not dirty. A zero instance count
// disables the renderable instead of uploading.
func (s *Store) Flush() {
	if !s.dirty {
		return
	}
	total := s.Len()
	if total == 0 {
		s.target.SetEnabled(false)
		s.dirty = false
		return
	}
	for _, col := range s.order {
		s.target.Upload(col.name, col.data[:total*col.stride], total)
	}
	s.target.SetEnabled(true)
	s.dirty = false
}

// PromoteFrameToEdit converts the frame segment into individually editable
// entries. Only segment-boundary bookkeeping changes: slots [0, FrameLen)
// get identity id mappings and the boundary moves to zero; no instance
// data is copied. Idempotent.
func (s *Store) PromoteFrameToEdit() {
	if s.frameLen == 0 {
		return
	}
	for slot := 0; slot < s.frameLen; slot++ {
		s.slotByID[core.EntityID(slot)] = core.Slot(slot)
		s.idBySlot[core.Slot(slot)] = core.EntityID(slot)
	}
	s.editCount += s.frameLen
	s.frameLen = 0
}

// Clear discards both segments. The next Flush disables the renderable.
func (s *Store) Clear() {
	s.frameLen = 0
	s.editCount = 0
	clear(s.slotByID)
	clear(s.idBySlot)
	s.dirty = true
}

// Contains reports whether id refers to a live instance.
func (s *Store) Contains(id core.EntityID) bool {
	_, ok := s.resolve(id)
	return ok
}

// SlotOf returns the current slot of id.
func (s *Store) SlotOf(id core.EntityID) (core.Slot, bool) {
	return s.resolve(id)
}

// IDAt returns the id occupying the given slot.
func (s *Store) IDAt(slot core.Slot) (core.EntityID, bool) {
	if slot < 0 || int(slot) >= s.Len() {
		return 0, false
	}
	if int(slot) < s.frameLen {
		return core.EntityID(slot), true
	}
	id, ok := s.idBySlot[slot]
	return id, ok
}

// EditIDs returns the ids of the edit segment in slot order.
// The returned slice is a snapshot; callers may remove while iterating it.
func (s *Store) EditIDs() []core.EntityID {
	ids := make([]core.EntityID, 0, s.editCount)
	for slot := s.frameLen; slot < s.frameLen+s.editCount; slot++ {
		ids = append(ids, s.idBySlot[core.Slot(slot)])
	}
	return ids
}

// Columns returns the declared column names in declaration order,
// excluding the derived picking column.
func (s *Store) Columns() []string {
	names := make([]string, 0, len(s.order))
	for _, col := range s.order {
		if col.name == PickColumn {
			continue
		}
		names = append(names, col.name)
	}
	return names
}

// ActiveColumn returns the active prefix of a column and its stride.
// The slice aliases store memory and is invalidated by any mutation.
func (s *Store) ActiveColumn(name string) ([]float32, int, bool) {
	col, ok := s.columns[name]
	if !ok {
		return nil, 0, false
	}
	return col.data[:s.Len()*col.stride], col.stride, true
}

func (s *Store) resolve(id core.EntityID) (core.Slot, bool) {
	if int(id) < s.frameLen {
		return core.Slot(id), true
	}
	slot, ok := s.slotByID[id]
	return slot, ok
}

func (s *Store) derivePick(pick *Column, slot core.Slot) {
	c := PickColor(s.layerIndex, slot)
	copy(pick.row(int(slot)), c[:])
}

// ensureCapacity grows all columns to hold at least n instances.
// Capacity only grows, by doubling, so amortized append stays O(1).
func (s *Store) ensureCapacity(n int) {
	if n <= s.capacity {
		return
	}
	newCap := s.capacity
	if newCap == 0 {
		newCap = DefaultCapacity
	}
	for newCap < n {
		newCap *= 2
	}
	for _, col := range s.order {
		col.grow(newCap)
	}
	s.capacity = newCap
}
