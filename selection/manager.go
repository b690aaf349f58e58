package selection

import (
	"slices"

	"github.com/molvis/molscene/core"
)

// EntityResolver resolves a layer identity to the entity kind it draws.
// The scene index implements this.
type EntityResolver interface {
	TypeOf(layer core.LayerID) (core.Kind, bool)
}

// OpKind is the selection set operation to apply.
type OpKind uint8

const (
	// OpReplace replaces both sets wholesale; an omitted collection is
	// treated as empty for that type.
	OpReplace OpKind = iota
	// OpAdd unions the given keys into the sets.
	OpAdd
	// OpRemove subtracts the given keys from the sets.
	OpRemove
	// OpToggle applies a symmetric difference.
	OpToggle
	// OpClear empties both sets.
	OpClear
)

// Op is one selection mutation.
type Op struct {
	Kind  OpKind
	Atoms []Key
	Bonds []Key
}

// State is an immutable snapshot of the selection, with keys sorted for
// deterministic consumption.
type State struct {
	Atoms []Key
	Bonds []Key
}

// Listener receives the new state after every applied operation.
type Listener func(State)

// Manager maintains the atom and bond selection sets.
// Not safe for concurrent use; every mutation notifies synchronously.
type Manager struct {
	resolver EntityResolver
	atoms    map[Key]struct{}
	bonds    map[Key]struct{}

	listeners map[int]Listener
	nextSub   int
}

// NewManager creates an empty selection over the given resolver.
func NewManager(resolver EntityResolver) *Manager {
	return &Manager{
		resolver:  resolver,
		atoms:     make(map[Key]struct{}),
		bonds:     make(map[Key]struct{}),
		listeners: make(map[int]Listener),
	}
}

// Apply executes one operation and synchronously notifies listeners with
// the new state. There is no batching.
func (m *Manager) Apply(op Op) {
	switch op.Kind {
	case OpReplace:
		m.atoms = keySet(op.Atoms)
		m.bonds = keySet(op.Bonds)
	case OpAdd:
		for _, k := range op.Atoms {
			m.atoms[k] = struct{}{}
		}
		for _, k := range op.Bonds {
			m.bonds[k] = struct{}{}
		}
	case OpRemove:
		for _, k := range op.Atoms {
			delete(m.atoms, k)
		}
		for _, k := range op.Bonds {
			delete(m.bonds, k)
		}
	case OpToggle:
		toggle(m.atoms, op.Atoms)
		toggle(m.bonds, op.Bonds)
	case OpClear:
		clear(m.atoms)
		clear(m.bonds)
	}
	m.notify()
}

// IsSelected reports whether the key is in the set matching its entity
// type. The type is resolved through the scene; a key for an unregistered
// layer is never selected.
func (m *Manager) IsSelected(k Key) bool {
	ref, err := ParseKey(k)
	if err != nil {
		return false
	}
	kind, ok := m.resolver.TypeOf(ref.Layer)
	if !ok {
		return false
	}
	switch kind {
	case core.KindAtom:
		_, ok := m.atoms[k]
		return ok
	case core.KindBond:
		_, ok := m.bonds[k]
		return ok
	default:
		return false
	}
}

// Selected returns the current state.
func (m *Manager) Selected() State {
	return State{
		Atoms: sortedKeys(m.atoms),
		Bonds: sortedKeys(m.bonds),
	}
}

// Count returns the total number of selected keys.
func (m *Manager) Count() int {
	return len(m.atoms) + len(m.bonds)
}

// Subscribe registers a listener; the returned func unsubscribes it.
func (m *Manager) Subscribe(l Listener) func() {
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = l
	return func() {
		delete(m.listeners, id)
	}
}

func (m *Manager) notify() {
	if len(m.listeners) == 0 {
		return
	}
	state := m.Selected()
	for _, l := range m.listeners {
		l(state)
	}
}

func keySet(keys []Key) map[Key]struct{} {
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func toggle(set map[Key]struct{}, keys []Key) {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			delete(set, k)
		} else {
			set[k] = struct{}{}
		}
	}
}

func sortedKeys(set map[Key]struct{}) []Key {
	out := make([]Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
