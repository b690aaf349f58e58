// Package topology maintains the vertex/edge graph over atoms and bonds.
//
// Adjacency is recorded symmetrically in Roaring bitmaps keyed by atom id,
// which keeps membership updates O(1) average and yields sorted, allocation
// friendly iteration for cascades.
package topology

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/molvis/molscene/core"
)

// Graph is an undirected atom/bond graph. Vertices are atom ids, edges are
// bond ids with two endpoints. Removing a vertex cascades into removing its
// incident edges first, so no edge ever references a missing vertex.
//
// Not safe for concurrent use.
type Graph struct {
	incident map[core.EntityID]*roaring.Bitmap // atom -> incident bond ids
	edges    map[core.EntityID][2]core.EntityID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		incident: make(map[core.EntityID]*roaring.Bitmap),
		edges:    make(map[core.EntityID][2]core.EntityID),
	}
}

// AddAtom inserts a vertex. Idempotent.
func (g *Graph) AddAtom(id core.EntityID) {
	if _, ok := g.incident[id]; !ok {
		g.incident[id] = roaring.New()
	}
}

// AddBond inserts an edge between a and b, creating missing vertices.
//
// Re-adding an existing bond id replaces it: the stale adjacency links are
// removed first so the bond never appears twice in an adjacency set.
func (g *Graph) AddBond(id, a, b core.EntityID) {
	if old, ok := g.edges[id]; ok {
		g.dropAdjacency(id, old)
	}
	g.AddAtom(a)
	g.AddAtom(b)
	g.edges[id] = [2]core.EntityID{a, b}
	g.incident[a].Add(uint32(id))
	g.incident[b].Add(uint32(id))
}

// RemoveBond deletes an edge and both adjacency memberships.
// Unknown ids are a no-op.
func (g *Graph) RemoveBond(id core.EntityID) {
	ends, ok := g.edges[id]
	if !ok {
		return
	}
	g.dropAdjacency(id, ends)
	delete(g.edges, id)
}

// RemoveAtom deletes a vertex, cascading through its incident edges first.
// It returns the removed bond ids in ascending order so paired stores stay
// consistent; nil for an unknown or isolated vertex.
func (g *Graph) RemoveAtom(id core.EntityID) []core.EntityID {
	bonds, ok := g.incident[id]
	if !ok {
		return nil
	}

	// Snapshot before removal: RemoveBond mutates this bitmap.
	removed := make([]core.EntityID, 0, bonds.GetCardinality())
	it := bonds.Iterator()
	for it.HasNext() {
		removed = append(removed, core.EntityID(it.Next()))
	}
	for _, bond := range removed {
		g.RemoveBond(bond)
	}

	delete(g.incident, id)
	return removed
}

// Neighbors returns the atoms bonded to id, in ascending order without
// duplicates. nil for unknown or isolated vertices.
func (g *Graph) Neighbors(id core.EntityID) []core.EntityID {
	bonds, ok := g.incident[id]
	if !ok || bonds.IsEmpty() {
		return nil
	}
	set := roaring.New()
	it := bonds.Iterator()
	for it.HasNext() {
		ends := g.edges[core.EntityID(it.Next())]
		other := ends[0]
		if other == id {
			other = ends[1]
		}
		set.Add(uint32(other))
	}
	out := make([]core.EntityID, 0, set.GetCardinality())
	nit := set.Iterator()
	for nit.HasNext() {
		out = append(out, core.EntityID(nit.Next()))
	}
	return out
}

// Incident returns the bond ids touching id, in ascending order.
func (g *Graph) Incident(id core.EntityID) []core.EntityID {
	bonds, ok := g.incident[id]
	if !ok || bonds.IsEmpty() {
		return nil
	}
	out := make([]core.EntityID, 0, bonds.GetCardinality())
	it := bonds.Iterator()
	for it.HasNext() {
		out = append(out, core.EntityID(it.Next()))
	}
	return out
}

// Degree returns the number of bonds touching id.
func (g *Graph) Degree(id core.EntityID) int {
	bonds, ok := g.incident[id]
	if !ok {
		return 0
	}
	return int(bonds.GetCardinality())
}

// Endpoints returns the two endpoints of a bond.
func (g *Graph) Endpoints(bond core.EntityID) ([2]core.EntityID, bool) {
	ends, ok := g.edges[bond]
	return ends, ok
}

// HasAtom reports whether the vertex exists.
func (g *Graph) HasAtom(id core.EntityID) bool {
	_, ok := g.incident[id]
	return ok
}

// HasBond reports whether the edge exists.
func (g *Graph) HasBond(id core.EntityID) bool {
	_, ok := g.edges[id]
	return ok
}

// AtomCount returns the number of vertices.
func (g *Graph) AtomCount() int { return len(g.incident) }

// BondCount returns the number of edges.
func (g *Graph) BondCount() int { return len(g.edges) }

// Clear removes all vertices and edges.
func (g *Graph) Clear() {
	clear(g.incident)
	clear(g.edges)
}

func (g *Graph) dropAdjacency(id core.EntityID, ends [2]core.EntityID) {
	// A missing endpoint bitmap would mean an edge referenced a removed
	// vertex; tolerate it rather than corrupting the cascade.
	if set, ok := g.incident[ends[0]]; ok {
		set.Remove(uint32(id))
	}
	if set, ok := g.incident[ends[1]]; ok {
		set.Remove(uint32(id))
	}
}
