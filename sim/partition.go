package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/*

broad phase acceleration structure.
a depth bounded binary space partition over sphere extents, rebuilt from
scratch every step. splits cycle X, Y, Z with depth and always bisect the
current cell, so the shape of the tree depends only on where spheres are.

nodes and list cells live in flat slices addressed by index. the whole tree
is dropped at once by reset(); the slices keep their capacity so later steps
don't allocate.

*/

// MaxPartitionDepth bounds the tree. Leaves at this depth chain any number of
// spheres instead of splitting.
const MaxPartitionDepth = 10

type nodekind uint8

// node types
const (
	leaf nodekind = iota
	internal
)

// no node or no cell.
const none int32 = -1

type pnode struct {
	kind  nodekind
	plane Plane // bisector of the node's cell along its axis
	front int32 // child on the positive side of plane
	back  int32 // child on the negative side of plane
	head  int32 // first list cell, leaves only
}

// cell is an entry in a leaf's singly linked list of spheres.
type cell struct {
	sphere SphereRef
	next   int32
}

// bound is what the partition needs to know about a sphere.
type bound struct {
	center mgl64.Vec3
	radius float64
}

type partition struct {
	root   int32
	nodes  []pnode
	cells  []cell
	bounds []bound // indexed by SphereRef, valid during a build
}

func newPartition() *partition {
	return &partition{root: none}
}

// build inserts every sphere in bounds into a tree covering room.
func (p *partition) build(room Box, bounds []bound) {
	p.reset()
	p.bounds = bounds
	for i := range bounds {
		p.root = p.insert(p.root, 0, room, 0, SphereRef(i))
	}
}

// reset tears the whole tree down.
func (p *partition) reset() {
	p.root = none
	p.nodes = p.nodes[:0]
	p.cells = p.cells[:0]
	p.bounds = nil
}

func (p *partition) newLeaf(axis int, box Box) int32 {
	p.nodes = append(p.nodes, pnode{
		kind:  leaf,
		plane: box.bisector(axis),
		front: none,
		back:  none,
		head:  none,
	})
	return int32(len(p.nodes) - 1)
}

func (p *partition) push(n int32, s SphereRef) {
	p.cells = append(p.cells, cell{sphere: s, next: p.nodes[n].head})
	p.nodes[n].head = int32(len(p.cells) - 1)
}

// insert places sphere s in the subtree occupying slot and returns the
// node now occupying it. box is the slot's cell and axis its split axis.
func (p *partition) insert(slot int32, axis int, box Box, depth int, s SphereRef) int32 {
	// simple case: empty slot becomes a leaf holding only s
	if slot == none {
		n := p.newLeaf(axis, box)
		p.push(n, s)
		return n
	}

	switch p.nodes[slot].kind {
	case leaf:
		if depth >= MaxPartitionDepth {
			p.push(slot, s)
			return slot
		}

		// 'complex' case: occupied leaf above the depth bound.
		// turn it into an internal node and push the old occupants
		// down before handling s like any internal node.
		occupants := p.nodes[slot].head
		p.nodes[slot].kind = internal
		p.nodes[slot].head = none
		for c := occupants; c != none; c = p.cells[c].next {
			p.descend(slot, axis, box, depth, p.cells[c].sphere)
		}
		fallthrough

	case internal:
		p.descend(slot, axis, box, depth, s)
	}
	return slot
}

// descend pushes s into the children of internal node n. A sphere that
// straddles the plane goes to both children.
func (p *partition) descend(n int32, axis int, box Box, depth int, s SphereRef) {
	b := p.bounds[s]
	d := p.nodes[n].plane.Distance(b.center)
	next := (axis + 1) % 3
	frontBox, backBox := box.Split(axis)

	// children are written back through a temporary since insert may
	// grow p.nodes.
	if d >= -b.radius {
		c := p.insert(p.nodes[n].front, next, frontBox, depth+1, s)
		p.nodes[n].front = c
	}
	if d <= b.radius {
		c := p.insert(p.nodes[n].back, next, backBox, depth+1, s)
		p.nodes[n].back = c
	}
}

// forEachCandidate calls visit for every sphere sharing a leaf with the
// given sphere and having a strictly greater index. The same candidate may
// be visited more than once when either sphere spans several leaves.
func (p *partition) forEachCandidate(s SphereRef, center mgl64.Vec3, radius float64, visit func(SphereRef)) {
	p.query(p.root, s, center, radius, visit)
}

func (p *partition) query(n int32, s SphereRef, center mgl64.Vec3, radius float64, visit func(SphereRef)) {
	if n == none {
		return
	}
	nd := &p.nodes[n]
	switch nd.kind {
	case leaf:
		for c := nd.head; c != none; c = p.cells[c].next {
			if p.cells[c].sphere > s {
				visit(p.cells[c].sphere)
			}
		}

	case internal:
		d := nd.plane.Distance(center)
		if math.Abs(d) > radius {
			if d > 0 {
				p.query(nd.front, s, center, radius, visit)
			} else {
				p.query(nd.back, s, center, radius, visit)
			}
			return
		}
		p.query(nd.front, s, center, radius, visit)
		p.query(nd.back, s, center, radius, visit)
	}
}

// depth of the deepest leaf, for stats and tests.
func (p *partition) depth() int {
	var walk func(n int32) int
	walk = func(n int32) int {
		if n == none {
			return -1
		}
		if p.nodes[n].kind == leaf {
			return 0
		}
		f, b := walk(p.nodes[n].front), walk(p.nodes[n].back)
		if f > b {
			return f + 1
		}
		return b + 1
	}
	return walk(p.root)
}
