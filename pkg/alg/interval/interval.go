// Package interval provides an augmented interval tree for range-overlap
// queries over item spans. It supports Insert, Remove and Search with
// O(log N) insert/remove and O(log N + k) search, where k is the number of
// overlapping intervals.
//
// The tree is a red-black tree keyed by interval start (low). Each node stores
// the maximum right endpoint (max) of its subtree, enabling subtree pruning
// during search. Intervals sharing the same low are chained on one node in
// descending order of high, so the node count is bounded by the number of
// distinct starts rather than by the number of stored items.
//
// Nodes live in a flat arena and reference each other through uint32 handles.
// Handle 0 is the shared sentinel: it is never allocated to an interval and
// its own links point back to itself.
package interval

import "github.com/Sumatoshi-tech/masonry/pkg/safeconv"

// color represents the red-black tree node color.
type color uint8

// Node colors. The sentinel color marks the shared NIL node.
const (
	red color = iota
	black
	sentinel
)

// nilNode is the handle of the shared sentinel node.
const nilNode uint32 = 0

// entry is one stored interval on a node's list.
type entry struct {
	next  *entry
	index int
	high  float64
}

// node is an arena slot. high is the largest high on the node's list.
type node struct {
	list   *entry
	low    float64
	high   float64
	max    float64
	left   uint32
	right  uint32
	parent uint32
	color  color
}

// Tree is an augmented interval tree keyed by item index.
// The zero value is an empty tree ready to use.
type Tree struct {
	byIndex map[int]uint32
	nodes   []node
	free    []uint32
	root    uint32
	size    int
}

// New creates an empty interval tree.
func New() *Tree {
	t := &Tree{}
	t.init()

	return t
}

// Len returns the number of distinct indices stored in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Clear removes all intervals from the tree, keeping the arena capacity.
func (t *Tree) Clear() {
	t.init()
	t.nodes = t.nodes[:1]
	t.nodes[nilNode] = node{color: sentinel}
	t.free = t.free[:0]
	t.root = nilNode
	t.size = 0

	clear(t.byIndex)
}

// Insert stores the interval [low, high] tagged with index. Inserting an index
// that is already stored is a no-op.
func (t *Tree) Insert(low, high float64, index int) {
	t.init()

	if _, exists := t.byIndex[index]; exists {
		return
	}

	parent := nilNode
	cursor := t.root

	for cursor != nilNode {
		current := &t.nodes[cursor]
		if low == current.low {
			t.appendEntry(cursor, index, high)

			return
		}

		parent = cursor

		if low < current.low {
			cursor = current.left
		} else {
			cursor = current.right
		}
	}

	handle := t.alloc(low, high, index)
	t.nodes[handle].parent = parent

	switch {
	case parent == nilNode:
		t.root = handle
	case low < t.nodes[parent].low:
		t.nodes[parent].left = handle
	default:
		t.nodes[parent].right = handle
	}

	t.byIndex[index] = handle
	t.size++

	t.updateMaxUp(parent)
	t.insertFixup(handle)
}

// Remove deletes the interval tagged with index.
// Returns true if the index was stored, false otherwise.
func (t *Tree) Remove(index int) bool {
	handle, ok := t.byIndex[index]
	if !ok {
		return false
	}

	delete(t.byIndex, index)
	t.size--

	nd := &t.nodes[handle]

	var prev *entry

	for cur := nd.list; cur != nil; prev, cur = cur, cur.next {
		if cur.index != index {
			continue
		}

		if prev == nil {
			nd.list = cur.next
		} else {
			prev.next = cur.next
		}

		break
	}

	if nd.list != nil {
		nd.high = nd.list.high
		t.updateMax(handle)
		t.updateMaxUp(nd.parent)

		return true
	}

	t.deleteNode(handle)
	t.release(handle)

	return true
}

// Search reports every stored interval overlapping [low, high] to fn, passing
// the item index and the stored low. An interval [a, b] overlaps [low, high]
// when a <= high AND b >= low. fn must not modify the tree.
func (t *Tree) Search(low, high float64, fn func(index int, low float64)) {
	if t.root == nilNode {
		return
	}

	stack := make([]uint32, 1, searchStackHint)
	stack[0] = t.root

	for len(stack) > 0 {
		handle := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nd := &t.nodes[handle]

		// Prune: nothing below ends at or after the query start.
		if low > nd.max {
			continue
		}

		if nd.left != nilNode {
			stack = append(stack, nd.left)
		}

		// Every low in the right subtree is greater than nd.low.
		if nd.right != nilNode && nd.low <= high {
			stack = append(stack, nd.right)
		}

		if nd.low > high || nd.high < low {
			continue
		}

		// The list is sorted by descending high.
		for cur := nd.list; cur != nil && cur.high >= low; cur = cur.next {
			fn(cur.index, nd.low)
		}
	}
}

// searchStackHint is the initial capacity of the search stack; a balanced
// tree of a few million nodes stays well below it.
const searchStackHint = 64

// init lazily prepares the arena so the zero Tree is usable.
func (t *Tree) init() {
	if t.nodes == nil {
		t.nodes = []node{{color: sentinel}}
	}

	if t.byIndex == nil {
		t.byIndex = make(map[int]uint32)
	}
}

// alloc returns a fresh red node holding a single interval.
func (t *Tree) alloc(low, high float64, index int) uint32 {
	fresh := node{
		list:  &entry{index: index, high: high},
		low:   low,
		high:  high,
		max:   high,
		color: red,
	}

	if n := len(t.free); n > 0 {
		handle := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[handle] = fresh

		return handle
	}

	t.nodes = append(t.nodes, fresh)

	return safeconv.MustIntToUint32(len(t.nodes) - 1)
}

// release returns a detached node to the free list.
func (t *Tree) release(handle uint32) {
	t.nodes[handle] = node{}
	t.free = append(t.free, handle)
}

// appendEntry adds index to the list of an existing node with the same low,
// keeping the list ordered by descending high.
func (t *Tree) appendEntry(handle uint32, index int, high float64) {
	nd := &t.nodes[handle]

	var prev *entry

	cur := nd.list
	for cur != nil && cur.high >= high {
		prev, cur = cur, cur.next
	}

	added := &entry{index: index, high: high, next: cur}
	if prev == nil {
		nd.list = added
	} else {
		prev.next = added
	}

	if high > nd.high {
		nd.high = high
	}

	t.byIndex[index] = handle
	t.size++

	t.updateMax(handle)
	t.updateMaxUp(nd.parent)
}

// insertFixup restores red-black properties after insertion.
func (t *Tree) insertFixup(handle uint32) {
	for t.nodes[t.nodes[handle].parent].color == red {
		parent := t.nodes[handle].parent
		grandparent := t.nodes[parent].parent
		leftCase := parent == t.nodes[grandparent].left

		uncle := t.child(grandparent, !leftCase)
		if t.nodes[uncle].color == red {
			t.nodes[parent].color = black
			t.nodes[uncle].color = black
			t.nodes[grandparent].color = red
			handle = grandparent

			continue
		}

		// Inner child: rotate it to the outside first.
		if handle == t.child(parent, !leftCase) {
			handle = parent
			t.rotate(handle, leftCase)
			parent = t.nodes[handle].parent
		}

		t.nodes[parent].color = black
		t.nodes[grandparent].color = red
		t.rotate(grandparent, !leftCase)
	}

	t.nodes[t.root].color = black
}

// deleteNode unlinks a node from the tree using the three-case deletion with
// in-order successor replacement.
func (t *Tree) deleteNode(target uint32) {
	removedColor := t.nodes[target].color

	var replacement uint32

	switch {
	case t.nodes[target].left == nilNode:
		replacement = t.nodes[target].right
		t.transplant(target, replacement)
	case t.nodes[target].right == nilNode:
		replacement = t.nodes[target].left
		t.transplant(target, replacement)
	default:
		successor := t.minimum(t.nodes[target].right)
		removedColor = t.nodes[successor].color
		replacement = t.nodes[successor].right

		if t.nodes[successor].parent == target {
			// The sentinel may receive a parent here; deleteFixup relies on it.
			t.nodes[replacement].parent = successor
		} else {
			t.transplant(successor, replacement)
			t.nodes[successor].right = t.nodes[target].right
			t.nodes[t.nodes[successor].right].parent = successor
		}

		t.transplant(target, successor)
		t.nodes[successor].left = t.nodes[target].left
		t.nodes[t.nodes[successor].left].parent = successor
		t.nodes[successor].color = t.nodes[target].color
	}

	t.updateMaxUp(t.nodes[replacement].parent)

	if removedColor == black {
		t.deleteFixup(replacement)
	}

	t.nodes[nilNode] = node{color: sentinel}
}

// deleteFixup restores red-black properties after removing a black node.
func (t *Tree) deleteFixup(handle uint32) {
	for handle != t.root && t.nodes[handle].color != red {
		parent := t.nodes[handle].parent
		leftCase := handle == t.nodes[parent].left

		sibling := t.child(parent, !leftCase)
		if t.nodes[sibling].color == red {
			t.nodes[sibling].color = black
			t.nodes[parent].color = red
			t.rotate(parent, leftCase)
			sibling = t.child(parent, !leftCase)
		}

		inner := t.child(sibling, leftCase)
		outer := t.child(sibling, !leftCase)

		if t.nodes[inner].color != red && t.nodes[outer].color != red {
			t.nodes[sibling].color = red
			handle = parent

			continue
		}

		if t.nodes[outer].color != red {
			t.nodes[inner].color = black
			t.nodes[sibling].color = red
			t.rotate(sibling, !leftCase)
			sibling = t.child(parent, !leftCase)
		}

		t.nodes[sibling].color = t.nodes[parent].color
		t.nodes[parent].color = black
		t.nodes[t.child(sibling, !leftCase)].color = black
		t.rotate(parent, leftCase)

		handle = t.root
	}

	if handle != nilNode {
		t.nodes[handle].color = black
	}
}

// transplant replaces the subtree rooted at u with the subtree rooted at v.
func (t *Tree) transplant(u, v uint32) {
	parent := t.nodes[u].parent
	t.replaceChild(parent, u, v)
	t.nodes[v].parent = parent
}

// replaceChild points parent's link from oldChild to newChild.
func (t *Tree) replaceChild(parent, oldChild, newChild uint32) {
	switch {
	case parent == nilNode:
		t.root = newChild
	case t.nodes[parent].left == oldChild:
		t.nodes[parent].left = newChild
	default:
		t.nodes[parent].right = newChild
	}
}

// rotate performs a rotation at handle. When left is true, rotates left;
// otherwise rotates right. Recomputes max for the two nodes that changed
// subtree membership; ancestors keep the same interval set.
func (t *Tree) rotate(handle uint32, left bool) {
	pivot := t.child(handle, !left)
	inner := t.child(pivot, left)

	if left {
		t.nodes[handle].right = inner
		t.nodes[pivot].left = handle
	} else {
		t.nodes[handle].left = inner
		t.nodes[pivot].right = handle
	}

	if inner != nilNode {
		t.nodes[inner].parent = handle
	}

	parent := t.nodes[handle].parent
	t.nodes[pivot].parent = parent
	t.replaceChild(parent, handle, pivot)
	t.nodes[handle].parent = pivot

	t.updateMax(handle)
	t.updateMax(pivot)
}

// child returns the left or right child of a node.
func (t *Tree) child(handle uint32, left bool) uint32 {
	if left {
		return t.nodes[handle].left
	}

	return t.nodes[handle].right
}

// minimum returns the leftmost node in the subtree rooted at handle.
func (t *Tree) minimum(handle uint32) uint32 {
	for t.nodes[handle].left != nilNode {
		handle = t.nodes[handle].left
	}

	return handle
}

// updateMax recalculates a node's max from its own high and its children.
func (t *Tree) updateMax(handle uint32) {
	if handle == nilNode {
		return
	}

	nd := &t.nodes[handle]
	peak := nd.high

	if nd.left != nilNode && t.nodes[nd.left].max > peak {
		peak = t.nodes[nd.left].max
	}

	if nd.right != nilNode && t.nodes[nd.right].max > peak {
		peak = t.nodes[nd.right].max
	}

	nd.max = peak
}

// updateMaxUp recalculates max from handle up to the root.
func (t *Tree) updateMaxUp(handle uint32) {
	for handle != nilNode {
		t.updateMax(handle)
		handle = t.nodes[handle].parent
	}
}
