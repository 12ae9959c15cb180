package repository

// Treap keyed by (weighted score desc, barcode asc) with subtree sizes,
// giving O(log n) rank lookups and in-order top-N traversal. The BST
// comparator treats "less" as "ranks earlier", so an in-order walk
// produces the leaderboard from best to worst.

import "math/rand"

type node struct {
	id    string
	score int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aScore, aID) ranks earlier than (bScore, bID).
func less(aScore int64, aID string, bScore int64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// treap owns the root and the priority source. Callers hold the rank
// index lock for every operation, so the rand here needs no extra
// synchronization.
type treap struct {
	root *node
	rng  *rand.Rand
}

func newTreap(rng *rand.Rand) *treap {
	return &treap{rng: rng}
}

func (t *treap) insert(id string, score int64) {
	t.root = t.insertNode(t.root, id, score)
}

func (t *treap) insertNode(n *node, id string, score int64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: t.rng.Uint64(), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = t.insertNode(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = t.insertNode(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func (t *treap) delete(id string, score int64) {
	t.root = deleteNode(t.root, id, score)
}

func deleteNode(n *node, id string, score int64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based rank of the key, or 0 when absent.
func (t *treap) rankOf(id string, score int64) int {
	n := t.root
	r := 0
	for n != nil {
		switch {
		case score == n.score && id == n.id:
			return r + nsize(n.left) + 1
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// topN appends up to limit barcodes in rank order.
func (t *treap) topN(limit int) []string {
	out := make([]string, 0, limit)
	collect(t.root, limit, &out)
	return out
}

func collect(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	collect(n.right, limit, out)
}

func (t *treap) len() int {
	return nsize(t.root)
}
