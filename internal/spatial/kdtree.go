// Package spatial provides a 2D KD-tree for nearest-neighbor-distance queries
// over one sample's point set.
//
// The tree exists for scale, not correctness: [NearestDistances] and the
// brute-force [BruteNearestDistances] perform the same arithmetic per
// candidate pair and produce bit-for-bit identical distances.
package spatial

import (
	"math"
	"sort"

	"github.com/punctalab/nndquant/internal/domain"
)

// defaultLeafSize bounds the number of points per leaf node.
const defaultLeafSize = 16

// node is one entry of the array-stored tree: node i has children at
// 2*i+1 and 2*i+2. Leaves hold the half-open range [start, end) into the
// permutation array.
type node struct {
	start, end int
	leaf       bool
	// axis-aligned bounding box of the points under this node
	minX, maxX float64
	minY, maxY float64
}

// Tree is a KD-tree spatial index over a fixed 2D point set. Points are not
// copied; the tree keeps an index permutation and per-node bounds.
type Tree struct {
	pts      domain.PointSet
	idx      []int // permutation: tree-order position -> original index
	nodes    []node
	leafSize int
}

// NewTree builds a KD-tree over pts. The point set must not be mutated while
// the tree is in use.
func NewTree(pts domain.PointSet) *Tree {
	n := len(pts)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	t := &Tree{
		pts:      pts,
		idx:      idx,
		nodes:    make([]node, maxNodes(n, defaultLeafSize)),
		leafSize: defaultLeafSize,
	}
	if n > 0 {
		t.build(0, 0, n)
	}
	return t
}

// maxNodes returns an upper bound on the array size for a median-split tree
// with n points and the given leaf size.
func maxNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	for v := 1; v < leaves; v *= 2 {
		depth++
	}
	return (1 << (depth + 2)) - 1
}

// build recursively constructs the subtree rooted at nodeID over idx[start:end).
func (t *Tree) build(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, node{})
	}

	nd := node{
		start: start,
		end:   end,
		minX:  math.Inf(1), maxX: math.Inf(-1),
		minY: math.Inf(1), maxY: math.Inf(-1),
	}
	for i := start; i < end; i++ {
		p := t.pts[t.idx[i]]
		nd.minX = math.Min(nd.minX, p.X)
		nd.maxX = math.Max(nd.maxX, p.X)
		nd.minY = math.Min(nd.minY, p.Y)
		nd.maxY = math.Max(nd.maxY, p.Y)
	}

	if end-start <= t.leafSize {
		nd.leaf = true
		t.nodes[nodeID] = nd
		return
	}

	// Split on the dimension with the greater spread, at the median.
	sub := t.idx[start:end]
	if nd.maxX-nd.minX >= nd.maxY-nd.minY {
		sort.Slice(sub, func(i, j int) bool { return t.pts[sub[i]].X < t.pts[sub[j]].X })
	} else {
		sort.Slice(sub, func(i, j int) bool { return t.pts[sub[i]].Y < t.pts[sub[j]].Y })
	}
	mid := start + (end-start)/2

	t.nodes[nodeID] = nd
	t.build(2*nodeID+1, start, mid)
	t.build(2*nodeID+2, mid, end)
}

// NearestOther returns the index of the nearest point to pts[i] excluding i
// itself, and the Euclidean distance to it. Ties resolve to whichever tied
// candidate the traversal reaches first; the distance is unaffected.
// The point set must contain at least two points.
func (t *Tree) NearestOther(i int) (int, float64) {
	q := t.pts[i]
	best := math.Inf(1) // squared distance
	bestIdx := -1
	t.search(0, i, q, &best, &bestIdx)
	return bestIdx, math.Sqrt(best)
}

func (t *Tree) search(nodeID, self int, q domain.Point, best *float64, bestIdx *int) {
	nd := t.nodes[nodeID]

	if nd.leaf {
		for i := nd.start; i < nd.end; i++ {
			pi := t.idx[i]
			if pi == self {
				continue
			}
			p := t.pts[pi]
			dx := q.X - p.X
			dy := q.Y - p.Y
			d2 := dx*dx + dy*dy
			if d2 < *best {
				*best = d2
				*bestIdx = pi
			}
		}
		return
	}

	left := 2*nodeID + 1
	right := 2*nodeID + 2
	leftBound := t.boxDist2(left, q)
	rightBound := t.boxDist2(right, q)

	near, far, farBound := left, right, rightBound
	if rightBound < leftBound {
		near, far, farBound = right, left, leftBound
	}

	t.search(near, self, q, best, bestIdx)
	if farBound < *best {
		t.search(far, self, q, best, bestIdx)
	}
}

// boxDist2 returns the squared distance from q to the node's bounding box
// (zero when q lies inside it).
func (t *Tree) boxDist2(nodeID int, q domain.Point) float64 {
	nd := t.nodes[nodeID]
	var dx, dy float64
	if q.X < nd.minX {
		dx = nd.minX - q.X
	} else if q.X > nd.maxX {
		dx = q.X - nd.maxX
	}
	if q.Y < nd.minY {
		dy = nd.minY - q.Y
	} else if q.Y > nd.maxY {
		dy = q.Y - nd.maxY
	}
	return dx*dx + dy*dy
}

// NearestDistances returns, for each point, the Euclidean distance to its
// nearest other point, using a KD-tree built once over the set.
// The point set must contain at least two points.
func NearestDistances(pts domain.PointSet) []float64 {
	t := NewTree(pts)
	dists := make([]float64, len(pts))
	for i := range pts {
		_, dists[i] = t.NearestOther(i)
	}
	return dists
}

// BruteNearestDistances is the O(n²) reference implementation of
// [NearestDistances]. It performs the same per-pair arithmetic as the tree
// path, so results are bit-for-bit identical.
func BruteNearestDistances(pts domain.PointSet) []float64 {
	dists := make([]float64, len(pts))
	for i := range pts {
		best := math.Inf(1)
		for j := range pts {
			if j == i {
				continue
			}
			dx := pts[i].X - pts[j].X
			dy := pts[i].Y - pts[j].Y
			d2 := dx*dx + dy*dy
			if d2 < best {
				best = d2
			}
		}
		dists[i] = math.Sqrt(best)
	}
	return dists
}
