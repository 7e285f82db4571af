// Package region recovers structured control-flow regions (straight
// runs, if/if-else, and natural loops) from a recovered CFG using
// dominator trees and back-edge detection. Where a function's CFG is
// irreducible (a loop with more than one entry, or a branch structure
// no if/if-else shape can express) the offending subgraph is rendered
// as a Straight region carrying explicit goto edges instead of being
// forced into a shape that would misrepresent it.
package region

import (
	"sort"

	"sierrascan/internal/cfg"
)

// DominatorTree maps each block's start offset to its immediate
// dominator's start offset. The entry block dominates itself.
type DominatorTree struct {
	entry int
	idom  map[int]int
	order []int // reverse postorder, entry first
}

// BuildDominatorTree computes immediate dominators with the standard
// iterative fixpoint algorithm (Cooper, Harvey & Kennedy): repeatedly
// intersect each block's predecessors' dominator sets (represented here
// via immediate-dominator chains, walked on demand) until no idom
// changes. This converges in a handful of passes for the block counts
// a single function produces.
func BuildDominatorTree(g *cfg.CFG) *DominatorTree {
	entry := g.Function.StartOffset
	order := reversePostorder(g, entry)
	indexOf := make(map[int]int, len(order))
	for i, off := range order {
		indexOf[off] = i
	}

	idom := map[int]int{entry: entry}
	changed := true
	for changed {
		changed = false
		for _, off := range order {
			if off == entry {
				continue
			}
			block := g.BlockAt(off)
			var newIdom int
			haveIdom := false
			for _, p := range g.Parents(block) {
				if _, ok := idom[p.StartOffset]; !ok {
					continue
				}
				if !haveIdom {
					newIdom = p.StartOffset
					haveIdom = true
					continue
				}
				newIdom = intersect(idom, indexOf, newIdom, p.StartOffset)
			}
			if !haveIdom {
				continue
			}
			if cur, ok := idom[off]; !ok || cur != newIdom {
				idom[off] = newIdom
				changed = true
			}
		}
	}
	return &DominatorTree{entry: entry, idom: idom, order: order}
}

func intersect(idom map[int]int, indexOf map[int]int, a, b int) int {
	for a != b {
		for indexOf[a] > indexOf[b] {
			a = idom[a]
		}
		for indexOf[b] > indexOf[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (inclusive: a dominates a).
func (d *DominatorTree) Dominates(a, b int) bool {
	for b != d.entry {
		if b == a {
			return true
		}
		b = d.idom[b]
	}
	return a == d.entry
}

func (d *DominatorTree) ImmediateDominator(offset int) (int, bool) {
	v, ok := d.idom[offset]
	return v, ok
}

func reversePostorder(g *cfg.CFG, entry int) []int {
	visited := map[int]bool{}
	var postorder []int
	var visit func(off int)
	visit = func(off int) {
		if visited[off] {
			return
		}
		visited[off] = true
		block := g.BlockAt(off)
		if block == nil {
			return
		}
		children := g.Children(block)
		sort.Slice(children, func(i, j int) bool { return children[i].StartOffset < children[j].StartOffset })
		for _, c := range children {
			visit(c.StartOffset)
		}
		postorder = append(postorder, off)
	}
	visit(entry)
	// reverse
	out := make([]int, len(postorder))
	for i, v := range postorder {
		out[len(postorder)-1-i] = v
	}
	return out
}

// BackEdge is a CFG edge whose target dominates its source, i.e. a
// natural loop's continuation edge.
type BackEdge struct {
	From, To int
}

// BackEdges returns every back edge in the CFG per the dominator tree.
func BackEdges(g *cfg.CFG, dom *DominatorTree) []BackEdge {
	var out []BackEdge
	for _, block := range g.BasicBlocks {
		for _, e := range block.Edges {
			if dom.Dominates(e.To, e.From) {
				out = append(out, BackEdge{From: e.From, To: e.To})
			}
		}
	}
	return out
}
