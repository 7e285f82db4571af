package region

import (
	"sierrascan/internal/cfg"
)

type Kind string

const (
	KindStraight Kind = "straight"
	KindIfElse   Kind = "if_else"
	KindLoop     Kind = "loop"
)

// Region is a node in the recovered structural tree for one function.
// Straight regions carry the flat block(s) they represent; IfElse and
// Loop regions carry their condition block plus child regions. Goto is
// only non-empty on a Straight region that stands in for a shape this
// package could not express structurally (an N-way branch, or a jump
// into the middle of an already-visited region) — per this package's
// documented scope, those fall back to an explicit list of jump
// targets rather than being forced into an If/IfElse/Loop shape that
// would misrepresent the control flow.
type Region struct {
	Kind   Kind
	Blocks []*cfg.BasicBlock
	Cond   *cfg.BasicBlock
	Then   *Region
	Else   *Region
	Body   *Region
	Next   *Region
	Goto   []int
}

// Analyze computes the dominator tree and recovers the region tree for
// one function's CFG in a single call.
func Analyze(g *cfg.CFG) *Region {
	dom := BuildDominatorTree(g)
	return Build(g, dom)
}

// Build recovers the region tree given a precomputed dominator tree,
// for callers that already need the tree for other analyses.
func Build(g *cfg.CFG, dom *DominatorTree) *Region {
	headers := map[int]bool{}
	latches := map[int][]int{}
	for _, e := range BackEdges(g, dom) {
		headers[e.To] = true
		latches[e.To] = append(latches[e.To], e.From)
	}
	b := &builder{g: g, dom: dom, headers: headers, latches: latches, visiting: map[int]bool{}, loopBuilt: map[int]bool{}}
	return b.build(g.Function.StartOffset, -1)
}

type builder struct {
	g         *cfg.CFG
	dom       *DominatorTree
	headers   map[int]bool
	latches   map[int][]int
	visiting  map[int]bool
	loopBuilt map[int]bool
}

func (b *builder) build(offset, stop int) *Region {
	if offset == stop {
		return nil
	}
	if b.visiting[offset] {
		return &Region{Kind: KindStraight, Goto: []int{offset}}
	}
	block := b.g.BlockAt(offset)
	if block == nil {
		return nil
	}

	if b.headers[offset] && !b.loopBuilt[offset] {
		return b.buildLoop(offset, stop, block)
	}
	b.visiting[offset] = true
	defer func() { b.visiting[offset] = false }()

	switch len(block.Edges) {
	case 0:
		return &Region{Kind: KindStraight, Blocks: []*cfg.BasicBlock{block}}
	case 1:
		to := block.Edges[0].To
		return &Region{Kind: KindStraight, Blocks: []*cfg.BasicBlock{block}, Next: b.build(to, stop)}
	default:
		trueTo, falseTo, ok := twoWayTargets(block.Edges)
		if !ok {
			targets := make([]int, len(block.Edges))
			for i, e := range block.Edges {
				targets[i] = e.To
			}
			return &Region{Kind: KindStraight, Blocks: []*cfg.BasicBlock{block}, Goto: targets}
		}
		merge, found := b.findMerge(trueTo, falseTo, stop)
		var thenR, elseR, nextR *Region
		if found {
			thenR = b.build(trueTo, merge)
			elseR = b.build(falseTo, merge)
			nextR = b.build(merge, stop)
		} else {
			thenR = b.build(trueTo, stop)
			elseR = b.build(falseTo, stop)
		}
		return &Region{Kind: KindIfElse, Cond: block, Then: thenR, Else: elseR, Next: nextR}
	}
}

func (b *builder) buildLoop(offset, stop int, block *cfg.BasicBlock) *Region {
	b.loopBuilt[offset] = true
	b.visiting[offset] = true
	defer func() { b.visiting[offset] = false }()

	loopNodes := b.naturalLoopNodes(offset)

	var continueTarget = -1
	var exitTargets []int
	for _, e := range block.Edges {
		if loopNodes[e.To] {
			continueTarget = e.To
		} else {
			exitTargets = append(exitTargets, e.To)
		}
	}

	var body *Region
	if continueTarget >= 0 {
		body = b.build(continueTarget, offset)
	}

	var next *Region
	switch len(exitTargets) {
	case 0:
		next = nil
	case 1:
		next = b.build(exitTargets[0], stop)
	default:
		next = &Region{Kind: KindStraight, Goto: exitTargets}
	}
	return &Region{Kind: KindLoop, Cond: block, Body: body, Next: next}
}

// naturalLoopNodes walks backward from every latch (back-edge source) of
// header, following predecessors and staying within blocks header
// dominates, to recover the loop's body without mistaking "header
// dominates everything" (true of any function's entry block) for "is
// part of this loop".
func (b *builder) naturalLoopNodes(header int) map[int]bool {
	nodes := map[int]bool{header: true}
	var queue []int
	for _, tail := range b.latches[header] {
		if !nodes[tail] {
			nodes[tail] = true
			queue = append(queue, tail)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		block := b.g.BlockAt(cur)
		if block == nil {
			continue
		}
		for _, p := range b.g.Parents(block) {
			if nodes[p.StartOffset] || !b.dom.Dominates(header, p.StartOffset) {
				continue
			}
			nodes[p.StartOffset] = true
			queue = append(queue, p.StartOffset)
		}
	}
	return nodes
}

func twoWayTargets(edges []cfg.Edge) (trueTo, falseTo int, ok bool) {
	if len(edges) != 2 {
		return 0, 0, false
	}
	var hasTrue, hasFalse bool
	for _, e := range edges {
		switch e.Kind {
		case cfg.EdgeConditionalTrue:
			trueTo, hasTrue = e.To, true
		case cfg.EdgeConditionalFalse:
			falseTo, hasFalse = e.To, true
		}
	}
	return trueTo, falseTo, hasTrue && hasFalse
}

// findMerge locates the first block reachable from both a and bb
// without crossing stop, using plain BFS reachability over the CFG
// (not the region tree being built) so it can be computed before the
// branches themselves are recursively analyzed.
func (b *builder) findMerge(a, bb, stop int) (int, bool) {
	orderA, _ := b.bfs(a, stop)
	_, visB := b.bfs(bb, stop)
	for _, off := range orderA {
		if visB[off] {
			return off, true
		}
	}
	return -1, false
}

func (b *builder) bfs(start, stop int) (order []int, visited map[int]bool) {
	visited = map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		if cur == stop {
			continue
		}
		block := b.g.BlockAt(cur)
		if block == nil {
			continue
		}
		for _, e := range block.Edges {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return order, visited
}
