// Package cfg recovers per-function control-flow graphs from a parsed
// Sierra program using the leader algorithm: a statement starts a new
// basic block if it is a branch target, the statement right after a
// branching invocation, or the function's entry point; a statement ends
// its block if it is a return or a branching invocation.
package cfg

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"sierrascan/internal/sierra"
)

type EdgeKind string

const (
	EdgeUnconditional    EdgeKind = "unconditional"
	EdgeConditionalTrue  EdgeKind = "conditional_true"
	EdgeConditionalFalse EdgeKind = "conditional_false"
	EdgeFallthrough      EdgeKind = "fallthrough"
	// EdgeConditional covers the third and later targets of a branch
	// with more than two destinations (an N-way match). Region recovery
	// treats any block with such an edge as irreducible to If/IfElse and
	// falls back to Straight-with-goto per this module's scope.
	EdgeConditional EdgeKind = "conditional"
)

type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

// BasicBlock is a maximal run of statements with a single entry and
// exit, addressed by the offset of its first statement.
type BasicBlock struct {
	StartOffset int
	EndOffset   int // exclusive
	Statements  []*sierra.Statement
	Edges       []Edge
}

func (b *BasicBlock) Name() string { return "bb_" + strconv.Itoa(b.StartOffset) }

func (b *BasicBlock) Last() *sierra.Statement {
	if len(b.Statements) == 0 {
		return nil
	}
	return b.Statements[len(b.Statements)-1]
}

// CFG is one function's recovered control-flow graph.
type CFG struct {
	Function    *sierra.Function
	BasicBlocks []*BasicBlock
	byStart      map[int]*BasicBlock
}

func (g *CFG) BlockAt(offset int) *BasicBlock { return g.byStart[offset] }

// Children returns the blocks a block has an edge to.
func (g *CFG) Children(b *BasicBlock) []*BasicBlock {
	var out []*BasicBlock
	for _, e := range b.Edges {
		if target := g.byStart[e.To]; target != nil {
			out = append(out, target)
		}
	}
	return out
}

// Parents returns the blocks that have an edge into b.
func (g *CFG) Parents(b *BasicBlock) []*BasicBlock {
	var out []*BasicBlock
	for _, candidate := range g.BasicBlocks {
		for _, e := range candidate.Edges {
			if e.To == b.StartOffset {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// Build recovers the CFG for one function's statement range.
func Build(prog *sierra.Program, fn *sierra.Function) (*CFG, error) {
	if fn.StartOffset < 0 || fn.EndOffset > len(prog.Statements) || fn.StartOffset > fn.EndOffset {
		return nil, errors.Errorf("cfg: function %s has invalid range [%d,%d) over %d statements", fn.ID, fn.StartOffset, fn.EndOffset, len(prog.Statements))
	}
	stmts := prog.Statements[fn.StartOffset:fn.EndOffset]
	if len(stmts) == 0 {
		return nil, errors.Errorf("cfg: function %s has no statements", fn.ID)
	}

	starts, ends := delimitations(stmts, fn.StartOffset)
	starts[fn.StartOffset] = struct{}{}

	g := &CFG{Function: fn, byStart: map[int]*BasicBlock{}}

	var current *BasicBlock
	for i, stmt := range stmts {
		if current == nil || isStart(starts, stmt.Offset) {
			current = &BasicBlock{StartOffset: stmt.Offset}
			g.BasicBlocks = append(g.BasicBlocks, current)
			g.byStart[stmt.Offset] = current
		}
		current.Statements = append(current.Statements, stmt)

		isLastInRange := i == len(stmts)-1
		if isEnd(ends, stmt.Offset) || isLastInRange || (i+1 < len(stmts) && isStart(starts, stmts[i+1].Offset)) {
			current.EndOffset = stmt.Offset + 1
			blockStart := current.StartOffset
			for _, e := range edgesFor(stmt, isLastInRange) {
				e.From = blockStart
				current.Edges = append(current.Edges, e)
			}
			current = nil
		}
	}

	sort.Slice(g.BasicBlocks, func(i, j int) bool { return g.BasicBlocks[i].StartOffset < g.BasicBlocks[j].StartOffset })
	return g, nil
}

func delimitations(stmts []*sierra.Statement, funcStart int) (starts, ends map[int]struct{}) {
	starts = map[int]struct{}{}
	ends = map[int]struct{}{}
	for _, stmt := range stmts {
		if stmt.IsReturn() {
			ends[stmt.Offset] = struct{}{}
			continue
		}
		hasExplicit := false
		for _, b := range stmt.Invocation.Branches {
			if !b.Target.Fallthrough {
				hasExplicit = true
				starts[b.Target.Offset] = struct{}{}
			}
		}
		if hasExplicit {
			ends[stmt.Offset] = struct{}{}
			starts[stmt.Offset+1] = struct{}{}
		}
	}
	return starts, ends
}

func isStart(starts map[int]struct{}, offset int) bool {
	_, ok := starts[offset]
	return ok
}

func isEnd(ends map[int]struct{}, offset int) bool {
	_, ok := ends[offset]
	return ok
}

func edgesFor(stmt *sierra.Statement, isLastInRange bool) []Edge {
	if stmt.IsReturn() {
		return nil
	}
	branches := stmt.Invocation.Branches
	var explicit []sierra.Branch
	var fallthroughBranch *sierra.Branch
	for i := range branches {
		if branches[i].Target.Fallthrough {
			fallthroughBranch = &branches[i]
		} else {
			explicit = append(explicit, branches[i])
		}
	}

	switch {
	case len(branches) == 1 && fallthroughBranch != nil:
		if isLastInRange {
			return nil
		}
		return []Edge{{From: stmt.Offset, To: stmt.Offset + 1, Kind: EdgeFallthrough}}
	case len(branches) == 1 && fallthroughBranch == nil:
		return []Edge{{From: stmt.Offset, To: explicit[0].Target.Offset, Kind: EdgeUnconditional}}
	default:
		var edges []Edge
		for i, b := range explicit {
			kind := EdgeConditional
			switch i {
			case 0:
				kind = EdgeConditionalTrue
			case len(explicit) - 1:
				if fallthroughBranch == nil {
					kind = EdgeConditionalFalse
				}
			}
			edges = append(edges, Edge{From: stmt.Offset, To: b.Target.Offset, Kind: kind})
		}
		if fallthroughBranch != nil {
			edges = append(edges, Edge{From: stmt.Offset, To: stmt.Offset + 1, Kind: EdgeConditionalFalse})
		}
		return edges
	}
}
