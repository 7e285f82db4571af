package cfg

import (
	"fmt"
	"strings"

	"sierrascan/internal/sierra"
)

// graph styling constants, matching the node/edge attribute shapes the
// original decompiler's DOT output used for CFG and call-graph nodes.
const (
	graphFontName = "Helvetica"
	nodeShape     = "rectangle"
	edgeColorTrue  = "forestgreen"
	edgeColorFalse = "crimson"
	edgeColorPlain = "black"
)

// WriteDOT serializes a CFG as a DOT digraph. Output is deterministic:
// basic blocks are visited in ascending start-offset order and each
// block's edges in the order they were recorded.
func (g *CFG) WriteDOT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", dotName(g.Function.ID))
	fmt.Fprintf(&b, "    graph [fontname=\"%s\"];\n", graphFontName)
	fmt.Fprintf(&b, "    node [shape=\"%s\", fontname=\"%s\"];\n", nodeShape, graphFontName)

	for _, block := range g.BasicBlocks {
		label := blockLabel(block)
		fmt.Fprintf(&b, "    %q [label=%q];\n", block.Name(), label)
	}
	for _, block := range g.BasicBlocks {
		for _, e := range block.Edges {
			color := edgeColorPlain
			switch e.Kind {
			case EdgeConditionalTrue:
				color = edgeColorTrue
			case EdgeConditionalFalse:
				color = edgeColorFalse
			}
			target := g.byStart[e.To]
			to := fmt.Sprintf("bb_%d", e.To)
			if target != nil {
				to = target.Name()
			}
			fmt.Fprintf(&b, "    %q -> %q [color=%q, label=%q];\n", block.Name(), to, color, string(e.Kind))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func blockLabel(b *BasicBlock) string {
	var lines []string
	for _, stmt := range b.Statements {
		lines = append(lines, formattedStatement(stmt))
	}
	return strings.Join(lines, "\\n")
}

func formattedStatement(stmt *sierra.Statement) string {
	if stmt.IsReturn() {
		return fmt.Sprintf("%d: return (%s)", stmt.Offset, strings.Join(stmt.Return.Args, ", "))
	}
	inv := stmt.Invocation
	results := ""
	if len(inv.Results) > 0 {
		results = strings.Join(inv.Results, ", ") + " = "
	}
	return fmt.Sprintf("%d: %s%s(%s)", stmt.Offset, results, inv.LibfuncID.String(), strings.Join(inv.Args, ", "))
}

func dotName(id string) string {
	return strings.NewReplacer(":", "_", "@", "_", "-", "_").Replace(id)
}
