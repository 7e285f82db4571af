package callgraph

import (
	"fmt"
	"sort"
	"strings"
)

// graph styling constants: fixed node colors for user-defined
// functions versus plain libfunc calls.
const (
	userDefinedColor = "lightblue"
	libraryCallColor = "lightgrey"
)

// WriteDOT serializes the call graph as a DOT digraph. Output is
// deterministic: nodes are emitted in the order they first appear in
// the edge list (caller, then callee, edge by edge), followed by nodes
// with no edges sorted by name; edges are emitted in recording order.
func (g *CallGraph) WriteDOT() string {
	var b strings.Builder
	b.WriteString("strict digraph G {\n")
	b.WriteString("    graph [fontname=\"Helvetica\", rankdir=\"LR\"];\n")
	b.WriteString("    node [style=\"filled\", shape=\"rectangle\", fontname=\"Helvetica\"];\n")

	for _, name := range g.orderedNodeNames() {
		node := g.Nodes[name]
		color := libraryCallColor
		if node.Kind == KindUserDefined {
			color = userDefinedColor
		}
		fmt.Fprintf(&b, "    %q [fillcolor=%q];\n", name, color)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "    %q -> %q;\n", e.From, e.To)
	}
	b.WriteString("}\n")
	return b.String()
}

// orderedNodeNames returns node names in a stable order: every node in
// order of first appearance in the edge list, then the nodes no edge
// touches (isolated functions with no calls in or out), sorted by name.
func (g *CallGraph) orderedNodeNames() []string {
	seen := map[string]bool{}
	var out []string
	emit := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, e := range g.Edges {
		emit(e.From)
		emit(e.To)
	}
	var rest []string
	for name := range g.Nodes {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		emit(name)
	}
	return out
}
