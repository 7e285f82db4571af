// Package callgraph builds the inter-procedural caller/callee graph
// over a parsed Sierra program's user-defined functions: every
// function_call<user@F> found in a function's statements becomes a
// caller->callee edge.
package callgraph

import "sierrascan/internal/sierra"

// NodeKind classifies a call graph node: a function this program
// defines, or a libfunc/library call it merely invokes.
type NodeKind string

const (
	KindUserDefined NodeKind = "user_defined"
	KindLibraryCall NodeKind = "library_call"
	KindCoreLibCall NodeKind = "corelib_call"
)

type Node struct {
	Name string
	Kind NodeKind
}

// Edge is one callsite: the calling function, the callee, and the
// statement offset the call was made from.
type Edge struct {
	From   string
	To     string
	Offset int
}

// CallGraph is a directed multigraph over function names. Multiple
// edges between the same pair of nodes are preserved (one call
// invoked twice from the same function is two edges), and cycles
// (recursion, mutual recursion) are permitted.
type CallGraph struct {
	Nodes map[string]*Node
	Edges []Edge
}

func newGraph() *CallGraph {
	return &CallGraph{Nodes: map[string]*Node{}}
}

func (g *CallGraph) addNode(name string, kind NodeKind) {
	if _, ok := g.Nodes[name]; !ok {
		g.Nodes[name] = &Node{Name: name, Kind: kind}
	}
}

// Build walks every user-defined function's statements and records a
// caller->callee edge for each function_call<user@F> invocation.
// includeLibraryCalls additionally records edges to non-user libfunc
// calls (a plain function_call<T> or any other invoked libfunc),
// tagged KindLibraryCall — the detector suite's opt-in
// library-call-tracking mode from this package's contract.
func Build(prog *sierra.Program, includeLibraryCalls bool) *CallGraph {
	g := newGraph()
	userFuncs := map[string]bool{}
	for _, fn := range prog.Functions {
		userFuncs[fn.ID] = true
		g.addNode(fn.ID, KindUserDefined)
	}

	for _, fn := range prog.Functions {
		for offset := fn.StartOffset; offset < fn.EndOffset && offset < len(prog.Statements); offset++ {
			stmt := prog.Statements[offset]
			if stmt.IsReturn() {
				continue
			}
			id := stmt.Invocation.LibfuncID.String()
			if callee, ok := userFunctionCallee(id); ok {
				g.addNode(callee, KindUserDefined)
				g.Edges = append(g.Edges, Edge{From: fn.ID, To: callee, Offset: offset})
				continue
			}
			if includeLibraryCalls {
				g.addNode(id, KindLibraryCall)
				g.Edges = append(g.Edges, Edge{From: fn.ID, To: id, Offset: offset})
			}
		}
	}
	return g
}

// userFunctionCallee extracts F out of a function_call<user@F> libfunc
// id. Only bare function_call<user@...> invocations count: a remote
// contract's [n]<user@...> library-call form is left to
// includeLibraryCalls, matching this package's "library-call edges
// are emitted only when the detector suite requests library-call
// tracking" contract.
func userFunctionCallee(libfuncID string) (string, bool) {
	const prefix = "function_call<user@"
	if len(libfuncID) <= len(prefix) || libfuncID[:len(prefix)] != prefix {
		return "", false
	}
	rest := libfuncID[len(prefix):]
	if len(rest) == 0 || rest[len(rest)-1] != '>' {
		return "", false
	}
	return rest[:len(rest)-1], true
}

// Callers returns every node with an edge into name.
func (g *CallGraph) Callers(name string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.To == name {
			out = append(out, e.From)
		}
	}
	return out
}

// Callees returns every node name has an edge to.
func (g *CallGraph) Callees(name string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == name {
			out = append(out, e.To)
		}
	}
	return out
}

// Reachable restricts the graph to the subgraph reachable from root,
// the --function CLI filter's callgraph counterpart.
func (g *CallGraph) Reachable(root string) *CallGraph {
	out := newGraph()
	if node, ok := g.Nodes[root]; ok {
		out.Nodes[root] = &Node{Name: node.Name, Kind: node.Kind}
	} else {
		return out
	}
	visited := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Edges {
			if e.From != cur {
				continue
			}
			out.Edges = append(out.Edges, e)
			if node, ok := g.Nodes[e.To]; ok {
				out.addNode(node.Name, node.Kind)
			}
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return out
}
