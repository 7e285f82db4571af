package detector

import (
	"fmt"
	"sort"
	"strings"

	"sierrascan/internal/callgraph"
)

// StatisticsDetector reports coarse program metrics: statement,
// block, and branch counts, the set of recursive functions, and the
// number of distinct libfuncs the program invokes.
type StatisticsDetector struct{}

func NewStatisticsDetector() *StatisticsDetector {
	return &StatisticsDetector{}
}

func (d *StatisticsDetector) ID() string          { return "statistics" }
func (d *StatisticsDetector) Name() string        { return "Statistics" }
func (d *StatisticsDetector) Kind() Kind          { return KindInformational }
func (d *StatisticsDetector) Description() string {
	return "Reports statement, block, and branch counts, recursive functions, and distinct libfuncs used."
}

func (d *StatisticsDetector) Run(ctx *Context) (string, error) {
	statements := len(ctx.Program.Statements)
	blocks := 0
	branches := 0
	libfuncs := map[string]bool{}
	for _, f := range ctx.Decompiler.Functions {
		blocks += len(f.CFG.BasicBlocks)
		for _, bb := range f.CFG.BasicBlocks {
			if len(bb.Edges) > 1 {
				branches++
			}
		}
	}
	for _, s := range ctx.Program.Statements {
		if s.Invocation != nil {
			libfuncs[s.Invocation.LibfuncID.String()] = true
		}
	}

	recursive := recursiveFunctions(ctx.CallGraph)

	var b strings.Builder
	fmt.Fprintf(&b, "functions: %d\n", len(ctx.Decompiler.Functions))
	fmt.Fprintf(&b, "statements: %d\n", statements)
	fmt.Fprintf(&b, "basic blocks: %d\n", blocks)
	fmt.Fprintf(&b, "conditional branches: %d\n", branches)
	fmt.Fprintf(&b, "distinct libfuncs: %d\n", len(libfuncs))
	if len(recursive) == 0 {
		b.WriteString("recursive functions: (none)")
	} else {
		fmt.Fprintf(&b, "recursive functions: %s", strings.Join(recursive, ", "))
	}
	return b.String(), nil
}

// recursiveFunctions returns the names of every user-defined function
// that lies on a cycle of its own call graph, direct self-recursion
// and mutual recursion alike.
func recursiveFunctions(g *callgraph.CallGraph) []string {
	if g == nil {
		return nil
	}
	adj := map[string][]string{}
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	// A function is recursive (directly or mutually) iff it can reach
	// itself in the call graph. Program call graphs are small enough
	// (bounded by function count) that a plain per-node BFS is cheap
	// enough not to need Tarjan's algorithm here.
	var recursive []string
	names := make([]string, 0, len(g.Nodes))
	for name, node := range g.Nodes {
		if node.Kind == callgraph.KindUserDefined {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if reaches(adj, name, name) {
			recursive = append(recursive, name)
		}
	}
	return recursive
}

// reaches reports whether a path exists from -> to in adj, following
// at least one edge (so a self-loop of length 1 counts).
func reaches(adj map[string][]string, from, to string) bool {
	visited := map[string]bool{}
	var queue []string
	queue = append(queue, adj[from]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		queue = append(queue, adj[cur]...)
	}
	return false
}
