package callgraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sierrascan/internal/sierra"
)

const recursiveProgram = `
libfunc felt252_is_zero = felt252_is_zero;
libfunc function_call<user@fib> = function_call<user@fib>;
libfunc store_temp<felt252> = store_temp<felt252>;

felt252_is_zero(n) -> { 2: (), 3: () };
return (n);
r = function_call<user@fib>(n);
return (r);

func fib@0(n: felt252) -> (felt252);
func helper@4(n: felt252) -> (felt252);
`

func TestBuildRecordsRecursiveEdge(t *testing.T) {
	prog, err := sierra.Parse("fib.sierra", recursiveProgram)
	require.NoError(t, err)

	g := Build(prog, false)
	require.Contains(t, g.Nodes, "fib")
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "fib", g.Edges[0].From)
	assert.Equal(t, "fib", g.Edges[0].To)
}

func TestBuildIncludeLibraryCalls(t *testing.T) {
	prog, err := sierra.Parse("fib.sierra", recursiveProgram)
	require.NoError(t, err)

	g := Build(prog, true)
	var sawIsZero bool
	for _, e := range g.Edges {
		if e.To == "felt252_is_zero" {
			sawIsZero = true
		}
	}
	assert.True(t, sawIsZero, "library-call tracking should record felt252_is_zero as an edge")
}

func TestWriteDOTIsDeterministic(t *testing.T) {
	prog, err := sierra.Parse("fib.sierra", recursiveProgram)
	require.NoError(t, err)

	g := Build(prog, false)
	first := g.WriteDOT()
	second := g.WriteDOT()
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "strict digraph G {"))
}

func TestReachableRestrictsToSubgraph(t *testing.T) {
	prog, err := sierra.Parse("fib.sierra", recursiveProgram)
	require.NoError(t, err)

	g := Build(prog, false)
	sub := g.Reachable("fib")
	assert.Contains(t, sub.Nodes, "fib")
	assert.NotContains(t, sub.Nodes, "helper")
}
