package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sierrascan/internal/sierra"
)

const branchyProgram = `
libfunc felt252_const<0> = felt252_const<0>;
libfunc felt252_is_zero = felt252_is_zero;
libfunc felt252_add = felt252_add;
libfunc store_temp<felt252> = store_temp<felt252>;
libfunc function_call<user@fib> = function_call<user@fib>;

n = felt252_const<0>();
acc = felt252_const<1>();
felt252_is_zero(n) -> { 3: (), 5: (n2) };
acc2 = store_temp(acc);
return (acc2);
n3 = felt252_add(n2, acc);
ignored = function_call(n3);
return (ignored);

func fib@0(n: felt252) -> (felt252);
`

func parseBranchy(t *testing.T) *sierra.Program {
	prog, err := sierra.Parse("fib.sierra", branchyProgram)
	require.NoError(t, err)
	return prog
}

func TestBuildRecoversTwoWayBranch(t *testing.T) {
	prog := parseBranchy(t)
	g, err := Build(prog, prog.Functions[0])
	require.NoError(t, err)

	entry := g.BlockAt(0)
	require.NotNil(t, entry)
	assert.Equal(t, 3, entry.EndOffset)
	require.Equal(t, 2, entry.Last().Offset)
	require.Len(t, entry.Edges, 2)

	var sawTrue, sawFalse bool
	for _, e := range entry.Edges {
		switch e.Kind {
		case EdgeConditionalTrue:
			sawTrue = true
			assert.Equal(t, 3, e.To)
		case EdgeConditionalFalse:
			sawFalse = true
			assert.Equal(t, 5, e.To)
		}
	}
	assert.True(t, sawTrue)
	assert.True(t, sawFalse)

	thenBlock := g.BlockAt(3)
	require.NotNil(t, thenBlock)
	assert.Empty(t, thenBlock.Edges)

	elseBlock := g.BlockAt(5)
	require.NotNil(t, elseBlock)
	assert.Empty(t, elseBlock.Edges)
}

func TestChildrenAndParents(t *testing.T) {
	prog := parseBranchy(t)
	g, err := Build(prog, prog.Functions[0])
	require.NoError(t, err)

	entry := g.BlockAt(0)
	children := g.Children(entry)
	require.Len(t, children, 2)

	parents := g.Parents(g.BlockAt(3))
	require.Len(t, parents, 1)
	assert.Equal(t, 0, parents[0].StartOffset)
}

func TestWriteDOTIsDeterministic(t *testing.T) {
	prog := parseBranchy(t)
	g, err := Build(prog, prog.Functions[0])
	require.NoError(t, err)

	first := g.WriteDOT()
	second := g.WriteDOT()
	assert.Equal(t, first, second)
	assert.Contains(t, first, "digraph fib {")
}

func TestBuildRejectsOutOfRangeFunction(t *testing.T) {
	prog := parseBranchy(t)
	bad := &sierra.Function{ID: "bad", StartOffset: 100, EndOffset: 200}
	_, err := Build(prog, bad)
	assert.Error(t, err)
}

const jumpProgram = `
libfunc felt252_const<0> = felt252_const<0>;
libfunc jump = jump;
libfunc felt252_add = felt252_add;

x = felt252_const<0>();
jump() -> 3;
y = felt252_const<0>();
z = felt252_add(x, y);
return (z);

func f@0(p: felt252) -> (felt252);
`

func TestBuildUnconditionalAndFallthroughEdges(t *testing.T) {
	prog, err := sierra.Parse("jump.sierra", jumpProgram)
	require.NoError(t, err)
	g, err := Build(prog, prog.Functions[0])
	require.NoError(t, err)

	entry := g.BlockAt(0)
	require.NotNil(t, entry)
	require.Len(t, entry.Edges, 1)
	assert.Equal(t, EdgeUnconditional, entry.Edges[0].Kind)
	assert.Equal(t, 3, entry.Edges[0].To)

	deadBlock := g.BlockAt(2)
	require.NotNil(t, deadBlock)
	require.Len(t, deadBlock.Edges, 1)
	assert.Equal(t, EdgeFallthrough, deadBlock.Edges[0].Kind)
	assert.Equal(t, 3, deadBlock.Edges[0].To)

	target := g.BlockAt(3)
	require.NotNil(t, target)
	assert.Empty(t, target.Edges)

	parents := g.Parents(target)
	assert.Len(t, parents, 2)
}
