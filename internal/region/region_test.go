package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sierrascan/internal/cfg"
	"sierrascan/internal/sierra"
)

func buildCFG(t *testing.T, src string) *cfg.CFG {
	prog, err := sierra.Parse("t.sierra", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	g, err := cfg.Build(prog, prog.Functions[0])
	require.NoError(t, err)
	return g
}

const diamondProgram = `
libfunc felt252_is_zero = felt252_is_zero;
libfunc felt252_const<1> = felt252_const<1>;
libfunc felt252_const<2> = felt252_const<2>;
libfunc store_temp<felt252> = store_temp<felt252>;

felt252_is_zero(n) -> { 1: (), 3: () };
a = felt252_const<1>();
b = felt252_const<2>();
c = store_temp(a);
return (c);

func f@0(n: felt252) -> (felt252);
`

func TestAnalyzeDiamondProducesIfElseWithMerge(t *testing.T) {
	g := buildCFG(t, diamondProgram)
	r := Analyze(g)

	require.Equal(t, KindIfElse, r.Kind)
	require.NotNil(t, r.Then)
	// The false branch lands directly on the merge block with no
	// statements of its own, so there is no else body to recover.
	assert.Nil(t, r.Else)
	require.NotNil(t, r.Next)
	assert.Equal(t, KindStraight, r.Next.Kind)
	assert.Equal(t, 3, r.Next.Blocks[0].StartOffset)
}

const terminalBranchProgram = `
libfunc felt252_is_zero = felt252_is_zero;

felt252_is_zero(n) -> { 1: (), 3: () };
return (x);
q = felt252_is_zero(x);
return (y);

func f@0(n: felt252) -> (felt252);
`

func TestAnalyzeTerminalBranchHasNoMerge(t *testing.T) {
	g := buildCFG(t, terminalBranchProgram)
	r := Analyze(g)

	require.Equal(t, KindIfElse, r.Kind)
	assert.Nil(t, r.Next)
	require.NotNil(t, r.Then)
	require.NotNil(t, r.Else)
	assert.Equal(t, KindStraight, r.Then.Kind)
	assert.Equal(t, KindStraight, r.Else.Kind)
}

const loopProgram = `
libfunc felt252_is_zero = felt252_is_zero;
libfunc felt252_const<1> = felt252_const<1>;
libfunc jump = jump;

felt252_is_zero(n) -> { 3: (), 1: () };
m = felt252_const<1>();
jump() -> 0;
r = felt252_const<1>();
return (r);

func f@0(n: felt252) -> (felt252);
`

func TestAnalyzeDetectsLoop(t *testing.T) {
	g := buildCFG(t, loopProgram)
	r := Analyze(g)

	require.Equal(t, KindLoop, r.Kind)
	require.NotNil(t, r.Body)
	require.NotNil(t, r.Next)
	assert.Equal(t, 3, r.Next.Blocks[0].StartOffset)
}

func TestDominatorTreeBasics(t *testing.T) {
	g := buildCFG(t, diamondProgram)
	dom := BuildDominatorTree(g)
	assert.True(t, dom.Dominates(0, 0))
	assert.True(t, dom.Dominates(0, 1))
	assert.True(t, dom.Dominates(0, 3))
	assert.False(t, dom.Dominates(1, 3))
}
