package symexec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"sierrascan/internal/sierra"
	"sierrascan/internal/smt"
)

const singleCheckProgram = `
libfunc felt252_is_zero = felt252_is_zero;

felt252_is_zero(v0) -> { 1: (), 2: (v1) };
return (v0);
return (v1);

func check@0(v0: felt252) -> (felt252);
`

func TestRunForksOnIsZero(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	prog, err := sierra.Parse("check.sierra", singleCheckProgram)
	require.NoError(t, err)

	e := New(prog, prog.Functions[0])
	paths, err := e.Run()
	require.NoError(t, err)
	require.Len(t, paths, 2)

	var sawZero, sawNonzero bool
	for _, p := range paths {
		require.Equal(t, StatusCompleted, p.Status)
		v, ok := p.Model["v0"]
		require.True(t, ok)
		if v.Sign() == 0 {
			sawZero = true
		} else {
			sawNonzero = true
		}
	}
	assert.True(t, sawZero, "expected a path with v0 == 0")
	assert.True(t, sawNonzero, "expected a path with v0 != 0")
}

const arithmeticProgram = `
libfunc const_as_immediate<Const<felt252, 1000>> = const_as_immediate<Const<felt252, 1000>>;
libfunc felt252_add = felt252_add;

amount_lit = const_as_immediate<Const<felt252, 1000>>();
sum = felt252_add(amount_lit, amount);
return (sum);

func add_thousand@0(amount: felt252) -> (felt252);
`

func TestRunAppliesArithmetic(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	prog, err := sierra.Parse("add.sierra", arithmeticProgram)
	require.NoError(t, err)

	e := New(prog, prog.Functions[0])
	paths, err := e.Run()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, StatusCompleted, paths[0].Status)
	assert.Equal(t, []string{"sum"}, paths[0].ReturnValues)
}

const unsupportedProgram = `
libfunc u128_sqrt = u128_sqrt;

r = u128_sqrt(v0);
return (r);

func sqrt_fn@0(v0: felt252) -> (felt252);
`

func TestRunReportsUnsupportedLibfunc(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	prog, err := sierra.Parse("sqrt.sierra", unsupportedProgram)
	require.NoError(t, err)

	e := New(prog, prog.Functions[0])
	paths, err := e.Run()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, StatusUnsupported, paths[0].Status)
	assert.Equal(t, "u128_sqrt", paths[0].Reason)
}

func TestConcreteValueFallsBackToZeroWithoutModel(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	v := concreteValue(nil, smt.NewBitVec("v0", FeltBits))
	assert.Equal(t, big.NewInt(0), v)
}
