package decompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sierrascan/internal/sierra"
)

const diamondSrc = `
type felt252 = felt252 [storable, droppable, duplicatable];

libfunc felt252_is_zero = felt252_is_zero;
libfunc felt252_const<1> = felt252_const<1>;
libfunc store_temp<felt252> = store_temp<felt252>;

felt252_is_zero(n) -> { 1: (), 3: () };
a = felt252_const<1>();
b = store_temp(a);
return (b);

func diamond@0(n: felt252) -> (felt252);
`

func buildDecompiler(t *testing.T, src string, verbose bool) *Decompiler {
	prog, err := sierra.Parse("t.sierra", src)
	require.NoError(t, err)
	d, err := New(prog, verbose)
	require.NoError(t, err)
	return d
}

func TestPrototypeFormatsParamsAndReturns(t *testing.T) {
	d := buildDecompiler(t, diamondSrc, false)
	require.Len(t, d.Functions, 1)
	assert.Equal(t, "func diamond(n: felt252) -> (felt252)", d.Functions[0].Prototype())
}

func TestRenderIfElseProducesNestedBraces(t *testing.T) {
	d := buildDecompiler(t, diamondSrc, false)
	out := Render(d.Functions[0], false, false)
	assert.Contains(t, out, "if (n == 0)")
	assert.Contains(t, out, "return (b)")
	// store_temp is blacklisted from the non-verbose rendering.
	assert.NotContains(t, out, "store_temp")
}

func TestRenderVerboseKeepsStoreTemp(t *testing.T) {
	d := buildDecompiler(t, diamondSrc, true)
	out := Render(d.Functions[0], true, false)
	assert.Contains(t, out, "store_temp")
}

func TestDecompileVerboseIncludesTypesAndLibfuncs(t *testing.T) {
	d := buildDecompiler(t, diamondSrc, true)
	out := d.Decompile(false)
	assert.Contains(t, out, "type felt252")
	assert.Contains(t, out, "libfunc felt252_is_zero")
	assert.Contains(t, out, "func diamond")
}

func TestDecompileNonVerboseOmitsDeclarations(t *testing.T) {
	d := buildDecompiler(t, diamondSrc, false)
	out := d.Decompile(false)
	assert.NotContains(t, out, "type felt252")
}

const twoFuncSrc = `
libfunc felt252_const<1> = felt252_const<1>;

a = felt252_const<1>();
return (a);
b = felt252_const<1>();
return (b);

func alpha@0(n: felt252) -> (felt252);
func beta@2(n: felt252) -> (felt252);
`

func TestFilterFunctionsKeepsMatchingOnly(t *testing.T) {
	d := buildDecompiler(t, twoFuncSrc, false)
	require.Len(t, d.Functions, 2)
	d.FilterFunctions("alpha")
	require.Len(t, d.Functions, 1)
	assert.Equal(t, "alpha", d.Functions[0].Decl.ID)
}

func TestFormatStatementSuppressesDropAndStoreTemp(t *testing.T) {
	prog, err := sierra.Parse("t.sierra", diamondSrc)
	require.NoError(t, err)

	storeTemp := prog.Statements[2]
	require.False(t, storeTemp.IsReturn())
	assert.Equal(t, "", FormatStatement(storeTemp, false))
	assert.NotEqual(t, "", FormatStatement(storeTemp, true))
}

func TestDecodedStringFromConst(t *testing.T) {
	// felt252_const<4919> packs the two ASCII bytes 0x13 0x37 -> "\x13\x37",
	// not printable; use a const that decodes to printable ASCII "Hi"
	// (0x48 0x69 = 18537 decimal).
	s, ok := DecodedString("felt252_const<18537>")
	require.True(t, ok)
	assert.Equal(t, "Hi", s)

	_, ok = DecodedString("felt252_add")
	assert.False(t, ok)
}

func TestArithmeticOperatorAndOverflow(t *testing.T) {
	op, ok := ArithmeticOperator("felt252_add")
	require.True(t, ok)
	assert.Equal(t, "+", op)
	assert.False(t, Overflowing("felt252_add"))

	op, ok = ArithmeticOperator("u8_overflowing_add")
	require.True(t, ok)
	assert.Equal(t, "+", op)
	assert.True(t, Overflowing("u8_overflowing_add"))
}

func TestUserFunctionNameExtraction(t *testing.T) {
	name, ok := UserFunctionName("function_call<user@my_module::my_func>")
	require.True(t, ok)
	assert.Equal(t, "my_module::my_func", name)
}
