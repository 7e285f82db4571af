package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"sierrascan/internal/callgraph"
	"sierrascan/internal/decompiler"
	"sierrascan/internal/sierra"
)

func buildContext(t *testing.T, source string) *Context {
	t.Helper()
	prog, err := sierra.Parse("test.sierra", source)
	require.NoError(t, err)
	dec, err := decompiler.New(prog, false)
	require.NoError(t, err)
	return &Context{
		Program:    prog,
		Decompiler: dec,
		CallGraph:  callgraph.Build(prog, true),
	}
}

const additionProgram = `
libfunc const_as_immediate<Const<felt252, 5>> = const_as_immediate<Const<felt252, 5>>;
libfunc felt252_add = felt252_add;
libfunc store_temp<felt252> = store_temp<felt252>;

lit = const_as_immediate<Const<felt252, 5>>();
sum = felt252_add(amount, lit);
r = store_temp<felt252>(sum);
return (r);

func add_five@0(amount: felt252) -> (felt252);
`

func TestFeltOverflowDetectorFlagsUnsanitizedParameter(t *testing.T) {
	ctx := buildContext(t, additionProgram)
	d := NewFeltOverflowDetector(FeltOverflowConfig{})
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "add_five")
	assert.Contains(t, report, "amount")
	assert.Contains(t, report, "High")
}

func TestFeltOverflowDetectorRespectsSanitizer(t *testing.T) {
	ctx := buildContext(t, additionProgram)
	d := NewFeltOverflowDetector(FeltOverflowConfig{SanitizerLibfuncs: []string{"felt252_add"}})
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report)
}

const libraryCallProgram = `
libfunc library_call_syscall = library_call_syscall;

r = library_call_syscall(class_hash);
return (r);

func dispatch@0(class_hash: felt252) -> (felt252);
`

func TestControlledLibraryCallDetectorFlagsTaintedDispatch(t *testing.T) {
	ctx := buildContext(t, libraryCallProgram)
	d := NewControlledLibraryCallDetector(ControlledLibraryCallConfig{})
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "dispatch")
	assert.Contains(t, report, "class_hash")
}

func TestControlledLibraryCallDetectorIgnoresPlainCalls(t *testing.T) {
	ctx := buildContext(t, additionProgram)
	d := NewControlledLibraryCallDetector(ControlledLibraryCallConfig{})
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report)
}

const stringConstantProgram = `
libfunc const_as_immediate<Const<felt252, 26729>> = const_as_immediate<Const<felt252, 26729>>;

r = const_as_immediate<Const<felt252, 26729>>();
return (r);

func greeting@0() -> (felt252);
`

func TestStringsDetectorDecodesConstant(t *testing.T) {
	ctx := buildContext(t, stringConstantProgram)
	d := NewStringsDetector()
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "greeting")
	assert.Contains(t, report, "hi")
}

func TestFunctionsDetectorAnnotatesEntryPointKind(t *testing.T) {
	ctx := buildContext(t, additionProgram)
	d := NewFunctionsDetector()
	d.EntryPointKinds = map[string]string{"add_five": "External"}
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "External: func add_five(amount: felt252) -> (felt252)")
}

const recursiveDetectorProgram = `
libfunc felt252_is_zero = felt252_is_zero;
libfunc function_call<user@fact> = function_call<user@fact>;

felt252_is_zero(n) -> { 2: (), 3: () };
return (n);
r = function_call<user@fact>(n);
return (r);

func fact@0(n: felt252) -> (felt252);
`

func TestStatisticsDetectorReportsRecursion(t *testing.T) {
	ctx := buildContext(t, recursiveDetectorProgram)
	d := NewStatisticsDetector()
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "recursive functions: fact")
	assert.Contains(t, report, "functions: 1")
}

const isZeroProgram = `
libfunc felt252_is_zero = felt252_is_zero;

felt252_is_zero(v0) -> { 1: (), 2: (v1) };
return (v0);
return (v1);

func check@0(v0: felt252) -> (felt252);
`

func TestTestsDetectorReportsOnePathPerBranch(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	ctx := buildContext(t, isZeroProgram)
	d := NewTestsDetector()
	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "check")
	assert.Contains(t, report, "completed")
}

func TestRegistryRunsInRegistrationOrder(t *testing.T) {
	ctx := buildContext(t, additionProgram)
	r := NewRegistry()
	r.Register(NewFunctionsDetector())
	r.Register(NewStatisticsDetector())
	report := r.RunAll(ctx)
	require.Len(t, report.Segments, 2)
	assert.Equal(t, "functions", report.Segments[0].DetectorID)
	assert.Equal(t, "statistics", report.Segments[1].DetectorID)
}

func TestRegistryRunSelectedReportsUnknownID(t *testing.T) {
	ctx := buildContext(t, additionProgram)
	r := NewRegistry()
	r.Register(NewFunctionsDetector())
	report := r.RunSelected(ctx, []string{"functions", "does_not_exist"})
	require.Len(t, report.Segments, 2)
	assert.Equal(t, "functions", report.Segments[0].DetectorID)
	assert.Equal(t, "does_not_exist", report.Segments[1].DetectorID)
	assert.Error(t, report.Segments[1].Err)
}
