package detector

import (
	"fmt"
	"strings"

	"sierrascan/internal/decompiler"
)

// defaultSanitizerLibfuncs lists libfuncs whose result is treated as
// range-checked and no longer overflow-prone: the *_overflowing_*
// variants Cairo emits when a program has already asked for an
// overflow-checked operation.
var defaultSanitizerLibfuncs = []string{
	"u8_overflowing_add", "u8_overflowing_sub", "u8_overflowing_mul",
	"u16_overflowing_add", "u16_overflowing_sub", "u16_overflowing_mul",
	"u32_overflowing_add", "u32_overflowing_sub", "u32_overflowing_mul",
	"u64_overflowing_add", "u64_overflowing_sub", "u64_overflowing_mul",
	"u128_overflowing_add", "u128_overflowing_sub", "u128_overflowing_mul",
	"felt252_overflowing_add", "felt252_overflowing_sub", "felt252_overflowing_mul",
}

// FeltOverflowConfig makes the sanitizer libfunc set configurable
// rather than hardcoded, since which libfuncs a given Cairo compiler
// version emits for a checked operation is not something this
// toolkit can assume stays fixed across versions.
type FeltOverflowConfig struct {
	// SanitizerLibfuncs, when non-nil, replaces the default set of
	// libfunc names treated as producing an already-range-checked
	// (and therefore non-overflowing) result.
	SanitizerLibfuncs []string
}

// FeltOverflowDetector flags felt252/uint arithmetic whose operand
// traces back to a function parameter without passing through a
// sanitizing (overflow-checked) libfunc first.
type FeltOverflowDetector struct {
	sanitizers map[string]bool
}

func NewFeltOverflowDetector(cfg FeltOverflowConfig) *FeltOverflowDetector {
	names := cfg.SanitizerLibfuncs
	if names == nil {
		names = defaultSanitizerLibfuncs
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &FeltOverflowDetector{sanitizers: set}
}

func (d *FeltOverflowDetector) ID() string   { return "felt_overflow" }
func (d *FeltOverflowDetector) Name() string { return "Felt/Integer Overflow" }
func (d *FeltOverflowDetector) Kind() Kind   { return KindSecurity }
func (d *FeltOverflowDetector) Description() string {
	return "Flags arithmetic operations whose operand traces back to a function parameter without an intervening overflow check."
}

func (d *FeltOverflowDetector) Run(ctx *Context) (string, error) {
	var lines []string
	for _, f := range ctx.Decompiler.Functions {
		feltParams := map[string]bool{}
		for _, name := range f.Felt252Params() {
			feltParams[name] = true
		}
		// unsanitized[v] tracks a variable still carrying an
		// unchecked parameter's taint; a variable leaves this set the
		// moment it passes through a sanitizer libfunc.
		unsanitized := map[string]bool{}
		for name := range feltParams {
			unsanitized[name] = true
		}

		for offset := f.Decl.StartOffset; offset < f.Decl.EndOffset && offset < len(ctx.Program.Statements); offset++ {
			stmt := ctx.Program.Statements[offset]
			if stmt.Invocation == nil {
				continue
			}
			inv := stmt.Invocation
			id := inv.LibfuncID.String()
			name := inv.LibfuncID.Name

			if d.sanitizers[name] {
				for _, r := range invocationResults(inv) {
					unsanitized[r] = false
				}
				continue
			}

			if op, ok := decompiler.ArithmeticOperator(id); ok {
				flaggedArg := ""
				for _, a := range inv.Args {
					if unsanitized[a] {
						flaggedArg = a
						break
					}
				}
				if flaggedArg != "" {
					lines = append(lines, fmt.Sprintf(
						"%s: offset %d: %s operation %q on unchecked parameter-derived value %q (confidence: High)",
						f.Decl.ID, offset, arithmeticName(op), id, flaggedArg))
				}
				stillUnsanitized := flaggedArg != ""
				for _, r := range invocationResults(inv) {
					unsanitized[r] = stillUnsanitized
				}
				continue
			}

			// Everything else (dup, rename, store_temp, branch_align,
			// user calls) forwards a still-unsanitized operand to its
			// results, keeping the taint alive across SSA bookkeeping.
			stillUnsanitized := false
			for _, a := range inv.Args {
				if unsanitized[a] {
					stillUnsanitized = true
					break
				}
			}
			for _, r := range invocationResults(inv) {
				unsanitized[r] = stillUnsanitized
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func arithmeticName(op string) string {
	switch op {
	case "+":
		return "addition"
	case "-":
		return "subtraction"
	case "*":
		return "multiplication"
	default:
		return "arithmetic"
	}
}
