package detector

import (
	"fmt"
	"regexp"
	"strings"

	"sierrascan/internal/sierra"
)

// defaultLibraryCallPattern matches Starknet's dynamic-dispatch
// libfuncs (library_call_syscall and friends), the callsites this
// detector is trying to flag when their target class hash is
// attacker-controlled.
var defaultLibraryCallPattern = regexp.MustCompile(`library_call`)

// ControlledLibraryCallConfig lets a caller widen or narrow which
// libfunc ids count as a library-call dispatch site, mirroring
// FeltOverflowConfig's configurable sanitizer set: the set of
// dynamic-dispatch libfuncs a given Cairo compiler version emits is
// not fixed, so this is a policy knob rather than a hardcoded list.
type ControlledLibraryCallConfig struct {
	// LibraryCallPattern, when non-nil, replaces the default
	// "library_call" substring match.
	LibraryCallPattern *regexp.Regexp
}

// ControlledLibraryCallDetector flags library-call dispatch sites
// whose target argument is data-dependent on one of the function's own
// parameters: taint is seeded at the parameters and propagated forward
// through SSA defs (dup, rename, store_temp, arithmetic, and user
// calls) up to the dispatch site. Intentionally shallow: one function
// at a time, no inter-procedural tracking.
type ControlledLibraryCallDetector struct {
	pattern *regexp.Regexp
}

func NewControlledLibraryCallDetector(cfg ControlledLibraryCallConfig) *ControlledLibraryCallDetector {
	p := cfg.LibraryCallPattern
	if p == nil {
		p = defaultLibraryCallPattern
	}
	return &ControlledLibraryCallDetector{pattern: p}
}

func (d *ControlledLibraryCallDetector) ID() string   { return "controlled_library_call" }
func (d *ControlledLibraryCallDetector) Name() string { return "Controlled Library Call" }
func (d *ControlledLibraryCallDetector) Kind() Kind   { return KindSecurity }
func (d *ControlledLibraryCallDetector) Description() string {
	return "Flags dynamic dispatch (library_call) sites whose target argument traces back to a function parameter."
}

func (d *ControlledLibraryCallDetector) Run(ctx *Context) (string, error) {
	var lines []string
	for _, f := range ctx.Decompiler.Functions {
		tainted := map[string]string{} // var -> originating parameter name
		for _, p := range f.Decl.Params {
			tainted[p.Name] = p.Name
		}
		for offset := f.Decl.StartOffset; offset < f.Decl.EndOffset && offset < len(ctx.Program.Statements); offset++ {
			stmt := ctx.Program.Statements[offset]
			if stmt.Invocation == nil {
				continue
			}
			inv := stmt.Invocation
			id := inv.LibfuncID.String()

			source, argTainted := taintedSource(inv.Args, tainted)

			if d.pattern.MatchString(id) && argTainted {
				lines = append(lines, fmt.Sprintf(
					"%s: offset %d: library call %s uses argument derived from parameter %q",
					f.Decl.ID, offset, id, source))
			}

			if argTainted {
				for _, r := range invocationResults(inv) {
					tainted[r] = source
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// taintedSource reports whether any of args is a tainted variable, and
// which parameter it traces back to.
func taintedSource(args []string, tainted map[string]string) (string, bool) {
	for _, a := range args {
		if src, ok := tainted[a]; ok {
			return src, true
		}
	}
	return "", false
}

// invocationResults returns the SSA variables an invocation binds:
// either its own Results, or (for a branching invocation with no
// top-level Results) the single branch's Results when there is only
// one branch to bind them from.
func invocationResults(inv *sierra.Invocation) []string {
	if len(inv.Results) > 0 {
		return inv.Results
	}
	if len(inv.Branches) == 1 {
		return inv.Branches[0].Results
	}
	return nil
}
