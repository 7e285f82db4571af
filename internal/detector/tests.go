package detector

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"sierrascan/internal/symexec"
)

// TestsDetector runs bounded symbolic execution on every function
// whose parameters are all field elements and reports one line per
// discovered feasible path: the detector-suite counterpart of the
// sierra-testgen binary, which drives internal/symexec directly.
type TestsDetector struct{}

func NewTestsDetector() *TestsDetector {
	return &TestsDetector{}
}

func (d *TestsDetector) ID() string   { return "tests" }
func (d *TestsDetector) Name() string { return "Test Case Generation" }
func (d *TestsDetector) Kind() Kind   { return KindTesting }
func (d *TestsDetector) Description() string {
	return "Runs the symbolic executor on each all-felt252 function and reports a parameter model per feasible path."
}

func (d *TestsDetector) Run(ctx *Context) (string, error) {
	var lines []string
	for _, f := range ctx.Decompiler.Functions {
		if !f.Felt252Only() {
			continue
		}
		exec := symexec.New(ctx.Program, f.Decl)
		paths, err := exec.Run()
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: error: %v", f.Decl.ID, err))
			continue
		}
		if len(paths) == 0 {
			lines = append(lines, fmt.Sprintf("%s: no feasible paths found", f.Decl.ID))
			continue
		}
		for i, p := range paths {
			lines = append(lines, fmt.Sprintf("%s: path %d: %s (%s)", f.Decl.ID, i, formatModel(p.Model), p.Status))
			if p.Status == symexec.StatusUnsupported {
				lines[len(lines)-1] += fmt.Sprintf(" [%s]", p.Reason)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// formatModel renders a parameter model deterministically, sorted by
// name, matching this module's output-determinism requirement.
func formatModel(model map[string]*big.Int) string {
	names := make([]string, 0, len(model))
	for name := range model {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%s", name, model[name].String())
	}
	return strings.Join(parts, ", ")
}
