package detector

import (
	"fmt"
	"strings"
)

// FunctionsDetector lists every recovered function's prototype, tagged
// with its dispatch role when the caller supplied entry-point
// bindings (contractclass.EntryPointKinds). Functions with no known
// binding are reported as plain user functions rather than guessed at.
type FunctionsDetector struct {
	// EntryPointKinds maps function id to "Constructor"/"External"/
	// "L1Handler", as produced by contractclass.EntryPointKinds. Left
	// nil, every function is reported unclassified.
	EntryPointKinds map[string]string
}

func NewFunctionsDetector() *FunctionsDetector {
	return &FunctionsDetector{}
}

func (d *FunctionsDetector) ID() string          { return "functions" }
func (d *FunctionsDetector) Name() string        { return "Functions" }
func (d *FunctionsDetector) Kind() Kind          { return KindInformational }
func (d *FunctionsDetector) Description() string {
	return "Lists every function recovered from the program, along with its dispatch role when known."
}

func (d *FunctionsDetector) Run(ctx *Context) (string, error) {
	var lines []string
	for _, f := range ctx.Decompiler.Functions {
		kind, ok := d.EntryPointKinds[f.Decl.ID]
		if !ok {
			kind = "Function"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", kind, f.Prototype()))
	}
	return strings.Join(lines, "\n"), nil
}
