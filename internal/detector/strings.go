package detector

import (
	"fmt"
	"strings"

	"sierrascan/internal/decompiler"
)

// StringsDetector collects every short-string constant the program
// decodes via a felt-typed const invocation, grouped by the function
// that references it.
type StringsDetector struct{}

func NewStringsDetector() *StringsDetector {
	return &StringsDetector{}
}

func (d *StringsDetector) ID() string          { return "strings" }
func (d *StringsDetector) Name() string        { return "Strings" }
func (d *StringsDetector) Kind() Kind          { return KindInformational }
func (d *StringsDetector) Description() string {
	return "Lists short-string (felt252) constants decoded from the program's constant libfuncs."
}

func (d *StringsDetector) Run(ctx *Context) (string, error) {
	var lines []string
	for _, f := range ctx.Decompiler.Functions {
		for offset := f.Decl.StartOffset; offset < f.Decl.EndOffset && offset < len(ctx.Program.Statements); offset++ {
			stmt := ctx.Program.Statements[offset]
			if stmt.Invocation == nil {
				continue
			}
			s, ok := decompiler.DecodedString(stmt.Invocation.LibfuncID.String())
			if !ok || s == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %q", f.Decl.ID, s))
		}
	}
	return strings.Join(lines, "\n"), nil
}
