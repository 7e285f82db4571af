// Package decompiler renders a parsed Sierra program as pseudo-source:
// one prototype plus a region-tree-driven body per function, with
// type and libfunc declarations included in verbose mode. It is the
// first consumer of internal/cfg and internal/region, and the basis
// internal/callgraph and internal/detector build on.
package decompiler

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sierrascan/internal/sierra"
)

// Decompiler recovers and renders every function in a Sierra program.
type Decompiler struct {
	Program   *sierra.Program
	Functions []*Function
	Verbose   bool
}

// New builds the CFG and region tree for every function declared in
// prog. A function whose statement range cannot be resolved into a
// CFG is reported immediately — the caller gets a single wrapped
// error rather than a partially built decompiler.
func New(prog *sierra.Program, verbose bool) (*Decompiler, error) {
	log.Infof("decompiling %d functions", len(prog.Functions))
	d := &Decompiler{Program: prog, Verbose: verbose}
	for _, fn := range prog.Functions {
		f, err := NewFunction(prog, fn)
		if err != nil {
			return nil, errors.Wrapf(err, "decompiler: function %s", fn.ID)
		}
		d.Functions = append(d.Functions, f)
	}
	return d, nil
}

// FilterFunctions keeps only the functions whose id contains name.
func (d *Decompiler) FilterFunctions(name string) {
	if name == "" {
		return
	}
	var kept []*Function
	for _, f := range d.Functions {
		if strings.Contains(f.Decl.ID, name) {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		log.Warnf("filter %q matched no functions", name)
	}
	d.Functions = kept
}

// Decompile renders the whole program: types and libfunc declarations
// in verbose mode, then every function's prototype and pseudo-source
// body.
func (d *Decompiler) Decompile(useColor bool) string {
	var out strings.Builder
	if d.Verbose {
		out.WriteString(d.decompileTypes())
		out.WriteString("\n\n")
		out.WriteString(d.decompileLibfuncs())
		out.WriteString("\n\n")
	}
	for i, f := range d.Functions {
		if i > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString("// Function " + f.Decl.ID + "\n")
		out.WriteString(f.Prototype() + " {\n")
		out.WriteString(Render(f, d.Verbose, useColor))
		out.WriteString("}\n")
	}
	return out.String()
}

func (d *Decompiler) decompileTypes() string {
	lines := make([]string, len(d.Program.TypeDeclarations))
	for i, t := range d.Program.TypeDeclarations {
		id := t.ID
		if id == "" {
			id = t.LongID.String()
		}
		line := "type " + id
		if longRepr := t.LongID.String(); longRepr != id {
			line += " (" + longRepr + ")"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (d *Decompiler) decompileLibfuncs() string {
	lines := make([]string, len(d.Program.LibfuncDeclarations))
	for i, l := range d.Program.LibfuncDeclarations {
		id := l.ID
		if id == "" {
			id = l.LongID.String()
		}
		lines[i] = "libfunc " + id
	}
	return strings.Join(lines, "\n")
}

// DeclaredLibfuncNames returns every libfunc id declared in the
// program, in declaration order.
func (d *Decompiler) DeclaredLibfuncNames() []string {
	out := make([]string, len(d.Program.LibfuncDeclarations))
	for i, l := range d.Program.LibfuncDeclarations {
		out[i] = l.ID
	}
	return out
}
