package decompiler

import (
	"strings"

	"sierrascan/internal/cfg"
	"sierrascan/internal/region"
	"sierrascan/internal/sierra"
)

// Function pairs a parsed Sierra function with its recovered control
// flow: the basic-block CFG and the structural region tree built on
// top of it. Both are computed once here and reused by the renderer,
// the call graph builder, detectors, and symbolic execution.
type Function struct {
	Decl   *sierra.Function
	CFG    *cfg.CFG
	Region *region.Region
}

// NewFunction recovers the CFG and region tree for one function.
func NewFunction(prog *sierra.Program, fn *sierra.Function) (*Function, error) {
	g, err := cfg.Build(prog, fn)
	if err != nil {
		return nil, err
	}
	return &Function{Decl: fn, CFG: g, Region: region.Analyze(g)}, nil
}

// Prototype renders "func name(arg: type, ...) -> (type, ...)",
// matching decompile_function_prototype's output shape.
func (f *Function) Prototype() string {
	params := make([]string, len(f.Decl.Params))
	for i, p := range f.Decl.Params {
		params[i] = p.Name + ": " + p.Type
	}
	return "func " + f.Decl.ID + "(" + strings.Join(params, ", ") + ") -> (" + strings.Join(f.Decl.ReturnTypes, ", ") + ")"
}

// Felt252Only reports whether every parameter and return type is
// felt252, the precondition internal/symexec requires before it will
// attempt bounded symbolic execution of a function.
func (f *Function) Felt252Only() bool {
	for _, p := range f.Decl.Params {
		if p.Type != "felt252" {
			return false
		}
	}
	for _, t := range f.Decl.ReturnTypes {
		if t != "felt252" {
			return false
		}
	}
	return len(f.Decl.Params) > 0
}

// Felt252Params returns the names of the function's felt252 parameters
// in declaration order.
func (f *Function) Felt252Params() []string {
	var out []string
	for _, p := range f.Decl.Params {
		if p.Type == "felt252" {
			out = append(out, p.Name)
		}
	}
	return out
}
