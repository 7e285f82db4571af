package sierra

import (
	"sort"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
)

var sierraParser = participle.MustBuild[astProgram](
	participle.Lexer(sierraLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)

// Parse turns Sierra program text into a Program, or a *ParseError /
// *ModelError describing why it could not.
func Parse(filename, source string) (*Program, error) {
	ast, err := sierraParser.ParseString(filename, source)
	if err != nil {
		at := filename
		if pe, ok := err.(participle.Error); ok {
			pos := pe.Position()
			at = pos.String()
		}
		return nil, &ParseError{Kind: ParseErrorSyntax, At: at, Err: err}
	}
	return build(ast)
}

func build(p *astProgram) (*Program, error) {
	prog := &Program{}

	for _, t := range p.Types {
		prog.TypeDeclarations = append(prog.TypeDeclarations, &TypeDeclaration{
			ID:         longIDString(t.Name),
			LongID:     lowerLongID(t.Long),
			Attributes: t.Attrs,
		})
	}

	for _, l := range p.Libfuncs {
		prog.LibfuncDeclarations = append(prog.LibfuncDeclarations, &LibfuncDeclaration{
			ID:     longIDString(l.Name),
			LongID: lowerLongID(l.Long),
		})
	}

	for i, s := range p.Stmts {
		stmt, err := lowerStatement(i, s)
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}

	for _, f := range p.Functions {
		fn, err := lowerFunc(f)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}

	if err := resolveFunctionRanges(prog); err != nil {
		return nil, err
	}

	return prog, nil
}

func longIDString(l *astLongID) string {
	id := lowerLongID(l)
	return id.String()
}

func lowerLongID(l *astLongID) LongID {
	if l == nil {
		return LongID{}
	}
	out := LongID{Name: l.Name}
	for _, a := range l.Args {
		out.Args = append(out.Args, lowerArg(a))
	}
	return out
}

func lowerArg(a *astArg) GenericArg {
	switch {
	case a.Long != nil:
		long := lowerLongID(a.Long)
		return GenericArg{Type: &long}
	case a.UserCall != nil:
		return GenericArg{User: a.UserCall.Left + "@" + a.UserCall.Right}
	default:
		v := ""
		if a.Int != nil {
			v = *a.Int
		}
		return GenericArg{Value: v}
	}
}

func lowerStatement(offset int, s *astStatement) (*Statement, error) {
	if s.Return != nil {
		return &Statement{Offset: offset, Return: &Return{Args: s.Return.Vars}}, nil
	}
	inv := s.Invoke
	branches, err := lowerBranches(offset, inv)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Offset: offset,
		Invocation: &Invocation{
			Results:   inv.Results,
			LibfuncID: lowerLongID(inv.Libfunc),
			Args:      inv.Args,
			Branches:  branches,
		},
	}, nil
}

func lowerBranches(offset int, inv *astInvoke) ([]Branch, error) {
	if inv.Branches == nil {
		return []Branch{{Target: EdgeTarget{Fallthrough: true}, Results: inv.Results}}, nil
	}
	if inv.Branches.Single != nil {
		t, err := lowerTarget(offset, inv.Branches.Single)
		if err != nil {
			return nil, err
		}
		return []Branch{{Target: t, Results: inv.Results}}, nil
	}
	var out []Branch
	for _, b := range inv.Branches.Multiple {
		t, err := lowerTarget(offset, b.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, Branch{Target: t, Results: b.Results})
	}
	return out, nil
}

func lowerTarget(offset int, t *astBranchTarget) (EdgeTarget, error) {
	if t.Fallthrough {
		return EdgeTarget{Fallthrough: true}, nil
	}
	n, err := strconv.Atoi(*t.Offset)
	if err != nil {
		return EdgeTarget{}, &ParseError{
			Kind: ParseErrorBadOffset,
			At:   strconv.Itoa(offset),
			Err:  errors.Wrapf(err, "branch target %q", *t.Offset),
		}
	}
	return EdgeTarget{Offset: n}, nil
}

func lowerFunc(f *astFuncDecl) (*Function, error) {
	entry, err := strconv.Atoi(f.Entry)
	if err != nil {
		return nil, &ParseError{Kind: ParseErrorBadFunction, At: f.Name, Err: err}
	}
	fn := &Function{ID: f.Name, EntryOffset: entry, ReturnTypes: f.Returns}
	for _, p := range f.Params {
		fn.Params = append(fn.Params, Param{Name: p.Name, Type: p.Type})
	}
	return fn, nil
}

// resolveFunctionRanges assigns StartOffset/EndOffset: functions are
// ordered by entry offset, and each one's range runs up to the next
// function's entry (or the end of the statement list for the last).
func resolveFunctionRanges(prog *Program) error {
	fns := make([]*Function, len(prog.Functions))
	copy(fns, prog.Functions)
	sort.Slice(fns, func(i, j int) bool { return fns[i].EntryOffset < fns[j].EntryOffset })

	for i, fn := range fns {
		fn.StartOffset = fn.EntryOffset
		if i+1 < len(fns) {
			fn.EndOffset = fns[i+1].EntryOffset
		} else {
			fn.EndOffset = len(prog.Statements)
		}
		if fn.StartOffset < 0 || fn.StartOffset > len(prog.Statements) {
			return &ModelError{Context: fn.ID, Err: errors.Errorf("entry offset %d out of range (0..%d)", fn.StartOffset, len(prog.Statements))}
		}
	}
	return nil
}
