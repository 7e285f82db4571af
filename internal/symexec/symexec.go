// Package symexec performs bounded, intra-procedural symbolic
// execution of a single Sierra function whose parameters are all
// felt252 values. It enumerates feasible paths by forking at
// felt252_is_zero checks, delegating satisfiability to internal/smt,
// and reports a concrete parameter assignment per completed path.
//
// Field elements are approximated as 252-bit unsigned bit-vectors
// rather than true arithmetic mod the Stark prime: internal/smt only
// exposes a bit-vector theory, and felt252_add/sub/mul wrap modulo
// 2^252 with no reduction by the prime. A path condition whose
// solutions depend on that wraparound (e.g. x + 1 == 0) yields a model
// for the bit-vector semantics, which is not the field solution.
package symexec

import (
	"math/big"

	"github.com/pkg/errors"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"sierrascan/internal/decompiler"
	"sierrascan/internal/sierra"
	"sierrascan/internal/smt"
)

// FeltBits is the bit-vector width used to model felt252 values.
const FeltBits = 252

// DefaultLoopBound is K, the per-edge traversal cap a path may spend
// before it is abandoned as LoopBoundReached.
const DefaultLoopBound = 3

// Status classifies how a path's exploration ended.
type Status string

const (
	StatusCompleted        Status = "completed"
	StatusUnsupported      Status = "unsupported"
	StatusLoopBoundReached Status = "loop_bound_reached"
)

// Path is one feasible (or partially explored) execution recovered
// from a function: a concrete model for the function's parameters,
// the final return expression when the path reached one, and how
// exploration ended.
type Path struct {
	Status       Status
	Model        map[string]*big.Int
	ReturnValues []string
	Reason       string // libfunc id, set when Status is StatusUnsupported
}

// Executor runs bounded symbolic execution over one function.
type Executor struct {
	Program   *sierra.Program
	Function  *sierra.Function
	LoopBound int

	byOffset map[int]*sierra.Statement
}

// New builds an Executor for fn. Callers are expected to have checked
// decompiler.Function.Felt252Only(fn) first — Run does not re-derive
// that precondition, matching "for a function whose parameters are
// exclusively field elements" in this package's contract.
func New(prog *sierra.Program, fn *sierra.Function) *Executor {
	byOffset := make(map[int]*sierra.Statement, len(prog.Statements))
	for _, s := range prog.Statements {
		byOffset[s.Offset] = s
	}
	return &Executor{Program: prog, Function: fn, LoopBound: DefaultLoopBound, byOffset: byOffset}
}

type edgeKey struct{ from, to int }

// frame is one in-flight exploration state: the statement offset to
// execute next, the SSA variable bindings accumulated so far, the
// path condition, and a per-edge visit counter enforcing the loop
// bound.
type frame struct {
	offset     int
	vars       map[string]*smt.BitVec
	conditions []*smt.Bool
	edgeVisits map[edgeKey]int
}

func (f *frame) clone() *frame {
	vars := make(map[string]*smt.BitVec, len(f.vars))
	for k, v := range f.vars {
		vars[k] = v
	}
	edgeVisits := make(map[edgeKey]int, len(f.edgeVisits))
	for k, v := range f.edgeVisits {
		edgeVisits[k] = v
	}
	conditions := make([]*smt.Bool, len(f.conditions))
	copy(conditions, f.conditions)
	return &frame{offset: f.offset, vars: vars, conditions: conditions, edgeVisits: edgeVisits}
}

// Run enumerates every feasible path through Function up to the loop
// bound, in the order they complete. It drives a DFS worklist of
// frames, forking at each felt252_is_zero branch and folding every
// other statement's effect into the current frame's solver state.
func (e *Executor) Run() ([]*Path, error) {
	start := &frame{
		offset:     e.Function.EntryOffset,
		vars:       map[string]*smt.BitVec{},
		edgeVisits: map[edgeKey]int{},
	}
	for _, p := range e.Function.Params {
		start.vars[p.Name] = smt.NewBitVec(p.Name, FeltBits)
	}

	worklist := []*frame{start}
	var results []*Path
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		stmt := e.byOffset[cur.offset]
		if stmt == nil {
			return nil, errors.Errorf("symexec: offset %d has no statement in function %s", cur.offset, e.Function.ID)
		}

		if stmt.IsReturn() {
			if path, ok, err := e.finish(cur, StatusCompleted, "", stmt.Return.Args); err != nil {
				return nil, err
			} else if ok {
				results = append(results, path)
			}
			continue
		}

		next, unsupported := e.step(cur, stmt.Invocation)
		if unsupported != "" {
			if path, ok, err := e.finish(cur, StatusUnsupported, unsupported, nil); err != nil {
				return nil, err
			} else if ok {
				results = append(results, path)
			}
			continue
		}

		for _, n := range next {
			key := edgeKey{cur.offset, n.offset}
			n.edgeVisits[key]++
			if n.edgeVisits[key] > e.LoopBound {
				if path, ok, err := e.finish(cur, StatusLoopBoundReached, "", nil); err != nil {
					return nil, err
				} else if ok {
					results = append(results, path)
				}
				continue
			}
			sat, _, err := e.check(n.conditions)
			if err != nil {
				return nil, err
			}
			if !sat {
				continue
			}
			worklist = append(worklist, n)
		}
	}
	return results, nil
}

// step executes one non-return statement, returning the successor
// frame(s) it forks into. A non-empty unsupported return value is the
// libfunc id that aborted the path, per the Unsupported(libfunc_id)
// reason this package's contract requires.
func (e *Executor) step(cur *frame, inv *sierra.Invocation) (next []*frame, unsupported string) {
	id := inv.LibfuncID.String()
	name := inv.LibfuncID.Name

	switch {
	case name == "felt252_add" || name == "felt252_sub" || name == "felt252_mul":
		op, _ := decompiler.ArithmeticOperator(id)
		a, b := e.operands(cur, inv.Args)
		n := cur.clone()
		n.vars[singleResult(inv)] = applyOp(op, a, b)
		n.offset = singleTarget(cur.offset, inv)
		return []*frame{n}, ""

	case name == "felt252_is_zero":
		val := e.lastOperand(cur, inv.Args)
		return e.forkIsZero(cur, inv, val), ""

	case decompiler.IsDup(id):
		v := e.lastOperand(cur, inv.Args)
		n := cur.clone()
		for _, r := range resultsOf(inv) {
			n.vars[r] = v
		}
		n.offset = singleTarget(cur.offset, inv)
		return []*frame{n}, ""

	case decompiler.IsRename(id), name == "drop", name == "branch_align":
		n := cur.clone()
		if len(inv.Args) > 0 {
			v := e.lastOperand(cur, inv.Args)
			for _, r := range resultsOf(inv) {
				n.vars[r] = v
			}
		}
		n.offset = singleTarget(cur.offset, inv)
		return []*frame{n}, ""

	case name == "const_as_immediate":
		n := cur.clone()
		if val, ok := decompiler.ConstValue(id); ok {
			if lit, ok := new(big.Int).SetString(val, 10); ok {
				n.vars[singleResult(inv)] = smt.NewBitVecVal(lit, FeltBits)
			}
		}
		n.offset = singleTarget(cur.offset, inv)
		return []*frame{n}, ""

	default:
		if _, ok := decompiler.UserFunctionName(id); ok {
			n := cur.clone()
			for _, r := range resultsOf(inv) {
				n.vars[r] = smt.NewBitVec(r, FeltBits)
			}
			n.offset = singleTarget(cur.offset, inv)
			return []*frame{n}, ""
		}
		return nil, id
	}
}

func resultsOf(inv *sierra.Invocation) []string {
	if len(inv.Results) > 0 {
		return inv.Results
	}
	if len(inv.Branches) == 1 {
		return inv.Branches[0].Results
	}
	return nil
}

func singleResult(inv *sierra.Invocation) string {
	r := resultsOf(inv)
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// singleTarget returns the successor offset of a single-branch
// invocation, resolving Fallthrough against the statement's own
// offset. Run never calls this for a multi-branch invocation.
func singleTarget(offset int, inv *sierra.Invocation) int {
	if len(inv.Branches) == 0 {
		return -1
	}
	target := inv.Branches[0].Target
	if target.Fallthrough {
		return offset + 1
	}
	return target.Offset
}

// forkIsZero builds one successor frame per branch of a
// felt252_is_zero check: branch 0 is taken when the value is zero (no
// bound result), every later branch when it is non-zero (the value
// flows through unchanged into that branch's result, when it declares
// one).
func (e *Executor) forkIsZero(cur *frame, inv *sierra.Invocation, val *smt.BitVec) []*frame {
	zero := smt.NewBitVecValFromInt64(0, FeltBits)
	out := make([]*frame, 0, len(inv.Branches))
	for i, br := range inv.Branches {
		n := cur.clone()
		if br.Target.Fallthrough {
			n.offset = cur.offset + 1
		} else {
			n.offset = br.Target.Offset
		}
		if i == 0 {
			n.conditions = append(n.conditions, val.Eq(zero))
		} else {
			n.conditions = append(n.conditions, val.Ne(zero))
			if len(br.Results) > 0 {
				n.vars[br.Results[0]] = val
			}
		}
		out = append(out, n)
	}
	return out
}

// operands recovers the two value arguments of a felt252 arithmetic
// invocation. Cairo's calling convention places any builtin reference
// (e.g. range_check) before the value operands, so the last two args
// are always the ones this package cares about.
func (e *Executor) operands(cur *frame, args []string) (*smt.BitVec, *smt.BitVec) {
	if len(args) < 2 {
		zero := smt.NewBitVecValFromInt64(0, FeltBits)
		return zero, zero
	}
	return e.lookup(cur, args[len(args)-2]), e.lookup(cur, args[len(args)-1])
}

func (e *Executor) lastOperand(cur *frame, args []string) *smt.BitVec {
	if len(args) == 0 {
		return smt.NewBitVecValFromInt64(0, FeltBits)
	}
	return e.lookup(cur, args[len(args)-1])
}

func (e *Executor) lookup(cur *frame, name string) *smt.BitVec {
	if v, ok := cur.vars[name]; ok {
		return v
	}
	return smt.NewBitVec(name, FeltBits)
}

func applyOp(op string, a, b *smt.BitVec) *smt.BitVec {
	switch op {
	case "+":
		return a.Add(b)
	case "-":
		return a.Sub(b)
	case "*":
		return a.Mul(b)
	default:
		return a
	}
}

// check asserts conditions against a fresh solver scope and reports
// satisfiability plus the model yices produced, when sat. Each call
// gets its own Solver rather than a shared, incrementally asserted
// one, so a path abandoned as unsat never leaves assertions behind
// for the sibling path explored next.
func (e *Executor) check(conditions []*smt.Bool) (bool, *yices2.ModelT, error) {
	if len(conditions) == 0 {
		return true, nil, nil
	}
	solver := smt.NewSolver()
	terms := make([]yices2.TermT, len(conditions))
	for i, c := range conditions {
		terms[i] = c.GetRaw()
	}
	status, model, err := solver.Check(terms...)
	if err != nil {
		return false, nil, errors.Wrap(err, "symexec: solver check")
	}
	return status == yices2.StatusSat, model, nil
}

// finish validates a frame's accumulated path condition one last time
// and, when sat, builds the Path result with the model restricted to
// the function's declared parameters.
func (e *Executor) finish(cur *frame, status Status, reason string, returnArgs []string) (*Path, bool, error) {
	sat, model, err := e.check(cur.conditions)
	if err != nil {
		return nil, false, err
	}
	if !sat {
		return nil, false, nil
	}
	values := map[string]*big.Int{}
	for _, p := range e.Function.Params {
		v, ok := cur.vars[p.Name]
		if !ok {
			continue
		}
		values[p.Name] = concreteValue(model, v)
	}
	return &Path{Status: status, Reason: reason, Model: values, ReturnValues: returnArgs}, true, nil
}

// concreteValue reads a bit-vector's value out of a satisfying model,
// or its own constant value when it was never symbolic to begin with
// (e.g. bound directly to a const_as_immediate literal).
func concreteValue(model *yices2.ModelT, v *smt.BitVec) *big.Int {
	if !v.IsSymbolic() {
		return v.GetBigInt()
	}
	if model == nil {
		return big.NewInt(0)
	}
	return smt.GetBitVecTermValue(model, v.GetRaw())
}
