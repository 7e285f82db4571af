package decompiler

import (
	"strconv"
	"strings"

	"github.com/fatih/color"

	"sierrascan/internal/cfg"
	"sierrascan/internal/region"
	"sierrascan/internal/sierra"
)

// Render produces the pseudo-source rendering of one function's body
// by walking its recovered region tree rather than the raw
// block/edge graph: If/IfElse/Loop regions become real nested braces
// and a Straight region becomes a flat statement run. Purely
// structural statements (the branching invocation that a block ends
// on) are never printed on their own; the nesting they produced
// already says what they meant.
//
// Loop bodies are rendered as "loop { if (cond) { break } ...body }";
// this is a readable approximation, not a claim that the break's
// sense always matches the header's true/false wiring — pseudo-source
// output is for a human reader, not for recompilation.
func Render(fn *Function, verbose, useColor bool) string {
	prev := color.NoColor
	color.NoColor = !useColor
	defer func() { color.NoColor = prev }()

	var b strings.Builder
	renderRegion(&b, fn.Region, 1, verbose)
	return b.String()
}

var (
	returnColor = color.New(color.FgRed).SprintFunc()
	ifColor     = color.New(color.FgMagenta).SprintFunc()
	elseColor   = color.New(color.FgMagenta).SprintFunc()
	loopColor   = color.New(color.FgMagenta).SprintFunc()
	callColor   = color.New(color.FgBlue).SprintFunc()
)

func renderRegion(b *strings.Builder, r *region.Region, indent int, verbose bool) {
	if r == nil {
		return
	}
	tabs := strings.Repeat("\t", indent)
	// condPrefix prints a condition block's statements, leaving out the
	// branching invocation it ends on when it has more than one edge.
	condPrefix := func(block *cfg.BasicBlock, indent int) {
		if len(block.Edges) < 2 {
			renderBlockBody(b, block, indent, verbose)
			return
		}
		pad := strings.Repeat("\t", indent)
		for _, stmt := range block.Statements[:len(block.Statements)-1] {
			if line := FormatStatement(stmt, verbose); line != "" {
				b.WriteString(pad + line + "\n")
			}
		}
	}
	switch r.Kind {
	case region.KindStraight:
		for _, block := range r.Blocks {
			renderBlockBody(b, block, indent, verbose)
		}
		for _, target := range r.Goto {
			b.WriteString(tabs + "goto " + strconv.Itoa(target) + ";\n")
		}
		renderRegion(b, r.Next, indent, verbose)

	case region.KindIfElse:
		cond := r.Cond.Last()
		condPrefix(r.Cond, indent)
		b.WriteString(tabs + ifColor("if") + " (" + formatCondition(cond) + ") {\n")
		renderRegion(b, r.Then, indent+1, verbose)
		if r.Else != nil {
			b.WriteString(tabs + "} " + elseColor("else") + " {\n")
			renderRegion(b, r.Else, indent+1, verbose)
		}
		b.WriteString(tabs + "}\n")
		renderRegion(b, r.Next, indent, verbose)

	case region.KindLoop:
		b.WriteString(tabs + loopColor("loop") + " {\n")
		condPrefix(r.Cond, indent+1)
		b.WriteString(tabs + "\t" + ifColor("if") + " (" + formatCondition(r.Cond.Last()) + ") {\n")
		b.WriteString(tabs + "\t\tbreak;\n")
		b.WriteString(tabs + "\t}\n")
		renderRegion(b, r.Body, indent+1, verbose)
		b.WriteString(tabs + "}\n")
		renderRegion(b, r.Next, indent, verbose)
	}
}

// renderBlockBody prints a block's statements, skipping only the
// trailing statement when it is a pure unconditional jump (no data
// bound on its edge) — the region nesting already encodes that jump.
func renderBlockBody(b *strings.Builder, block *cfg.BasicBlock, indent int, verbose bool) {
	tabs := strings.Repeat("\t", indent)
	stmts := block.Statements
	skipLast := len(block.Edges) == 1 && block.Edges[0].Kind == cfg.EdgeUnconditional
	for i, stmt := range stmts {
		if skipLast && i == len(stmts)-1 {
			continue
		}
		if line := FormatStatement(stmt, verbose); line != "" {
			b.WriteString(tabs + line + "\n")
		}
	}
}

// FormatStatement renders a single statement as pseudo-source: "vars =
// libfunc(args)" for an invocation, "return (vars)" for a return.
// Drop/store_temp/branch_align/disable_ap_tracking bookkeeping
// invocations are suppressed unless verbose. In non-verbose mode a
// handful of libfunc families get a more specific, expression-like
// rendering than a raw call (arithmetic as an infix operator, dup as a
// tuple, a const as its bare literal with a decoded-string comment
// when applicable); verbose mode always shows the underlying call.
func FormatStatement(stmt *sierra.Statement, verbose bool) string {
	if stmt.IsReturn() {
		return returnColor("return") + " (" + strings.Join(stmt.Return.Args, ", ") + ")"
	}
	inv := stmt.Invocation
	id := inv.LibfuncID.String()
	if Suppressed(id, verbose) {
		return ""
	}
	results := inv.Results
	if len(results) == 0 && len(inv.Branches) == 1 {
		results = inv.Branches[0].Results
	}

	assign := func(expr string) string {
		if len(results) == 0 {
			return expr
		}
		return strings.Join(results, ", ") + " = " + expr
	}

	if !verbose {
		if op, ok := ArithmeticOperator(id); ok && len(inv.Args) == 2 {
			return assign(inv.Args[0] + " " + op + " " + inv.Args[1])
		}
		if IsDup(id) && len(inv.Args) == 1 {
			return assign("(" + inv.Args[0] + ", " + inv.Args[0] + ")")
		}
		if IsRename(id) && len(inv.Args) == 1 {
			return assign(inv.Args[0])
		}
		if literal, ok := ConstValue(id); ok {
			line := assign(literal)
			if text, ok := DecodedString(id); ok {
				line += ` // "` + text + `"`
			}
			return line
		}
	}

	call := callColor(id) + "(" + strings.Join(inv.Args, ", ") + ")"
	return assign(call)
}

// formatCondition renders a two-way branch's discriminating
// invocation as a boolean expression, special-casing the felt/uint
// is_zero family to read as a plain equality rather than a raw call.
func formatCondition(stmt *sierra.Statement) string {
	if stmt == nil || stmt.Invocation == nil {
		return ""
	}
	id := stmt.Invocation.LibfuncID.String()
	args := strings.Join(stmt.Invocation.Args, ", ")
	if IsZeroCheck(id) {
		return args + " == 0"
	}
	return callColor(id) + "(" + args + ") == 0"
}
