// Package detector implements the static-analysis pass surface: a
// registry of named, pure analyses that each consume the decompiler's
// recovered program state and emit a textual report segment.
//
// A registry holds detectors in registration order and drives them
// uniformly; each detector exposes a small identity surface (id, name,
// description, kind) plus a single Run(*Context) call that returns its
// findings as text.
package detector

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sierrascan/internal/callgraph"
	"sierrascan/internal/decompiler"
	"sierrascan/internal/sierra"
)

// Kind classifies what a detector's findings are for.
type Kind string

const (
	KindInformational Kind = "informational"
	KindSecurity       Kind = "security"
	KindTesting        Kind = "testing"
)

// ErrUnknownDetector marks a Segment.Err produced by a --detector-names
// entry that names no registered detector, distinct from a detector's
// own runtime failure — callers use it to tell a bad CLI argument apart
// from an actual analysis failure.
var ErrUnknownDetector = errors.New("detector: unknown detector id")

// Context is the analyzed program state every detector receives: the
// parsed program, its recovered decompiler state (CFG, regions,
// rendered statements), and the call graph built over it.
type Context struct {
	Program    *sierra.Program
	Decompiler *decompiler.Decompiler
	CallGraph  *callgraph.CallGraph
}

// Detector is a named, pure analysis over a Context.
type Detector interface {
	ID() string
	Name() string
	Description() string
	Kind() Kind
	Run(ctx *Context) (string, error)
}

// Segment is one detector's contribution to a Report: either its
// textual findings, or the error it raised. A detector failure never
// aborts the run — it is captured and reported alongside the
// detectors that did succeed.
type Segment struct {
	DetectorID string
	Name       string
	Kind       Kind
	Body       string
	Err        error
}

// Report is the ordered output of running a set of detectors:
// registration order in, segment order out.
type Report struct {
	Segments []Segment
}

// String renders the report the way the CLI prints it: one
// "== Name (id) ==" header per detector, in order, errors surfaced inline
// rather than swallowed.
func (r *Report) String() string {
	var b strings.Builder
	for i, seg := range r.Segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "== %s (%s) ==\n", seg.Name, seg.DetectorID)
		if seg.Err != nil {
			fmt.Fprintf(&b, "error: %v\n", seg.Err)
			continue
		}
		if seg.Body == "" {
			b.WriteString("(no findings)\n")
			continue
		}
		b.WriteString(seg.Body)
		if !strings.HasSuffix(seg.Body, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Registry maps detector id to instance, run in registration order —
// the order a report's segments come out in.
type Registry struct {
	order []string
	byID  map[string]Detector
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]Detector{}}
}

// Register adds a detector to the registry. Registering the same id
// twice replaces the earlier detector but keeps its original
// registration-order slot.
func (r *Registry) Register(d Detector) {
	if _, exists := r.byID[d.ID()]; !exists {
		r.order = append(r.order, d.ID())
	}
	r.byID[d.ID()] = d
}

func (r *Registry) Get(id string) (Detector, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// All returns every registered detector in registration order.
func (r *Registry) All() []Detector {
	out := make([]Detector, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// RunAll runs every registered detector against ctx, in registration
// order.
func (r *Registry) RunAll(ctx *Context) *Report {
	return r.run(ctx, r.order)
}

// RunSelected runs only the named detectors, in registration order
// (not the order they were named in), matching --detector-names'
// documented behavior of restricting rather than reordering the
// suite. Unknown names are reported as a segment-level error rather
// than silently dropped.
func (r *Registry) RunSelected(ctx *Context, ids []string) *Report {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var ordered []string
	for _, id := range r.order {
		if wanted[id] {
			ordered = append(ordered, id)
			delete(wanted, id)
		}
	}
	report := r.run(ctx, ordered)
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			continue
		}
		report.Segments = append(report.Segments, Segment{
			DetectorID: id,
			Name:       id,
			Err:        fmt.Errorf("%w %q", ErrUnknownDetector, id),
		})
	}
	return report
}

func (r *Registry) run(ctx *Context, ids []string) *Report {
	report := &Report{}
	for _, id := range ids {
		d := r.byID[id]
		body, err := runOne(d, ctx)
		report.Segments = append(report.Segments, Segment{
			DetectorID: d.ID(),
			Name:       d.Name(),
			Kind:       d.Kind(),
			Body:       body,
			Err:        err,
		})
	}
	return report
}

// runOne isolates a detector's own panics from the rest of the suite:
// a panicking detector is reported as a failed segment, and the
// remaining detectors still run.
func runOne(d Detector, ctx *Context) (body string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("detector %s panicked: %v", d.ID(), rec)
			err = fmt.Errorf("detector: %s panicked: %v", d.ID(), rec)
		}
	}()
	return d.Run(ctx)
}

// NewDefaultRegistry builds the registry with every built-in detector,
// registered in a fixed order: functions, statistics, strings,
// controlled_library_call, felt_overflow, tests.
func NewDefaultRegistry(feltCfg FeltOverflowConfig, libraryCallCfg ControlledLibraryCallConfig) *Registry {
	r := NewRegistry()
	r.Register(NewFunctionsDetector())
	r.Register(NewStatisticsDetector())
	r.Register(NewStringsDetector())
	r.Register(NewControlledLibraryCallDetector(libraryCallCfg))
	r.Register(NewFeltOverflowDetector(feltCfg))
	r.Register(NewTestsDetector())
	return r
}
