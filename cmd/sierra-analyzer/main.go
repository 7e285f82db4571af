// Command sierra-analyzer parses, decompiles, and analyzes a Sierra
// program (or a Starknet contract-class file that embeds one),
// rendering pseudo-source, control-flow/call graphs, and detector
// reports as directed by its flags.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sierrascan/internal/callgraph"
	"sierrascan/internal/contractclass"
	"sierrascan/internal/decompiler"
	"sierrascan/internal/detector"
	"sierrascan/internal/remote"
	"sierrascan/internal/sierra"
)

// errMissingInputSource marks loadInput's "no input source supplied"
// failure, which is an invalid-arguments error rather than a parse/IO
// one: no bytes were ever read.
var errMissingInputSource = errors.New("sierra-analyzer: one of --file, --scarb, or --remote is required")

// Exit codes, per this toolkit's documented CLI contract.
const (
	exitOK              = 0
	exitParseOrIOError  = 1
	exitInvalidArgs     = 2
	exitDetectorFailure = 3
)

var (
	flagFile            string
	flagRemote          string
	flagNetwork         string
	flagNoColor         bool
	flagVerbose         bool
	flagDetectors       bool
	flagDetectorNames   string
	flagDetectorHelp    bool
	flagCFG             bool
	flagCFGOutput       string
	flagCallgraph       bool
	flagCallgraphOutput string
	flagFunction        string
	flagScarb           bool
)

var rootCmd = &cobra.Command{
	Use:           "sierra-analyzer",
	Short:         "Static analysis toolkit for Cairo Sierra programs",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// A malformed or unknown flag is an invalid-arguments failure, not
	// the generic parse/IO fallback exitCodeFor otherwise assigns.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &cliError{code: exitInvalidArgs, err: err}
	})

	flags := rootCmd.Flags()
	flags.StringVarP(&flagFile, "file", "f", "", "local Sierra or contract-class file")
	flags.StringVar(&flagRemote, "remote", "", "contract class identifier to fetch")
	flags.StringVar(&flagNetwork, "network", "mainnet", "network to fetch from (mainnet, sepolia)")
	flags.BoolVar(&flagNoColor, "no-color", false, "plain text output")
	flags.BoolVar(&flagVerbose, "verbose", false, "emit libfunc prototypes, types, and raw statement offsets")
	flags.BoolVarP(&flagDetectors, "detectors", "d", false, "run all registered detectors")
	flags.StringVar(&flagDetectorNames, "detector-names", "", "restrict to a comma-separated list of detectors")
	flags.BoolVar(&flagDetectorHelp, "detector-help", false, "list registered detectors")
	flags.BoolVar(&flagCFG, "cfg", false, "emit per-function CFG in DOT")
	flags.StringVar(&flagCFGOutput, "cfg-output", "./output_cfg", "directory to write CFG DOT files")
	flags.BoolVar(&flagCallgraph, "callgraph", false, "emit call graph in DOT")
	flags.StringVar(&flagCallgraphOutput, "callgraph-output", "./output_callgraph", "directory to write the call graph DOT file")
	flags.StringVar(&flagFunction, "function", "", "restrict CFG/callgraph/decompiled output to one function")
	flags.BoolVar(&flagScarb, "scarb", false, "locate the Sierra file under ./target/dev/*.sierra")
}

func main() {
	if os.Getenv("NO_COLOR") != "" {
		flagNoColor = true
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// cliError pins the exit code a given failure should produce, so
// run's single error return still drives main's distinct exit codes.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitParseOrIOError
}

func run(cmd *cobra.Command, args []string) error {
	if flagDetectorHelp {
		printDetectorHelp()
		return nil
	}

	source, err := loadInput()
	if err != nil {
		if errors.Is(err, errMissingInputSource) {
			return &cliError{code: exitInvalidArgs, err: err}
		}
		return &cliError{code: exitParseOrIOError, err: err}
	}

	prog, err := parseInput(source)
	if err != nil {
		return &cliError{code: exitParseOrIOError, err: err}
	}

	dec, err := decompiler.New(prog, flagVerbose)
	if err != nil {
		return &cliError{code: exitParseOrIOError, err: errors.Wrap(err, "sierra-analyzer: decompile")}
	}
	if flagFunction != "" {
		dec.FilterFunctions(flagFunction)
	}

	graph := callgraph.Build(prog, true)
	if flagFunction != "" {
		graph = graph.Reachable(flagFunction)
	}

	if flagCFG {
		if err := writeCFGs(dec); err != nil {
			return &cliError{code: exitParseOrIOError, err: err}
		}
	}
	if flagCallgraph {
		if err := writeCallgraph(graph); err != nil {
			return &cliError{code: exitParseOrIOError, err: err}
		}
	}

	if flagDetectors || flagDetectorNames != "" {
		return runDetectors(&detector.Context{Program: prog, Decompiler: dec, CallGraph: graph})
	}

	if !flagCFG && !flagCallgraph {
		fmt.Println(dec.Decompile(!flagNoColor))
	}
	return nil
}

func printDetectorHelp() {
	registry := detector.NewDefaultRegistry(detector.FeltOverflowConfig{}, detector.ControlledLibraryCallConfig{})
	for _, d := range registry.All() {
		fmt.Printf("%-24s [%s] %s\n", d.ID(), d.Kind(), d.Description())
	}
}

func runDetectors(ctx *detector.Context) error {
	registry := detector.NewDefaultRegistry(detector.FeltOverflowConfig{}, detector.ControlledLibraryCallConfig{})
	var report *detector.Report
	if flagDetectorNames != "" {
		names := strings.Split(flagDetectorNames, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		report = registry.RunSelected(ctx, names)
	} else {
		report = registry.RunAll(ctx)
	}
	fmt.Print(report.String())
	for _, seg := range report.Segments {
		if seg.Err == nil {
			continue
		}
		if errors.Is(seg.Err, detector.ErrUnknownDetector) {
			return &cliError{code: exitInvalidArgs, err: errors.Errorf("sierra-analyzer: %v", seg.Err)}
		}
		return &cliError{code: exitDetectorFailure, err: errors.Errorf("sierra-analyzer: detector %s failed: %v", seg.DetectorID, seg.Err)}
	}
	return nil
}

func writeCFGs(dec *decompiler.Decompiler) error {
	if err := os.MkdirAll(flagCFGOutput, 0o755); err != nil {
		return errors.Wrapf(err, "sierra-analyzer: create %s", flagCFGOutput)
	}
	for _, f := range dec.Functions {
		path := filepath.Join(flagCFGOutput, sanitizeFilename(f.Decl.ID)+".dot")
		if err := os.WriteFile(path, []byte(f.CFG.WriteDOT()), 0o644); err != nil {
			return errors.Wrapf(err, "sierra-analyzer: write %s", path)
		}
		log.Infof("wrote CFG for %s to %s", f.Decl.ID, path)
	}
	return nil
}

func writeCallgraph(graph *callgraph.CallGraph) error {
	if err := os.MkdirAll(flagCallgraphOutput, 0o755); err != nil {
		return errors.Wrapf(err, "sierra-analyzer: create %s", flagCallgraphOutput)
	}
	path := filepath.Join(flagCallgraphOutput, "callgraph.dot")
	if err := os.WriteFile(path, []byte(graph.WriteDOT()), 0o644); err != nil {
		return errors.Wrapf(err, "sierra-analyzer: write %s", path)
	}
	log.Infof("wrote call graph to %s", path)
	return nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("<", "_", ">", "_", ":", "_", "@", "_", "/", "_")
	return replacer.Replace(name)
}

// loadInput resolves -f/--file, --scarb, and --remote into raw bytes,
// in that priority order: an explicit file always wins, --scarb comes
// next, and --remote is the fallback network fetch.
func loadInput() ([]byte, error) {
	switch {
	case flagFile != "":
		data, err := os.ReadFile(flagFile)
		if err != nil {
			return nil, errors.Wrapf(err, "sierra-analyzer: read %s", flagFile)
		}
		return data, nil
	case flagScarb:
		data, err := remote.ReadScarbArtifact(".")
		if err != nil {
			return nil, err
		}
		return data, nil
	case flagRemote != "":
		fetcher := remote.NewHTTPFetcher()
		network := remote.Network(flagNetwork)
		data, err := fetcher.Fetch(context.Background(), flagRemote, network)
		if err != nil {
			return nil, err
		}
		return data, nil
	default:
		return nil, errMissingInputSource
	}
}

// parseInput accepts either a contract-class JSON document or raw
// Sierra text, trying the contract-class adapter first per
// contractclass.Decode's own ErrNotContractClass fallback contract.
func parseInput(data []byte) (*sierra.Program, error) {
	cc, err := contractclass.Decode(data)
	if err == nil {
		return parseContractClass(cc)
	}
	if !errors.Is(err, contractclass.ErrNotContractClass) {
		return nil, err
	}

	prog, err := sierra.Parse(flagFile, string(data))
	if err != nil {
		return nil, errors.Wrap(err, "sierra-analyzer: parse")
	}
	return prog, nil
}

// parseContractClass extracts a program from a contract class's
// embedded felt array. This toolkit carries no felt decoder of its
// own — the encoding is pinned to whichever Sierra/Cairo compiler
// version produced the class — so ExtractSierraText is always called
// with no decoder, surfacing a clear error that tells the caller to
// decode sierra_program externally and pass the result via --file.
func parseContractClass(cc *contractclass.ContractClass) (*sierra.Program, error) {
	text, err := cc.ExtractSierraText(nil)
	if err != nil {
		return nil, errors.Wrap(err, "sierra-analyzer: contract-class input requires a Sierra felt decoder for this "+
			"compiler version; decode sierra_program externally and pass the resulting text with --file")
	}
	prog, err := sierra.Parse(flagFile, text)
	if err != nil {
		return nil, errors.Wrap(err, "sierra-analyzer: parse")
	}
	abi, err := contractclass.ParseABI(cc.ABI)
	if err != nil {
		return nil, err
	}
	if err := contractclass.BindFunctionNames(prog, cc.EntryPointsByType, abi); err != nil {
		return nil, err
	}
	return prog, nil
}
