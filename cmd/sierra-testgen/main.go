// Command sierra-testgen runs bounded symbolic execution over every
// eligible function in a Sierra program and prints one concrete
// parameter model per feasible path, for use as generated test
// inputs.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"sierrascan/internal/decompiler"
	"sierrascan/internal/remote"
	"sierrascan/internal/sierra"
	"sierrascan/internal/symexec"
)

var (
	flagFile  string
	flagScarb bool
)

var rootCmd = &cobra.Command{
	Use:   "sierra-testgen",
	Short: "Generate concrete test inputs for a Sierra program via symbolic execution",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&flagFile, "file", "f", "", "local Sierra file")
	rootCmd.Flags().BoolVar(&flagScarb, "scarb", false, "locate the Sierra file under ./target/dev/*.sierra")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	data, err := loadInput()
	if err != nil {
		return err
	}

	prog, err := sierra.Parse(flagFile, string(data))
	if err != nil {
		return errors.Wrap(err, "sierra-testgen: parse")
	}

	dec, err := decompiler.New(prog, false)
	if err != nil {
		return errors.Wrap(err, "sierra-testgen: decompile")
	}

	yices2.Init()
	defer yices2.Exit()

	for _, f := range dec.Functions {
		if !f.Felt252Only() {
			continue
		}
		exec := symexec.New(prog, f.Decl)
		paths, err := exec.Run()
		if err != nil {
			return errors.Wrapf(err, "sierra-testgen: %s", f.Decl.ID)
		}
		fmt.Printf("== %s ==\n", f.Decl.ID)
		for _, p := range paths {
			fmt.Printf("%s (%s)\n", formatModel(f.Decl.Params, p.Model), p.Status)
		}
	}
	return nil
}

func loadInput() ([]byte, error) {
	switch {
	case flagFile != "":
		data, err := os.ReadFile(flagFile)
		if err != nil {
			return nil, errors.Wrapf(err, "sierra-testgen: read %s", flagFile)
		}
		return data, nil
	case flagScarb:
		return remote.ReadScarbArtifact(".")
	default:
		return nil, errors.New("sierra-testgen: one of --file or --scarb is required")
	}
}

// formatModel renders "v0: N, v1: N, ..." in the function's own
// parameter order.
func formatModel(params []sierra.Param, model map[string]*big.Int) string {
	var out string
	first := true
	for _, p := range params {
		v, ok := model[p.Name]
		if !ok {
			continue
		}
		if !first {
			out += ", "
		}
		first = false
		out += p.Name + ": " + v.String()
	}
	return out
}
