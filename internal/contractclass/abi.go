package contractclass

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"sierrascan/internal/sierra"
	"sierrascan/internal/util"
)

// ABIEntry is one function entry in a contract's ABI. Starknet ABIs
// also carry struct/event/interface entries; those are irrelevant to
// name recovery and are dropped during Unmarshal via the "type" tag
// filter in ParseABI.
type ABIEntry struct {
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Inputs []ABIParam `json:"inputs"`
}

type ABIParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ParseABI decodes the JSON-encoded abi string carried by a contract
// class and keeps only "function"/"l1_handler"/"constructor" entries.
func ParseABI(raw string) ([]ABIEntry, error) {
	var entries []ABIEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.Wrap(err, "contractclass: unmarshal abi")
	}
	var funcs []ABIEntry
	for _, e := range entries {
		switch e.Type {
		case "function", "l1_handler", "constructor":
			funcs = append(funcs, e)
		}
	}
	return funcs, nil
}

// starknetMask is 2**250 - 1: Starknet selectors are Keccak-256 masked
// down to 250 bits, matching the network's own starknet_keccak.
var starknetMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// Selector computes the Starknet entry-point selector for a function
// name: keccak256(name) mod 2**250. This is the exact derivation
// Starknet nodes use to populate entry_points_by_type, which is why it
// is the right tool to bind a numeric selector back to an ABI name.
func Selector(name string) *big.Int {
	hash := util.Keccak256([]byte(name))
	n := new(big.Int).SetBytes(hash)
	return n.And(n, starknetMask)
}

// rebindID applies an ABI name to a compiler-mangled function id: a
// mangled id carries its enclosing module/impl path before a final
// "::", and renaming keeps that path, only replacing the trailing
// segment (e.g. "contract::Impl::__wrapper__get_balance" becomes
// "contract::Impl::get_balance"). An id with no "::" has no path to
// keep and is replaced outright.
func rebindID(mangledID, name string) string {
	if idx := strings.LastIndex(mangledID, "::"); idx >= 0 {
		return mangledID[:idx+2] + name
	}
	return name
}

// BindFunctionNames renames sierra.Program functions whose ordinal
// position matches an entry_points_by_type entry, using the ABI entry
// whose computed selector matches. Functions with no matching selector
// (internal/core functions never exposed externally) are left with
// the function ID the compiler emitted.
func BindFunctionNames(prog *sierra.Program, entries EntryPointsByType, abi []ABIEntry) error {
	bySelector := make(map[string]ABIEntry, len(abi))
	for _, e := range abi {
		bySelector[Selector(e.Name).String()] = e
	}

	bind := func(eps []EntryPoint) error {
		for _, ep := range eps {
			if ep.FunctionIdx < 0 || ep.FunctionIdx >= len(prog.Functions) {
				return errors.Errorf("contractclass: function_idx %d out of range (0..%d)", ep.FunctionIdx, len(prog.Functions))
			}
			sel, ok := normalizeSelector(ep.Selector)
			if !ok {
				continue
			}
			if entry, ok := bySelector[sel]; ok {
				fn := prog.Functions[ep.FunctionIdx]
				fn.ID = rebindID(fn.ID, entry.Name)
			}
		}
		return nil
	}

	if err := bind(entries.Constructor); err != nil {
		return err
	}
	if err := bind(entries.External); err != nil {
		return err
	}
	if err := bind(entries.L1Handler); err != nil {
		return err
	}
	return nil
}

// EntryPointKinds maps the name of every bound function to the
// dispatch table it was found under ("Constructor", "External", or
// "L1Handler"), the classification BindFunctionNames itself discards.
// The functions detector uses this to annotate a function's dispatch
// role; everything not in one of these three tables is left
// unclassified rather than guessed at.
func EntryPointKinds(prog *sierra.Program, entries EntryPointsByType) map[string]string {
	kinds := map[string]string{}
	mark := func(eps []EntryPoint, kind string) {
		for _, ep := range eps {
			if ep.FunctionIdx >= 0 && ep.FunctionIdx < len(prog.Functions) {
				kinds[prog.Functions[ep.FunctionIdx].ID] = kind
			}
		}
	}
	mark(entries.Constructor, "Constructor")
	mark(entries.External, "External")
	mark(entries.L1Handler, "L1Handler")
	return kinds
}

func normalizeSelector(hex string) (string, bool) {
	n := new(big.Int)
	s := hex
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if _, ok := n.SetString(s, 16); !ok {
		return "", false
	}
	return n.String(), true
}
