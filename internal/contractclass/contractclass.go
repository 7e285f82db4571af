// Package contractclass adapts Starknet contract-class JSON artifacts
// (the format `starknet_deploy`/block explorers hand back for a class
// hash) into the textual Sierra the rest of this module understands,
// and binds recovered function declarations back to their ABI names.
package contractclass

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// EntryPoint is one entry in a contract class's entry_points_by_type
// map: a Starknet selector bound to the ordinal index of the Sierra
// function that implements it.
type EntryPoint struct {
	Selector     string `json:"selector"`
	FunctionIdx  int    `json:"function_idx"`
}

// EntryPointsByType mirrors the three dispatch tables a contract class
// JSON file carries.
type EntryPointsByType struct {
	Constructor []EntryPoint `json:"CONSTRUCTOR"`
	External    []EntryPoint `json:"EXTERNAL"`
	L1Handler   []EntryPoint `json:"L1_HANDLER"`
}

// ContractClass is the subset of the Starknet contract-class JSON
// schema this module cares about. sierra_program is a flat array of
// hex-encoded felt252 values; abi is a JSON-encoded string (not a
// nested object) in the format Starknet nodes actually return it.
type ContractClass struct {
	SierraProgram         []string          `json:"sierra_program"`
	ContractClassVersion  string            `json:"contract_class_version"`
	EntryPointsByType     EntryPointsByType `json:"entry_points_by_type"`
	ABI                   string            `json:"abi"`
}

// ErrNotContractClass is returned by Decode when the input is not a
// contract-class JSON document, so callers can fall back to treating
// the input as raw Sierra text.
var ErrNotContractClass = errors.New("contractclass: input is not a contract class document")

// Decode unmarshals a contract-class JSON document. Callers that don't
// know whether an input file is raw Sierra text or a contract class
// should try Decode first and fall back to parsing the bytes directly
// as Sierra text on ErrNotContractClass.
func Decode(data []byte) (*ContractClass, error) {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotContractClass
	}
	var cc ContractClass
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, errors.Wrap(err, "contractclass: unmarshal")
	}
	if len(cc.SierraProgram) == 0 {
		return nil, ErrNotContractClass
	}
	return &cc, nil
}

// FeltProgramDecoder turns the raw felt252 array embedded in a contract
// class into Sierra program text. The real decoding (Sierra's binary
// felt encoding, as implemented by the Cairo compiler's own
// ProgramParser/ProgramCodec) is an external collaborator per this
// module's scope: decoding compiler-internal felt encodings is a
// moving target tied to the exact Sierra version a contract was
// compiled with, not something this toolkit re-derives. Callers wire in
// a decoder obtained from the Cairo toolchain they're running against;
// tests wire in a fake.
type FeltProgramDecoder interface {
	DecodeFelts(felts []string) (string, error)
}

// ExtractSierraText converts a contract class's felt array into Sierra
// program text using the supplied decoder.
func (cc *ContractClass) ExtractSierraText(decoder FeltProgramDecoder) (string, error) {
	if decoder == nil {
		return "", errors.New("contractclass: no felt program decoder supplied")
	}
	text, err := decoder.DecodeFelts(cc.SierraProgram)
	if err != nil {
		return "", errors.Wrap(err, "contractclass: decode felts")
	}
	return text, nil
}
