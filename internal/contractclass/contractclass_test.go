package contractclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sierrascan/internal/sierra"
)

func TestDecodeRejectsNonJSON(t *testing.T) {
	_, err := Decode([]byte("type felt252 = felt252;"))
	assert.ErrorIs(t, err, ErrNotContractClass)
}

func TestDecodeContractClass(t *testing.T) {
	cc, err := Decode([]byte(`{"sierra_program":["0x1","0x2"],"contract_class_version":"0.1.0","entry_points_by_type":{"EXTERNAL":[{"selector":"0xabc","function_idx":0}]},"abi":"[]"}`))
	require.NoError(t, err)
	assert.Len(t, cc.SierraProgram, 2)
	assert.Equal(t, "0.1.0", cc.ContractClassVersion)
	assert.Len(t, cc.EntryPointsByType.External, 1)
}

type fakeDecoder struct{ text string }

func (f fakeDecoder) DecodeFelts(felts []string) (string, error) { return f.text, nil }

func TestExtractSierraTextUsesDecoder(t *testing.T) {
	cc := &ContractClass{SierraProgram: []string{"0x1"}}
	text, err := cc.ExtractSierraText(fakeDecoder{text: "func f@0() -> ();"})
	require.NoError(t, err)
	assert.Equal(t, "func f@0() -> ();", text)
}

func TestExtractSierraTextRequiresDecoder(t *testing.T) {
	cc := &ContractClass{SierraProgram: []string{"0x1"}}
	_, err := cc.ExtractSierraText(nil)
	assert.Error(t, err)
}

func TestSelectorIsMaskedTo250Bits(t *testing.T) {
	sel := Selector("transfer")
	assert.True(t, sel.BitLen() <= 250)
}

func TestBindFunctionNamesMatchesBySelector(t *testing.T) {
	prog := &sierra.Program{
		Functions: []*sierra.Function{
			{ID: "f0"},
			{ID: "f1"},
		},
	}
	name := "transfer"
	sel := "0x" + Selector(name).Text(16)
	entries := EntryPointsByType{External: []EntryPoint{{Selector: sel, FunctionIdx: 1}}}
	abi := []ABIEntry{{Type: "function", Name: name}}

	require.NoError(t, BindFunctionNames(prog, entries, abi))
	assert.Equal(t, "f0", prog.Functions[0].ID)
	assert.Equal(t, "transfer", prog.Functions[1].ID)
}

func TestBindFunctionNamesRejectsBadIndex(t *testing.T) {
	prog := &sierra.Program{Functions: []*sierra.Function{{ID: "f0"}}}
	entries := EntryPointsByType{External: []EntryPoint{{Selector: "0x1", FunctionIdx: 5}}}
	err := BindFunctionNames(prog, entries, nil)
	assert.Error(t, err)
}

func TestParseABIFiltersNonFunctionEntries(t *testing.T) {
	entries, err := ParseABI(`[{"type":"function","name":"f"},{"type":"struct","name":"S"}]`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f", entries[0].Name)
}
