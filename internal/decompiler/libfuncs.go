package decompiler

import (
	"encoding/hex"
	"math/big"
	"regexp"
)

// Libfunc id patterns used to improve the readability of decompiled
// output and to recognize operations detectors and symbolic execution
// need to reason about. Some patterns (drop, store_temp) are
// blacklisted from the default rendering to cut noise; the rest
// classify a statement's libfunc for a more specific treatment than a
// raw call.
var (
	dropRegex              = regexp.MustCompile(`drop(<.*>)?`)
	storeTempRegex         = regexp.MustCompile(`store_temp(<.*>)?`)
	branchAlignRegex       = regexp.MustCompile(`branch_align(<.*>)?`)
	disableApTrackingRegex = regexp.MustCompile(`disable_ap_tracking(<.*>)?`)

	functionCallRegex = regexp.MustCompile(`function_call<(.*)>`)

	additionRegex       = regexp.MustCompile(`(felt|u)_?(8|16|32|64|128|252)(_overflowing)?_add`)
	subtractionRegex    = regexp.MustCompile(`(felt|u)_?(8|16|32|64|128|252)(_overflowing)?_sub`)
	multiplicationRegex = regexp.MustCompile(`(felt|u)_?(8|16|32|64|128|252)(_overflowing)?_mul`)

	dupRegex = regexp.MustCompile(`dup(<.*>)?`)

	variableAssignmentRegexes = []*regexp.Regexp{
		regexp.MustCompile(`rename<.+>`),
		regexp.MustCompile(`store_temp<.+>`),
	}

	isZeroRegex = regexp.MustCompile(`(felt|u)_?(8|16|32|64|128|252)_is_zero`)

	constRegexes = []*regexp.Regexp{
		regexp.MustCompile(`const_as_immediate<Const<.+, (?P<const>-?[0-9]+)>>`),
		regexp.MustCompile(`storage_base_address_const<(?P<const>-?[0-9]+)>`),
		regexp.MustCompile(`(felt|u)_?(8|16|32|64|128|252)_const<(?P<const>-?[0-9]+)>`),
	}

	userDefinedFunctionRegex = regexp.MustCompile(`(function_call|(\[[0-9]+\]))(::)?<user@(?P<function_id>.+)>`)

	newArrayRegex    = regexp.MustCompile(`array_new<(?P<array_type>.+)>`)
	arrayAppendRegex = regexp.MustCompile(`array_append<(.+)>`)
)

// Suppressed reports whether a libfunc id is noise the non-verbose
// renderer drops: pure variable bookkeeping or Sierra-level scheduling
// hints with no semantic content of their own (a drop, a store into a
// temporary, an ap-tracking marker, or a branch-alignment marker).
func Suppressed(libfuncID string, verbose bool) bool {
	if verbose {
		return false
	}
	return dropRegex.MatchString(libfuncID) ||
		storeTempRegex.MatchString(libfuncID) ||
		branchAlignRegex.MatchString(libfuncID) ||
		disableApTrackingRegex.MatchString(libfuncID)
}

// IsRename reports whether a libfunc id is a pure variable rename or
// temp store, the set inputs_generator-style constraint builders treat
// as an identity constraint rather than an operation.
func IsRename(libfuncID string) bool {
	for _, re := range variableAssignmentRegexes {
		if re.MatchString(libfuncID) {
			return true
		}
	}
	return false
}

func IsDup(libfuncID string) bool { return dupRegex.MatchString(libfuncID) }

func IsZeroCheck(libfuncID string) bool { return isZeroRegex.MatchString(libfuncID) }

// ArithmeticOperator returns the infix operator a libfunc id denotes,
// if it is a checked or unchecked felt/uint add, sub, or mul.
func ArithmeticOperator(libfuncID string) (string, bool) {
	switch {
	case additionRegex.MatchString(libfuncID):
		return "+", true
	case subtractionRegex.MatchString(libfuncID):
		return "-", true
	case multiplicationRegex.MatchString(libfuncID):
		return "*", true
	}
	return "", false
}

// Overflowing reports whether an arithmetic libfunc is one of the
// "_overflowing_" variants that return an overflow flag alongside the
// result, as opposed to the plain variant that aborts on overflow.
func Overflowing(libfuncID string) bool {
	for _, re := range []*regexp.Regexp{additionRegex, subtractionRegex, multiplicationRegex} {
		if m := re.FindStringSubmatch(libfuncID); m != nil {
			return m[3] != ""
		}
	}
	return false
}

// ConstValue extracts the decimal literal from a const-declaration
// libfunc id, e.g. felt252_const<5> -> "5".
func ConstValue(libfuncID string) (string, bool) {
	for _, re := range constRegexes {
		if m := re.FindStringSubmatch(libfuncID); m != nil {
			idx := re.SubexpIndex("const")
			if idx >= 0 && idx < len(m) && m[idx] != "" {
				return m[idx], true
			}
		}
	}
	return "", false
}

// DecodedString decodes a const libfunc id's value as a short ASCII
// string packed into a felt, the way Cairo programs embed literal
// strings: the integer's big-endian byte representation re-read as
// text. Returns ok=false when the value doesn't fit the packed
// short-string encoding (see decodeFeltString).
func DecodedString(libfuncID string) (string, bool) {
	value, ok := ConstValue(libfuncID)
	if !ok {
		return "", false
	}
	return decodeFeltString(value)
}

// decodeFeltString reports a felt value as a short string only when it
// fits Cairo's packed short-string encoding: at most 31 bytes, every
// byte a printable ASCII character in [0x20, 0x7e].
func decodeFeltString(decimal string) (string, bool) {
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok || n.Sign() < 0 {
		return "", false
	}
	hexStr := n.Text(16)
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", false
	}
	if len(raw) == 0 || len(raw) > 31 {
		return "", false
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return "", false
		}
	}
	return string(raw), true
}

// UserFunctionName extracts the user-defined function name out of a
// function_call<user@name> or a remote-contract [id]<user@name>
// libfunc id.
func UserFunctionName(libfuncID string) (string, bool) {
	m := userDefinedFunctionRegex.FindStringSubmatch(libfuncID)
	if m == nil {
		return "", false
	}
	idx := userDefinedFunctionRegex.SubexpIndex("function_id")
	if idx < 0 || idx >= len(m) {
		return "", false
	}
	return m[idx], true
}

// FunctionCallTarget extracts the callee's long id text out of a
// function_call<...> libfunc id.
func FunctionCallTarget(libfuncID string) (string, bool) {
	m := functionCallRegex.FindStringSubmatch(libfuncID)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func IsArrayNew(libfuncID string) bool    { return newArrayRegex.MatchString(libfuncID) }
func IsArrayAppend(libfuncID string) bool { return arrayAppendRegex.MatchString(libfuncID) }
