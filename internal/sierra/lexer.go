package sierra

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// sierraLexer tokenizes the textual Sierra program grammar. Order
// matters: Ident must be tried before keywords since keywords are
// matched as literals by the parser, not as distinct token kinds.
var sierraLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_$][a-zA-Z0-9_$]*`, nil},
		{"Integer", `-?[0-9]+`, nil},
		{"Arrow", `->`, nil},
		{"Punct", `[=(){}\[\]<>,:;@.\-]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
