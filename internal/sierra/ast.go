package sierra

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// AST types mirror the textual Sierra grammar. They are the direct
// output of participle parsing; build() lowers them into the stable
// Program model in model.go.

type astProgram struct {
	Pos       lexer.Position
	Types     []*astTypeDecl    `@@*`
	Libfuncs  []*astLibfuncDecl `@@*`
	Stmts     []*astStatement   `@@*`
	Functions []*astFuncDecl    `@@*`
}

// Name is a full longId, not a bare Ident: Sierra's textual id table
// is frequently self-referential (the declared short id equals the
// long id's own text, generic args included) when no separate debug
// name was interned.
type astTypeDecl struct {
	Pos   lexer.Position
	Name  *astLongID `"type" @@ "="`
	Long  *astLongID `@@`
	Attrs []string   `[ "[" @Ident { "," @Ident } "]" ] ";"`
}

type astLibfuncDecl struct {
	Pos  lexer.Position
	Name *astLongID `"libfunc" @@ "="`
	Long *astLongID `@@ ";"`
}

type astLongID struct {
	Pos  lexer.Position
	Name string    `@Ident`
	Args []*astArg `[ "<" @@ { "," @@ } ">" ]`
}

// The user-reference alternative is tried first: a plain longId would
// otherwise accept the "user" of "user@foo" on its own and leave the
// "@" unparsed.
type astArg struct {
	Pos      lexer.Position
	UserCall *astUserID `  @@`
	Long     *astLongID `| @@`
	Int      *string    `| @Integer`
}

// astUserID captures the "Ident@Ident" argument shape used by
// function_call<user@foo>.
type astUserID struct {
	Pos   lexer.Position
	Left  string `@Ident "@"`
	Right string `@Ident`
}

type astStatement struct {
	Pos      lexer.Position
	Return   *astReturn    `  @@`
	Invoke   *astInvoke    `| @@`
}

type astReturn struct {
	Pos  lexer.Position
	Vars []string `"return" "(" [ @Ident { "," @Ident } ] ")" ";"`
}

type astInvoke struct {
	Pos      lexer.Position
	Results  []string       `[ ( "(" @Ident { "," @Ident } ")" | @Ident { "," @Ident } ) "=" ]`
	Libfunc  *astLongID     `@@`
	Args     []string       `"(" [ @Ident { "," @Ident } ] ")"`
	Branches *astBranchList `[ "->" @@ ] ";"`
}

type astBranchList struct {
	Pos      lexer.Position
	Single   *astBranchTarget `  @@`
	Multiple []*astBranch     `| "{" @@ { "," @@ } "}"`
}

type astBranch struct {
	Pos     lexer.Position
	Target  *astBranchTarget `@@`
	Results []string         `[ ":" "(" [ @Ident { "," @Ident } ] ")" ]`
}

type astBranchTarget struct {
	Pos         lexer.Position
	Fallthrough bool    `( @"fallthrough"`
	Offset      *string `| @Integer )`
}

type astFuncDecl struct {
	Pos     lexer.Position
	Name    string          `"func" @Ident "@"`
	Entry   string          `@Integer "("`
	Params  []*astParam     `[ @@ { "," @@ } ] ")" "->" "("`
	Returns []string        `[ @Ident { "," @Ident } ] ")" ";"`
}

type astParam struct {
	Pos  lexer.Position
	Name string `@Ident ":"`
	Type string `@Ident`
}
