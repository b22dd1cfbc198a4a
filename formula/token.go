package formula

// TokenKind identifies the type of a lexical token.
type TokenKind int

const (
	TokenEOF            TokenKind = iota
	TokenAtom                     // [A-Z][a-z]?
	TokenFactor                   // [0-9]+
	TokenOpeningBracket           // [ ( {
	TokenClosingBracket           // ] ) }
)

var tokenNames = map[TokenKind]string{
	TokenEOF:            "EOF",
	TokenAtom:           "atom",
	TokenFactor:         "factor",
	TokenOpeningBracket: "opening bracket",
	TokenClosingBracket: "closing bracket",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "unknown"
}

// Position tracks a source location for error messages.
type Position struct {
	Offset int // 0-based offset into the input
	Column int // 1-based column
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Kind    TokenKind
	Literal string // raw source text; empty for EOF
	Pos     Position
}

// describe renders a token for use in error messages.
func (t Token) describe() string {
	if t.Kind == TokenEOF {
		return "EOF"
	}
	return t.Kind.String() + " " + quote(t.Literal)
}

func quote(s string) string {
	return "'" + s + "'"
}

func isOpeningBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

func isClosingBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// closerFor returns the closing bracket of the same shape as open.
func closerFor(open string) string {
	switch open {
	case "[":
		return "]"
	case "{":
		return "}"
	default:
		return ")"
	}
}
