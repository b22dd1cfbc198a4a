package formula

import (
	"fmt"
	"iter"
	"unicode/utf8"
)

// Lexer tokenizes formula text into a stream of tokens.
//
// Tokens are produced on demand. Once EOF has been returned, every later call
// to Next or Peek returns EOF again; a Lexer cannot be rewound.
type Lexer struct {
	src    string
	pos    int // current byte offset
	peeked *Token
}

// NewLexer creates a new Lexer for the given formula text.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	tok, err := l.scan()
	if err != nil {
		return Token{}, err
	}
	l.peeked = &tok
	return tok, nil
}

// Next returns the next token and advances the lexer.
func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	return l.scan()
}

// Tokens returns the remaining tokens as a sequence. The sequence ends after
// the single EOF token or after the first error.
func (l *Lexer) Tokens() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := l.Next()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !yield(tok, nil) || tok.Kind == TokenEOF {
				return
			}
		}
	}
}

func (l *Lexer) currentPos() Position {
	return Position{Offset: l.pos, Column: l.pos + 1}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) scan() (Token, error) {
	if l.atEnd() {
		return Token{Kind: TokenEOF, Pos: l.currentPos()}, nil
	}

	pos := l.currentPos()
	start := l.pos
	ch := l.src[l.pos]

	switch {
	case isUpper(ch):
		l.pos++
		if !l.atEnd() && isLower(l.src[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokenAtom, Literal: l.src[start:l.pos], Pos: pos}, nil

	case isDigit(ch):
		for !l.atEnd() && isDigit(l.src[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokenFactor, Literal: l.src[start:l.pos], Pos: pos}, nil

	case isOpeningBracket(ch):
		l.pos++
		return Token{Kind: TokenOpeningBracket, Literal: l.src[start:l.pos], Pos: pos}, nil

	case isClosingBracket(ch):
		l.pos++
		return Token{Kind: TokenClosingBracket, Literal: l.src[start:l.pos], Pos: pos}, nil
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	return Token{}, &LexError{
		ParseError: ParseError{
			Message: fmt.Sprintf("unexpected character %q", r),
			Pos:     pos,
		},
		Char: r,
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isUpper(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}

func isLower(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}
