package formula

import "fmt"

// Parse parses formula text and returns the atom counts in first-seen order.
// Returns a *LexError, *UnexpectedTokenError, *UnmatchedBracketError,
// *TrailingInputError, or *ValueError on failure.
func Parse(src string) (*AtomCount, error) {
	mol, err := ParseMolecule(src)
	if err != nil {
		return nil, err
	}
	return mol.Count()
}

// ParseMolecule parses formula text into its group structure without
// evaluating counts.
func ParseMolecule(src string) (Molecule, error) {
	p := &parser{lex: NewLexer(src)}
	return p.parseFormula()
}

type parser struct {
	lex *Lexer
}

func (p *parser) peek() (Token, error) {
	return p.lex.Peek()
}

func (p *parser) next() (Token, error) {
	return p.lex.Next()
}

// optionalFactor consumes a FACTOR token if one is next and returns its
// value, or 1 otherwise.
func (p *parser) optionalFactor() (int, error) {
	tok, err := p.peek()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenFactor {
		return 1, nil
	}
	tok, err = p.next()
	if err != nil {
		return 0, err
	}
	return ParseFactor(tok)
}

func (p *parser) parseFormula() (Molecule, error) {
	// The top-level molecule needs at least one group.
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenAtom && tok.Kind != TokenOpeningBracket {
		return nil, unexpected(tok)
	}

	mol, err := p.parseMolecule()
	if err != nil {
		return nil, err
	}

	tok, err = p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenEOF {
		return nil, &TrailingInputError{
			ParseError: ParseError{
				Message: "unexpected " + tok.describe() + " after end of formula",
				Pos:     tok.Pos,
			},
			Found: tok,
		}
	}
	return mol, nil
}

// parseMolecule parses groups until a closing bracket or EOF is next.
// An empty result is legal here; the caller decides whether it may be empty.
func (p *parser) parseMolecule() (Molecule, error) {
	var mol Molecule
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenClosingBracket || tok.Kind == TokenEOF {
			return mol, nil
		}
		g, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		mol = append(mol, g)
	}
}

func (p *parser) parseGroup() (Group, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokenAtom:
		factor, err := p.optionalFactor()
		if err != nil {
			return nil, err
		}
		return &AtomGroup{Symbol: tok.Literal, Factor: factor, Pos: tok.Pos}, nil

	case TokenOpeningBracket:
		return p.parseBracket(tok)

	default:
		return nil, unexpected(tok)
	}
}

// parseBracket parses the remainder of a bracket group after its opening
// token. Any closing bracket closes it, regardless of shape.
func (p *parser) parseBracket(open Token) (Group, error) {
	inner, err := p.parseMolecule()
	if err != nil {
		return nil, err
	}

	closeTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if closeTok.Kind == TokenEOF {
		return nil, &UnmatchedBracketError{
			ParseError: ParseError{
				Message: fmt.Sprintf("missing closing bracket for %s opened at offset %d",
					quote(open.Literal), open.Pos.Offset),
				Pos: closeTok.Pos,
			},
			Open: open.Pos,
		}
	}

	factor, err := p.optionalFactor()
	if err != nil {
		return nil, err
	}
	return &BracketGroup{
		Open:   open.Literal,
		Close:  closeTok.Literal,
		Inner:  inner,
		Factor: factor,
		Pos:    open.Pos,
	}, nil
}

func unexpected(tok Token) *UnexpectedTokenError {
	return &UnexpectedTokenError{
		ParseError: ParseError{Pos: tok.Pos},
		Found:      tok,
		Expected:   "atom or opening bracket",
	}
}
