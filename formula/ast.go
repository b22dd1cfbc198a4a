package formula

// Group is one element of a Molecule: either an *AtomGroup or a
// *BracketGroup. The set of implementations is closed.
type Group interface {
	group()
	// Position returns where the group starts in the source.
	Position() Position
}

// AtomGroup is a single atomic symbol with its factor, e.g. "O4".
type AtomGroup struct {
	Symbol string
	Factor int // 1 when no factor follows the symbol
	Pos    Position
}

// BracketGroup is a bracketed sub-molecule with its factor, e.g. "(OH)2".
type BracketGroup struct {
	Open   string // the opening bracket as written
	Close  string // the closing bracket as written; may differ in shape from Open
	Inner  Molecule
	Factor int // 1 when no factor follows the closing bracket
	Pos    Position
}

func (*AtomGroup) group()    {}
func (*BracketGroup) group() {}

func (g *AtomGroup) Position() Position    { return g.Pos }
func (g *BracketGroup) Position() Position { return g.Pos }

// Molecule is a sequence of groups at one nesting level, left to right.
type Molecule []Group

// Count evaluates the molecule into an AtomCount.
func (m Molecule) Count() (*AtomCount, error) {
	acc := NewAtomCount()
	if err := m.accumulate(acc, multiplier{n: 1}); err != nil {
		return nil, err
	}
	return acc, nil
}

// multiplier is the product of all enclosing bracket factors. A product that
// overflowed is kept as err and only reported once an atom with a nonzero
// factor receives it; a later factor of zero cancels it.
type multiplier struct {
	n   int
	err error
}

func (m multiplier) times(factor int, pos Position) multiplier {
	if factor == 0 {
		return multiplier{}
	}
	if m.err != nil {
		return m
	}
	n, err := mulCount(m.n, factor, pos)
	if err != nil {
		return multiplier{err: err}
	}
	return multiplier{n: n}
}

// accumulate adds every atom in m to acc. Each atom contributes its own factor
// times the enclosing multiplier.
func (m Molecule) accumulate(acc *AtomCount, mul multiplier) error {
	for _, g := range m {
		switch g := g.(type) {
		case *AtomGroup:
			n := mul.times(g.Factor, g.Pos)
			if n.err != nil {
				return n.err
			}
			if err := acc.addChecked(g.Symbol, n.n, g.Pos); err != nil {
				return err
			}
		case *BracketGroup:
			if err := g.Inner.accumulate(acc, mul.times(g.Factor, g.Pos)); err != nil {
				return err
			}
		default:
			panic("formula: unknown group type")
		}
	}
	return nil
}
