package formula

import (
	"strconv"
	"strings"
)

// Format renders a molecule back into formula text. Factors of 1 are
// omitted and bracket characters are kept as parsed, so for any formula f
// whose factors have no leading zeros and are never 1,
// Format(ParseMolecule(f)) == f.
func Format(m Molecule) string {
	var sb strings.Builder
	writeMolecule(&sb, m)
	return sb.String()
}

func writeMolecule(sb *strings.Builder, m Molecule) {
	for _, g := range m {
		switch g := g.(type) {
		case *AtomGroup:
			sb.WriteString(g.Symbol)
			writeFactor(sb, g.Factor)
		case *BracketGroup:
			open, closing := g.Open, g.Close
			if open == "" {
				open = "("
			}
			if closing == "" {
				closing = closerFor(open)
			}
			sb.WriteString(open)
			writeMolecule(sb, g.Inner)
			sb.WriteString(closing)
			writeFactor(sb, g.Factor)
		}
	}
}

func writeFactor(sb *strings.Builder, n int) {
	if n != 1 {
		sb.WriteString(strconv.Itoa(n))
	}
}
