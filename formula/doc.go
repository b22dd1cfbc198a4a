// Package formula parses chemical formulas into atom counts.
//
// The accepted grammar is:
//
//	formula  := molecule EOF
//	molecule := group molecule?
//	group    := ATOM FACTOR? | OPENING_BRACKET molecule CLOSING_BRACKET FACTOR?
//
//	ATOM            [A-Z][a-z]?
//	FACTOR          [0-9]+
//	OPENING_BRACKET [ ( {
//	CLOSING_BRACKET ] ) }
//
// The package is a hand-rolled recursive-descent parser with three layers:
//
//   - Lexer: converts the input into a lazy token stream. No whitespace is
//     skipped; any character outside the token classes is a LexError.
//   - Parser: consumes tokens according to the grammar and builds a Molecule,
//     a sequence of AtomGroup and BracketGroup values.
//   - Evaluation: walks the Molecule with a running multiplier and merges
//     symbol counts into an AtomCount, which keeps first-seen order.
//
// Brackets are matched by class only. Any closing bracket closes any opening
// bracket, so "[H2O)" is accepted.
//
// Usage:
//
//	counts, err := formula.Parse("Mg2[CH4{NNi2(Li2O4)5}14]3")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(counts) // {Mg: 2, C: 3, H: 12, N: 42, Ni: 84, Li: 420, O: 840}
//
// Parse keeps all state local to the call and is safe for concurrent use.
package formula
