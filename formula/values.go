package formula

import (
	"fmt"
	"math"
	"strconv"

	"fortio.org/safecast"
)

// ParseFactor converts a factor token into its integer value.
// Leading zeros are accepted; "007" is 7.
func ParseFactor(tok Token) (int, error) {
	if tok.Kind != TokenFactor {
		return 0, &ValueError{ParseError{
			Message: fmt.Sprintf("unexpected token %s in factor position", tok.Kind),
			Pos:     tok.Pos,
		}}
	}
	u, err := strconv.ParseUint(tok.Literal, 10, 64)
	if err != nil {
		return 0, &ValueError{ParseError{
			Message: fmt.Sprintf("invalid factor %q: %v", tok.Literal, err),
			Pos:     tok.Pos,
			Cause:   err,
		}}
	}
	n, err := safecast.Conv[int](u)
	if err != nil {
		return 0, &ValueError{ParseError{
			Message: fmt.Sprintf("factor %s out of range", tok.Literal),
			Pos:     tok.Pos,
			Cause:   err,
		}}
	}
	return n, nil
}

// mulCount multiplies two non-negative counts, failing on overflow.
func mulCount(a, b int, pos Position) (int, error) {
	if a != 0 && b > math.MaxInt/a {
		return 0, &ValueError{ParseError{
			Message: fmt.Sprintf("count %d x %d overflows", a, b),
			Pos:     pos,
		}}
	}
	return a * b, nil
}

// addCount adds two non-negative counts, failing on overflow.
func addCount(a, b int, pos Position) (int, error) {
	if b > math.MaxInt-a {
		return 0, &ValueError{ParseError{
			Message: fmt.Sprintf("count %d + %d overflows", a, b),
			Pos:     pos,
		}}
	}
	return a + b, nil
}
