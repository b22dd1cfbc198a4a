package formula

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// AtomCount maps atomic symbols to positive counts. Iteration follows the
// order in which each symbol was first added.
//
// The zero value is not ready for use; create one with NewAtomCount.
type AtomCount struct {
	symbols []string
	counts  map[string]int
}

// NewAtomCount returns an empty AtomCount.
func NewAtomCount() *AtomCount {
	return &AtomCount{counts: make(map[string]int)}
}

// Add adds n atoms of symbol. A symbol seen for the first time is appended
// to the order. Non-positive n is ignored, so every stored count stays >= 1.
func (c *AtomCount) Add(symbol string, n int) {
	if n <= 0 {
		return
	}
	if _, ok := c.counts[symbol]; !ok {
		c.symbols = append(c.symbols, symbol)
	}
	c.counts[symbol] += n
}

func (c *AtomCount) addChecked(symbol string, n int, pos Position) error {
	if n <= 0 {
		return nil
	}
	if _, err := addCount(c.counts[symbol], n, pos); err != nil {
		return err
	}
	c.Add(symbol, n)
	return nil
}

// Get returns the count for symbol and whether it is present.
func (c *AtomCount) Get(symbol string) (int, bool) {
	n, ok := c.counts[symbol]
	return n, ok
}

// Len returns the number of distinct symbols.
func (c *AtomCount) Len() int { return len(c.symbols) }

// Symbols returns the symbols in first-seen order.
func (c *AtomCount) Symbols() []string {
	return append([]string(nil), c.symbols...)
}

// All iterates over symbol/count pairs in first-seen order.
func (c *AtomCount) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, sym := range c.symbols {
			if !yield(sym, c.counts[sym]) {
				return
			}
		}
	}
}

// Map returns the counts as a plain map. Order is lost.
func (c *AtomCount) Map() map[string]int {
	return maps.Clone(c.counts)
}

// Equal reports whether c and other hold the same symbol/count pairs,
// ignoring order.
func (c *AtomCount) Equal(other *AtomCount) bool {
	return maps.Equal(c.counts, other.counts)
}

// Scale returns a new AtomCount with every count multiplied by k.
// Scaling by zero yields an empty AtomCount. A negative k or a product that
// overflows int is an error.
func (c *AtomCount) Scale(k int) (*AtomCount, error) {
	if k < 0 {
		return nil, fmt.Errorf("atom count: negative scale %d", k)
	}
	out := NewAtomCount()
	for sym, n := range c.All() {
		if k != 0 && n > math.MaxInt/k {
			return nil, fmt.Errorf("atom count: %s count %d x %d overflows", sym, n, k)
		}
		out.Add(sym, n*k)
	}
	return out, nil
}

// Merge adds every count in other to c. Symbols new to c are appended in
// other's order. If any sum overflows int, c is left unchanged.
func (c *AtomCount) Merge(other *AtomCount) error {
	for sym, n := range other.All() {
		if n > math.MaxInt-c.counts[sym] {
			return fmt.Errorf("atom count: %s count %d + %d overflows", sym, c.counts[sym], n)
		}
	}
	for sym, n := range other.All() {
		c.Add(sym, n)
	}
	return nil
}

// String renders the counts as "{Mg: 2, C: 3}".
func (c *AtomCount) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, sym := range c.symbols {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d", sym, c.counts[sym])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Formula renders the counts as a flat formula such as "H2O", omitting
// factors of 1.
func (c *AtomCount) Formula() string {
	var sb strings.Builder
	for sym, n := range c.All() {
		sb.WriteString(sym)
		if n != 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}

// MarshalJSON encodes the counts as a JSON object with keys in first-seen order.
func (c *AtomCount) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sym := range c.symbols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sym)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.counts[sym]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (c *AtomCount) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("atom count: expected JSON object, got %v", tok)
	}

	out := NewAtomCount()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		sym, _ := keyTok.(string)

		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("atom count: value for %q: %w", sym, err)
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return fmt.Errorf("atom count: value for %q: %w", sym, err)
		}
		out.Add(sym, n)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = *out
	return nil
}

// MarshalYAML encodes the counts as a YAML mapping with keys in first-seen order.
func (c *AtomCount) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for sym, n := range c.All() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: sym},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)},
		)
	}
	return node, nil
}

var (
	_ msgpack.CustomEncoder = (*AtomCount)(nil)
	_ msgpack.CustomDecoder = (*AtomCount)(nil)
)

// EncodeMsgpack encodes the counts as a msgpack map in first-seen order.
func (c *AtomCount) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(c.symbols)); err != nil {
		return err
	}
	for sym, n := range c.All() {
		if err := enc.EncodeString(sym); err != nil {
			return err
		}
		if err := enc.EncodeInt(int64(n)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack decodes a msgpack map, keeping key order.
func (c *AtomCount) DecodeMsgpack(dec *msgpack.Decoder) error {
	size, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	out := NewAtomCount()
	for range max(size, 0) {
		sym, err := dec.DecodeString()
		if err != nil {
			return err
		}
		n, err := dec.DecodeInt()
		if err != nil {
			return fmt.Errorf("atom count: value for %q: %w", sym, err)
		}
		out.Add(sym, n)
	}
	*c = *out
	return nil
}
