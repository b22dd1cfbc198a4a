package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/martinemde/chemformula/formula"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// record is one parsed formula as written by every output format.
type record struct {
	Name    string             `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Formula string             `json:"formula" yaml:"formula" msgpack:"formula"`
	Counts  *formula.AtomCount `json:"counts" yaml:"counts" msgpack:"counts"`
}

// recordEncoder writes records in one output format.
type recordEncoder interface {
	Encode(rec record) error
	Close() error
}

var outputFormats = []string{"text", "json", "yaml", "msgpack"}

// newRecordEncoder returns an encoder for format. In text format, labeled
// prefixes each line with the record's name, or its formula when unnamed.
func newRecordEncoder(w io.Writer, format string, labeled bool) (recordEncoder, error) {
	switch format {
	case "", "text":
		return &textEncoder{w: w, labeled: labeled}, nil
	case "json":
		return nopCloser{json.NewEncoder(w)}, nil
	case "yaml":
		return yamlEncoder{yaml.NewEncoder(w)}, nil
	case "msgpack":
		return nopCloser{msgpack.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, outputFormats)
	}
}

type textEncoder struct {
	w       io.Writer
	labeled bool
}

func (e *textEncoder) Encode(rec record) error {
	if !e.labeled {
		_, err := fmt.Fprintln(e.w, rec.Counts)
		return err
	}
	label := rec.Name
	if label == "" {
		label = rec.Formula
	}
	_, err := fmt.Fprintf(e.w, "%s\t%s\n", label, rec.Counts)
	return err
}

func (e *textEncoder) Close() error { return nil }

type nopCloser struct {
	enc interface{ Encode(v any) error }
}

func (n nopCloser) Encode(rec record) error { return n.enc.Encode(rec) }
func (n nopCloser) Close() error            { return nil }

type yamlEncoder struct {
	enc *yaml.Encoder
}

func (y yamlEncoder) Encode(rec record) error { return y.enc.Encode(rec) }
func (y yamlEncoder) Close() error            { return y.enc.Close() }
