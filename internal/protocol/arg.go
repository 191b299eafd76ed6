package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tuple is an argument unit whose elements are spread as positional arguments.
type Tuple []any

// Arg is one argument unit in wire form: either a single value passed whole, or a tuple.
type Arg struct {
	Tuple  bool              `json:"tuple,omitempty"`
	Values []json.RawMessage `json:"values"`
}

// NewArg encodes v as an argument unit. A Tuple (or a []json.RawMessage) becomes a tuple;
// any other value, including plain slices, is a single argument.
func NewArg(v any) (Arg, error) {
	switch t := v.(type) {
	case Arg:
		return t, nil
	case Tuple:
		values := make([]json.RawMessage, len(t))
		for i, elem := range t {
			raw, err := json.Marshal(elem)
			if err != nil {
				return Arg{}, fmt.Errorf("encode tuple element %d: %w", i, err)
			}
			values[i] = raw
		}
		return Arg{Tuple: true, Values: values}, nil
	case []json.RawMessage:
		return Arg{Tuple: true, Values: t}, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return Arg{}, fmt.Errorf("encode argument: %w", err)
		}
		return Arg{Values: []json.RawMessage{raw}}, nil
	}
}

// NewArgs encodes every unit of args, keeping their order.
func NewArgs(args []any) ([]Arg, error) {
	out := make([]Arg, len(args))
	for i, v := range args {
		a, err := NewArg(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = a
	}
	return out, nil
}

// String renders the unit the way it would appear in a call, e.g. "1, 2" or "9".
func (a Arg) String() string {
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = string(v)
	}
	s := strings.Join(parts, ", ")
	if len(s) > 120 {
		cut := 117
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
