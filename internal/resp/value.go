// Package resp implements the RESP1/RESP2 wire protocol: decoding incoming
// command frames and encoding typed replies.
package resp

import (
	"fmt"
	"strconv"
)

// Type is the one-byte RESP type tag.
type Type byte

const (
	SimpleString Type = '+'
	Error        Type = '-'
	Integer      Type = ':'
	Bulk         Type = '$'
	Array        Type = '*'
)

// Value is a RESP message: a request frame or a reply frame. Exactly one of
// the fields is meaningful for a given Type; Null distinguishes a null bulk
// or null array (length -1) from an empty one.
type Value struct {
	Type Type
	Str  string  // SimpleString / Error payload
	Int  int64   // Integer payload
	Bulk []byte  // Bulk payload; may be nil for an empty, non-null bulk
	Arr  []Value // Array elements; may be nil for an empty, non-null array
	Null bool
}

func NewSimpleString(s string) Value { return Value{Type: SimpleString, Str: s} }
func NewError(s string) Value        { return Value{Type: Error, Str: s} }
func NewInteger(n int64) Value       { return Value{Type: Integer, Int: n} }
func NewBulk(b []byte) Value         { return Value{Type: Bulk, Bulk: b} }
func NewBulkString(s string) Value   { return Value{Type: Bulk, Bulk: []byte(s)} }
func NewNullBulk() Value             { return Value{Type: Bulk, Null: true} }
func NewNullArray() Value            { return Value{Type: Array, Null: true} }
func NewArray(vs []Value) Value      { return Value{Type: Array, Arr: vs} }

// OK is the canonical "+OK" reply shared by many handlers.
func OK() Value { return NewSimpleString("OK") }

// Errorf builds an Error reply from a printf-style format.
func Errorf(format string, args ...any) Value {
	return NewError(fmt.Sprintf(format, args...))
}

// IsNil reports whether v represents a null bulk or null array.
func (v Value) IsNil() bool { return v.Null }

// BulkString returns the bulk payload as a string.
func (v Value) BulkString() string { return string(v.Bulk) }

// AsArgs flattens an Array of Bulk values into their string forms.
func (v Value) AsArgs() []string {
	args := make([]string, len(v.Arr))
	for i, e := range v.Arr {
		args[i] = string(e.Bulk)
	}
	return args
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
