// Package jsontree implements an order-preserving, untyped JSON document
// model.
//
// Game data files are read into a tree of *Value nodes. Each node is one of
// six kinds (null, bool, number, string, sequence, mapping) and exposes
// fallible accessors by index or key. Mapping key order and the textual form
// of numbers survive a Parse/Marshal round trip, so re-serializing a patched
// document only changes the values that were replaced.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is one node of a document tree. The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	num    json.Number
	str    string
	seq    []*Value
	keys   []string
	fields map[string]*Value
}

// ErrKind is returned when an accessor is used on a node of the wrong kind.
var ErrKind = errors.New("wrong node kind")

// ErrRange is returned for a sequence index outside the sequence.
var ErrRange = errors.New("index out of range")

func Null() *Value                { return &Value{kind: KindNull} }
func Bool(b bool) *Value          { return &Value{kind: KindBool, b: b} }
func Number(n json.Number) *Value { return &Value{kind: KindNumber, num: n} }
func String(s string) *Value      { return &Value{kind: KindString, str: s} }

// Sequence returns a sequence holding items.
func Sequence(items ...*Value) *Value {
	return &Value{kind: KindSequence, seq: items}
}

// Mapping returns an empty mapping.
func Mapping() *Value {
	return &Value{kind: KindMapping, fields: make(map[string]*Value)}
}

// Kind returns the variant of v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// Str returns the string held by v, and false if v is not a string.
func (v *Value) Str() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.str, true
}

// BoolValue returns the boolean held by v, and false if v is not a bool.
func (v *Value) BoolValue() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// Num returns the number held by v, and false if v is not a number.
func (v *Value) Num() (json.Number, bool) {
	if v.Kind() != KindNumber {
		return "", false
	}
	return v.num, true
}

// Int returns the number held by v as an int64.
func (v *Value) Int() (int64, bool) {
	n, ok := v.Num()
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	return i, err == nil
}

// Len returns the number of children of a sequence or mapping, 0 otherwise.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.keys)
	}
	return 0
}

// Items returns the elements of a sequence. The slice is shared with v.
func (v *Value) Items() []*Value {
	if v.Kind() != KindSequence {
		return nil
	}
	return v.seq
}

// Keys returns the keys of a mapping in document order.
func (v *Value) Keys() []string {
	if v.Kind() != KindMapping {
		return nil
	}
	return v.keys
}

// Index returns the i-th element of a sequence.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind() != KindSequence {
		return nil, fmt.Errorf("%w: indexing a %s", ErrKind, v.Kind())
	}
	if i < 0 || i >= len(v.seq) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrRange, i, len(v.seq))
	}
	return v.seq[i], nil
}

// SetIndex replaces the i-th element of a sequence. It never grows the
// sequence.
func (v *Value) SetIndex(i int, item *Value) error {
	if v.Kind() != KindSequence {
		return fmt.Errorf("%w: indexing a %s", ErrKind, v.Kind())
	}
	if i < 0 || i >= len(v.seq) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrRange, i, len(v.seq))
	}
	v.seq[i] = item
	return nil
}

// Append adds items to the end of a sequence.
func (v *Value) Append(items ...*Value) error {
	if v.Kind() != KindSequence {
		return fmt.Errorf("%w: appending to a %s", ErrKind, v.Kind())
	}
	v.seq = append(v.seq, items...)
	return nil
}

// Field returns the value stored under key in a mapping.
func (v *Value) Field(key string) (*Value, bool) {
	if v.Kind() != KindMapping {
		return nil, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// SetField stores item under key. An existing key keeps its position; a new
// key is appended.
func (v *Value) SetField(key string, item *Value) error {
	if v.Kind() != KindMapping {
		return fmt.Errorf("%w: setting field %q on a %s", ErrKind, key, v.Kind())
	}
	if _, ok := v.fields[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = item
	return nil
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return Null()
	}
	c := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case KindSequence:
		c.seq = make([]*Value, len(v.seq))
		for i, item := range v.seq {
			c.seq[i] = item.Clone()
		}
	case KindMapping:
		c.keys = append([]string(nil), v.keys...)
		c.fields = make(map[string]*Value, len(v.fields))
		for k, f := range v.fields {
			c.fields[k] = f.Clone()
		}
	}
	return c
}

// Interface converts v to plain Go values: nil, bool, json.Number, string,
// []any and map[string]any.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Interface()
		}
		return out
	}
	return nil
}

// Equal reports whether a and b hold the same tree, including mapping key
// order and number text.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindSequence:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i, k := range a.keys {
			if b.keys[i] != k || !Equal(a.fields[k], b.fields[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

var bom = []byte{0xEF, 0xBB, 0xBF}

// ParseFile reads and parses a JSON document.
func ParseFile(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Parse parses a JSON document. A leading UTF-8 byte order mark is ignored.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, bom)))
	dec.UseNumber()

	v, err := decode(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if t, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return nil, fmt.Errorf("parsing JSON: unexpected trailing data %v", t)
	}
	return v, nil
}

func decode(dec *json.Decoder) (*Value, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch tok := t.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(tok), nil
	case json.Number:
		return Number(tok), nil
	case string:
		return String(tok), nil
	case json.Delim:
		switch tok {
		case '[':
			v := Sequence()
			for dec.More() {
				item, err := decode(dec)
				if err != nil {
					return nil, err
				}
				v.seq = append(v.seq, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		case '{':
			v := Mapping()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("expected string key, got %T", kt)
				}
				item, err := decode(dec)
				if err != nil {
					return nil, err
				}
				_ = v.SetField(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", t)
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal serializes v. With an empty indent the output is compact with no
// spaces, the way RPG Maker writes its data files; otherwise every nested
// element goes on its own line prefixed by indent per level. Non-ASCII text
// is written as is.
func Marshal(v *Value, indent string) ([]byte, error) {
	w := &writer{indent: indent}
	w.enc = json.NewEncoder(&w.scratch)
	w.enc.SetEscapeHTML(false)

	if err := w.value(v, 0); err != nil {
		return nil, err
	}
	if indent != "" {
		w.out.WriteByte('\n')
	}
	return w.out.Bytes(), nil
}

type writer struct {
	out     bytes.Buffer
	scratch bytes.Buffer
	enc     *json.Encoder
	indent  string
}

func (w *writer) newline(depth int) {
	if w.indent == "" {
		return
	}
	w.out.WriteByte('\n')
	for i := 0; i < depth; i++ {
		w.out.WriteString(w.indent)
	}
}

func (w *writer) str(s string) error {
	w.scratch.Reset()
	if err := w.enc.Encode(s); err != nil {
		return err
	}
	w.out.Write(bytes.TrimSuffix(w.scratch.Bytes(), []byte{'\n'}))
	return nil
}

func (w *writer) value(v *Value, depth int) error {
	switch v.Kind() {
	case KindNull:
		w.out.WriteString("null")
	case KindBool:
		if v.b {
			w.out.WriteString("true")
		} else {
			w.out.WriteString("false")
		}
	case KindNumber:
		if v.num == "" {
			return fmt.Errorf("empty number")
		}
		w.out.WriteString(string(v.num))
	case KindString:
		return w.str(v.str)
	case KindSequence:
		w.out.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				w.out.WriteByte(',')
			}
			w.newline(depth + 1)
			if err := w.value(item, depth+1); err != nil {
				return err
			}
		}
		if len(v.seq) > 0 {
			w.newline(depth)
		}
		w.out.WriteByte(']')
	case KindMapping:
		w.out.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				w.out.WriteByte(',')
			}
			w.newline(depth + 1)
			if err := w.str(k); err != nil {
				return err
			}
			w.out.WriteByte(':')
			if w.indent != "" {
				w.out.WriteByte(' ')
			}
			if err := w.value(v.fields[k], depth+1); err != nil {
				return err
			}
		}
		if len(v.keys) > 0 {
			w.newline(depth)
		}
		w.out.WriteByte('}')
	}
	return nil
}
