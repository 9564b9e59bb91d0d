// Package treepath reads and writes values inside a jsontree document by
// dotted context path, e.g. "events.3.pages.0.list.12.parameters.0".
//
// A segment made only of ASCII digits addresses a sequence element by
// index; every other segment addresses a mapping field by key. Numeric
// segments are always indices, so a mapping key that is itself a digit
// string cannot be addressed. The extractor never produces such paths.
package treepath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rmmvlt/rmmvlt/jsontree"
)

// ErrPathNotFound is matched by every error returned from Get and Set.
var ErrPathNotFound = errors.New("path not found")

// PathError describes the segment at which a path stopped resolving.
type PathError struct {
	Path    string
	Segment int // index into the parsed segments, -1 for a malformed path
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment < 0 {
		return fmt.Sprintf("path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("path %q at segment %d: %s", e.Path, e.Segment, e.Reason)
}

func (e *PathError) Unwrap() error { return ErrPathNotFound }

// Segment is one step of a path.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is a parsed context path.
type Path []Segment

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Parse splits a context path into segments.
func Parse(path string) (Path, error) {
	if path == "" {
		return nil, &PathError{Path: path, Segment: -1, Reason: "empty path"}
	}
	parts := strings.Split(path, ".")
	out := make(Path, len(parts))
	for i, part := range parts {
		if !isDigits(part) {
			out[i] = Segment{Key: part}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &PathError{Path: path, Segment: i, Reason: "index overflows int"}
		}
		out[i] = Segment{Index: n, IsIndex: true}
	}
	return out, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Get returns the node addressed by path.
func Get(doc *jsontree.Value, path string) (*jsontree.Value, error) {
	p, err := Parse(path)
	if err != nil {
		return nil, err
	}
	parent, err := walk(doc, path, p[:len(p)-1])
	if err != nil {
		return nil, err
	}
	return child(parent, path, p, len(p)-1)
}

// Set replaces the node addressed by path with value. Only the final
// segment is written; the sibling nodes and the shape of the document stay
// as they are. Set never creates missing fields or grows a sequence.
func Set(doc *jsontree.Value, path string, value *jsontree.Value) error {
	p, err := Parse(path)
	if err != nil {
		return err
	}
	last := len(p) - 1
	parent, err := walk(doc, path, p[:last])
	if err != nil {
		return err
	}
	// The final field must already exist so a typo cannot add new keys.
	if _, err := child(parent, path, p, last); err != nil {
		return err
	}

	seg := p[last]
	if seg.IsIndex {
		err = parent.SetIndex(seg.Index, value)
	} else {
		err = parent.SetField(seg.Key, value)
	}
	if err != nil {
		return &PathError{Path: path, Segment: last, Reason: err.Error()}
	}
	return nil
}

// SetString replaces the node addressed by path with a string.
func SetString(doc *jsontree.Value, path, text string) error {
	return Set(doc, path, jsontree.String(text))
}

// GetString returns the string addressed by path.
func GetString(doc *jsontree.Value, path string) (string, error) {
	v, err := Get(doc, path)
	if err != nil {
		return "", err
	}
	s, ok := v.Str()
	if !ok {
		return "", &PathError{Path: path, Segment: -1, Reason: "value is a " + v.Kind().String() + ", not a string"}
	}
	return s, nil
}

func walk(doc *jsontree.Value, path string, p Path) (*jsontree.Value, error) {
	cur := doc
	for i := range p {
		next, err := child(cur, path, p, i)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func child(node *jsontree.Value, path string, p Path, i int) (*jsontree.Value, error) {
	seg := p[i]
	if seg.IsIndex {
		v, err := node.Index(seg.Index)
		if err != nil {
			return nil, &PathError{Path: path, Segment: i, Reason: err.Error()}
		}
		return v, nil
	}
	if node.Kind() != jsontree.KindMapping {
		return nil, &PathError{Path: path, Segment: i, Reason: fmt.Sprintf("key %q into a %s", seg.Key, node.Kind())}
	}
	v, ok := node.Field(seg.Key)
	if !ok {
		return nil, &PathError{Path: path, Segment: i, Reason: fmt.Sprintf("no field %q", seg.Key)}
	}
	return v, nil
}
