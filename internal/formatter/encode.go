package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"tgform/internal/core"
)

var (
	// ErrNestedFile is returned when a file handle sits where no extraction
	// rule reaches it. A file has no JSON form.
	ErrNestedFile = errors.New("file handle cannot be JSON encoded")
	// ErrCyclicValue is returned for a mapping or sequence that contains itself.
	ErrCyclicValue = errors.New("cyclic value")
)

// encodeError carries the path of the value that failed inside a field.
type encodeError struct {
	path string
	err  error
}

func (e *encodeError) Error() string {
	if e.path == "" {
		return e.err.Error()
	}
	return e.path + ": " + e.err.Error()
}
func (e *encodeError) Unwrap() error { return e.err }

// Encode returns the compact JSON encoding of v. Mapping keys keep payload
// order and HTML characters are not escaped.
func Encode(v core.Value) (string, error) {
	return encodeAt(v, "")
}

// encodeAt encodes v, reporting failures relative to path.
func encodeAt(v core.Value, path string) (string, error) {
	e := &encoder{seen: make(map[any]struct{})}
	if err := e.encode(v, path); err != nil {
		return "", err
	}
	return e.buf.String(), nil
}

// sequenceKey identifies a slice header; sub-slices of one backing array
// are distinct values.
type sequenceKey struct {
	first *core.Value
	n     int
}

type encoder struct {
	buf  bytes.Buffer
	seen map[any]struct{}
}

func (e *encoder) encode(v core.Value, path string) error {
	switch x := v.(type) {
	case nil:
		e.buf.WriteString("null")
		return nil
	case core.Scalar:
		if err := e.writeJSON(x.Interface()); err != nil {
			return &encodeError{path: path, err: err}
		}
		return nil
	case *core.Payload:
		return e.encodeMapping(x, path)
	case core.Sequence:
		return e.encodeSequence(x, path)
	case core.File:
		return &encodeError{path: path, err: ErrNestedFile}
	default:
		return &encodeError{path: path, err: fmt.Errorf("unsupported value type %T", v)}
	}
}

func (e *encoder) encodeMapping(p *core.Payload, path string) error {
	if p == nil {
		e.buf.WriteString("null")
		return nil
	}
	if _, ok := e.seen[p]; ok {
		return &encodeError{path: path, err: ErrCyclicValue}
	}
	e.seen[p] = struct{}{}
	defer delete(e.seen, p)

	e.buf.WriteByte('{')
	var err error
	first := true
	p.Range(func(name string, v core.Value) bool {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		if err = e.writeJSON(name); err != nil {
			return false
		}
		e.buf.WriteByte(':')
		err = e.encode(v, joinKey(path, name))
		return err == nil
	})
	if err != nil {
		return err
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) encodeSequence(s core.Sequence, path string) error {
	if len(s) > 0 {
		key := sequenceKey{first: &s[0], n: len(s)}
		if _, ok := e.seen[key]; ok {
			return &encodeError{path: path, err: ErrCyclicValue}
		}
		e.seen[key] = struct{}{}
		defer delete(e.seen, key)
	}

	e.buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(v, path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

// writeJSON encodes a Go value with HTML escaping disabled.
func (e *encoder) writeJSON(v any) error {
	var scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	e.buf.Write(bytes.TrimSuffix(scratch.Bytes(), []byte{'\n'}))
	return nil
}

func joinKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
