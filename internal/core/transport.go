package core

// TextField is a transport field sent as a text part.
type TextField struct {
	Name string
	Text string
}

// FileField is a transport field sent as a binary part.
type FileField struct {
	Name   string
	Handle FileHandle
}

// TextFields returns the scalar fields of a formatted payload rendered as
// form text, in payload order. Null scalars are skipped.
func (p *Payload) TextFields() []TextField {
	var out []TextField
	p.Range(func(name string, v Value) bool {
		if s, ok := v.(Scalar); ok && !s.IsNull() {
			out = append(out, TextField{Name: name, Text: s.Text()})
		}
		return true
	})
	return out
}

// Files returns the top-level file fields of a formatted payload, in payload
// order.
func (p *Payload) Files() []FileField {
	var out []FileField
	p.Range(func(name string, v Value) bool {
		if f, ok := v.(File); ok {
			out = append(out, FileField{Name: name, Handle: f.Handle})
		}
		return true
	})
	return out
}

// IsTransportReady reports whether every top-level value is a scalar or a file.
func (p *Payload) IsTransportReady() bool {
	ready := true
	p.Range(func(_ string, v Value) bool {
		switch v.(type) {
		case Scalar, File:
			return true
		default:
			ready = false
			return false
		}
	})
	return ready
}
