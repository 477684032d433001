package core

// Field is one named entry of a Payload.
type Field struct {
	Name  string
	Value Value
}

// Payload is an ordered mapping from field name to value. It is used both for
// request bodies and for the nested mappings inside them.
//
// Setting an existing name replaces the value in place; setting a new name
// appends it. A nil *Payload behaves as an empty payload for reads.
type Payload struct {
	fields []Field
	index  map[string]int
}

func (*Payload) isValue() {}

// NewPayload builds a payload from fields in order. Later duplicates replace
// earlier ones.
func NewPayload(fields ...Field) *Payload {
	p := &Payload{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		p.Set(f.Name, f.Value)
	}
	return p
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

// Get returns the value stored under name.
func (p *Payload) Get(name string) (Value, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.fields[i].Value, true
}

// Has reports whether name is present.
func (p *Payload) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Set stores v under name.
func (p *Payload) Set(name string, v Value) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[name]; ok {
		p.fields[i].Value = v
		return
	}
	p.index[name] = len(p.fields)
	p.fields = append(p.fields, Field{Name: name, Value: v})
}

// Keys returns the field names in order.
func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, len(p.fields))
	for i, f := range p.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the fields in order.
func (p *Payload) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Range calls fn for each field in order until fn returns false.
func (p *Payload) Range(fn func(name string, v Value) bool) {
	if p == nil {
		return
	}
	for _, f := range p.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// Clone returns a shallow copy: the field list is new, the values are shared.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return NewPayload()
	}
	return NewPayload(p.fields...)
}
