package core

import "strconv"

const (
	// AttachScheme prefixes the reference strings that point at a top-level
	// attachment.
	AttachScheme = "attach://"

	attachmentPrefix = "_file"
)

// AttachURI returns the reference string for an attachment name.
func AttachURI(name string) string {
	return AttachScheme + name
}

// Attachments collects files pulled out of nested payload structures during a
// single formatting pass. Names are allocated from the current size at
// insertion time, so insertions must stay sequential.
type Attachments struct {
	names []string
	files map[string]FileHandle
}

// NewAttachments returns an empty accumulator.
func NewAttachments() *Attachments {
	return &Attachments{files: make(map[string]FileHandle)}
}

// Add stores h under a freshly generated name and returns the name.
func (a *Attachments) Add(h FileHandle) string {
	if a.files == nil {
		a.files = make(map[string]FileHandle)
	}
	name := attachmentPrefix + strconv.Itoa(len(a.names))
	a.names = append(a.names, name)
	a.files[name] = h
	return name
}

// Len returns the number of collected files.
func (a *Attachments) Len() int {
	return len(a.names)
}

// Get returns the file stored under name.
func (a *Attachments) Get(name string) (FileHandle, bool) {
	h, ok := a.files[name]
	return h, ok
}

// Names returns the generated names in insertion order.
func (a *Attachments) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// MergeInto sets every collected file as a top-level field of p.
func (a *Attachments) MergeInto(p *Payload) {
	for _, name := range a.names {
		p.Set(name, File{Handle: a.files[name]})
	}
}
