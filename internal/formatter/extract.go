package formatter

import "tgform/internal/core"

// replaceField replaces the value stored under name with transform(value).
// It reports whether the field was present; an absent field is left alone.
func replaceField(p *core.Payload, name string, transform func(core.Value) core.Value) bool {
	v, ok := p.Get(name)
	if !ok {
		return false
	}
	p.Set(name, transform(v))
	return true
}

// extractFiles returns a copy of a mapping in which every file value is
// replaced by an attach:// reference, recording the file in files. Only the
// first level is inspected. Anything that is not a mapping is returned as is.
func extractFiles(v core.Value, files *core.Attachments) core.Value {
	m, ok := v.(*core.Payload)
	if !ok || m == nil {
		return v
	}
	out := core.NewPayload()
	m.Range(func(name string, val core.Value) bool {
		if f, isFile := val.(core.File); isFile {
			out.Set(name, core.String(core.AttachURI(files.Add(f.Handle))))
			return true
		}
		out.Set(name, val)
		return true
	})
	return out
}

// extractAndMerge runs extractFiles over the mapping stored in field and puts
// the extracted files at the top level of p.
func extractAndMerge(p *core.Payload, field string) {
	files := core.NewAttachments()
	replaceField(p, field, func(v core.Value) core.Value {
		return extractFiles(v, files)
	})
	files.MergeInto(p)
}

// extractFilesFromArray runs extractFiles over every element of the sequence
// stored in field with one shared accumulator, so names stay unique across
// the whole sequence. A value that is not a sequence is left unchanged.
func extractFilesFromArray(p *core.Payload, field string) {
	files := core.NewAttachments()
	replaceField(p, field, func(v core.Value) core.Value {
		seq, ok := v.(core.Sequence)
		if !ok {
			return v
		}
		out := make(core.Sequence, len(seq))
		for i, item := range seq {
			out[i] = extractFiles(item, files)
		}
		return out
	})
	files.MergeInto(p)
}
