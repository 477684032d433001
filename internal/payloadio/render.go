package payloadio

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"tgform/internal/core"
	"tgform/internal/formatter"
)

// Preview converts a formatted payload into the document shown to users:
// scalar fields become their form text, file fields become
// {"$file": name, "path": path, "size": bytes} with path and size present
// when known.
func Preview(p *core.Payload) *core.Payload {
	out := core.NewPayload()
	p.Range(func(name string, v core.Value) bool {
		switch x := v.(type) {
		case core.Scalar:
			if x.IsNull() {
				out.Set(name, core.Null())
			} else {
				out.Set(name, core.String(x.Text()))
			}
		case core.File:
			out.Set(name, describeFile(x.Handle))
		default:
			out.Set(name, v)
		}
		return true
	})
	return out
}

func describeFile(h core.FileHandle) *core.Payload {
	desc := core.NewPayload()
	if h == nil {
		desc.Set(FileKey, core.Null())
		return desc
	}
	desc.Set(FileKey, core.String(h.Name()))
	switch f := h.(type) {
	case *core.LocalFile:
		desc.Set("path", core.String(f.Path))
		if info, err := os.Stat(f.Path); err == nil {
			desc.Set("size", core.Int(info.Size()))
		}
	case *core.BytesFile:
		desc.Set("size", core.Int(int64(len(f.Data))))
	}
	return desc
}

// Render writes the preview of p as JSON, indented by indent spaces when
// indent > 0, followed by a newline.
func Render(w io.Writer, p *core.Payload, indent int) error {
	encoded, err := formatter.Encode(Preview(p))
	if err != nil {
		return err
	}
	out := []byte(encoded)
	if indent > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", strings.Repeat(" ", indent)); err != nil {
			return err
		}
		out = buf.Bytes()
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}
