// Package payloadio reads request payload documents into core payloads and
// renders formatted payloads for display.
//
// A payload document is a JSON or YAML object. A mapping whose only key is
// "$file" stands for a file attachment: {"$file": "photos/cat.jpg"}. Relative
// paths resolve against the decoder's base directory.
package payloadio

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"tgform/internal/core"
)

// FileKey marks a mapping that denotes a file attachment.
const FileKey = "$file"

// maxDepth bounds nesting, which also stops YAML alias loops.
const maxDepth = 256

// YAML aliases may expand to at most aliasExpansionRatio times the number
// of nodes written in the document, plus aliasExpansionFloor.
const (
	aliasExpansionRatio = 10
	aliasExpansionFloor = 10000
)

// Format is a payload document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. An empty name yields "".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return "", nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown payload format %q", name)
	}
}

// DetectFormat picks a format from a file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decoder converts payload documents into core payloads.
type Decoder struct {
	// BaseDir resolves relative $file paths. Empty means the working directory.
	BaseDir string
}

// Decode parses data in the given format. Errors are *core.FormatError of
// type invalid_payload_error.
func (d Decoder) Decode(data []byte, format Format) (*core.Payload, error) {
	switch format {
	case FormatYAML:
		return d.decodeYAML(data)
	case FormatJSON, "":
		return d.decodeJSON(data)
	default:
		return nil, core.NewInvalidPayloadError(fmt.Sprintf("unknown payload format %q", format), nil)
	}
}

func (d Decoder) decodeJSON(data []byte) (*core.Payload, error) {
	if !gjson.ValidBytes(data) {
		return nil, core.NewInvalidPayloadError("payload is not valid JSON", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, core.NewInvalidPayloadError("payload must be a JSON object", nil)
	}
	v, err := d.fromJSON(root, "", 0)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*core.Payload)
	if !ok {
		return nil, core.NewInvalidPayloadError("payload root cannot be a file", nil)
	}
	return p, nil
}

func (d Decoder) fromJSON(r gjson.Result, path string, depth int) (core.Value, error) {
	if depth > maxDepth {
		return nil, tooDeep(path)
	}
	switch r.Type {
	case gjson.Null:
		return core.Null(), nil
	case gjson.False:
		return core.Bool(false), nil
	case gjson.True:
		return core.Bool(true), nil
	case gjson.Number:
		return core.Number(r.Raw), nil
	case gjson.String:
		return core.String(r.Str), nil
	}

	if r.IsArray() {
		seq := core.Sequence{}
		var err error
		i := 0
		r.ForEach(func(_, item gjson.Result) bool {
			var v core.Value
			v, err = d.fromJSON(item, indexPath(path, i), depth+1)
			if err != nil {
				return false
			}
			seq = append(seq, v)
			i++
			return true
		})
		return seq, err
	}

	p := core.NewPayload()
	var err error
	r.ForEach(func(key, item gjson.Result) bool {
		var v core.Value
		v, err = d.fromJSON(item, keyPath(path, key.Str), depth+1)
		if err != nil {
			return false
		}
		p.Set(key.Str, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return d.fileOrMapping(p, path)
}

func (d Decoder) decodeYAML(data []byte) (*core.Payload, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, core.NewInvalidPayloadError("payload is not valid YAML", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, core.NewInvalidPayloadError("payload must be a YAML mapping", nil)
	}
	budget := yamlBudget{remaining: aliasExpansionRatio*countNodes(&doc) + aliasExpansionFloor}
	v, err := d.fromYAML(doc.Content[0], "", 0, &budget)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*core.Payload)
	if !ok {
		return nil, core.NewInvalidPayloadError("payload root cannot be a file", nil)
	}
	return p, nil
}

// yamlBudget counts the nodes a single decode may still build.
type yamlBudget struct {
	remaining int
}

// countNodes counts the nodes written in the document, not following aliases.
func countNodes(n *yaml.Node) int {
	total := 1
	for _, c := range n.Content {
		total += countNodes(c)
	}
	return total
}

func (d Decoder) fromYAML(n *yaml.Node, path string, depth int, budget *yamlBudget) (core.Value, error) {
	if depth > maxDepth {
		return nil, tooDeep(path)
	}
	budget.remaining--
	if budget.remaining < 0 {
		return nil, core.NewInvalidPayloadError(
			fmt.Sprintf("payload expands too many YAML aliases at %q", path), nil)
	}
	switch n.Kind {
	case yaml.AliasNode:
		return d.fromYAML(n.Alias, path, depth+1, budget)
	case yaml.ScalarNode:
		return yamlScalar(n, path)
	case yaml.SequenceNode:
		seq := make(core.Sequence, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := d.fromYAML(item, indexPath(path, i), depth+1, budget)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		p := core.NewPayload()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := d.fromYAML(n.Content[i+1], keyPath(path, key), depth+1, budget)
			if err != nil {
				return nil, err
			}
			p.Set(key, v)
		}
		return d.fileOrMapping(p, path)
	default:
		return nil, core.NewInvalidPayloadError(fmt.Sprintf("unsupported YAML node at %q", path), nil)
	}
}

func yamlScalar(n *yaml.Node, path string) (core.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return core.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, core.NewInvalidPayloadError(fmt.Sprintf("invalid boolean at %q", path), err)
		}
		return core.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, core.NewInvalidPayloadError(fmt.Sprintf("invalid integer at %q", path), err)
		}
		return core.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, core.NewInvalidPayloadError(fmt.Sprintf("invalid number at %q", path), err)
		}
		return core.Float(f), nil
	default:
		return core.String(n.Value), nil
	}
}

// fileOrMapping turns a {"$file": path} mapping into a file value.
func (d Decoder) fileOrMapping(p *core.Payload, path string) (core.Value, error) {
	v, ok := p.Get(FileKey)
	if !ok {
		return p, nil
	}
	s, isScalar := v.(core.Scalar)
	target, isString := s.Interface().(string)
	if p.Len() != 1 || !isScalar || !isString || strings.TrimSpace(target) == "" {
		return nil, core.NewInvalidPayloadError(
			fmt.Sprintf("%s at %q must be the only key and hold a non-empty path", FileKey, path), nil)
	}
	return core.FileOf(core.NewLocalFile(d.resolve(target))), nil
}

func (d Decoder) resolve(path string) string {
	if filepath.IsAbs(path) || d.BaseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(d.BaseDir, path)
}

func tooDeep(path string) error {
	return core.NewInvalidPayloadError(fmt.Sprintf("payload nests deeper than %d levels at %q", maxDepth, path), nil)
}

func keyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
