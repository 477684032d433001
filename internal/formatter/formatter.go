// Package formatter turns Bot API request payloads into transport payloads.
//
// Nested mappings and sequences are JSON encoded so they can travel as form
// fields. Methods that accept files inside nested structures (media groups,
// media edits, stories) get those files pulled up to the top level, where the
// transport sends them as binary parts; the nested structure keeps an
// attach://_fileN reference in their place. Top-level files are left for the
// transport as they are.
//
// See https://core.telegram.org/bots/api#sending-files.
package formatter

import (
	"errors"

	"tgform/internal/core"
)

// RuleKind names the extraction applied to a target field.
type RuleKind string

const (
	// RuleExtractFromArray extracts files from every mapping of a sequence.
	RuleExtractFromArray RuleKind = "extract_from_array"
	// RuleExtractAndMerge extracts files from a single mapping.
	RuleExtractAndMerge RuleKind = "extract_and_merge"
)

// Rule describes a method whose payload nests files.
type Rule struct {
	Method string
	Field  string
	Kind   RuleKind
}

type rule struct {
	Rule
	apply func(p *core.Payload, field string)
}

var rules = []rule{
	{Rule: Rule{Method: "sendMediaGroup", Field: "media", Kind: RuleExtractFromArray}, apply: extractFilesFromArray},
	{Rule: Rule{Method: "editMessageMedia", Field: "media", Kind: RuleExtractAndMerge}, apply: extractAndMerge},
	{Rule: Rule{Method: "postStory", Field: "content", Kind: RuleExtractAndMerge}, apply: extractAndMerge},
}

// Rules returns the special-cased methods in a stable order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = r.Rule
	}
	return out
}

// HasRule reports whether method gets file extraction.
func HasRule(method string) bool {
	_, ok := lookupRule(method)
	return ok
}

func lookupRule(method string) (rule, bool) {
	for _, r := range rules {
		if r.Method == method {
			return r, true
		}
	}
	return rule{}, false
}

// Format returns the transport form of payload for the given API method.
// Every value of the result is a scalar or a file. The input is not modified.
//
// The only error is a *core.FormatError of type serialization_error, returned
// when a nested value has no JSON form.
func Format(payload *core.Payload, method string) (*core.Payload, error) {
	body := payload.Clone()
	if r, ok := lookupRule(method); ok {
		r.apply(body, r.Field)
	}

	for _, name := range body.Keys() {
		v, _ := body.Get(name)
		switch v.(type) {
		case *core.Payload, core.Sequence:
			encoded, err := encodeAt(v, name)
			if err != nil {
				return nil, serializationError(name, err)
			}
			body.Set(name, core.String(encoded))
		}
	}
	return body, nil
}

func serializationError(field string, err error) *core.FormatError {
	var encErr *encodeError
	if errors.As(err, &encErr) {
		return core.NewSerializationError(encErr.path, encErr.err)
	}
	return core.NewSerializationError(field, err)
}
