package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Kind tells how an attempt's body was interpreted.
type Kind int

const (
	// KindJSON means the body is a valid JSON document.
	KindJSON Kind = iota + 1
	// KindText means a relay answered with a body that is not JSON; it is
	// kept verbatim.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// ErrNotJSON is returned by Outcome.Decode for text outcomes.
var ErrNotJSON = errors.New("outcome is plain text, not JSON")

// Outcome is the body of the first attempt that produced a usable response.
type Outcome struct {
	Kind Kind
	// Stage names the attempt that produced the body: "direct", a relay
	// name, or "browser".
	Stage string
	Body  []byte
}

func (o *Outcome) IsJSON() bool { return o != nil && o.Kind == KindJSON }

// Text returns the raw body.
func (o *Outcome) Text() string {
	if o == nil {
		return ""
	}
	return string(o.Body)
}

// Decode unmarshals a JSON outcome into v.
func (o *Outcome) Decode(v any) error {
	if !o.IsJSON() {
		return ErrNotJSON
	}
	return json.Unmarshal(o.Body, v)
}

// Value returns the generic decoded document for JSON outcomes
// (map[string]any, []any, string, float64, bool or nil) and the raw text
// for text outcomes.
func (o *Outcome) Value() (any, error) {
	if o == nil {
		return nil, nil
	}
	if o.Kind == KindText {
		return string(o.Body), nil
	}
	var v any
	if err := json.Unmarshal(o.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// isStructured reports whether body is a JSON object or array.
func isStructured(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(trimmed)
}

// interpret classifies a relay body: JSON when it parses, text otherwise.
func interpret(stage string, body []byte) *Outcome {
	kind := KindText
	if json.Valid(body) {
		kind = KindJSON
	}
	return &Outcome{Kind: kind, Stage: stage, Body: body}
}
