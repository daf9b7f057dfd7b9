// Package reply normalizes loosely typed backend replies.
//
// Backends answer with {"message": ...}, {"text": ...}, {"content": ...},
// {"response": ...}, a bare JSON string, or something else entirely. The
// recognized fields are checked in a fixed order and the first present,
// non-empty one wins.
package reply

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrMalformed is returned when a reply body is not valid JSON.
var ErrMalformed = errors.New("malformed reply body")

// Fields is a decoded JSON object with its values left raw.
type Fields map[string]json.RawMessage

// ExtractionRule pairs a predicate with the projection used when it matches.
type ExtractionRule struct {
	Name    string
	Match   func(Fields) bool
	Project func(Fields) string
}

// fieldRule matches when the named field is present and truthy.
func fieldRule(name string) ExtractionRule {
	return ExtractionRule{
		Name: name,
		Match: func(f Fields) bool {
			v, ok := f[name]
			return ok && Truthy(v)
		},
		Project: func(f Fields) string {
			return stringify(f[name])
		},
	}
}

// Rules is the precedence table used by Text. Order matters: the first
// matching rule wins when a reply carries several of these fields.
var Rules = []ExtractionRule{
	fieldRule("message"),
	fieldRule("text"),
	fieldRule("content"),
	fieldRule("response"),
}

// Text returns the display text for a reply body.
func Text(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return "", ErrMalformed
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return s, nil
	case '{':
		var fields Fields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if rule, ok := Match(fields); ok {
			return rule.Project(fields), nil
		}
	}
	return stringify(raw), nil
}

// Match returns the first rule in Rules that applies to fields.
func Match(fields Fields) (ExtractionRule, bool) {
	for _, rule := range Rules {
		if rule.Match(fields) {
			return rule, true
		}
	}
	return ExtractionRule{}, false
}

// Unwrap rewrites {"message": m} into {"content": m} so callers never
// render the envelope. Any other valid body is returned unchanged.
func Unwrap(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, ErrMalformed
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var fields Fields
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg, ok := fields["message"]
	if !ok || !Truthy(msg) {
		return json.RawMessage(trimmed), nil
	}

	out, err := json.Marshal(map[string]json.RawMessage{"content": msg})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Truthy reports whether a raw JSON value counts as present: null, false,
// the empty string and zero do not.
func Truthy(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return false
	}
	switch string(v) {
	case "null", "false", `""`:
		return false
	}
	if v[0] == '-' || (v[0] >= '0' && v[0] <= '9') {
		f, err := strconv.ParseFloat(string(v), 64)
		return err != nil || f != 0
	}
	return true
}

// stringify renders a JSON string as its contents and anything else as
// compact JSON with numbers in their shortest form (1.50 -> 1.5, 1e3 -> 1000).
func stringify(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	out, err := compact(v)
	if err != nil {
		return string(v)
	}
	return out
}

type frame struct {
	object bool
	n      int
}

// compact re-emits v token by token so key order survives.
func compact(v []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()

	var buf bytes.Buffer
	var stack []frame
	sep := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		switch {
		case top.object && top.n%2 == 1:
			buf.WriteByte(':')
		case top.n > 0:
			buf.WriteByte(',')
		}
		top.n++
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case json.Delim:
			if t == '}' || t == ']' {
				buf.WriteByte(byte(t))
				stack = stack[:len(stack)-1]
				continue
			}
			sep()
			buf.WriteByte(byte(t))
			stack = append(stack, frame{object: t == '{'})
		case string:
			sep()
			if err := writeString(&buf, t); err != nil {
				return "", err
			}
		case json.Number:
			sep()
			buf.WriteString(formatNumber(t))
		case bool:
			sep()
			buf.WriteString(strconv.FormatBool(t))
		case nil:
			sep()
			buf.WriteString("null")
		}
	}
	return buf.String(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

func formatNumber(n json.Number) string {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return string(n)
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
