// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a FactValue.
type ValueKind string

const (
	ValueText     ValueKind = "text"
	ValueNumber   ValueKind = "number"
	ValueBool     ValueKind = "bool"
	ValueList     ValueKind = "list"
	ValueDocument ValueKind = "document"
)

// FactValue is a tagged union. Only the field matching Kind is meaningful.
// Document is the opaque fallback for payloads without a known shape.
type FactValue struct {
	Kind     ValueKind      `json:"kind"`
	Text     string         `json:"text,omitempty"`
	Number   float64        `json:"number,omitempty"`
	Bool     bool           `json:"bool,omitempty"`
	List     []string       `json:"list,omitempty"`
	Document map[string]any `json:"document,omitempty"`
}

func TextValue(s string) FactValue        { return FactValue{Kind: ValueText, Text: s} }
func NumberValue(n float64) FactValue     { return FactValue{Kind: ValueNumber, Number: n} }
func BoolValue(b bool) FactValue          { return FactValue{Kind: ValueBool, Bool: b} }
func ListValue(items ...string) FactValue { return FactValue{Kind: ValueList, List: items} }

func DocumentValue(doc map[string]any) FactValue {
	return FactValue{Kind: ValueDocument, Document: doc}
}

// ParseValue infers a FactValue from command-line style input: numbers and
// booleans are recognised, JSON objects and string arrays become documents
// and lists, anything else is text.
func ParseValue(raw string) FactValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "true" || trimmed == "false" {
		return BoolValue(trimmed == "true")
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return NumberValue(n)
	}
	if strings.HasPrefix(trimmed, "{") {
		var doc map[string]any
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			return DocumentValue(doc)
		}
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return ListValue(items...)
		}
	}
	return TextValue(raw)
}

func (k ValueKind) Valid() bool {
	switch k {
	case ValueText, ValueNumber, ValueBool, ValueList, ValueDocument:
		return true
	}
	return false
}

// String flattens the value into a single deterministic line. It never
// fails: values that cannot be encoded fall back to fmt formatting.
func (v FactValue) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueList:
		return strings.Join(v.List, ", ")
	case ValueDocument:
		return flattenDocument(v.Document)
	}
	return ""
}

func flattenDocument(doc map[string]any) string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+stringify(doc[k]))
	}
	return strings.Join(parts, "; ")
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	// encoding/json sorts map keys, which keeps nested output stable.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
