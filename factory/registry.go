// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package factory is the process-wide registry mapping a primitive's
// string tag to its JSON deserializer, plus the canonical JSON codec
// built on top of it. Every built-in primitive calls Register from an
// init() in its own file, mirroring the teacher's init()-based type
// registration in its ion package.
package factory

import (
	"encoding/json"

	"github.com/fnand/histogrammar-go/aggregator"
)

// Decoder reconstructs a past-tense Aggregator from a primitive-specific
// JSON fragment. nameFromParent is non-nil when a parent container
// recorded this child's quantity name once in a "<role>:name" sibling
// key rather than inside the fragment itself.
type Decoder func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error)

var registry = map[string]Decoder{}

// Register adds tag's deserializer to the process-wide registry. It must
// be called only from package-level init() functions, before any
// concurrent FromJSON/DecodeChild calls begin (spec.md §5); calling it
// again for an already-registered tag is a ValidationError.
func Register(tag string, dec Decoder) {
	if _, exists := registry[tag]; exists {
		panic(&aggregator.ValidationError{Primitive: tag, Msg: "duplicate factory registration"})
	}
	registry[tag] = dec
}

// Lookup returns tag's registered decoder, if any.
func Lookup(tag string) (Decoder, bool) {
	dec, ok := registry[tag]
	return dec, ok
}

type wrapped struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeChild decodes a sub-aggregator fragment given its type tag, as
// recorded by a parent container in a "<role>:type" sibling key.
func DecodeChild(tag string, data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
	dec, ok := Lookup(tag)
	if !ok {
		return nil, &aggregator.UnknownType{Tag: tag}
	}
	return dec(data, nameFromParent)
}

// DecodeWrapped decodes a self-contained {"type":..., "data":...} object,
// used by heterogeneous composites (UntypedLabel, Branch) where every
// child carries its own type tag inline.
func DecodeWrapped(raw json.RawMessage) (aggregator.Aggregator, error) {
	var w wrapped
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &aggregator.JsonFormatError{Primitive: "factory", Msg: err.Error()}
	}
	if w.Type == "" {
		return nil, &aggregator.JsonFormatError{Primitive: "factory", Msg: `missing "type"`}
	}
	return DecodeChild(w.Type, w.Data, nil)
}

// EncodeWrapped renders a's self-contained {"type":..., "data":...}
// object, used when writing heterogeneous composites.
func EncodeWrapped(a aggregator.Aggregator) (interface{}, error) {
	frag, err := a.ToJSONFragment(false)
	if err != nil {
		return nil, err
	}
	return wrapped{Type: a.FactoryTag(), Data: mustRaw(frag)}, nil
}

func mustRaw(v interface{}) json.RawMessage {
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		// ToJSONFragment implementations only ever produce
		// json-marshalable shapes (Obj, numbers, strings, slices,
		// maps of the same); a failure here is a programming error,
		// not a runtime condition callers should handle.
		panic(err)
	}
	return b
}

// ToJSON renders the top-level canonical document for a:
// {"type": <tag>, "data": <fragment>}.
func ToJSON(a aggregator.Aggregator) ([]byte, error) {
	frag, err := a.ToJSONFragment(false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wrapped{Type: a.FactoryTag(), Data: mustRaw(frag)})
}

// FromJSON parses text as a top-level document and reconstructs the
// corresponding past-tense aggregator tree.
func FromJSON(text []byte) (aggregator.Aggregator, error) {
	var w wrapped
	if err := json.Unmarshal(text, &w); err != nil {
		return nil, &aggregator.JsonFormatError{Primitive: "factory", Msg: err.Error()}
	}
	if w.Type == "" {
		return nil, &aggregator.JsonFormatError{Primitive: "factory", Msg: `missing "type"`}
	}
	return DecodeChild(w.Type, w.Data, nil)
}
