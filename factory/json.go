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

package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/fnand/histogrammar-go/aggregator"
)

// kv is one key/value pair of an Obj.
type kv struct {
	Key string
	Val interface{}
}

// Pair builds one Obj entry.
func Pair(key string, val interface{}) kv { return kv{Key: key, Val: val} }

// Obj is a JSON object that marshals its fields in the order they were
// given, so that identical aggregator trees produce byte-identical JSON
// (spec.md §6.1: "writing emits a stable order defined per-primitive").
type Obj []kv

func NewObj(pairs ...kv) Obj { return Obj(pairs) }

func (o Obj) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.Val)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeFloat renders f as the canonical JSON scalar: a JSON number, or
// one of the quoted literal strings "nan"/"inf"/"-inf" for non-finite
// values (spec.md §4.9).
func EncodeFloat(f float64) json.RawMessage {
	switch {
	case math.IsNaN(f):
		return json.RawMessage(`"nan"`)
	case math.IsInf(f, 1):
		return json.RawMessage(`"inf"`)
	case math.IsInf(f, -1):
		return json.RawMessage(`"-inf"`)
	default:
		b, _ := json.Marshal(f)
		return b
	}
}

// DecodeFloat parses raw as either a JSON number or one of the
// nan/inf/-inf literals, quoted or bare (readers must accept both per
// spec.md §4.9).
func DecodeFloat(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	switch strings.Trim(s, `"`) {
	case "nan":
		return math.NaN(), nil
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, &aggregator.JsonFormatError{Msg: fmt.Sprintf("bad numeric field %s: %v", s, err)}
	}
	return f, nil
}

// Object unmarshals raw as a JSON object, keeping each field's raw bytes
// for per-primitive decoding.
func Object(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &aggregator.JsonFormatError{Msg: "expected a json object: " + err.Error()}
	}
	return m, nil
}

// RequireField fetches key from m or reports a JsonFormatError naming
// primitive and key.
func RequireField(m map[string]json.RawMessage, key, primitive string) (json.RawMessage, error) {
	v, ok := m[key]
	if !ok {
		return nil, &aggregator.JsonFormatError{Primitive: primitive, Msg: fmt.Sprintf("missing %q", key)}
	}
	return v, nil
}

// DecodeString unmarshals raw as a JSON string.
func DecodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &aggregator.JsonFormatError{Msg: err.Error()}
	}
	return s, nil
}

// OptionalName reads the optional "name" field of a fragment object.
func OptionalName(m map[string]json.RawMessage) (*string, error) {
	raw, ok := m["name"]
	if !ok {
		return nil, nil
	}
	s, err := DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveName picks between a fragment's own "name" field and a name
// carried down from the parent's "<role>:name" sibling key; the two are
// mutually exclusive in well-formed documents, and the fragment's own
// field wins if both happen to be present.
func ResolveName(ownName, nameFromParent *string) *string {
	if ownName != nil {
		return ownName
	}
	return nameFromParent
}
