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

package primitives

import (
	"bytes"
	"encoding/json"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
)

const labelTag = "Label"

// labelEntry is one (name, sub) pair, kept in insertion order so that
// JSON fragments round-trip byte-identically (spec.md's ordered map).
type labelEntry struct {
	Name string
	Sub  aggregator.Aggregator
}

// Label is an ordered name->sub map where every sub shares the same
// factory tag and every sub sees every filled datum.
type Label struct {
	entries float64
	order   []labelEntry
	name    *string
}

// NewLabel builds a Label from names and subs of equal length and a
// shared factory tag; subs must all report the same FactoryTag.
func NewLabel(names []string, subs []aggregator.Aggregator) (*Label, error) {
	if len(names) != len(subs) {
		return nil, &aggregator.ValidationError{Primitive: labelTag, Msg: "names and subs must have equal length"}
	}
	if len(subs) == 0 {
		return nil, &aggregator.ValidationError{Primitive: labelTag, Msg: "must have at least one sub"}
	}
	tag := subs[0].FactoryTag()
	order := make([]labelEntry, len(names))
	for i, n := range names {
		if subs[i].FactoryTag() != tag {
			return nil, &aggregator.ValidationError{Primitive: labelTag, Msg: "all subs must share the same type"}
		}
		order[i] = labelEntry{Name: n, Sub: subs[i]}
	}
	return &Label{order: order}, nil
}

func (l *Label) Entries() float64 { return l.entries }
func (l *Label) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, len(l.order))
	for i, e := range l.order {
		out[i] = e.Sub
	}
	return out
}
func (l *Label) FactoryTag() string    { return labelTag }
func (l *Label) QuantityName() *string { return l.name }

func (l *Label) Zero() aggregator.Aggregator {
	order := make([]labelEntry, len(l.order))
	for i, e := range l.order {
		order[i] = labelEntry{Name: e.Name, Sub: e.Sub.Zero()}
	}
	return &Label{order: order, name: l.name}
}

func (l *Label) Fill(datum aggregator.Datum, weight float64) error {
	if !aggregator.FillOK(weight) {
		return nil
	}
	l.entries += weight
	for _, e := range l.order {
		if err := e.Sub.Fill(datum, weight); err != nil {
			return err
		}
	}
	return nil
}

func (l *Label) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Label)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: labelTag, Msg: "operand is not a Label"}
	}
	if len(l.order) != len(o.order) {
		return nil, &aggregator.StructureMismatch{Primitive: labelTag, Msg: "name sets must match"}
	}
	oByName := make(map[string]aggregator.Aggregator, len(o.order))
	for _, e := range o.order {
		oByName[e.Name] = e.Sub
	}
	name, err := aggregator.MergeNames(labelTag, l.name, o.name)
	if err != nil {
		return nil, err
	}
	order := make([]labelEntry, len(l.order))
	for i, e := range l.order {
		os, ok := oByName[e.Name]
		if !ok {
			return nil, &aggregator.StructureMismatch{Primitive: labelTag, Msg: "name sets must match: missing " + e.Name}
		}
		merged, err := e.Sub.Merge(os)
		if err != nil {
			return nil, err
		}
		order[i] = labelEntry{Name: e.Name, Sub: merged}
	}
	return &Label{entries: l.entries + o.entries, order: order, name: name}, nil
}

func (l *Label) ToJSONFragment(suppressName bool) (interface{}, error) {
	tag := ""
	data := make(factory.Obj, 0, len(l.order))
	for _, e := range l.order {
		frag, err := e.Sub.ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		tag = e.Sub.FactoryTag()
		data = append(data, factory.Pair(e.Name, frag))
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(l.entries)),
		factory.Pair("type", tag),
		factory.Pair("data", data),
	)
	if !suppressName && l.name != nil {
		obj = append(obj, factory.Pair("name", *l.name))
	}
	return obj, nil
}

func init() {
	factory.Register(labelTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", labelTag)
		if err != nil {
			return nil, err
		}
		tagRaw, err := factory.RequireField(m, "type", labelTag)
		if err != nil {
			return nil, err
		}
		tag, err := factory.DecodeString(tagRaw)
		if err != nil {
			return nil, err
		}
		dataRaw, err := factory.RequireField(m, "data", labelTag)
		if err != nil {
			return nil, err
		}
		order, err := decodeOrderedChildren(dataRaw, tag, labelTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Label{entries: entries, order: order, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}

// decodeOrderedChildren decodes a JSON object of name->fragment pairs
// into an ordered []labelEntry, preserving the document's key order
// (Go's json.Decoder reports object keys in document order via Token).
func decodeOrderedChildren(raw json.RawMessage, tag, primitive string) ([]labelEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, &aggregator.JsonFormatError{Primitive: primitive, Msg: err.Error()}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &aggregator.JsonFormatError{Primitive: primitive, Msg: "expected a json object"}
	}
	var order []labelEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: primitive, Msg: err.Error()}
		}
		key := keyTok.(string)
		var childRaw json.RawMessage
		if err := dec.Decode(&childRaw); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: primitive, Msg: err.Error()}
		}
		sub, err := factory.DecodeChild(tag, childRaw, nil)
		if err != nil {
			return nil, err
		}
		order = append(order, labelEntry{Name: key, Sub: sub})
	}
	return order, nil
}
