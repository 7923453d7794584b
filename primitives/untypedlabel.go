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

const untypedLabelTag = "UntypedLabel"

// UntypedLabel is Label's heterogeneous sibling: every sub can be a
// different primitive, so each child is written and read as a
// self-contained {"type":..., "data":...} pair rather than sharing one
// "type" tag at the parent level.
type UntypedLabel struct {
	entries float64
	order   []labelEntry
	name    *string
}

func NewUntypedLabel(names []string, subs []aggregator.Aggregator) (*UntypedLabel, error) {
	if len(names) != len(subs) {
		return nil, &aggregator.ValidationError{Primitive: untypedLabelTag, Msg: "names and subs must have equal length"}
	}
	if len(subs) == 0 {
		return nil, &aggregator.ValidationError{Primitive: untypedLabelTag, Msg: "must have at least one sub"}
	}
	order := make([]labelEntry, len(names))
	for i, n := range names {
		order[i] = labelEntry{Name: n, Sub: subs[i]}
	}
	return &UntypedLabel{order: order}, nil
}

func (u *UntypedLabel) Entries() float64 { return u.entries }
func (u *UntypedLabel) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, len(u.order))
	for i, e := range u.order {
		out[i] = e.Sub
	}
	return out
}
func (u *UntypedLabel) FactoryTag() string    { return untypedLabelTag }
func (u *UntypedLabel) QuantityName() *string { return u.name }

func (u *UntypedLabel) Zero() aggregator.Aggregator {
	order := make([]labelEntry, len(u.order))
	for i, e := range u.order {
		order[i] = labelEntry{Name: e.Name, Sub: e.Sub.Zero()}
	}
	return &UntypedLabel{order: order, name: u.name}
}

func (u *UntypedLabel) Fill(datum aggregator.Datum, weight float64) error {
	if !aggregator.FillOK(weight) {
		return nil
	}
	u.entries += weight
	for _, e := range u.order {
		if err := e.Sub.Fill(datum, weight); err != nil {
			return err
		}
	}
	return nil
}

func (u *UntypedLabel) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*UntypedLabel)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: untypedLabelTag, Msg: "operand is not an UntypedLabel"}
	}
	if len(u.order) != len(o.order) {
		return nil, &aggregator.StructureMismatch{Primitive: untypedLabelTag, Msg: "name sets must match"}
	}
	oByName := make(map[string]aggregator.Aggregator, len(o.order))
	for _, e := range o.order {
		oByName[e.Name] = e.Sub
	}
	name, err := aggregator.MergeNames(untypedLabelTag, u.name, o.name)
	if err != nil {
		return nil, err
	}
	order := make([]labelEntry, len(u.order))
	for i, e := range u.order {
		os, ok := oByName[e.Name]
		if !ok {
			return nil, &aggregator.StructureMismatch{Primitive: untypedLabelTag, Msg: "name sets must match: missing " + e.Name}
		}
		if os.FactoryTag() != e.Sub.FactoryTag() {
			return nil, &aggregator.StructureMismatch{Primitive: untypedLabelTag, Msg: "type mismatch for " + e.Name}
		}
		merged, err := e.Sub.Merge(os)
		if err != nil {
			return nil, err
		}
		order[i] = labelEntry{Name: e.Name, Sub: merged}
	}
	return &UntypedLabel{entries: u.entries + o.entries, order: order, name: name}, nil
}

func (u *UntypedLabel) ToJSONFragment(suppressName bool) (interface{}, error) {
	data := make(factory.Obj, 0, len(u.order))
	for _, e := range u.order {
		wrapped, err := factory.EncodeWrapped(e.Sub)
		if err != nil {
			return nil, err
		}
		data = append(data, factory.Pair(e.Name, wrapped))
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(u.entries)),
		factory.Pair("data", data),
	)
	if !suppressName && u.name != nil {
		obj = append(obj, factory.Pair("name", *u.name))
	}
	return obj, nil
}

func init() {
	factory.Register(untypedLabelTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", untypedLabelTag)
		if err != nil {
			return nil, err
		}
		dataRaw, err := factory.RequireField(m, "data", untypedLabelTag)
		if err != nil {
			return nil, err
		}
		order, err := decodeOrderedWrapped(dataRaw, untypedLabelTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &UntypedLabel{entries: entries, order: order, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}

// decodeOrderedWrapped decodes a JSON object of name->{"type","data"}
// pairs into an ordered []labelEntry, preserving document key order.
func decodeOrderedWrapped(raw json.RawMessage, primitive string) ([]labelEntry, error) {
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
		sub, err := factory.DecodeWrapped(childRaw)
		if err != nil {
			return nil, err
		}
		order = append(order, labelEntry{Name: key, Sub: sub})
	}
	return order, nil
}
