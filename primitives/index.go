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
	"encoding/json"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
)

const indexTag = "Index"

// Index is a position-addressed Label: a fixed-length homogeneous
// sequence of subs, every one of which sees every filled datum.
type Index struct {
	entries float64
	subs    []aggregator.Aggregator
	name    *string
}

func NewIndex(subs []aggregator.Aggregator) (*Index, error) {
	if len(subs) == 0 {
		return nil, &aggregator.ValidationError{Primitive: indexTag, Msg: "must have at least one sub"}
	}
	tag := subs[0].FactoryTag()
	for _, s := range subs {
		if s.FactoryTag() != tag {
			return nil, &aggregator.ValidationError{Primitive: indexTag, Msg: "all subs must share the same type"}
		}
	}
	return &Index{subs: append([]aggregator.Aggregator(nil), subs...)}, nil
}

func (ix *Index) Entries() float64 { return ix.entries }
func (ix *Index) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, len(ix.subs))
	copy(out, ix.subs)
	return out
}
func (ix *Index) FactoryTag() string    { return indexTag }
func (ix *Index) QuantityName() *string { return ix.name }

func (ix *Index) Zero() aggregator.Aggregator {
	subs := make([]aggregator.Aggregator, len(ix.subs))
	for i := range subs {
		subs[i] = ix.subs[i].Zero()
	}
	return &Index{subs: subs, name: ix.name}
}

func (ix *Index) Fill(datum aggregator.Datum, weight float64) error {
	if !aggregator.FillOK(weight) {
		return nil
	}
	ix.entries += weight
	for _, s := range ix.subs {
		if err := s.Fill(datum, weight); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Index)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: indexTag, Msg: "operand is not an Index"}
	}
	if len(ix.subs) != len(o.subs) {
		return nil, &aggregator.StructureMismatch{Primitive: indexTag, Msg: "length mismatch"}
	}
	name, err := aggregator.MergeNames(indexTag, ix.name, o.name)
	if err != nil {
		return nil, err
	}
	subs := make([]aggregator.Aggregator, len(ix.subs))
	for i := range subs {
		subs[i], err = ix.subs[i].Merge(o.subs[i])
		if err != nil {
			return nil, err
		}
	}
	return &Index{entries: ix.entries + o.entries, subs: subs, name: name}, nil
}

func (ix *Index) ToJSONFragment(suppressName bool) (interface{}, error) {
	tag := ""
	data := make([]interface{}, len(ix.subs))
	for i, s := range ix.subs {
		frag, err := s.ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		tag = s.FactoryTag()
		data[i] = frag
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(ix.entries)),
		factory.Pair("type", tag),
		factory.Pair("data", data),
	)
	if !suppressName && ix.name != nil {
		obj = append(obj, factory.Pair("name", *ix.name))
	}
	return obj, nil
}

func init() {
	factory.Register(indexTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", indexTag)
		if err != nil {
			return nil, err
		}
		tagRaw, err := factory.RequireField(m, "type", indexTag)
		if err != nil {
			return nil, err
		}
		tag, err := factory.DecodeString(tagRaw)
		if err != nil {
			return nil, err
		}
		dataRaw, err := factory.RequireField(m, "data", indexTag)
		if err != nil {
			return nil, err
		}
		var rawSubs []json.RawMessage
		if err := json.Unmarshal(dataRaw, &rawSubs); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: indexTag, Msg: err.Error()}
		}
		subs := make([]aggregator.Aggregator, len(rawSubs))
		for i, rs := range rawSubs {
			subs[i], err = factory.DecodeChild(tag, rs, nil)
			if err != nil {
				return nil, err
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Index{entries: entries, subs: subs, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
