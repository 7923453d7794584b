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

const branchTag = "Branch"

// Branch is a fixed-arity heterogeneous tuple of subs, addressable by
// position (i0..iN); every sub sees every filled datum. Unlike Index,
// subs need not share a type.
type Branch struct {
	entries float64
	subs    []aggregator.Aggregator
	name    *string
}

func NewBranch(subs []aggregator.Aggregator) (*Branch, error) {
	if len(subs) == 0 {
		return nil, &aggregator.ValidationError{Primitive: branchTag, Msg: "must have at least one sub"}
	}
	return &Branch{subs: append([]aggregator.Aggregator(nil), subs...)}, nil
}

func (b *Branch) Entries() float64 { return b.entries }
func (b *Branch) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, len(b.subs))
	copy(out, b.subs)
	return out
}
func (b *Branch) FactoryTag() string    { return branchTag }
func (b *Branch) QuantityName() *string { return b.name }

func (b *Branch) Zero() aggregator.Aggregator {
	subs := make([]aggregator.Aggregator, len(b.subs))
	for i := range subs {
		subs[i] = b.subs[i].Zero()
	}
	return &Branch{subs: subs, name: b.name}
}

func (b *Branch) Fill(datum aggregator.Datum, weight float64) error {
	if !aggregator.FillOK(weight) {
		return nil
	}
	b.entries += weight
	for _, s := range b.subs {
		if err := s.Fill(datum, weight); err != nil {
			return err
		}
	}
	return nil
}

func (b *Branch) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Branch)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: branchTag, Msg: "operand is not a Branch"}
	}
	if len(b.subs) != len(o.subs) {
		return nil, &aggregator.StructureMismatch{Primitive: branchTag, Msg: "arity mismatch"}
	}
	name, err := aggregator.MergeNames(branchTag, b.name, o.name)
	if err != nil {
		return nil, err
	}
	subs := make([]aggregator.Aggregator, len(b.subs))
	for i := range subs {
		if b.subs[i].FactoryTag() != o.subs[i].FactoryTag() {
			return nil, &aggregator.StructureMismatch{Primitive: branchTag, Msg: "type mismatch at position"}
		}
		subs[i], err = b.subs[i].Merge(o.subs[i])
		if err != nil {
			return nil, err
		}
	}
	return &Branch{entries: b.entries + o.entries, subs: subs, name: name}, nil
}

func (b *Branch) ToJSONFragment(suppressName bool) (interface{}, error) {
	data := make([]interface{}, len(b.subs))
	for i, s := range b.subs {
		wrapped, err := factory.EncodeWrapped(s)
		if err != nil {
			return nil, err
		}
		data[i] = wrapped
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(b.entries)),
		factory.Pair("data", data),
	)
	if !suppressName && b.name != nil {
		obj = append(obj, factory.Pair("name", *b.name))
	}
	return obj, nil
}

func init() {
	factory.Register(branchTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", branchTag)
		if err != nil {
			return nil, err
		}
		dataRaw, err := factory.RequireField(m, "data", branchTag)
		if err != nil {
			return nil, err
		}
		var rawSubs []json.RawMessage
		if err := json.Unmarshal(dataRaw, &rawSubs); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: branchTag, Msg: err.Error()}
		}
		subs := make([]aggregator.Aggregator, len(rawSubs))
		for i, rs := range rawSubs {
			subs[i], err = factory.DecodeWrapped(rs)
			if err != nil {
				return nil, err
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Branch{entries: entries, subs: subs, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
