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
	"github.com/fnand/histogrammar-go/quantity"
)

const selectTag = "Select"

// Select (aka Cut) wraps a sub-aggregator with a boolean-or-numeric
// selection quantity: the sub is filled with weight*selection(datum)
// whenever that product is positive. Histogram is Select ∘ Bin(…, Count).
type Select struct {
	entries   float64
	sub       aggregator.Aggregator
	selection *quantity.Quantity
	name      *string
}

func NewSelect(selection *quantity.Quantity, sub aggregator.Aggregator) *Select {
	return &Select{sub: sub, selection: selection, name: selection.Name()}
}

func (s *Select) Entries() float64                  { return s.entries }
func (s *Select) Children() []aggregator.Aggregator { return []aggregator.Aggregator{s.sub} }
func (s *Select) FactoryTag() string                { return selectTag }
func (s *Select) QuantityName() *string             { return s.name }

func (s *Select) Zero() aggregator.Aggregator {
	return &Select{sub: s.sub.Zero(), selection: s.selection, name: s.name}
}

func (s *Select) Fill(datum aggregator.Datum, weight float64) error {
	if s.selection == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	w := weight * s.selection.EvalNumeric(datum)
	if w <= 0 {
		return nil
	}
	s.entries += weight
	return s.sub.Fill(datum, w)
}

func (s *Select) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Select)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: selectTag, Msg: "operand is not a Select"}
	}
	name, err := aggregator.MergeNames(selectTag, s.name, o.name)
	if err != nil {
		return nil, err
	}
	sub, err := s.sub.Merge(o.sub)
	if err != nil {
		return nil, err
	}
	return &Select{entries: s.entries + o.entries, sub: sub, selection: resolveQuantity(s.selection, o.selection), name: name}, nil
}

func (s *Select) ToJSONFragment(suppressName bool) (interface{}, error) {
	frag, err := s.sub.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(s.entries)),
		factory.Pair("type", s.sub.FactoryTag()),
		factory.Pair("data", frag),
	)
	if !suppressName && s.name != nil {
		obj = append(obj, factory.Pair("name", *s.name))
	}
	return obj, nil
}

func init() {
	factory.Register(selectTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", selectTag)
		if err != nil {
			return nil, err
		}
		subTagRaw, err := factory.RequireField(m, "type", selectTag)
		if err != nil {
			return nil, err
		}
		subTag, err := factory.DecodeString(subTagRaw)
		if err != nil {
			return nil, err
		}
		dataRaw, err := factory.RequireField(m, "data", selectTag)
		if err != nil {
			return nil, err
		}
		sub, err := factory.DecodeChild(subTag, dataRaw, nil)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Select{entries: entries, sub: sub, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
