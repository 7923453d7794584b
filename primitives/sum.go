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

const sumTag = "Sum"

// Sum accumulates the weighted sum of a numeric quantity.
type Sum struct {
	entries float64
	sum     float64
	q       *quantity.Quantity
	name    *string
}

// NewSum returns a present-tense Sum filling from q.
func NewSum(q *quantity.Quantity) *Sum {
	return &Sum{q: q, name: q.Name()}
}

func (s *Sum) Entries() float64                  { return s.entries }
func (s *Sum) Children() []aggregator.Aggregator { return nil }
func (s *Sum) FactoryTag() string                { return sumTag }
func (s *Sum) QuantityName() *string             { return s.name }

func (s *Sum) Zero() aggregator.Aggregator {
	return &Sum{q: s.q, name: s.name}
}

func (s *Sum) Fill(datum aggregator.Datum, weight float64) error {
	if s.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := s.q.EvalNumeric(datum)
	s.sum += weight * v
	s.entries += weight
	return nil
}

func (s *Sum) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Sum)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: sumTag, Msg: "operand is not a Sum"}
	}
	name, err := aggregator.MergeNames(sumTag, s.name, o.name)
	if err != nil {
		return nil, err
	}
	return &Sum{
		entries: s.entries + o.entries,
		sum:     s.sum + o.sum,
		q:       resolveQuantity(s.q, o.q),
		name:    name,
	}, nil
}

func (s *Sum) ToJSONFragment(suppressName bool) (interface{}, error) {
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(s.entries)),
		factory.Pair("sum", factory.EncodeFloat(s.sum)),
	)
	if !suppressName && s.name != nil {
		obj = append(obj, factory.Pair("name", *s.name))
	}
	return obj, nil
}

func init() {
	factory.Register(sumTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entriesRaw, err := factory.RequireField(m, "entries", sumTag)
		if err != nil {
			return nil, err
		}
		entries, err := factory.DecodeFloat(entriesRaw)
		if err != nil {
			return nil, err
		}
		sumRaw, err := factory.RequireField(m, "sum", sumTag)
		if err != nil {
			return nil, err
		}
		sum, err := factory.DecodeFloat(sumRaw)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Sum{entries: entries, sum: sum, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
