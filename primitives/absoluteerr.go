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
	"math"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const absoluteErrTag = "AbsoluteErr"

// AbsoluteErr maintains the weighted mean absolute value of a numeric
// quantity, with the same stable running update as Average.
type AbsoluteErr struct {
	entries float64
	mae     float64
	q       *quantity.Quantity
	name    *string
}

func NewAbsoluteErr(q *quantity.Quantity) *AbsoluteErr {
	return &AbsoluteErr{q: q, name: q.Name()}
}

func (a *AbsoluteErr) Entries() float64                  { return a.entries }
func (a *AbsoluteErr) Children() []aggregator.Aggregator { return nil }
func (a *AbsoluteErr) FactoryTag() string                { return absoluteErrTag }
func (a *AbsoluteErr) QuantityName() *string             { return a.name }

func (a *AbsoluteErr) Zero() aggregator.Aggregator {
	return &AbsoluteErr{q: a.q, name: a.name}
}

func (a *AbsoluteErr) Fill(datum aggregator.Datum, weight float64) error {
	if a.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := math.Abs(a.q.EvalNumeric(datum))
	newEntries := a.entries + weight
	if newEntries > 0 {
		a.mae += (weight / newEntries) * (v - a.mae)
	}
	a.entries = newEntries
	return nil
}

func (a *AbsoluteErr) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*AbsoluteErr)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: absoluteErrTag, Msg: "operand is not an AbsoluteErr"}
	}
	name, err := aggregator.MergeNames(absoluteErrTag, a.name, o.name)
	if err != nil {
		return nil, err
	}
	entries := a.entries + o.entries
	mae := a.mae
	if entries > 0 {
		mae = (a.mae*a.entries + o.mae*o.entries) / entries
	}
	return &AbsoluteErr{entries: entries, mae: mae, q: resolveQuantity(a.q, o.q), name: name}, nil
}

func (a *AbsoluteErr) ToJSONFragment(suppressName bool) (interface{}, error) {
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(a.entries)),
		factory.Pair("mae", factory.EncodeFloat(a.mae)),
	)
	if !suppressName && a.name != nil {
		obj = append(obj, factory.Pair("name", *a.name))
	}
	return obj, nil
}

func init() {
	factory.Register(absoluteErrTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", absoluteErrTag)
		if err != nil {
			return nil, err
		}
		mae, err := decodeRequiredFloat(m, "mae", absoluteErrTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &AbsoluteErr{entries: entries, mae: mae, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
