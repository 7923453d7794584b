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

const averageTag = "Average"

// Average maintains the weighted mean of a numeric quantity with a
// numerically stable one-pass (Welford-style) running update, per
// spec.md §9's design note.
type Average struct {
	entries float64
	mean    float64
	q       *quantity.Quantity
	name    *string
}

func NewAverage(q *quantity.Quantity) *Average {
	return &Average{q: q, name: q.Name()}
}

func (a *Average) Entries() float64                  { return a.entries }
func (a *Average) Children() []aggregator.Aggregator { return nil }
func (a *Average) FactoryTag() string                { return averageTag }
func (a *Average) QuantityName() *string             { return a.name }

func (a *Average) Zero() aggregator.Aggregator {
	return &Average{q: a.q, name: a.name}
}

func (a *Average) Fill(datum aggregator.Datum, weight float64) error {
	if a.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := a.q.EvalNumeric(datum)
	newEntries := a.entries + weight
	if newEntries > 0 {
		a.mean += (weight / newEntries) * (v - a.mean)
	}
	a.entries = newEntries
	return nil
}

func (a *Average) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Average)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: averageTag, Msg: "operand is not an Average"}
	}
	name, err := aggregator.MergeNames(averageTag, a.name, o.name)
	if err != nil {
		return nil, err
	}
	entries := a.entries + o.entries
	mean := a.mean
	if entries > 0 {
		mean = (a.mean*a.entries + o.mean*o.entries) / entries
	}
	return &Average{
		entries: entries,
		mean:    mean,
		q:       resolveQuantity(a.q, o.q),
		name:    name,
	}, nil
}

func (a *Average) ToJSONFragment(suppressName bool) (interface{}, error) {
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(a.entries)),
		factory.Pair("mean", factory.EncodeFloat(a.mean)),
	)
	if !suppressName && a.name != nil {
		obj = append(obj, factory.Pair("name", *a.name))
	}
	return obj, nil
}

func init() {
	factory.Register(averageTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", averageTag)
		if err != nil {
			return nil, err
		}
		mean, err := decodeRequiredFloat(m, "mean", averageTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Average{entries: entries, mean: mean, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}

func decodeRequiredFloat(m map[string]json.RawMessage, key, primitive string) (float64, error) {
	raw, err := factory.RequireField(m, key, primitive)
	if err != nil {
		return 0, err
	}
	return factory.DecodeFloat(raw)
}
