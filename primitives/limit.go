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

const limitTag = "Limit"

// Limit wraps a sub-aggregator that is dropped (retained as "none")
// once entries strictly exceeds capacity (the Open Question's
// strictly-greater-drops decision). Merge propagates the drop if
// either side's combined entries would exceed capacity.
type Limit struct {
	entries  float64
	capacity float64
	sub      aggregator.Aggregator // nil once dropped
	q        *quantity.Quantity
	name     *string
}

func NewLimit(q *quantity.Quantity, capacity float64, sub aggregator.Aggregator) *Limit {
	return &Limit{capacity: capacity, sub: sub, q: q, name: q.Name()}
}

func (l *Limit) Entries() float64 { return l.entries }

func (l *Limit) Children() []aggregator.Aggregator {
	if l.sub == nil {
		return nil
	}
	return []aggregator.Aggregator{l.sub}
}

func (l *Limit) FactoryTag() string    { return limitTag }
func (l *Limit) QuantityName() *string { return l.name }

func (l *Limit) Saturated() bool { return l.sub == nil }

func (l *Limit) Zero() aggregator.Aggregator {
	var sub aggregator.Aggregator
	if l.sub != nil {
		sub = l.sub.Zero()
	}
	return &Limit{capacity: l.capacity, sub: sub, q: l.q, name: l.name}
}

func (l *Limit) Fill(datum aggregator.Datum, weight float64) error {
	if l.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	l.entries += weight
	if l.entries > l.capacity {
		l.sub = nil
		return nil
	}
	if l.sub == nil {
		return nil
	}
	return l.sub.Fill(datum, weight)
}

func (l *Limit) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Limit)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: limitTag, Msg: "operand is not a Limit"}
	}
	if l.capacity != o.capacity {
		return nil, &aggregator.StructureMismatch{Primitive: limitTag, Msg: "capacity must match"}
	}
	name, err := aggregator.MergeNames(limitTag, l.name, o.name)
	if err != nil {
		return nil, err
	}
	entries := l.entries + o.entries
	var sub aggregator.Aggregator
	if entries <= l.capacity && l.sub != nil && o.sub != nil {
		sub, err = l.sub.Merge(o.sub)
		if err != nil {
			return nil, err
		}
	}
	return &Limit{entries: entries, capacity: l.capacity, sub: sub, q: resolveQuantity(l.q, o.q), name: name}, nil
}

func (l *Limit) ToJSONFragment(suppressName bool) (interface{}, error) {
	var subTag string
	var frag interface{}
	if l.sub != nil {
		var err error
		frag, err = l.sub.ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		subTag = l.sub.FactoryTag()
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(l.entries)),
		factory.Pair("capacity", factory.EncodeFloat(l.capacity)),
		factory.Pair("type", subTag),
		factory.Pair("data", frag),
	)
	if !suppressName && l.name != nil {
		obj = append(obj, factory.Pair("name", *l.name))
	}
	return obj, nil
}

func init() {
	factory.Register(limitTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", limitTag)
		if err != nil {
			return nil, err
		}
		capacity, err := decodeRequiredFloat(m, "capacity", limitTag)
		if err != nil {
			return nil, err
		}
		var sub aggregator.Aggregator
		if entries <= capacity {
			subTagRaw, err := factory.RequireField(m, "type", limitTag)
			if err != nil {
				return nil, err
			}
			subTag, err := factory.DecodeString(subTagRaw)
			if err != nil {
				return nil, err
			}
			if subTag != "" {
				dataRaw, err := factory.RequireField(m, "data", limitTag)
				if err != nil {
					return nil, err
				}
				sub, err = factory.DecodeChild(subTag, dataRaw, nil)
				if err != nil {
					return nil, err
				}
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Limit{entries: entries, capacity: capacity, sub: sub, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
