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

const binTag = "Bin"

// Bin is a dense, regularly-spaced histogram over [low, high) with
// underflow/overflow/nanflow sinks. Bin itself applies no selection
// weight; Select/Cut wraps it when a caller needs one.
type Bin struct {
	num                          int
	low, high                    float64
	values                       []aggregator.Aggregator
	underflow, overflow, nanflow aggregator.Aggregator
	q                            *quantity.Quantity
	name                         *string
}

func NewBin(q *quantity.Quantity, num int, low, high float64, template aggregator.Aggregator) (*Bin, error) {
	if num < 1 {
		return nil, &aggregator.ValidationError{Primitive: binTag, Msg: "num must be >= 1"}
	}
	if !(low < high) {
		return nil, &aggregator.ValidationError{Primitive: binTag, Msg: "low must be < high"}
	}
	values := make([]aggregator.Aggregator, num)
	for i := range values {
		values[i] = template.Zero()
	}
	return &Bin{
		num: num, low: low, high: high, values: values,
		underflow: template.Zero(), overflow: template.Zero(), nanflow: template.Zero(),
		q: q, name: q.Name(),
	}, nil
}

func (b *Bin) Entries() float64 {
	total := b.underflow.Entries() + b.overflow.Entries() + b.nanflow.Entries()
	for _, v := range b.values {
		total += v.Entries()
	}
	return total
}

func (b *Bin) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, 0, len(b.values)+3)
	out = append(out, b.values...)
	return append(out, b.underflow, b.overflow, b.nanflow)
}

func (b *Bin) FactoryTag() string    { return binTag }
func (b *Bin) QuantityName() *string { return b.name }

func (b *Bin) Zero() aggregator.Aggregator {
	values := make([]aggregator.Aggregator, b.num)
	for i := range values {
		values[i] = b.values[i].Zero()
	}
	return &Bin{
		num: b.num, low: b.low, high: b.high, values: values,
		underflow: b.underflow.Zero(), overflow: b.overflow.Zero(), nanflow: b.nanflow.Zero(),
		q: b.q, name: b.name,
	}
}

// index computes the bin index for q, already known to satisfy
// low <= q < high, clamping only the floating-point rounding edge case
// at the top of the last bin (spec.md §4.2).
func (b *Bin) index(q float64) int {
	idx := int(math.Floor(float64(b.num) * (q - b.low) / (b.high - b.low)))
	if idx >= b.num {
		idx = b.num - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func (b *Bin) Fill(datum aggregator.Datum, weight float64) error {
	if b.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	q := b.q.EvalNumeric(datum)
	switch {
	case math.IsNaN(q):
		return b.nanflow.Fill(datum, weight)
	case q < b.low:
		return b.underflow.Fill(datum, weight)
	case q >= b.high:
		return b.overflow.Fill(datum, weight)
	default:
		return b.values[b.index(q)].Fill(datum, weight)
	}
}

func (b *Bin) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Bin)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: binTag, Msg: "operand is not a Bin"}
	}
	if b.num != o.num || b.low != o.low || b.high != o.high {
		return nil, &aggregator.StructureMismatch{Primitive: binTag, Msg: "num/low/high must match"}
	}
	name, err := aggregator.MergeNames(binTag, b.name, o.name)
	if err != nil {
		return nil, err
	}
	values := make([]aggregator.Aggregator, b.num)
	for i := range values {
		values[i], err = b.values[i].Merge(o.values[i])
		if err != nil {
			return nil, err
		}
	}
	underflow, err := b.underflow.Merge(o.underflow)
	if err != nil {
		return nil, err
	}
	overflow, err := b.overflow.Merge(o.overflow)
	if err != nil {
		return nil, err
	}
	nanflow, err := b.nanflow.Merge(o.nanflow)
	if err != nil {
		return nil, err
	}
	return &Bin{
		num: b.num, low: b.low, high: b.high, values: values,
		underflow: underflow, overflow: overflow, nanflow: nanflow,
		q: resolveQuantity(b.q, o.q), name: name,
	}, nil
}

func (b *Bin) ToJSONFragment(suppressName bool) (interface{}, error) {
	valueTag := ""
	values := make([]interface{}, b.num)
	for i, v := range b.values {
		frag, err := v.ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		values[i] = frag
		valueTag = v.FactoryTag()
	}
	underflowFrag, err := b.underflow.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	overflowFrag, err := b.overflow.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	nanflowFrag, err := b.nanflow.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	obj := factory.NewObj(
		factory.Pair("low", factory.EncodeFloat(b.low)),
		factory.Pair("high", factory.EncodeFloat(b.high)),
		factory.Pair("entries", factory.EncodeFloat(b.Entries())),
		factory.Pair("values:type", valueTag),
		factory.Pair("values", values),
		factory.Pair("underflow:type", b.underflow.FactoryTag()),
		factory.Pair("underflow", underflowFrag),
		factory.Pair("overflow:type", b.overflow.FactoryTag()),
		factory.Pair("overflow", overflowFrag),
		factory.Pair("nanflow:type", b.nanflow.FactoryTag()),
		factory.Pair("nanflow", nanflowFrag),
	)
	if !suppressName && b.name != nil {
		obj = append(obj, factory.Pair("name", *b.name))
	}
	return obj, nil
}

func init() {
	factory.Register(binTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		low, err := decodeRequiredFloat(m, "low", binTag)
		if err != nil {
			return nil, err
		}
		high, err := decodeRequiredFloat(m, "high", binTag)
		if err != nil {
			return nil, err
		}
		valueTagRaw, err := factory.RequireField(m, "values:type", binTag)
		if err != nil {
			return nil, err
		}
		valueTag, err := factory.DecodeString(valueTagRaw)
		if err != nil {
			return nil, err
		}
		valuesRaw, err := factory.RequireField(m, "values", binTag)
		if err != nil {
			return nil, err
		}
		var rawValues []json.RawMessage
		if err := json.Unmarshal(valuesRaw, &rawValues); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: binTag, Msg: err.Error()}
		}
		values := make([]aggregator.Aggregator, len(rawValues))
		for i, rv := range rawValues {
			values[i], err = factory.DecodeChild(valueTag, rv, nil)
			if err != nil {
				return nil, err
			}
		}
		underflow, err := decodeSink(m, "underflow", binTag)
		if err != nil {
			return nil, err
		}
		overflow, err := decodeSink(m, "overflow", binTag)
		if err != nil {
			return nil, err
		}
		nanflow, err := decodeSink(m, "nanflow", binTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Bin{
			num: len(values), low: low, high: high, values: values,
			underflow: underflow, overflow: overflow, nanflow: nanflow,
			name: factory.ResolveName(ownName, nameFromParent),
		}, nil
	})
}

// decodeSink decodes a "<role>:type"/"<role>" sink pair shared by Bin,
// SparselyBin, AdaptivelyBin and CentrallyBin's nanflow fields.
func decodeSink(m map[string]json.RawMessage, role, primitive string) (aggregator.Aggregator, error) {
	tagRaw, err := factory.RequireField(m, role+":type", primitive)
	if err != nil {
		return nil, err
	}
	tag, err := factory.DecodeString(tagRaw)
	if err != nil {
		return nil, err
	}
	dataRaw, err := factory.RequireField(m, role, primitive)
	if err != nil {
		return nil, err
	}
	return factory.DecodeChild(tag, dataRaw, nil)
}
