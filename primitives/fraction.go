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

const fractionTag = "Fraction"

// Fraction fills a structurally identical numerator/denominator pair:
// the denominator always receives (datum, weight); the numerator
// receives (datum, weight*selection(datum)).
type Fraction struct {
	entries     float64
	numerator   aggregator.Aggregator
	denominator aggregator.Aggregator
	selection   *quantity.Quantity
	name        *string
}

func NewFraction(selection *quantity.Quantity, template aggregator.Aggregator) *Fraction {
	return &Fraction{
		numerator: template.Zero(), denominator: template.Zero(),
		selection: selection, name: selection.Name(),
	}
}

func (f *Fraction) Entries() float64 { return f.entries }
func (f *Fraction) Children() []aggregator.Aggregator {
	return []aggregator.Aggregator{f.numerator, f.denominator}
}
func (f *Fraction) FactoryTag() string    { return fractionTag }
func (f *Fraction) QuantityName() *string { return f.name }

func (f *Fraction) Zero() aggregator.Aggregator {
	return &Fraction{numerator: f.numerator.Zero(), denominator: f.denominator.Zero(), selection: f.selection, name: f.name}
}

func (f *Fraction) Fill(datum aggregator.Datum, weight float64) error {
	if f.selection == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	f.entries += weight
	if err := f.denominator.Fill(datum, weight); err != nil {
		return err
	}
	numW := weight * f.selection.EvalNumeric(datum)
	if numW <= 0 {
		return nil
	}
	return f.numerator.Fill(datum, numW)
}

func (f *Fraction) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Fraction)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: fractionTag, Msg: "operand is not a Fraction"}
	}
	name, err := aggregator.MergeNames(fractionTag, f.name, o.name)
	if err != nil {
		return nil, err
	}
	num, err := f.numerator.Merge(o.numerator)
	if err != nil {
		return nil, err
	}
	den, err := f.denominator.Merge(o.denominator)
	if err != nil {
		return nil, err
	}
	return &Fraction{entries: f.entries + o.entries, numerator: num, denominator: den, selection: resolveQuantity(f.selection, o.selection), name: name}, nil
}

func (f *Fraction) ToJSONFragment(suppressName bool) (interface{}, error) {
	numFrag, err := f.numerator.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	denFrag, err := f.denominator.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(f.entries)),
		factory.Pair("sub:type", f.denominator.FactoryTag()),
		factory.Pair("numerator", numFrag),
		factory.Pair("denominator", denFrag),
	)
	if !suppressName && f.name != nil {
		obj = append(obj, factory.Pair("name", *f.name))
	}
	return obj, nil
}

func init() {
	factory.Register(fractionTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", fractionTag)
		if err != nil {
			return nil, err
		}
		subTagRaw, err := factory.RequireField(m, "sub:type", fractionTag)
		if err != nil {
			return nil, err
		}
		subTag, err := factory.DecodeString(subTagRaw)
		if err != nil {
			return nil, err
		}
		numRaw, err := factory.RequireField(m, "numerator", fractionTag)
		if err != nil {
			return nil, err
		}
		denRaw, err := factory.RequireField(m, "denominator", fractionTag)
		if err != nil {
			return nil, err
		}
		num, err := factory.DecodeChild(subTag, numRaw, nil)
		if err != nil {
			return nil, err
		}
		den, err := factory.DecodeChild(subTag, denRaw, nil)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Fraction{entries: entries, numerator: num, denominator: den, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
