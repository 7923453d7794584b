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

const deviateTag = "Deviate"

// Deviate maintains the weighted mean and variance of a numeric
// quantity using Welford's running update for Fill and Chan et al.'s
// parallel-variance combine for Merge (spec.md §9).
type Deviate struct {
	entries float64
	mean    float64
	varSum  float64 // sum of weighted squared deviations (M2); variance = varSum/entries
	q       *quantity.Quantity
	name    *string
}

func NewDeviate(q *quantity.Quantity) *Deviate {
	return &Deviate{q: q, name: q.Name()}
}

func (d *Deviate) Entries() float64                  { return d.entries }
func (d *Deviate) Children() []aggregator.Aggregator { return nil }
func (d *Deviate) FactoryTag() string                { return deviateTag }
func (d *Deviate) QuantityName() *string             { return d.name }

// Variance is varSum/entries, or 0 when no entries have been seen.
func (d *Deviate) Variance() float64 {
	if d.entries <= 0 {
		return 0
	}
	return d.varSum / d.entries
}

func (d *Deviate) Zero() aggregator.Aggregator {
	return &Deviate{q: d.q, name: d.name}
}

func (d *Deviate) Fill(datum aggregator.Datum, weight float64) error {
	if d.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := d.q.EvalNumeric(datum)
	newEntries := d.entries + weight
	delta := v - d.mean
	if newEntries > 0 {
		d.mean += (weight / newEntries) * delta
	}
	d.varSum += weight * delta * (v - d.mean)
	d.entries = newEntries
	return nil
}

func (d *Deviate) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Deviate)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: deviateTag, Msg: "operand is not a Deviate"}
	}
	name, err := aggregator.MergeNames(deviateTag, d.name, o.name)
	if err != nil {
		return nil, err
	}
	entries := d.entries + o.entries
	mean := d.mean
	varSum := d.varSum + o.varSum
	if entries > 0 {
		delta := o.mean - d.mean
		mean = (d.mean*d.entries + o.mean*o.entries) / entries
		// Chan, Golub & LeVeque's parallel-variance combine.
		varSum += delta * delta * d.entries * o.entries / entries
	}
	return &Deviate{
		entries: entries,
		mean:    mean,
		varSum:  varSum,
		q:       resolveQuantity(d.q, o.q),
		name:    name,
	}, nil
}

func (d *Deviate) ToJSONFragment(suppressName bool) (interface{}, error) {
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(d.entries)),
		factory.Pair("mean", factory.EncodeFloat(d.mean)),
		factory.Pair("variance", factory.EncodeFloat(d.Variance())),
	)
	if !suppressName && d.name != nil {
		obj = append(obj, factory.Pair("name", *d.name))
	}
	return obj, nil
}

func init() {
	factory.Register(deviateTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", deviateTag)
		if err != nil {
			return nil, err
		}
		mean, err := decodeRequiredFloat(m, "mean", deviateTag)
		if err != nil {
			return nil, err
		}
		variance, err := decodeRequiredFloat(m, "variance", deviateTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Deviate{entries: entries, mean: mean, varSum: variance * entries, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
