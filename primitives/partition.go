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
	"sort"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const partitionTag = "Partition"

// Partition routes each datum to exactly one of len(cutoffs)+1 adjacent
// half-open intervals [cutoffs[i], cutoffs[i+1]), with an unbounded
// first and last interval, unlike Stack's cumulative routing.
type Partition struct {
	entries float64
	cutoffs []float64
	subs    []aggregator.Aggregator // len(cutoffs)+1
	q       *quantity.Quantity
	name    *string
}

func NewPartition(q *quantity.Quantity, cutoffs []float64, template aggregator.Aggregator) *Partition {
	cs := append([]float64(nil), cutoffs...)
	sort.Float64s(cs)
	subs := make([]aggregator.Aggregator, len(cs)+1)
	for i := range subs {
		subs[i] = template.Zero()
	}
	return &Partition{cutoffs: cs, subs: subs, q: q, name: q.Name()}
}

func (p *Partition) Entries() float64 { return p.entries }
func (p *Partition) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, len(p.subs))
	copy(out, p.subs)
	return out
}
func (p *Partition) FactoryTag() string    { return partitionTag }
func (p *Partition) QuantityName() *string { return p.name }

func (p *Partition) Zero() aggregator.Aggregator {
	subs := make([]aggregator.Aggregator, len(p.subs))
	for i := range subs {
		subs[i] = p.subs[i].Zero()
	}
	return &Partition{cutoffs: p.cutoffs, subs: subs, q: p.q, name: p.name}
}

// intervalIndex finds the index i such that q falls in interval i: the
// number of cutoffs not exceeding q (sort.Search over an ascending list),
// so 0 is the unbounded interval below cutoffs[0].
func (p *Partition) intervalIndex(q float64) int {
	return sort.Search(len(p.cutoffs), func(i int) bool { return p.cutoffs[i] > q })
}

func (p *Partition) Fill(datum aggregator.Datum, weight float64) error {
	if p.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	q := p.q.EvalNumeric(datum)
	p.entries += weight
	return p.subs[p.intervalIndex(q)].Fill(datum, weight)
}

func (p *Partition) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Partition)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: partitionTag, Msg: "operand is not a Partition"}
	}
	if len(p.cutoffs) != len(o.cutoffs) {
		return nil, &aggregator.StructureMismatch{Primitive: partitionTag, Msg: "cutoffs must match"}
	}
	for i := range p.cutoffs {
		if p.cutoffs[i] != o.cutoffs[i] {
			return nil, &aggregator.StructureMismatch{Primitive: partitionTag, Msg: "cutoffs must match"}
		}
	}
	name, err := aggregator.MergeNames(partitionTag, p.name, o.name)
	if err != nil {
		return nil, err
	}
	subs := make([]aggregator.Aggregator, len(p.subs))
	for i := range subs {
		subs[i], err = p.subs[i].Merge(o.subs[i])
		if err != nil {
			return nil, err
		}
	}
	return &Partition{entries: p.entries + o.entries, cutoffs: p.cutoffs, subs: subs, q: resolveQuantity(p.q, o.q), name: name}, nil
}

func (p *Partition) ToJSONFragment(suppressName bool) (interface{}, error) {
	valueTag := ""
	bins := make([]interface{}, len(p.subs))
	for i, sub := range p.subs {
		frag, err := sub.ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		valueTag = sub.FactoryTag()
		bins[i] = frag
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(p.entries)),
		factory.Pair("cutoffs", p.cutoffs),
		factory.Pair("bins:type", valueTag),
		factory.Pair("bins", bins),
	)
	if !suppressName && p.name != nil {
		obj = append(obj, factory.Pair("name", *p.name))
	}
	return obj, nil
}

func init() {
	factory.Register(partitionTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", partitionTag)
		if err != nil {
			return nil, err
		}
		cutoffsRaw, err := factory.RequireField(m, "cutoffs", partitionTag)
		if err != nil {
			return nil, err
		}
		var cutoffs []float64
		if err := json.Unmarshal(cutoffsRaw, &cutoffs); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: partitionTag, Msg: err.Error()}
		}
		valueTagRaw, err := factory.RequireField(m, "bins:type", partitionTag)
		if err != nil {
			return nil, err
		}
		valueTag, err := factory.DecodeString(valueTagRaw)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", partitionTag)
		if err != nil {
			return nil, err
		}
		var rawBins []json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: partitionTag, Msg: err.Error()}
		}
		subs := make([]aggregator.Aggregator, len(rawBins))
		for i, rb := range rawBins {
			subs[i], err = factory.DecodeChild(valueTag, rb, nil)
			if err != nil {
				return nil, err
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Partition{entries: entries, cutoffs: cutoffs, subs: subs, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
