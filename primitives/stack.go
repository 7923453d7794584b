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
	"sort"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const stackTag = "Stack"

// Stack holds one sub-aggregator per cutoff in an ascending list, plus
// one extra sub for "above no cutoff" at the implicit leading -∞
// position (spec.md §4.7): s.cutoffs[0] is always -Inf, so s.subs[0]
// receives every datum whose quantity is not NaN. A datum is routed to
// every sub whose cutoff it meets or exceeds (cumulative, not
// exclusive, routing — unlike Partition).
type Stack struct {
	entries float64
	cutoffs []float64
	subs    []aggregator.Aggregator
	q       *quantity.Quantity
	name    *string
}

func NewStack(q *quantity.Quantity, cutoffs []float64, template aggregator.Aggregator) *Stack {
	cs := make([]float64, 0, len(cutoffs)+1)
	cs = append(cs, math.Inf(-1))
	cs = append(cs, cutoffs...)
	sort.Float64s(cs)
	subs := make([]aggregator.Aggregator, len(cs))
	for i := range subs {
		subs[i] = template.Zero()
	}
	return &Stack{cutoffs: cs, subs: subs, q: q, name: q.Name()}
}

func (s *Stack) Entries() float64 { return s.entries }
func (s *Stack) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, len(s.subs))
	copy(out, s.subs)
	return out
}
func (s *Stack) FactoryTag() string    { return stackTag }
func (s *Stack) QuantityName() *string { return s.name }

func (s *Stack) Zero() aggregator.Aggregator {
	subs := make([]aggregator.Aggregator, len(s.subs))
	for i := range subs {
		subs[i] = s.subs[i].Zero()
	}
	return &Stack{cutoffs: s.cutoffs, subs: subs, q: s.q, name: s.name}
}

func (s *Stack) Fill(datum aggregator.Datum, weight float64) error {
	if s.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	q := s.q.EvalNumeric(datum)
	s.entries += weight
	for i, c := range s.cutoffs {
		if q >= c {
			if err := s.subs[i].Fill(datum, weight); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Stack) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Stack)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: stackTag, Msg: "operand is not a Stack"}
	}
	if len(s.cutoffs) != len(o.cutoffs) {
		return nil, &aggregator.StructureMismatch{Primitive: stackTag, Msg: "cutoffs must match"}
	}
	for i := range s.cutoffs {
		if s.cutoffs[i] != o.cutoffs[i] {
			return nil, &aggregator.StructureMismatch{Primitive: stackTag, Msg: "cutoffs must match"}
		}
	}
	name, err := aggregator.MergeNames(stackTag, s.name, o.name)
	if err != nil {
		return nil, err
	}
	subs := make([]aggregator.Aggregator, len(s.subs))
	for i := range subs {
		subs[i], err = s.subs[i].Merge(o.subs[i])
		if err != nil {
			return nil, err
		}
	}
	return &Stack{entries: s.entries + o.entries, cutoffs: s.cutoffs, subs: subs, q: resolveQuantity(s.q, o.q), name: name}, nil
}

func (s *Stack) ToJSONFragment(suppressName bool) (interface{}, error) {
	valueTag := ""
	bins := make([]interface{}, len(s.cutoffs))
	for i, c := range s.cutoffs {
		frag, err := s.subs[i].ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		valueTag = s.subs[i].FactoryTag()
		bins[i] = factory.NewObj(
			factory.Pair("cutoff", factory.EncodeFloat(c)),
			factory.Pair("value", frag),
		)
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(s.entries)),
		factory.Pair("bins:type", valueTag),
		factory.Pair("bins", bins),
	)
	if !suppressName && s.name != nil {
		obj = append(obj, factory.Pair("name", *s.name))
	}
	return obj, nil
}

func init() {
	factory.Register(stackTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", stackTag)
		if err != nil {
			return nil, err
		}
		valueTagRaw, err := factory.RequireField(m, "bins:type", stackTag)
		if err != nil {
			return nil, err
		}
		valueTag, err := factory.DecodeString(valueTagRaw)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", stackTag)
		if err != nil {
			return nil, err
		}
		var rawBins []json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: stackTag, Msg: err.Error()}
		}
		cutoffs := make([]float64, len(rawBins))
		subs := make([]aggregator.Aggregator, len(rawBins))
		for i, rb := range rawBins {
			bm, err := factory.Object(rb)
			if err != nil {
				return nil, err
			}
			cutoffs[i], err = decodeRequiredFloat(bm, "cutoff", stackTag)
			if err != nil {
				return nil, err
			}
			valueRaw, err := factory.RequireField(bm, "value", stackTag)
			if err != nil {
				return nil, err
			}
			subs[i], err = factory.DecodeChild(valueTag, valueRaw, nil)
			if err != nil {
				return nil, err
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Stack{entries: entries, cutoffs: cutoffs, subs: subs, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
