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
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const sparselyBinTag = "SparselyBin"

// SparselyBin bins on demand: only indices that have actually received
// a fill exist in the map. Reported low/high/num are derived from the
// observed index range, not configured up front.
type SparselyBin struct {
	binWidth float64
	origin   float64
	bins     map[int]aggregator.Aggregator
	nanflow  aggregator.Aggregator
	template aggregator.Aggregator
	q        *quantity.Quantity
	name     *string
}

func NewSparselyBin(q *quantity.Quantity, binWidth, origin float64, template aggregator.Aggregator) (*SparselyBin, error) {
	if !(binWidth > 0) {
		return nil, &aggregator.ValidationError{Primitive: sparselyBinTag, Msg: "binWidth must be > 0"}
	}
	return &SparselyBin{
		binWidth: binWidth, origin: origin, bins: map[int]aggregator.Aggregator{},
		nanflow: template.Zero(), template: template, q: q, name: q.Name(),
	}, nil
}

func (s *SparselyBin) Entries() float64 {
	total := s.nanflow.Entries()
	for _, v := range s.bins {
		total += v.Entries()
	}
	return total
}

func (s *SparselyBin) Children() []aggregator.Aggregator {
	idx := s.sortedIndices()
	out := make([]aggregator.Aggregator, 0, len(idx)+1)
	for _, i := range idx {
		out = append(out, s.bins[i])
	}
	return append(out, s.nanflow)
}

func (s *SparselyBin) FactoryTag() string    { return sparselyBinTag }
func (s *SparselyBin) QuantityName() *string { return s.name }

func (s *SparselyBin) Zero() aggregator.Aggregator {
	return &SparselyBin{
		binWidth: s.binWidth, origin: s.origin, bins: map[int]aggregator.Aggregator{},
		nanflow: s.nanflow.Zero(), template: s.template, q: s.q, name: s.name,
	}
}

func (s *SparselyBin) sortedIndices() []int {
	idx := maps.Keys(s.bins)
	slices.Sort(idx)
	return idx
}

func (s *SparselyBin) indexOf(q float64) int {
	return int(math.Floor((q - s.origin) / s.binWidth))
}

func (s *SparselyBin) Fill(datum aggregator.Datum, weight float64) error {
	if s.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	q := s.q.EvalNumeric(datum)
	if math.IsNaN(q) {
		return s.nanflow.Fill(datum, weight)
	}
	idx := s.indexOf(q)
	sub, ok := s.bins[idx]
	if !ok {
		sub = s.template.Zero()
		s.bins[idx] = sub
	}
	return sub.Fill(datum, weight)
}

// Low, High and Num report the observed bin range (spec.md §4.3); an
// empty SparselyBin has no meaningful range.
func (s *SparselyBin) Low() (float64, bool) {
	idx := s.sortedIndices()
	if len(idx) == 0 {
		return 0, false
	}
	return float64(idx[0])*s.binWidth + s.origin, true
}

func (s *SparselyBin) High() (float64, bool) {
	idx := s.sortedIndices()
	if len(idx) == 0 {
		return 0, false
	}
	return float64(idx[len(idx)-1]+1)*s.binWidth + s.origin, true
}

func (s *SparselyBin) Num() int {
	idx := s.sortedIndices()
	if len(idx) == 0 {
		return 0
	}
	return idx[len(idx)-1] - idx[0] + 1
}

func (s *SparselyBin) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*SparselyBin)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: sparselyBinTag, Msg: "operand is not a SparselyBin"}
	}
	if s.binWidth != o.binWidth || s.origin != o.origin {
		return nil, &aggregator.StructureMismatch{Primitive: sparselyBinTag, Msg: "binWidth/origin must match"}
	}
	name, err := aggregator.MergeNames(sparselyBinTag, s.name, o.name)
	if err != nil {
		return nil, err
	}
	bins := map[int]aggregator.Aggregator{}
	for idx, v := range s.bins {
		bins[idx] = v
	}
	for idx, v := range o.bins {
		if cur, ok := bins[idx]; ok {
			merged, err := cur.Merge(v)
			if err != nil {
				return nil, err
			}
			bins[idx] = merged
		} else {
			bins[idx] = v
		}
	}
	nanflow, err := s.nanflow.Merge(o.nanflow)
	if err != nil {
		return nil, err
	}
	return &SparselyBin{
		binWidth: s.binWidth, origin: s.origin, bins: bins,
		nanflow: nanflow, template: s.template, q: resolveQuantity(s.q, o.q), name: name,
	}, nil
}

func (s *SparselyBin) ToJSONFragment(suppressName bool) (interface{}, error) {
	idx := s.sortedIndices()
	binsObj := make(factory.Obj, 0, len(idx))
	valueTag := s.template.FactoryTag()
	for _, i := range idx {
		frag, err := s.bins[i].ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		valueTag = s.bins[i].FactoryTag()
		binsObj = append(binsObj, factory.Pair(strconv.Itoa(i), frag))
	}
	nanflowFrag, err := s.nanflow.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	obj := factory.NewObj(
		factory.Pair("binWidth", factory.EncodeFloat(s.binWidth)),
		factory.Pair("entries", factory.EncodeFloat(s.Entries())),
		factory.Pair("bins:type", valueTag),
		factory.Pair("bins", binsObj),
		factory.Pair("nanflow:type", s.nanflow.FactoryTag()),
		factory.Pair("nanflow", nanflowFrag),
		factory.Pair("origin", factory.EncodeFloat(s.origin)),
	)
	if !suppressName && s.name != nil {
		obj = append(obj, factory.Pair("name", *s.name))
	}
	return obj, nil
}

func init() {
	factory.Register(sparselyBinTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		binWidth, err := decodeRequiredFloat(m, "binWidth", sparselyBinTag)
		if err != nil {
			return nil, err
		}
		origin, err := decodeRequiredFloat(m, "origin", sparselyBinTag)
		if err != nil {
			return nil, err
		}
		valueTagRaw, err := factory.RequireField(m, "bins:type", sparselyBinTag)
		if err != nil {
			return nil, err
		}
		valueTag, err := factory.DecodeString(valueTagRaw)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", sparselyBinTag)
		if err != nil {
			return nil, err
		}
		var rawBins map[string]json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: sparselyBinTag, Msg: err.Error()}
		}
		bins := map[int]aggregator.Aggregator{}
		for k, rv := range rawBins {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return nil, &aggregator.JsonFormatError{Primitive: sparselyBinTag, Msg: "non-integer bin key " + k}
			}
			bins[idx], err = factory.DecodeChild(valueTag, rv, nil)
			if err != nil {
				return nil, err
			}
		}
		nanflow, err := decodeSink(m, "nanflow", sparselyBinTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &SparselyBin{
			binWidth: binWidth, origin: origin, bins: bins, nanflow: nanflow,
			template: nanflow.Zero(),
			name:     factory.ResolveName(ownName, nameFromParent),
		}, nil
	})
}
