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

	"golang.org/x/exp/slices"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const centrallyBinTag = "CentrallyBin"

// CentrallyBin assigns each datum to the nearest of a fixed, sorted
// list of centers, with ties broken toward the lower center. Unlike
// Bin, the extremes are unbounded — there is no underflow/overflow.
type CentrallyBin struct {
	centers []float64
	subs    []aggregator.Aggregator
	nanflow aggregator.Aggregator
	q       *quantity.Quantity
	name    *string
}

func NewCentrallyBin(q *quantity.Quantity, centers []float64, template aggregator.Aggregator) (*CentrallyBin, error) {
	if len(centers) == 0 {
		return nil, &aggregator.ValidationError{Primitive: centrallyBinTag, Msg: "centers must be non-empty"}
	}
	sorted := append([]float64(nil), centers...)
	slices.Sort(sorted)
	subs := make([]aggregator.Aggregator, len(sorted))
	for i := range subs {
		subs[i] = template.Zero()
	}
	return &CentrallyBin{centers: sorted, subs: subs, nanflow: template.Zero(), q: q, name: q.Name()}, nil
}

func (cb *CentrallyBin) Entries() float64 {
	total := cb.nanflow.Entries()
	for _, s := range cb.subs {
		total += s.Entries()
	}
	return total
}

func (cb *CentrallyBin) Children() []aggregator.Aggregator {
	out := make([]aggregator.Aggregator, 0, len(cb.subs)+1)
	out = append(out, cb.subs...)
	return append(out, cb.nanflow)
}

func (cb *CentrallyBin) FactoryTag() string    { return centrallyBinTag }
func (cb *CentrallyBin) QuantityName() *string { return cb.name }

func (cb *CentrallyBin) Zero() aggregator.Aggregator {
	subs := make([]aggregator.Aggregator, len(cb.subs))
	for i := range subs {
		subs[i] = cb.subs[i].Zero()
	}
	return &CentrallyBin{centers: cb.centers, subs: subs, nanflow: cb.nanflow.Zero(), q: cb.q, name: cb.name}
}

// nearestIndex finds the center closest to q, breaking ties toward the
// lower of an equidistant pair.
func (cb *CentrallyBin) nearestIndex(q float64) int {
	best, bestDist := 0, math.Abs(q-cb.centers[0])
	for i := 1; i < len(cb.centers); i++ {
		d := math.Abs(q - cb.centers[i])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (cb *CentrallyBin) Fill(datum aggregator.Datum, weight float64) error {
	if cb.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	q := cb.q.EvalNumeric(datum)
	if math.IsNaN(q) {
		return cb.nanflow.Fill(datum, weight)
	}
	return cb.subs[cb.nearestIndex(q)].Fill(datum, weight)
}

func (cb *CentrallyBin) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*CentrallyBin)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: centrallyBinTag, Msg: "operand is not a CentrallyBin"}
	}
	if len(cb.centers) != len(o.centers) {
		return nil, &aggregator.StructureMismatch{Primitive: centrallyBinTag, Msg: "centers must match"}
	}
	for i := range cb.centers {
		if cb.centers[i] != o.centers[i] {
			return nil, &aggregator.StructureMismatch{Primitive: centrallyBinTag, Msg: "centers must match"}
		}
	}
	name, err := aggregator.MergeNames(centrallyBinTag, cb.name, o.name)
	if err != nil {
		return nil, err
	}
	subs := make([]aggregator.Aggregator, len(cb.subs))
	for i := range subs {
		subs[i], err = cb.subs[i].Merge(o.subs[i])
		if err != nil {
			return nil, err
		}
	}
	nanflow, err := cb.nanflow.Merge(o.nanflow)
	if err != nil {
		return nil, err
	}
	return &CentrallyBin{centers: cb.centers, subs: subs, nanflow: nanflow, q: resolveQuantity(cb.q, o.q), name: name}, nil
}

func (cb *CentrallyBin) ToJSONFragment(suppressName bool) (interface{}, error) {
	valueTag := ""
	bins := make([]interface{}, len(cb.centers))
	for i, c := range cb.centers {
		frag, err := cb.subs[i].ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		valueTag = cb.subs[i].FactoryTag()
		bins[i] = factory.NewObj(
			factory.Pair("center", factory.EncodeFloat(c)),
			factory.Pair("value", frag),
		)
	}
	nanflowFrag, err := cb.nanflow.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(cb.Entries())),
		factory.Pair("bins:type", valueTag),
		factory.Pair("bins", bins),
		factory.Pair("nanflow:type", cb.nanflow.FactoryTag()),
		factory.Pair("nanflow", nanflowFrag),
	)
	if !suppressName && cb.name != nil {
		obj = append(obj, factory.Pair("name", *cb.name))
	}
	return obj, nil
}

func init() {
	factory.Register(centrallyBinTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		valueTagRaw, err := factory.RequireField(m, "bins:type", centrallyBinTag)
		if err != nil {
			return nil, err
		}
		valueTag, err := factory.DecodeString(valueTagRaw)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", centrallyBinTag)
		if err != nil {
			return nil, err
		}
		var rawBins []json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: centrallyBinTag, Msg: err.Error()}
		}
		centers := make([]float64, len(rawBins))
		subs := make([]aggregator.Aggregator, len(rawBins))
		for i, rb := range rawBins {
			bm, err := factory.Object(rb)
			if err != nil {
				return nil, err
			}
			centers[i], err = decodeRequiredFloat(bm, "center", centrallyBinTag)
			if err != nil {
				return nil, err
			}
			valueRaw, err := factory.RequireField(bm, "value", centrallyBinTag)
			if err != nil {
				return nil, err
			}
			subs[i], err = factory.DecodeChild(valueTag, valueRaw, nil)
			if err != nil {
				return nil, err
			}
		}
		nanflow, err := decodeSink(m, "nanflow", centrallyBinTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &CentrallyBin{centers: centers, subs: subs, nanflow: nanflow, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
