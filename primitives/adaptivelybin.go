// Copyright (C) 2023 Sneller, Inc.
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
	"github.com/fnand/histogrammar-go/cluster"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const adaptivelyBinTag = "AdaptivelyBin"

// AdaptivelyBin discovers its own bin centers, merging the closest
// adjacent pair of a capped cluster set (package cluster) as new values
// arrive, rather than using fixed edges like Bin/SparselyBin/CentrallyBin.
type AdaptivelyBin struct {
	clusters *cluster.Map
	sub      aggregator.Aggregator // template for each new cluster's sub-aggregator
	nanflow  aggregator.Aggregator
	min, max float64
	hasRange bool
	q        *quantity.Quantity
	name     *string
}

func NewAdaptivelyBin(q *quantity.Quantity, num int, tailDetail float64, sub aggregator.Aggregator) (*AdaptivelyBin, error) {
	m, err := cluster.New(num, tailDetail)
	if err != nil {
		return nil, err
	}
	return &AdaptivelyBin{clusters: m, sub: sub, nanflow: sub.Zero(), q: q, name: q.Name()}, nil
}

func (ab *AdaptivelyBin) Entries() float64 {
	total := ab.nanflow.Entries()
	for _, c := range ab.clusters.Clusters() {
		total += c.Sub.Entries()
	}
	return total
}

func (ab *AdaptivelyBin) Children() []aggregator.Aggregator {
	cs := ab.clusters.Clusters()
	out := make([]aggregator.Aggregator, 0, len(cs)+1)
	for _, c := range cs {
		out = append(out, c.Sub)
	}
	return append(out, ab.nanflow)
}

func (ab *AdaptivelyBin) FactoryTag() string    { return adaptivelyBinTag }
func (ab *AdaptivelyBin) QuantityName() *string { return ab.name }

func (ab *AdaptivelyBin) Zero() aggregator.Aggregator {
	return &AdaptivelyBin{clusters: ab.clusters.Zero(), sub: ab.sub.Zero(), nanflow: ab.nanflow.Zero(), q: ab.q, name: ab.name}
}

func (ab *AdaptivelyBin) Fill(datum aggregator.Datum, weight float64) error {
	if ab.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := ab.q.EvalNumeric(datum)
	if math.IsNaN(v) {
		return ab.nanflow.Fill(datum, weight)
	}
	if !ab.hasRange || v < ab.min {
		ab.min = v
	}
	if !ab.hasRange || v > ab.max {
		ab.max = v
	}
	ab.hasRange = true
	newSub := ab.sub.Zero()
	if err := newSub.Fill(datum, weight); err != nil {
		return err
	}
	return ab.clusters.Insert(v, newSub)
}

func (ab *AdaptivelyBin) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*AdaptivelyBin)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: adaptivelyBinTag, Msg: "operand is not an AdaptivelyBin"}
	}
	name, err := aggregator.MergeNames(adaptivelyBinTag, ab.name, o.name)
	if err != nil {
		return nil, err
	}
	merged, err := cluster.Merge(ab.clusters, o.clusters)
	if err != nil {
		return nil, err
	}
	nanflow, err := ab.nanflow.Merge(o.nanflow)
	if err != nil {
		return nil, err
	}
	min, max, hasRange := ab.min, ab.max, ab.hasRange
	switch {
	case ab.hasRange && o.hasRange:
		if o.min < min {
			min = o.min
		}
		if o.max > max {
			max = o.max
		}
	case o.hasRange:
		min, max, hasRange = o.min, o.max, true
	}
	return &AdaptivelyBin{
		clusters: merged, sub: ab.sub, nanflow: nanflow,
		min: min, max: max, hasRange: hasRange,
		q: resolveQuantity(ab.q, o.q), name: name,
	}, nil
}

func (ab *AdaptivelyBin) ToJSONFragment(suppressName bool) (interface{}, error) {
	cs := ab.clusters.Clusters()
	bins := make([]interface{}, len(cs))
	for i, c := range cs {
		frag, err := c.Sub.ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		bins[i] = factory.NewObj(
			factory.Pair("center", factory.EncodeFloat(c.Center)),
			factory.Pair("value:type", c.Sub.FactoryTag()),
			factory.Pair("value", frag),
		)
	}
	nanflowFrag, err := ab.nanflow.ToJSONFragment(true)
	if err != nil {
		return nil, err
	}
	min, max := ab.min, ab.max
	if !ab.hasRange {
		min, max = math.NaN(), math.NaN()
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(ab.Entries())),
		factory.Pair("num", float64(ab.clusters.Num())),
		factory.Pair("bins:type", ab.sub.FactoryTag()),
		factory.Pair("bins", bins),
		factory.Pair("min", factory.EncodeFloat(min)),
		factory.Pair("max", factory.EncodeFloat(max)),
		factory.Pair("nanflow:type", ab.nanflow.FactoryTag()),
		factory.Pair("nanflow", nanflowFrag),
		factory.Pair("tailDetail", factory.EncodeFloat(ab.clusters.TailDetail())),
	)
	if !suppressName && ab.name != nil {
		obj = append(obj, factory.Pair("name", *ab.name))
	}
	return obj, nil
}

func init() {
	factory.Register(adaptivelyBinTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		numF, err := decodeRequiredFloat(m, "num", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		tailDetail, err := decodeRequiredFloat(m, "tailDetail", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		subTag, err := factory.RequireField(m, "bins:type", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		subTagStr, err := factory.DecodeString(subTag)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		var rawBins []json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: adaptivelyBinTag, Msg: err.Error()}
		}
		cm, err := cluster.New(int(numF), tailDetail)
		if err != nil {
			return nil, err
		}
		for _, rb := range rawBins {
			bm, err := factory.Object(rb)
			if err != nil {
				return nil, err
			}
			center, err := decodeRequiredFloat(bm, "center", adaptivelyBinTag)
			if err != nil {
				return nil, err
			}
			valueRaw, err := factory.RequireField(bm, "value", adaptivelyBinTag)
			if err != nil {
				return nil, err
			}
			sub, err := factory.DecodeChild(subTagStr, valueRaw, nil)
			if err != nil {
				return nil, err
			}
			if err := cm.Insert(center, sub); err != nil {
				return nil, err
			}
		}
		nanflow, err := decodeSink(m, "nanflow", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		min, err := decodeRequiredFloat(m, "min", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		max, err := decodeRequiredFloat(m, "max", adaptivelyBinTag)
		if err != nil {
			return nil, err
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &AdaptivelyBin{
			// nanflow shares the same sub template the original present-tense
			// value was constructed with, so nanflow.Zero() reconstructs it
			// without a dedicated "zero" field in the wire schema.
			clusters: cm, sub: nanflow.Zero(), nanflow: nanflow,
			min: min, max: max, hasRange: !math.IsNaN(min),
			name: factory.ResolveName(ownName, nameFromParent),
		}, nil
	})
}
