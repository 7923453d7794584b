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

const quantileTag = "Quantile"

// quantileClusterNum and quantileTailDetail are fixed rather than
// user-configurable: Quantile only ever needs enough resolution to
// interpolate a single target p (see Open Question decision in
// SPEC_FULL.md §6), unlike AdaptivelyBin's user-tunable num/tailDetail.
const (
	quantileClusterNum = 64
	quantileTailDetail = 0.5
)

// Quantile estimates a single target quantile p of a numeric quantity.
// Built on the same adaptive cluster set as AdaptivelyBin rather than a
// classic streaming P² estimator, because only the cluster-merge
// formulation satisfies the associative/commutative monoid laws Merge
// requires: P²'s internal marker-position state has no meaningful
// combine rule across two independently-filled instances.
type Quantile struct {
	p        float64
	clusters *cluster.Map
	q        *quantity.Quantity
	name     *string
}

func NewQuantile(q *quantity.Quantity, p float64) (*Quantile, error) {
	if p < 0 || p > 1 {
		return nil, &aggregator.ValidationError{Primitive: quantileTag, Msg: "p must be in [0,1]"}
	}
	m, err := cluster.New(quantileClusterNum, quantileTailDetail)
	if err != nil {
		return nil, err
	}
	return &Quantile{p: p, clusters: m, q: q, name: q.Name()}, nil
}

func (qt *Quantile) Entries() float64 {
	var total float64
	for _, c := range qt.clusters.Clusters() {
		total += c.Sub.Entries()
	}
	return total
}

func (qt *Quantile) Children() []aggregator.Aggregator { return nil }
func (qt *Quantile) FactoryTag() string                { return quantileTag }
func (qt *Quantile) QuantityName() *string             { return qt.name }

func (qt *Quantile) Zero() aggregator.Aggregator {
	return &Quantile{p: qt.p, clusters: qt.clusters.Zero(), q: qt.q, name: qt.name}
}

func (qt *Quantile) Fill(datum aggregator.Datum, weight float64) error {
	if qt.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := qt.q.EvalNumeric(datum)
	if math.IsNaN(v) {
		return nil
	}
	return qt.clusters.Insert(v, NewCount().fillWeight(weight))
}

// fillWeight is a tiny helper so Quantile.Fill doesn't need its own
// Datum to drive Count.Fill; it sets the cluster's weight directly.
func (c *Count) fillWeight(weight float64) *Count {
	c.entries = weight
	return c
}

func (qt *Quantile) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Quantile)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: quantileTag, Msg: "operand is not a Quantile"}
	}
	if qt.p != o.p {
		return nil, &aggregator.StructureMismatch{Primitive: quantileTag, Msg: "p differs"}
	}
	name, err := aggregator.MergeNames(quantileTag, qt.name, o.name)
	if err != nil {
		return nil, err
	}
	merged, err := cluster.Merge(qt.clusters, o.clusters)
	if err != nil {
		return nil, err
	}
	return &Quantile{p: qt.p, clusters: merged, q: resolveQuantity(qt.q, o.q), name: name}, nil
}

// Estimate interpolates the p-th quantile from the weighted cluster
// centers, the same cumulative-weight interpolation tdigest.Percentile
// uses over its centroid list: each cluster's center sits at the middle
// of its span of cumulative weight, and the target weight p*total is
// interpolated linearly between the two neighbouring centers.
func (qt *Quantile) Estimate() float64 {
	cs := qt.clusters.Clusters()
	if len(cs) == 0 {
		return math.NaN()
	}
	if len(cs) == 1 {
		return cs[0].Center
	}
	total := 0.0
	for _, c := range cs {
		total += c.Sub.Entries()
	}
	if total <= 0 {
		return cs[0].Center
	}
	target := qt.p * total
	cumulative, prevMid := 0.0, 0.0
	for i, c := range cs {
		w := c.Sub.Entries()
		mid := cumulative + w/2
		if target <= mid {
			if i == 0 {
				return c.Center
			}
			prev := cs[i-1]
			frac := (target - prevMid) / (mid - prevMid)
			return prev.Center + frac*(c.Center-prev.Center)
		}
		cumulative += w
		prevMid = mid
	}
	return cs[len(cs)-1].Center
}

func (qt *Quantile) ToJSONFragment(suppressName bool) (interface{}, error) {
	cs := qt.clusters.Clusters()
	bins := make([]interface{}, len(cs))
	for i, c := range cs {
		bins[i] = factory.NewObj(
			factory.Pair("center", factory.EncodeFloat(c.Center)),
			factory.Pair("entries", factory.EncodeFloat(c.Sub.Entries())),
		)
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(qt.Entries())),
		factory.Pair("p", factory.EncodeFloat(qt.p)),
		factory.Pair("estimate", factory.EncodeFloat(qt.Estimate())),
		factory.Pair("bins", bins),
	)
	if !suppressName && qt.name != nil {
		obj = append(obj, factory.Pair("name", *qt.name))
	}
	return obj, nil
}

func init() {
	factory.Register(quantileTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		p, err := decodeRequiredFloat(m, "p", quantileTag)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", quantileTag)
		if err != nil {
			return nil, err
		}
		var rawBins []json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: quantileTag, Msg: err.Error()}
		}
		cm, err := cluster.New(quantileClusterNum, quantileTailDetail)
		if err != nil {
			return nil, err
		}
		for _, rb := range rawBins {
			bm, err := factory.Object(rb)
			if err != nil {
				return nil, err
			}
			center, err := decodeRequiredFloat(bm, "center", quantileTag)
			if err != nil {
				return nil, err
			}
			entries, err := decodeRequiredFloat(bm, "entries", quantileTag)
			if err != nil {
				return nil, err
			}
			if err := cm.Insert(center, NewCount().fillWeight(entries)); err != nil {
				return nil, err
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Quantile{p: p, clusters: cm, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
