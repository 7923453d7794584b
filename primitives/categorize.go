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

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const categorizeTag = "Categorize"

// Categorize holds one sub-aggregator per distinct observed category
// string, created on demand.
type Categorize struct {
	bins     map[string]aggregator.Aggregator
	template aggregator.Aggregator
	q        *quantity.Quantity
	name     *string
}

func NewCategorize(q *quantity.Quantity, template aggregator.Aggregator) *Categorize {
	return &Categorize{bins: map[string]aggregator.Aggregator{}, template: template, q: q, name: q.Name()}
}

func (c *Categorize) Entries() float64 {
	var total float64
	for _, v := range c.bins {
		total += v.Entries()
	}
	return total
}

func (c *Categorize) sortedKeys() []string {
	keys := maps.Keys(c.bins)
	slices.Sort(keys)
	return keys
}

func (c *Categorize) Children() []aggregator.Aggregator {
	keys := c.sortedKeys()
	out := make([]aggregator.Aggregator, len(keys))
	for i, k := range keys {
		out[i] = c.bins[k]
	}
	return out
}

func (c *Categorize) FactoryTag() string    { return categorizeTag }
func (c *Categorize) QuantityName() *string { return c.name }

func (c *Categorize) Zero() aggregator.Aggregator {
	return &Categorize{bins: map[string]aggregator.Aggregator{}, template: c.template, q: c.q, name: c.name}
}

func (c *Categorize) Fill(datum aggregator.Datum, weight float64) error {
	if c.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	key := c.q.EvalCategorical(datum)
	sub, ok := c.bins[key]
	if !ok {
		sub = c.template.Zero()
		c.bins[key] = sub
	}
	return sub.Fill(datum, weight)
}

func (c *Categorize) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Categorize)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: categorizeTag, Msg: "operand is not a Categorize"}
	}
	name, err := aggregator.MergeNames(categorizeTag, c.name, o.name)
	if err != nil {
		return nil, err
	}
	bins := map[string]aggregator.Aggregator{}
	for k, v := range c.bins {
		bins[k] = v
	}
	for k, v := range o.bins {
		if cur, ok := bins[k]; ok {
			merged, err := cur.Merge(v)
			if err != nil {
				return nil, err
			}
			bins[k] = merged
		} else {
			bins[k] = v
		}
	}
	return &Categorize{bins: bins, template: c.template, q: resolveQuantity(c.q, o.q), name: name}, nil
}

func (c *Categorize) ToJSONFragment(suppressName bool) (interface{}, error) {
	keys := c.sortedKeys()
	valueTag := c.template.FactoryTag()
	binsObj := make(factory.Obj, 0, len(keys))
	for _, k := range keys {
		frag, err := c.bins[k].ToJSONFragment(true)
		if err != nil {
			return nil, err
		}
		valueTag = c.bins[k].FactoryTag()
		binsObj = append(binsObj, factory.Pair(k, frag))
	}
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(c.Entries())),
		factory.Pair("bins:type", valueTag),
		factory.Pair("bins", binsObj),
	)
	if !suppressName && c.name != nil {
		obj = append(obj, factory.Pair("name", *c.name))
	}
	return obj, nil
}

func init() {
	factory.Register(categorizeTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		valueTagRaw, err := factory.RequireField(m, "bins:type", categorizeTag)
		if err != nil {
			return nil, err
		}
		valueTag, err := factory.DecodeString(valueTagRaw)
		if err != nil {
			return nil, err
		}
		binsRaw, err := factory.RequireField(m, "bins", categorizeTag)
		if err != nil {
			return nil, err
		}
		var rawBins map[string]json.RawMessage
		if err := json.Unmarshal(binsRaw, &rawBins); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: categorizeTag, Msg: err.Error()}
		}
		bins := map[string]aggregator.Aggregator{}
		for k, rv := range rawBins {
			bins[k], err = factory.DecodeChild(valueTag, rv, nil)
			if err != nil {
				return nil, err
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		return &Categorize{bins: bins, name: factory.ResolveName(ownName, nameFromParent)}, nil
	})
}
