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

// Package primitives is the full Histogrammar primitive library: the
// summaries (Count, Sum, Average, Deviate, AbsoluteErr, Minimize,
// Maximize, Quantile, Bag) and the containers (Bin, SparselyBin,
// CentrallyBin, AdaptivelyBin, Categorize, Fraction, Stack, Partition,
// Select, Limit, Label, UntypedLabel, Index, Branch) from spec.md §3.4.
//
// Each primitive collapses the present/past tense split into one Go
// type per spec.md §9's design note: a nil quantity closure (where the
// primitive has one) marks a past-tense, Fill-rejecting instance.
package primitives

import (
	"encoding/json"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
)

const countTag = "Count"

// Count accumulates the weighted count of observations routed into it.
// It takes no quantity: every fill simply adds its weight.
type Count struct {
	entries  float64
	fillable bool
}

// NewCount returns a present-tense Count.
func NewCount() *Count {
	return &Count{fillable: true}
}

func (c *Count) Entries() float64                  { return c.entries }
func (c *Count) Children() []aggregator.Aggregator { return nil }
func (c *Count) FactoryTag() string                { return countTag }
func (c *Count) QuantityName() *string             { return nil }

func (c *Count) Zero() aggregator.Aggregator {
	return &Count{fillable: c.fillable}
}

func (c *Count) Fill(datum aggregator.Datum, weight float64) error {
	if !c.fillable {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	c.entries += weight
	return nil
}

func (c *Count) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Count)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: countTag, Msg: "operand is not a Count"}
	}
	return &Count{entries: c.entries + o.entries, fillable: c.fillable && o.fillable}, nil
}

// ToJSONFragment renders Count's fragment as a bare JSON number
// (spec.md §6.1): {"type":"Count","data":3.5}.
func (c *Count) ToJSONFragment(suppressName bool) (interface{}, error) {
	return factory.EncodeFloat(c.entries), nil
}

func init() {
	factory.Register(countTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		entries, err := factory.DecodeFloat(data)
		if err != nil {
			return nil, err
		}
		return &Count{entries: entries}, nil
	})
}
