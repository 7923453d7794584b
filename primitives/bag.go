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
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"

	"github.com/dchest/siphash"
	"golang.org/x/exp/slices"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const bagTag = "Bag"

// Fixed hash seed for the Bag vector-key bucket index; any fixed pair
// works since the hash is only ever used within one process's lifetime
// and never persisted (spec.md's Non-goals exclude on-disk storage).
const bagSipK0, bagSipK1 = 0, 0

type vecEntry struct {
	key    []float64
	weight float64
}

// Bag accumulates the weight sum of each distinct observed value of a
// quantity. Scalars and strings use a plain Go map (they're directly
// comparable); vector keys are not comparable in Go, so Bag buckets them
// by a SipHash-2-4 digest of their bytes (grounded on
// vm/siphash_generic.go / ion/zion/zll/hash.go's keyed-hash bucketing)
// and resolves collisions by exact element-wise comparison.
type Bag struct {
	entries float64
	scalars map[float64]float64
	strs    map[string]float64
	vecs    map[uint64][]vecEntry
	vecLen  int // 0 until the first vector key fixes it
	q       *quantity.Quantity
	name    *string
}

func NewBag(q *quantity.Quantity) *Bag {
	return &Bag{q: q, name: q.Name()}
}

func (b *Bag) Entries() float64                  { return b.entries }
func (b *Bag) Children() []aggregator.Aggregator { return nil }
func (b *Bag) FactoryTag() string                { return bagTag }
func (b *Bag) QuantityName() *string             { return b.name }

func (b *Bag) Zero() aggregator.Aggregator {
	return &Bag{q: b.q, name: b.name}
}

func vecHash(v []float64) uint64 {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return siphash.Hash(bagSipK0, bagSipK1, buf)
}

func vecEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (b *Bag) Fill(datum aggregator.Datum, weight float64) error {
	if b.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	switch b.q.Kind() {
	case quantity.Numeric:
		if b.scalars == nil {
			b.scalars = map[float64]float64{}
		}
		b.scalars[b.q.EvalNumeric(datum)] += weight
	case quantity.Categorical:
		if b.strs == nil {
			b.strs = map[string]float64{}
		}
		b.strs[b.q.EvalCategorical(datum)] += weight
	case quantity.Vector:
		v := b.q.EvalVector(datum)
		if b.vecLen == 0 {
			b.vecLen = len(v)
		} else if len(v) != b.vecLen {
			return &aggregator.ValidationError{Primitive: bagTag, Msg: "vector keys must share a fixed length"}
		}
		if b.vecs == nil {
			b.vecs = map[uint64][]vecEntry{}
		}
		h := vecHash(v)
		bucket := b.vecs[h]
		found := false
		for i := range bucket {
			if vecEqual(bucket[i].key, v) {
				bucket[i].weight += weight
				found = true
				break
			}
		}
		if !found {
			bucket = append(bucket, vecEntry{key: append([]float64(nil), v...), weight: weight})
		}
		b.vecs[h] = bucket
	}
	b.entries += weight
	return nil
}

func (b *Bag) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Bag)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: bagTag, Msg: "operand is not a Bag"}
	}
	if b.vecLen != 0 && o.vecLen != 0 && b.vecLen != o.vecLen {
		return nil, &aggregator.StructureMismatch{Primitive: bagTag, Msg: "vector key lengths differ"}
	}
	name, err := aggregator.MergeNames(bagTag, b.name, o.name)
	if err != nil {
		return nil, err
	}
	out := &Bag{entries: b.entries + o.entries, q: resolveQuantity(b.q, o.q), name: name}
	if b.vecLen != 0 {
		out.vecLen = b.vecLen
	} else {
		out.vecLen = o.vecLen
	}
	if len(b.scalars) > 0 || len(o.scalars) > 0 {
		out.scalars = map[float64]float64{}
		for k, w := range b.scalars {
			out.scalars[k] += w
		}
		for k, w := range o.scalars {
			out.scalars[k] += w
		}
	}
	if len(b.strs) > 0 || len(o.strs) > 0 {
		out.strs = map[string]float64{}
		for k, w := range b.strs {
			out.strs[k] += w
		}
		for k, w := range o.strs {
			out.strs[k] += w
		}
	}
	if len(b.vecs) > 0 || len(o.vecs) > 0 {
		out.vecs = map[uint64][]vecEntry{}
		merge := func(src map[uint64][]vecEntry) {
			for h, bucket := range src {
				for _, e := range bucket {
					dst := out.vecs[h]
					found := false
					for i := range dst {
						if vecEqual(dst[i].key, e.key) {
							dst[i].weight += e.weight
							found = true
							break
						}
					}
					if !found {
						dst = append(dst, vecEntry{key: e.key, weight: e.weight})
					}
					out.vecs[h] = dst
				}
			}
		}
		merge(b.vecs)
		merge(o.vecs)
	}
	return out, nil
}

type bagItem struct {
	W float64     `json:"w"`
	N interface{} `json:"n,omitempty"`
	S *string     `json:"s,omitempty"`
	V []float64   `json:"v,omitempty"`
}

func (b *Bag) ToJSONFragment(suppressName bool) (interface{}, error) {
	items := make([]bagItem, 0, len(b.scalars)+len(b.strs))
	nums := make([]float64, 0, len(b.scalars))
	for k := range b.scalars {
		nums = append(nums, k)
	}
	sort.Float64s(nums)
	for _, k := range nums {
		items = append(items, bagItem{W: b.scalars[k], N: factory.EncodeFloat(k)})
	}
	strs := make([]string, 0, len(b.strs))
	for k := range b.strs {
		strs = append(strs, k)
	}
	slices.Sort(strs)
	for _, k := range strs {
		k := k
		items = append(items, bagItem{W: b.strs[k], S: &k})
	}
	var vecs [][]float64
	for _, bucket := range b.vecs {
		for _, e := range bucket {
			vecs = append(vecs, e.key)
		}
	}
	sort.Slice(vecs, func(i, j int) bool { return vecLess(vecs[i], vecs[j]) })
	for _, v := range vecs {
		items = append(items, bagItem{W: lookupVecWeight(b, v), V: v})
	}

	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(b.entries)),
		factory.Pair("values", items),
	)
	if !suppressName && b.name != nil {
		obj = append(obj, factory.Pair("name", *b.name))
	}
	return obj, nil
}

func vecLess(a, b []float64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func lookupVecWeight(b *Bag, v []float64) float64 {
	for _, e := range b.vecs[vecHash(v)] {
		if vecEqual(e.key, v) {
			return e.weight
		}
	}
	return 0
}

func init() {
	factory.Register(bagTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		m, err := factory.Object(data)
		if err != nil {
			return nil, err
		}
		entries, err := decodeRequiredFloat(m, "entries", bagTag)
		if err != nil {
			return nil, err
		}
		valuesRaw, err := factory.RequireField(m, "values", bagTag)
		if err != nil {
			return nil, err
		}
		var items []bagItem
		if err := json.Unmarshal(valuesRaw, &items); err != nil {
			return nil, &aggregator.JsonFormatError{Primitive: bagTag, Msg: err.Error()}
		}
		out := &Bag{entries: entries}
		for _, it := range items {
			switch {
			case it.N != nil:
				if out.scalars == nil {
					out.scalars = map[float64]float64{}
				}
				raw, _ := json.Marshal(it.N)
				f, err := factory.DecodeFloat(raw)
				if err != nil {
					return nil, err
				}
				out.scalars[f] = it.W
			case it.S != nil:
				if out.strs == nil {
					out.strs = map[string]float64{}
				}
				out.strs[*it.S] = it.W
			case it.V != nil:
				if out.vecs == nil {
					out.vecs = map[uint64][]vecEntry{}
				}
				if out.vecLen == 0 {
					out.vecLen = len(it.V)
				} else if len(it.V) != out.vecLen {
					return nil, &aggregator.ValidationError{Primitive: bagTag, Msg: "vector keys must share a fixed length"}
				}
				h := vecHash(it.V)
				out.vecs[h] = append(out.vecs[h], vecEntry{key: it.V, weight: it.W})
			}
		}
		ownName, err := factory.OptionalName(m)
		if err != nil {
			return nil, err
		}
		out.name = factory.ResolveName(ownName, nameFromParent)
		return out, nil
	})
}
