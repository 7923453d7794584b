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

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/quantity"
)

const (
	minimizeTag = "Minimize"
	maximizeTag = "Maximize"
)

// extremum is the shared implementation of Minimize and Maximize; they
// differ only in the comparison and JSON tag used, mirroring spec.md's
// table which gives them one row ("Minimize / Maximize").
type extremum struct {
	tag      string
	fieldKey string
	better   func(candidate, current float64) bool // true if candidate should replace current
	entries  float64
	value    float64 // NaN when entries == 0
	q        *quantity.Quantity
	name     *string
}

func newExtremum(tag, fieldKey string, better func(candidate, current float64) bool, q *quantity.Quantity) *extremum {
	return &extremum{tag: tag, fieldKey: fieldKey, better: better, value: math.NaN(), q: q, name: q.Name()}
}

// Minimize tracks the minimum value of a numeric quantity; NaN when no
// entries have been filled.
type Minimize struct{ extremum }

// Maximize tracks the maximum value of a numeric quantity; NaN when no
// entries have been filled.
type Maximize struct{ extremum }

func NewMinimize(q *quantity.Quantity) *Minimize {
	return &Minimize{*newExtremum(minimizeTag, "min", func(c, cur float64) bool { return c < cur }, q)}
}

func NewMaximize(q *quantity.Quantity) *Maximize {
	return &Maximize{*newExtremum(maximizeTag, "max", func(c, cur float64) bool { return c > cur }, q)}
}

func (e *extremum) Entries() float64                  { return e.entries }
func (e *extremum) Children() []aggregator.Aggregator { return nil }
func (e *extremum) FactoryTag() string                { return e.tag }
func (e *extremum) QuantityName() *string             { return e.name }

func (e *extremum) zero() extremum {
	return extremum{tag: e.tag, fieldKey: e.fieldKey, better: e.better, value: math.NaN(), q: e.q, name: e.name}
}

func (m *Minimize) Zero() aggregator.Aggregator { return &Minimize{m.zero()} }
func (m *Maximize) Zero() aggregator.Aggregator { return &Maximize{m.zero()} }

func (e *extremum) fill(datum aggregator.Datum, weight float64) error {
	if e.q == nil {
		return aggregator.ErrPastTense
	}
	if !aggregator.FillOK(weight) {
		return nil
	}
	v := e.q.EvalNumeric(datum)
	if e.entries == 0 || e.better(v, e.value) {
		e.value = v
	}
	e.entries += weight
	return nil
}

func (m *Minimize) Fill(datum aggregator.Datum, weight float64) error { return m.extremum.fill(datum, weight) }
func (m *Maximize) Fill(datum aggregator.Datum, weight float64) error { return m.extremum.fill(datum, weight) }

func (e *extremum) merge(o *extremum) (extremum, error) {
	name, err := aggregator.MergeNames(e.tag, e.name, o.name)
	if err != nil {
		return extremum{}, err
	}
	value := e.value
	switch {
	case e.entries == 0:
		value = o.value
	case o.entries == 0:
		value = e.value
	case e.better(o.value, e.value):
		value = o.value
	}
	return extremum{
		tag: e.tag, fieldKey: e.fieldKey, better: e.better,
		entries: e.entries + o.entries,
		value:   value,
		q:       resolveQuantity(e.q, o.q),
		name:    name,
	}, nil
}

func (m *Minimize) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Minimize)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: minimizeTag, Msg: "operand is not a Minimize"}
	}
	merged, err := m.extremum.merge(&o.extremum)
	if err != nil {
		return nil, err
	}
	return &Minimize{merged}, nil
}

func (m *Maximize) Merge(other aggregator.Aggregator) (aggregator.Aggregator, error) {
	o, ok := other.(*Maximize)
	if !ok {
		return nil, &aggregator.StructureMismatch{Primitive: maximizeTag, Msg: "operand is not a Maximize"}
	}
	merged, err := m.extremum.merge(&o.extremum)
	if err != nil {
		return nil, err
	}
	return &Maximize{merged}, nil
}

func (e *extremum) toJSONFragment(suppressName bool) (interface{}, error) {
	obj := factory.NewObj(
		factory.Pair("entries", factory.EncodeFloat(e.entries)),
		factory.Pair(e.fieldKey, factory.EncodeFloat(e.value)),
	)
	if !suppressName && e.name != nil {
		obj = append(obj, factory.Pair("name", *e.name))
	}
	return obj, nil
}

func (m *Minimize) ToJSONFragment(suppressName bool) (interface{}, error) { return m.extremum.toJSONFragment(suppressName) }
func (m *Maximize) ToJSONFragment(suppressName bool) (interface{}, error) { return m.extremum.toJSONFragment(suppressName) }

func decodeExtremum(tag, fieldKey string, data json.RawMessage, nameFromParent *string) (extremum, error) {
	m, err := factory.Object(data)
	if err != nil {
		return extremum{}, err
	}
	entries, err := decodeRequiredFloat(m, "entries", tag)
	if err != nil {
		return extremum{}, err
	}
	value, err := decodeRequiredFloat(m, fieldKey, tag)
	if err != nil {
		return extremum{}, err
	}
	ownName, err := factory.OptionalName(m)
	if err != nil {
		return extremum{}, err
	}
	return extremum{tag: tag, fieldKey: fieldKey, entries: entries, value: value, name: factory.ResolveName(ownName, nameFromParent)}, nil
}

func init() {
	factory.Register(minimizeTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		e, err := decodeExtremum(minimizeTag, "min", data, nameFromParent)
		if err != nil {
			return nil, err
		}
		e.better = func(c, cur float64) bool { return c < cur }
		return &Minimize{e}, nil
	})
	factory.Register(maximizeTag, func(data json.RawMessage, nameFromParent *string) (aggregator.Aggregator, error) {
		e, err := decodeExtremum(maximizeTag, "max", data, nameFromParent)
		if err != nil {
			return nil, err
		}
		e.better = func(c, cur float64) bool { return c > cur }
		return &Maximize{e}, nil
	})
}
