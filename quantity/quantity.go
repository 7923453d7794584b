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

// Package quantity wraps a user-supplied datum extractor as a named,
// optionally memoized function usable by an aggregator's Fill.
package quantity

import (
	"fmt"
	"reflect"
)

// Kind identifies the shape of value a Quantity produces.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Vector
)

// Quantity wraps a DATUM -> R extractor, R being numeric (float64),
// categorical (string), or a fixed-length numeric vector. It may carry
// a one-shot name and may cache the last (input, output) pair.
//
// D is erased to interface{} at construction time so that Aggregator
// implementations can hold a Quantity without being generic over D
// themselves; see Num, Cat and Vec.
type Quantity struct {
	kind Kind
	name *string

	numFn func(interface{}) float64
	catFn func(interface{}) string
	vecFn func(interface{}) []float64

	cached  bool
	hasLast bool
	lastIn  interface{}
	lastOut interface{}
}

// Num wraps a numeric extractor.
func Num[D any](f func(D) float64) *Quantity {
	return &Quantity{kind: Numeric, numFn: func(d interface{}) float64 { return f(d.(D)) }}
}

// Cat wraps a categorical extractor.
func Cat[D any](f func(D) string) *Quantity {
	return &Quantity{kind: Categorical, catFn: func(d interface{}) string { return f(d.(D)) }}
}

// Vec wraps a fixed-length numeric vector extractor, used by Bag.
func Vec[D any](f func(D) []float64) *Quantity {
	return &Quantity{kind: Vector, vecFn: func(d interface{}) []float64 { return f(d.(D)) }}
}

// Predicate lifts a boolean selection to a 1.0/0.0 numeric quantity.
func Predicate[D any](f func(D) bool) *Quantity {
	return Num(func(d D) float64 {
		if f(d) {
			return 1.0
		}
		return 0.0
	})
}

// Named assigns a one-shot name, propagated into JSON as "name". Calling
// Named twice is an error.
func (q *Quantity) Named(name string) (*Quantity, error) {
	if q.name != nil {
		return nil, fmt.Errorf("quantity: name already set to %q, cannot rename to %q", *q.name, name)
	}
	q.name = &name
	return q, nil
}

// MustName is Named, panicking on a rename conflict. Convenient at
// aggregator-construction sites where the name is a compile-time literal.
func (q *Quantity) MustName(name string) *Quantity {
	q, err := q.Named(name)
	if err != nil {
		panic(err)
	}
	return q
}

// WithCache enables memoization of the last evaluation.
func (q *Quantity) WithCache() *Quantity {
	q.cached = true
	return q
}

// Name returns the quantity's name, or nil if unnamed.
func (q *Quantity) Name() *string {
	return q.name
}

// Kind reports whether this quantity produces a numeric, categorical, or
// vector value.
func (q *Quantity) Kind() Kind {
	return q.kind
}

func (q *Quantity) cacheLookup(d interface{}) (interface{}, bool) {
	if q.cached && q.hasLast && reflect.DeepEqual(q.lastIn, d) {
		return q.lastOut, true
	}
	return nil, false
}

func (q *Quantity) cacheStore(d interface{}, out interface{}) {
	if q.cached {
		q.hasLast = true
		q.lastIn = d
		q.lastOut = out
	}
}

// EvalNumeric evaluates a Numeric quantity against a datum.
func (q *Quantity) EvalNumeric(d interface{}) float64 {
	if v, ok := q.cacheLookup(d); ok {
		return v.(float64)
	}
	v := q.numFn(d)
	q.cacheStore(d, v)
	return v
}

// EvalCategorical evaluates a Categorical quantity against a datum.
func (q *Quantity) EvalCategorical(d interface{}) string {
	if v, ok := q.cacheLookup(d); ok {
		return v.(string)
	}
	v := q.catFn(d)
	q.cacheStore(d, v)
	return v
}

// EvalVector evaluates a Vector quantity against a datum.
func (q *Quantity) EvalVector(d interface{}) []float64 {
	if v, ok := q.cacheLookup(d); ok {
		return v.([]float64)
	}
	v := q.vecFn(d)
	q.cacheStore(d, v)
	return v
}
