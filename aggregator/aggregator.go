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

// Package aggregator defines the shared contract every Histogrammar
// primitive implements: the present/past tense duality, merge as a
// commutative monoid operation, and the JSON fragment shape the factory
// registry reads and writes.
package aggregator

// Datum is the type of a single input record. Concrete extractors are
// generic over their own datum type (see package quantity); once wrapped
// they're erased to Datum so that heterogeneous aggregator trees can
// share one non-generic Aggregator interface, per the sum-type shape
// described for this library: one Go type per primitive, present tense
// distinguished from past tense only by whether its quantity closure is
// present (nil quantity => past tense => Fill returns ErrPastTense).
type Datum = interface{}

// Aggregator is the contract every primitive (Count, Sum, Bin, Label, ...)
// implements, in both its present (accumulating) and past (immutable)
// tense.
type Aggregator interface {
	// Entries is the sum of weights of observations routed into this
	// aggregator so far.
	Entries() float64

	// Zero returns the neutral element of the monoid: same shape and
	// configuration, Entries() == 0, every sub-aggregator zeroed. A
	// present-tense Zero re-shares this aggregator's quantity functions.
	Zero() Aggregator

	// Merge associatively and commutatively combines this aggregator
	// with other, which must have the identical structural shape
	// (bin counts, edges, widths, centers, ...). Returns StructureMismatch
	// or NameConflict on incompatible operands.
	Merge(other Aggregator) (Aggregator, error)

	// Fill routes a weighted datum into this aggregator. A no-op for
	// weight <= 0. Returns ErrPastTense if this aggregator has no
	// quantity closure (i.e. it was produced by FromJSON).
	Fill(datum Datum, weight float64) error

	// ToJSONFragment renders this aggregator's primitive-specific body.
	// When suppressName is true, the "name" field is omitted even if the
	// quantity is named (used when a parent already recorded the name
	// in a "<role>:name" sibling key).
	ToJSONFragment(suppressName bool) (interface{}, error)

	// Children returns the immediate sub-aggregators, for tree
	// traversal by cross-cutting utilities (size counting, ASCII
	// rendering adapters, etc). Leaves return nil.
	Children() []Aggregator

	// FactoryTag is the registry key this primitive was registered
	// under (e.g. "Count", "Bin", "Label").
	FactoryTag() string

	// QuantityName returns the name of this aggregator's quantity, if
	// any, without forcing JSON-fragment construction. Aggregators with
	// no quantity of their own (Count, containers with only structural
	// parameters) return nil.
	QuantityName() *string
}
