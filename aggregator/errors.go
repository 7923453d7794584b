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

package aggregator

import (
	"errors"
	"fmt"
)

// ValidationError is returned when a constructor's parameters are
// malformed: non-positive num/binWidth, low >= high, negative entries,
// tailDetail outside [0,1], duplicate factory registration, and so on.
type ValidationError struct {
	Primitive string
	Msg       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Primitive, e.Msg)
}

// StructureMismatch is returned from Merge when two aggregators of the
// same primitive nonetheless have incompatible shapes (different bin
// counts, edges, widths, centers, cutoffs, key sets, or position counts).
type StructureMismatch struct {
	Primitive string
	Msg       string
}

func (e *StructureMismatch) Error() string {
	return fmt.Sprintf("%s: structure mismatch: %s", e.Primitive, e.Msg)
}

// NameConflict is returned when a quantity is named twice, or when
// merging two aggregators whose quantities carry different names.
type NameConflict struct {
	Primitive string
	A, B      string
}

func (e *NameConflict) Error() string {
	return fmt.Sprintf("%s: name conflict: %q vs %q", e.Primitive, e.A, e.B)
}

// UnknownType is returned by the factory registry when a JSON document's
// "type" tag has no registered deserializer.
type UnknownType struct {
	Tag string
}

func (e *UnknownType) Error() string {
	return fmt.Sprintf("unknown aggregator type %q", e.Tag)
}

// JsonFormatError is returned when a JSON fragment is malformed: a
// required key is missing, or a value has the wrong kind.
type JsonFormatError struct {
	Primitive string
	Msg       string
}

func (e *JsonFormatError) Error() string {
	return fmt.Sprintf("%s: malformed json: %s", e.Primitive, e.Msg)
}

// ErrPastTense is returned by Fill on an aggregator with no quantity
// closure, i.e. one reconstructed from JSON via the factory registry.
// Past-tense aggregators support Merge but not Fill (spec.md §3.3).
var ErrPastTense = errors.New("aggregator: Fill called on a past-tense (immutable) aggregator")
