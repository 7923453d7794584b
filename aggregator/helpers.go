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

// MergeNames reconciles the optional quantity names of two operands
// being merged. Two unnamed quantities merge to unnamed; a named and an
// unnamed merge to the named one; two differently-named quantities are a
// NameConflict.
func MergeNames(primitive string, a, b *string) (*string, error) {
	switch {
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	case *a == *b:
		return a, nil
	default:
		return nil, &NameConflict{Primitive: primitive, A: *a, B: *b}
	}
}

// FillOK reports whether a fill with this weight should proceed. Weights
// <= 0 are a no-op (spec.md §3.1, §4.1); the fill-never-throws rule
// quietly drops negative weights rather than erroring.
func FillOK(weight float64) bool {
	return weight > 0
}
