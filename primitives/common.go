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

import "github.com/fnand/histogrammar-go/quantity"

// resolveQuantity picks the non-nil quantity closure when merging two
// operands, so the merged result can still be filled if either side
// could be. Both sides are expected to carry the same name by this
// point (aggregator.MergeNames already validated that).
func resolveQuantity(a, b *quantity.Quantity) *quantity.Quantity {
	if a != nil {
		return a
	}
	return b
}
