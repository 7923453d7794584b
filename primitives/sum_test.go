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
	"testing"

	"github.com/fnand/histogrammar-go/quantity"
)

func floatField(name string) *quantity.Quantity {
	return quantity.Num(func(d map[string]float64) float64 { return d[name] })
}

func TestSumMerge(t *testing.T) {
	q := floatField("x")

	a := NewSum(q)
	for _, v := range []float64{1, 3} {
		if err := a.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill: %s", err)
		}
	}
	if a.Entries() != 2 || !isFloat64Near(a.sum, 4) {
		t.Fatalf("a = (entries=%v, sum=%v), want (2, 4)", a.Entries(), a.sum)
	}

	b := NewSum(q)
	for _, v := range []float64{2, 3, 4} {
		if err := b.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill: %s", err)
		}
	}
	if b.Entries() != 3 || !isFloat64Near(b.sum, 9) {
		t.Fatalf("b = (entries=%v, sum=%v), want (3, 9)", b.Entries(), b.sum)
	}

	merged, err := a.Merge(b)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	m := merged.(*Sum)
	if m.Entries() != 5 || !isFloat64Near(m.sum, 13) {
		t.Errorf("merged = (entries=%v, sum=%v), want (5, 13)", m.Entries(), m.sum)
	}
}

func TestSumFillMergeEquivalence(t *testing.T) {
	q := floatField("x")
	values := []float64{1, 2, 3, 4, 5, 6}

	whole := NewSum(q)
	for _, v := range values {
		whole.Fill(map[string]float64{"x": v}, 1)
	}

	left := NewSum(q)
	for _, v := range values[:3] {
		left.Fill(map[string]float64{"x": v}, 1)
	}
	right := NewSum(q)
	for _, v := range values[3:] {
		right.Fill(map[string]float64{"x": v}, 1)
	}
	merged, err := left.Merge(right)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	m := merged.(*Sum)
	if !isFloat64Near(m.sum, whole.sum) || m.Entries() != whole.Entries() {
		t.Errorf("split-then-merge = (entries=%v, sum=%v), want (entries=%v, sum=%v)",
			m.Entries(), m.sum, whole.Entries(), whole.sum)
	}
}

func TestSumPastTenseRejectsFill(t *testing.T) {
	q := floatField("x")
	s := NewSum(q)
	s.Fill(map[string]float64{"x": 1}, 1)
	past := s.Zero().(*Sum)
	past.q = nil
	if err := past.Fill(map[string]float64{"x": 1}, 1); err == nil {
		t.Error("expected ErrPastTense, got nil")
	}
}
