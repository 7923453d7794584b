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
	"math"
	"testing"
)

func TestBinScenario(t *testing.T) {
	q := floatField("x")
	b, err := NewBin(q, 5, 0, 5, NewCount())
	if err != nil {
		t.Fatalf("NewBin: %s", err)
	}
	quantities := []float64{0.5, 0.5, 2.5, 4.999, 5.0, -1.0, math.NaN()}
	for _, v := range quantities {
		if err := b.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill(%v): %s", v, err)
		}
	}
	wantValues := []float64{2, 0, 1, 0, 1}
	for i, want := range wantValues {
		got := b.values[i].Entries()
		if !isFloat64Near(got, want) {
			t.Errorf("values[%d] = %v, want %v", i, got, want)
		}
	}
	if !isFloat64Near(b.underflow.Entries(), 1) {
		t.Errorf("underflow = %v, want 1", b.underflow.Entries())
	}
	if !isFloat64Near(b.overflow.Entries(), 1) {
		t.Errorf("overflow = %v, want 1", b.overflow.Entries())
	}
	if !isFloat64Near(b.nanflow.Entries(), 1) {
		t.Errorf("nanflow = %v, want 1", b.nanflow.Entries())
	}
	if !isFloat64Near(b.Entries(), 7) {
		t.Errorf("entries = %v, want 7", b.Entries())
	}
}

func TestBinRejectsMismatchedMerge(t *testing.T) {
	q := floatField("x")
	a, _ := NewBin(q, 5, 0, 5, NewCount())
	b, _ := NewBin(q, 4, 0, 5, NewCount())
	if _, err := a.Merge(b); err == nil {
		t.Error("expected a StructureMismatch for differing num, got nil")
	}
}

func TestBinConstructorValidation(t *testing.T) {
	q := floatField("x")
	if _, err := NewBin(q, 0, 0, 5, NewCount()); err == nil {
		t.Error("expected error for num < 1")
	}
	if _, err := NewBin(q, 5, 5, 5, NewCount()); err == nil {
		t.Error("expected error for low >= high")
	}
}

func TestBinMergeEquivalentToSingleFill(t *testing.T) {
	q := floatField("x")
	quantities := []float64{0.1, 1.2, 2.3, 3.4, 4.5, 0.2, 1.9}

	whole, _ := NewBin(q, 5, 0, 5, NewCount())
	for _, v := range quantities {
		whole.Fill(map[string]float64{"x": v}, 1)
	}

	left, _ := NewBin(q, 5, 0, 5, NewCount())
	for _, v := range quantities[:3] {
		left.Fill(map[string]float64{"x": v}, 1)
	}
	right, _ := NewBin(q, 5, 0, 5, NewCount())
	for _, v := range quantities[3:] {
		right.Fill(map[string]float64{"x": v}, 1)
	}
	merged, err := left.Merge(right)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	m := merged.(*Bin)
	if !isFloat64Near(m.Entries(), whole.Entries()) {
		t.Errorf("merged entries = %v, want %v", m.Entries(), whole.Entries())
	}
	for i := range m.values {
		if !isFloat64Near(m.values[i].Entries(), whole.values[i].Entries()) {
			t.Errorf("values[%d] = %v, want %v", i, m.values[i].Entries(), whole.values[i].Entries())
		}
	}
}
