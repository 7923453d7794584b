// Copyright (C) 2023 Sneller, Inc.
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

	"github.com/fnand/histogrammar-go/factory"
)

func TestQuantileEstimateMedian(t *testing.T) {
	q := floatField("x")
	qt, err := NewQuantile(q, 0.5)
	if err != nil {
		t.Fatalf("NewQuantile: %s", err)
	}
	for _, v := range []float64{1, 2, 3, 4, 5} {
		if err := qt.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill(%v): %s", v, err)
		}
	}
	if !isFloat64Near(qt.Estimate(), 3) {
		t.Errorf("Estimate() = %v, want ~3", qt.Estimate())
	}
	if !isFloat64Near(qt.Entries(), 5) {
		t.Errorf("entries = %v, want 5", qt.Entries())
	}
}

func TestQuantileConstructorValidatesP(t *testing.T) {
	q := floatField("x")
	if _, err := NewQuantile(q, -0.1); err == nil {
		t.Error("expected error for p < 0")
	}
	if _, err := NewQuantile(q, 1.1); err == nil {
		t.Error("expected error for p > 1")
	}
}

func TestQuantileRoundTripByteIdentical(t *testing.T) {
	q := floatField("x")
	qt, err := NewQuantile(q, 0.9)
	if err != nil {
		t.Fatalf("NewQuantile: %s", err)
	}
	for _, v := range []float64{1, 5, 9, 13, 17} {
		qt.Fill(map[string]float64{"x": v}, 1)
	}

	text, err := factory.ToJSON(qt)
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}
	back, err := factory.FromJSON(text)
	if err != nil {
		t.Fatalf("FromJSON: %s", err)
	}
	text2, err := factory.ToJSON(back)
	if err != nil {
		t.Fatalf("ToJSON (round-trip): %s", err)
	}
	if string(text) != string(text2) {
		t.Errorf("round-trip json mismatch:\n  first:  %s\n  second: %s", text, text2)
	}
}

func TestQuantileRejectsMismatchedP(t *testing.T) {
	q := floatField("x")
	a, _ := NewQuantile(q, 0.5)
	b, _ := NewQuantile(q, 0.9)
	if _, err := a.Merge(b); err == nil {
		t.Error("expected a StructureMismatch for differing p, got nil")
	}
}
