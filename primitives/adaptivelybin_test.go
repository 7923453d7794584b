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
	"math"
	"strings"
	"testing"

	"github.com/fnand/histogrammar-go/factory"
)

func TestAdaptivelyBinClusterBound(t *testing.T) {
	q := floatField("x")
	ab, err := NewAdaptivelyBin(q, 3, 0.2, NewCount())
	if err != nil {
		t.Fatalf("NewAdaptivelyBin: %s", err)
	}
	for _, v := range []float64{0.0, 10.0, 10.1, 10.2, 20.0} {
		if err := ab.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill(%v): %s", v, err)
		}
	}
	if got := ab.clusters.Len(); got > 3 {
		t.Errorf("cluster count = %d, want <= 3", got)
	}
	if !isFloat64Near(ab.Entries(), 5) {
		t.Errorf("entries = %v, want 5", ab.Entries())
	}
}

func TestAdaptivelyBinRoutesNaNToNanflow(t *testing.T) {
	q := floatField("x")
	ab, err := NewAdaptivelyBin(q, 3, 0.2, NewCount())
	if err != nil {
		t.Fatalf("NewAdaptivelyBin: %s", err)
	}
	for _, v := range []float64{1.0, math.NaN(), 2.0, math.NaN()} {
		if err := ab.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill(%v): %s", v, err)
		}
	}
	if !isFloat64Near(ab.nanflow.Entries(), 2) {
		t.Errorf("nanflow entries = %v, want 2", ab.nanflow.Entries())
	}
	if !isFloat64Near(ab.Entries(), 4) {
		t.Errorf("entries = %v, want 4", ab.Entries())
	}
}

func TestAdaptivelyBinTracksObservedRange(t *testing.T) {
	q := floatField("x")
	ab, err := NewAdaptivelyBin(q, 3, 0.2, NewCount())
	if err != nil {
		t.Fatalf("NewAdaptivelyBin: %s", err)
	}
	for _, v := range []float64{5.0, -2.0, 9.0, math.NaN()} {
		ab.Fill(map[string]float64{"x": v}, 1)
	}
	if !ab.hasRange || !isFloat64Near(ab.min, -2.0) || !isFloat64Near(ab.max, 9.0) {
		t.Errorf("range = (%v, %v, %v), want (true, -2, 9)", ab.hasRange, ab.min, ab.max)
	}
}

func TestAdaptivelyBinRoundTripByteIdentical(t *testing.T) {
	q := floatField("x")
	ab, err := NewAdaptivelyBin(q, 3, 0.2, NewCount())
	if err != nil {
		t.Fatalf("NewAdaptivelyBin: %s", err)
	}
	for _, v := range []float64{0.0, 10.0, 10.1, 10.2, 20.0} {
		ab.Fill(map[string]float64{"x": v}, 1)
	}

	text, err := factory.ToJSON(ab)
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}
	if !strings.Contains(string(text), `"entries"`) {
		t.Errorf("json missing \"entries\" field: %s", text)
	}
	if strings.Contains(string(text), `"zero"`) {
		t.Errorf("json carries an undocumented \"zero\" field: %s", text)
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
