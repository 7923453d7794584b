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

	"github.com/fnand/histogrammar-go/factory"
)

func TestStackIncludesAllDataSub(t *testing.T) {
	q := floatField("x")
	s := NewStack(q, []float64{0, 10}, NewCount())
	if len(s.subs) != 3 {
		t.Fatalf("subs = %d, want 3 (one per cutoff plus the all-data sub)", len(s.subs))
	}
	if !math.IsInf(s.cutoffs[0], -1) {
		t.Errorf("cutoffs[0] = %v, want -Inf", s.cutoffs[0])
	}
}

func TestStackAllDataSubAlwaysFills(t *testing.T) {
	q := floatField("x")
	s := NewStack(q, []float64{0, 10}, NewCount())
	for _, v := range []float64{-100, -1, 5, 50} {
		if err := s.Fill(map[string]float64{"x": v}, 1); err != nil {
			t.Fatalf("Fill(%v): %s", v, err)
		}
	}
	if !isFloat64Near(s.subs[0].Entries(), 4) {
		t.Errorf("all-data sub entries = %v, want 4", s.subs[0].Entries())
	}
	if !isFloat64Near(s.subs[1].Entries(), 2) {
		t.Errorf("subs[1] (cutoff 0) entries = %v, want 2", s.subs[1].Entries())
	}
	if !isFloat64Near(s.subs[2].Entries(), 1) {
		t.Errorf("subs[2] (cutoff 10) entries = %v, want 1", s.subs[2].Entries())
	}
	if !isFloat64Near(s.Entries(), 4) {
		t.Errorf("entries = %v, want 4", s.Entries())
	}
}

func TestStackRoundTripByteIdentical(t *testing.T) {
	q := floatField("x")
	s := NewStack(q, []float64{0, 10}, NewCount())
	s.Fill(map[string]float64{"x": -5}, 1)
	s.Fill(map[string]float64{"x": 15}, 1)

	text, err := factory.ToJSON(s)
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

func TestStackRejectsMismatchedCutoffs(t *testing.T) {
	q := floatField("x")
	a := NewStack(q, []float64{0, 10}, NewCount())
	b := NewStack(q, []float64{0, 20}, NewCount())
	if _, err := a.Merge(b); err == nil {
		t.Error("expected a StructureMismatch for differing cutoffs, got nil")
	}
}
