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

	"github.com/fnand/histogrammar-go/factory"
)

func TestCountFillWeights(t *testing.T) {
	c := NewCount()
	for _, w := range []float64{1, 1, 1, 0.5} {
		if err := c.Fill(nil, w); err != nil {
			t.Fatalf("Fill: %s", err)
		}
	}
	if !isFloat64Near(c.Entries(), 3.5) {
		t.Errorf("entries = %v, want 3.5", c.Entries())
	}
	out, err := factory.ToJSON(c)
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}
	want := `{"type":"Count","data":3.5}`
	if string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}
}

func TestCountNegativeWeightIsNoOp(t *testing.T) {
	c := NewCount()
	if err := c.Fill(nil, -1); err != nil {
		t.Fatalf("Fill: %s", err)
	}
	if c.Entries() != 0 {
		t.Errorf("entries = %v, want 0", c.Entries())
	}
}

func TestCountPastTenseRejectsFill(t *testing.T) {
	past, err := factory.FromJSON([]byte(`{"type":"Count","data":3}`))
	if err != nil {
		t.Fatalf("FromJSON: %s", err)
	}
	if err := past.Fill(nil, 1); err == nil {
		t.Error("expected ErrPastTense, got nil")
	}
}

func TestCountMergeAndZero(t *testing.T) {
	a := NewCount()
	a.Fill(nil, 2)
	b := NewCount()
	b.Fill(nil, 3)
	merged, err := a.Merge(b)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	if merged.Entries() != 5 {
		t.Errorf("entries = %v, want 5", merged.Entries())
	}
	zero, err := a.Merge(a.Zero())
	if err != nil {
		t.Fatalf("Merge with zero: %s", err)
	}
	if zero.Entries() != a.Entries() {
		t.Errorf("merge with zero changed entries: %v vs %v", zero.Entries(), a.Entries())
	}
}

func TestCountRoundTrip(t *testing.T) {
	a := NewCount()
	a.Fill(nil, 7)
	text, err := factory.ToJSON(a)
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}
	back, err := factory.FromJSON(text)
	if err != nil {
		t.Fatalf("FromJSON: %s", err)
	}
	if back.Entries() != a.Entries() {
		t.Errorf("round-trip entries = %v, want %v", back.Entries(), a.Entries())
	}
	text2, err := factory.ToJSON(back)
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}
	if string(text) != string(text2) {
		t.Errorf("round-trip json mismatch: %s vs %s", text, text2)
	}
}
