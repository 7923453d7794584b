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

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
)

func newLabelFixture(t *testing.T) *Label {
	t.Helper()
	q := floatField("x")
	px, err := NewBin(q, 3, -1, 1, NewCount())
	if err != nil {
		t.Fatalf("NewBin(px): %s", err)
	}
	pt, err := NewBin(q, 2, 0, 1, NewCount())
	if err != nil {
		t.Fatalf("NewBin(pt): %s", err)
	}
	l, err := NewLabel([]string{"px", "pt"}, []aggregator.Aggregator{px, pt})
	if err != nil {
		t.Fatalf("NewLabel: %s", err)
	}
	return l
}

func TestLabelRoundTripByteIdentical(t *testing.T) {
	l := newLabelFixture(t)
	l.Fill(map[string]float64{"x": 0.3}, 1)
	l.Fill(map[string]float64{"x": -0.5}, 1)

	text, err := factory.ToJSON(l)
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

func TestLabelMergeWithZeroIsIdentity(t *testing.T) {
	l := newLabelFixture(t)
	l.Fill(map[string]float64{"x": 0.3}, 1)
	l.Fill(map[string]float64{"x": -0.5}, 1)

	before, err := factory.ToJSON(l)
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}

	merged, err := l.Merge(l.Zero())
	if err != nil {
		t.Fatalf("Merge with zero: %s", err)
	}
	after, err := factory.ToJSON(merged)
	if err != nil {
		t.Fatalf("ToJSON (merged): %s", err)
	}
	if string(before) != string(after) {
		t.Errorf("merge-with-zero changed json:\n  before: %s\n  after:  %s", before, after)
	}
}

func TestLabelEntriesCountFillsNotSubEntries(t *testing.T) {
	l := newLabelFixture(t)
	for i := 0; i < 4; i++ {
		l.Fill(map[string]float64{"x": 0.1}, 1)
	}
	if l.Entries() != 4 {
		t.Errorf("entries = %v, want 4", l.Entries())
	}
}

func TestLabelRejectsMismatchedNameSets(t *testing.T) {
	q := floatField("x")
	px, _ := NewBin(q, 3, -1, 1, NewCount())
	pt, _ := NewBin(q, 2, 0, 1, NewCount())
	l1, _ := NewLabel([]string{"px", "pt"}, []aggregator.Aggregator{px, pt})

	other, _ := NewBin(q, 3, -1, 1, NewCount())
	l2, _ := NewLabel([]string{"px", "other"}, []aggregator.Aggregator{px.Zero().(*Bin), other})
	_ = other

	if _, err := l1.Merge(l2); err == nil {
		t.Error("expected a StructureMismatch for mismatched name sets, got nil")
	}
}
