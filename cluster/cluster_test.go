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

package cluster_test

import (
	"testing"

	"github.com/fnand/histogrammar-go/cluster"
	"github.com/fnand/histogrammar-go/primitives"
)

func singleCount(t *testing.T) *primitives.Count {
	t.Helper()
	c := primitives.NewCount()
	if err := c.Fill(nil, 1); err != nil {
		t.Fatalf("Fill: %s", err)
	}
	return c
}

func TestMapCapsAtNum(t *testing.T) {
	m, err := cluster.New(3, 0.5)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	for _, center := range []float64{0, 1, 2, 3, 4, 5} {
		if err := m.Insert(center, singleCount(t)); err != nil {
			t.Fatalf("Insert(%v): %s", center, err)
		}
	}
	if m.Len() > 3 {
		t.Errorf("Len() = %d, want <= 3", m.Len())
	}
}

func TestMapTracksMinMax(t *testing.T) {
	m, _ := cluster.New(4, 0.5)
	for _, center := range []float64{5, -2, 9, 0} {
		m.Insert(center, singleCount(t))
	}
	if m.Min() != -2 || m.Max() != 9 {
		t.Errorf("Min/Max = %v/%v, want -2/9", m.Min(), m.Max())
	}
}

func TestMapEntriesConservedAcrossCompression(t *testing.T) {
	m, _ := cluster.New(2, 0.5)
	for _, center := range []float64{0, 1, 2, 3, 4} {
		m.Insert(center, singleCount(t))
	}
	var total float64
	for _, c := range m.Clusters() {
		total += c.Sub.Entries()
	}
	if total != 5 {
		t.Errorf("total entries after compression = %v, want 5", total)
	}
}

func TestMergeRejectsMismatchedConfig(t *testing.T) {
	a, _ := cluster.New(3, 0.5)
	b, _ := cluster.New(4, 0.5)
	if _, err := cluster.Merge(a, b); err == nil {
		t.Error("expected a StructureMismatch for differing num, got nil")
	}
}

func TestMergeConservesEntriesAndCap(t *testing.T) {
	a, _ := cluster.New(3, 0.3)
	for _, center := range []float64{0, 1, 2} {
		a.Insert(center, singleCount(t))
	}
	b, _ := cluster.New(3, 0.3)
	for _, center := range []float64{10, 11, 12} {
		b.Insert(center, singleCount(t))
	}
	merged, err := cluster.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	if merged.Len() > 3 {
		t.Errorf("merged.Len() = %d, want <= 3", merged.Len())
	}
	var total float64
	for _, c := range merged.Clusters() {
		total += c.Sub.Entries()
	}
	if total != 6 {
		t.Errorf("total entries = %v, want 6", total)
	}
}

func TestNewValidatesParameters(t *testing.T) {
	if _, err := cluster.New(1, 0.5); err == nil {
		t.Error("expected error for num < 2")
	}
	if _, err := cluster.New(3, 1.5); err == nil {
		t.Error("expected error for tailDetail outside [0,1]")
	}
}
