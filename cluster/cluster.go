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

// Package cluster is the adaptive-clustering support structure shared by
// AdaptivelyBin and Quantile (spec.md §2, §4.4): a sorted list of
// (center, sub-aggregator) pairs that greedily merges its closest
// adjacent pair down to a capped number of clusters.
//
// Shaped after internal/percentile/tdigest.go's TDigest: a sorted slice
// of weighted points (TDigest.Data / here, Map.clusters), Min/Max
// tracking, and a Merge that concatenates and re-compresses. The
// compression rule itself is spec.md §4.4's blended-gap formula rather
// than tdigest's asin/sin weight-limit curve, since the spec fixes the
// exact rule to use.
package cluster

import (
	"math"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/fnand/histogrammar-go/aggregator"
)

// Cluster is one (center, sub-aggregator) pair.
type Cluster struct {
	Center float64
	Sub    aggregator.Aggregator
}

// Map is the sorted cluster collection. The zero value is not usable;
// construct with New.
type Map struct {
	clusters   []Cluster
	num        int
	tailDetail float64
	min, max   float64
	hasData    bool
}

// New constructs an empty Map capped at num clusters, blending gap
// selection toward tail resolution by tailDetail (0 merges the smallest
// absolute gap; 1 preferentially preserves tail clusters).
func New(num int, tailDetail float64) (*Map, error) {
	if num < 2 {
		return nil, &aggregator.ValidationError{Primitive: "cluster.Map", Msg: "num must be >= 2"}
	}
	if tailDetail < 0 || tailDetail > 1 {
		return nil, &aggregator.ValidationError{Primitive: "cluster.Map", Msg: "tailDetail must be in [0,1]"}
	}
	return &Map{num: num, tailDetail: tailDetail}, nil
}

// Num is the configured cluster cap.
func (m *Map) Num() int { return m.num }

// TailDetail is the configured blend factor.
func (m *Map) TailDetail() float64 { return m.tailDetail }

// Clusters returns the current clusters, sorted by ascending center.
// The returned slice is owned by the caller.
func (m *Map) Clusters() []Cluster {
	out := make([]Cluster, len(m.clusters))
	copy(out, m.clusters)
	return out
}

// Len is the current cluster count; always <= Num() after Insert/Merge.
func (m *Map) Len() int { return len(m.clusters) }

// HasData reports whether Min/Max are meaningful.
func (m *Map) HasData() bool { return m.hasData }

// Min is the smallest value ever inserted.
func (m *Map) Min() float64 { return m.min }

// Max is the largest value ever inserted.
func (m *Map) Max() float64 { return m.max }

// Zero returns an empty Map with the same configuration.
func (m *Map) Zero() *Map {
	return &Map{num: m.num, tailDetail: m.tailDetail}
}

// Insert adds a new single-point cluster at center carrying sub, then
// compresses back down to Num() clusters if needed. center must not be
// NaN; route NaN observations to nanflow before calling Insert.
func (m *Map) Insert(center float64, sub aggregator.Aggregator) error {
	if !m.hasData {
		m.min, m.max = center, center
		m.hasData = true
	} else {
		if center < m.min {
			m.min = center
		}
		if center > m.max {
			m.max = center
		}
	}
	idx := sort.Search(len(m.clusters), func(i int) bool { return m.clusters[i].Center >= center })
	m.clusters = slices.Insert(m.clusters, idx, Cluster{Center: center, Sub: sub})
	return m.compress()
}

// compress repeatedly merges the adjacent pair minimizing the blended
// gap until at most Num() clusters remain (spec.md §4.4).
func (m *Map) compress() error {
	for len(m.clusters) > m.num {
		mid := (m.min + m.max) / 2
		bestIdx := 0
		bestVal := math.Inf(1)
		for i := 0; i+1 < len(m.clusters); i++ {
			c0, c1 := m.clusters[i], m.clusters[i+1]
			gap := c1.Center - c0.Center
			pairMid := (c0.Center + c1.Center) / 2
			distanceFromCenter := math.Abs(pairMid - mid)
			blended := (1-m.tailDetail)*gap + m.tailDetail*gap/(1+distanceFromCenter)
			if blended < bestVal {
				bestVal = blended
				bestIdx = i
			}
		}
		c0, c1 := m.clusters[bestIdx], m.clusters[bestIdx+1]
		mergedSub, err := c0.Sub.Merge(c1.Sub)
		if err != nil {
			return err
		}
		w0, w1 := c0.Sub.Entries(), c1.Sub.Entries()
		newCenter := (c0.Center + c1.Center) / 2
		if w0+w1 > 0 {
			newCenter = (c0.Center*w0 + c1.Center*w1) / (w0 + w1)
		}
		next := make([]Cluster, 0, len(m.clusters)-1)
		next = append(next, m.clusters[:bestIdx]...)
		next = append(next, Cluster{Center: newCenter, Sub: mergedSub})
		next = append(next, m.clusters[bestIdx+2:]...)
		m.clusters = next
	}
	return nil
}

// Merge combines a and b (which must share Num() and TailDetail()) into
// a new Map: clusters with exactly equal centers have their subs merged
// directly, the rest are concatenated and sorted, and the result is
// compressed back down to Num() clusters.
func Merge(a, b *Map) (*Map, error) {
	if a.num != b.num {
		return nil, &aggregator.StructureMismatch{Primitive: "cluster.Map", Msg: "num differs"}
	}
	if a.tailDetail != b.tailDetail {
		return nil, &aggregator.StructureMismatch{Primitive: "cluster.Map", Msg: "tailDetail differs"}
	}
	out := &Map{num: a.num, tailDetail: a.tailDetail}
	if a.hasData || b.hasData {
		out.hasData = true
		out.min, out.max = math.Inf(1), math.Inf(-1)
		if a.hasData {
			out.min, out.max = math.Min(out.min, a.min), math.Max(out.max, a.max)
		}
		if b.hasData {
			out.min, out.max = math.Min(out.min, b.min), math.Max(out.max, b.max)
		}
	}
	all := make([]Cluster, 0, len(a.clusters)+len(b.clusters))
	all = append(all, a.clusters...)
	all = append(all, b.clusters...)
	slices.SortFunc(all, func(x, y Cluster) bool { return x.Center < y.Center })

	combined := make([]Cluster, 0, len(all))
	for _, c := range all {
		if n := len(combined); n > 0 && combined[n-1].Center == c.Center {
			merged, err := combined[n-1].Sub.Merge(c.Sub)
			if err != nil {
				return nil, err
			}
			combined[n-1].Sub = merged
		} else {
			combined = append(combined, c)
		}
	}
	out.clusters = combined
	if err := out.compress(); err != nil {
		return nil, err
	}
	return out, nil
}
