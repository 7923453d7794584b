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

package main

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// analysisConfig is the on-disk description of what to build and fill:
// which field of each input record drives the quantity, and the shape
// of the aggregator tree to run it through.
type analysisConfig struct {
	// Field is the JSON field name read as the fill quantity.
	Field string `json:"field"`
	// Aggregator names the top-level primitive tag to build
	// ("Count", "Sum", "Bin", ...).
	Aggregator string `json:"aggregator"`
	// Bin carries Bin/SparselyBin/AdaptivelyBin-specific parameters;
	// nil when Aggregator doesn't need them.
	Bin *binConfig `json:"bin,omitempty"`
}

type binConfig struct {
	Num        int     `json:"num,omitempty"`
	Low        float64 `json:"low,omitempty"`
	High       float64 `json:"high,omitempty"`
	BinWidth   float64 `json:"binWidth,omitempty"`
	Origin     float64 `json:"origin,omitempty"`
	TailDetail float64 `json:"tailDetail,omitempty"`
}

// loadConfig reads an analysisConfig from a YAML file (sigs.k8s.io/yaml
// round-trips through encoding/json, so analysisConfig's json tags
// double as the YAML schema).
func loadConfig(path string) (*analysisConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg analysisConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Field == "" {
		return nil, fmt.Errorf("config %s: field is required", path)
	}
	if cfg.Aggregator == "" {
		return nil, fmt.Errorf("config %s: aggregator is required", path)
	}
	return &cfg, nil
}
