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

// Command histogrammar is a reference driver: it reads a YAML analysis
// description, fills an aggregator by scanning newline-delimited JSON
// records from stdin or a file, and writes the resulting past-tense
// JSON document to stdout. It is a thin consumer of the core library,
// not part of the aggregation algebra itself.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/fnand/histogrammar-go/aggregator"
	"github.com/fnand/histogrammar-go/factory"
	"github.com/fnand/histogrammar-go/primitives"
	"github.com/fnand/histogrammar-go/quantity"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML analysis description")
	input := flag.String("input", "-", "newline-delimited JSON input file, or - for stdin")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("histogrammar: -config is required")
	}
	runID := uuid.New()
	log.Printf("run %s: loading config %s", runID, *configPath)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("run %s: %s", runID, err)
	}

	agg, err := buildAggregator(cfg)
	if err != nil {
		log.Fatalf("run %s: building aggregator: %s", runID, err)
	}

	in := os.Stdin
	if *input != "-" {
		in, err = os.Open(*input)
		if err != nil {
			log.Fatalf("run %s: %s", runID, err)
		}
		defer in.Close()
	}

	n, err := fill(agg, in)
	if err != nil {
		log.Fatalf("run %s: %s", runID, err)
	}
	log.Printf("run %s: filled %d records, %.0f entries", runID, n, agg.Entries())

	out, err := factory.ToJSON(agg)
	if err != nil {
		log.Fatalf("run %s: encoding result: %s", runID, err)
	}
	fmt.Println(string(out))
}

// buildAggregator constructs the present-tense top-level aggregator
// described by cfg. Supports the handful of primitives a field-driven
// YAML description can reasonably name; richer trees are built
// programmatically against the primitives package directly.
func buildAggregator(cfg *analysisConfig) (aggregator.Aggregator, error) {
	num := quantity.Num(func(d map[string]interface{}) float64 {
		v, _ := d[cfg.Field].(float64)
		return v
	})

	switch cfg.Aggregator {
	case "Count":
		return primitives.NewCount(), nil
	case "Sum":
		return primitives.NewSum(num), nil
	case "Average":
		return primitives.NewAverage(num), nil
	case "Deviate":
		return primitives.NewDeviate(num), nil
	case "Minimize":
		return primitives.NewMinimize(num), nil
	case "Maximize":
		return primitives.NewMaximize(num), nil
	case "Bin":
		if cfg.Bin == nil {
			return nil, fmt.Errorf("aggregator Bin requires a bin: block")
		}
		return primitives.NewBin(num, cfg.Bin.Num, cfg.Bin.Low, cfg.Bin.High, primitives.NewCount())
	case "SparselyBin":
		if cfg.Bin == nil {
			return nil, fmt.Errorf("aggregator SparselyBin requires a bin: block")
		}
		return primitives.NewSparselyBin(num, cfg.Bin.BinWidth, cfg.Bin.Origin, primitives.NewCount())
	case "AdaptivelyBin":
		if cfg.Bin == nil {
			return nil, fmt.Errorf("aggregator AdaptivelyBin requires a bin: block")
		}
		return primitives.NewAdaptivelyBin(num, cfg.Bin.Num, cfg.Bin.TailDetail, primitives.NewCount())
	default:
		return nil, fmt.Errorf("unsupported aggregator %q", cfg.Aggregator)
	}
}

// fill scans newline-delimited JSON objects from r and fills agg with
// each, weight 1. Malformed lines are skipped with a logged warning
// rather than aborting the whole run.
func fill(agg aggregator.Aggregator, r *os.File) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var datum map[string]interface{}
		if err := json.Unmarshal(line, &datum); err != nil {
			log.Printf("skipping malformed record: %s", err)
			continue
		}
		if err := agg.Fill(datum, 1.0); err != nil {
			return n, fmt.Errorf("filling record %d: %w", n, err)
		}
		n++
	}
	return n, scanner.Err()
}
