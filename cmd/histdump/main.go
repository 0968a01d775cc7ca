// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides a single-purpose CLI that loads a serialized
// histogram snapshot and prints it. It is the read side of cmd/histgen's
// -output flag and of internal/sinks.DumpFileSink's log file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aykhuss/kakuhen-go/internal/sinks"
	"github.com/aykhuss/kakuhen-go/pkg/histstore"
	"github.com/aykhuss/kakuhen-go/pkg/printer"
	"github.com/aykhuss/kakuhen-go/pkg/registry"
	"github.com/aykhuss/kakuhen-go/pkg/serialize"
)

func main() {
	inputPath := flag.String("input", "histograms.bin", "path to a snapshot file")
	log_ := flag.Bool("log", false, "treat -input as a DumpFileSink log (length-prefixed records) and print the most recent snapshot, instead of a single serialize.Serialize stream")
	flag.Parse()

	reg, store, meta, err := load(*inputPath, *log_)
	if err != nil {
		log.Fatalf("histdump: %v", err)
	}

	fmt.Printf("# float_bits=%d index_bits=%d event_count_bits=%d\n", meta.FloatBits, meta.IndexBits, meta.EventCountBits)
	p := printer.NewTextPrinter(os.Stdout)
	if err := printer.Print(p, reg, store); err != nil {
		log.Fatalf("histdump: print: %v", err)
	}
}

func load(path string, asLog bool) (*registry.Registry, *histstore.Store, serialize.Meta, error) {
	if asLog {
		return sinks.ReadLastSnapshot(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, serialize.Meta{}, err
	}
	defer f.Close()
	return serialize.Deserialize(f)
}
