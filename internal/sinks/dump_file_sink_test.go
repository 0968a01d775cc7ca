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

package sinks

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/aykhuss/kakuhen-go/pkg/accum"
	"github.com/aykhuss/kakuhen-go/pkg/registry"
)

func TestDumpFileSinkWriteAndReadLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.bin")

	sink, err := NewDumpFileSink(path)
	if err != nil {
		t.Fatalf("NewDumpFileSink: %v", err)
	}

	reg := registry.New()
	id, err := reg.Book("h", 2)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	store := reg.CreateStore()
	buf, err := registry.CreateBuffer[float64, uint32](reg, func(w float64) accum.Accumulator[float64] { return accum.NewCompensated(w) }, 2)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}

	// First snapshot: one event.
	if err := registry.Fill(reg, buf, id, 0, 0, 1.0); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	buf.Flush(store)
	if err := sink.WriteSnapshot(reg, store, 64, 32, 64); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	// Second snapshot: two events, should be the one ReadLastSnapshot returns.
	if err := registry.Fill(reg, buf, id, 0, 0, 3.0); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	buf.Flush(store)
	if err := sink.WriteSnapshot(reg, store, 64, 32, 64); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	gotReg, gotStore, meta, err := ReadLastSnapshot(path)
	if err != nil {
		t.Fatalf("ReadLastSnapshot: %v", err)
	}
	if meta.EventCount != 2 {
		t.Fatalf("meta.EventCount = %d, want 2", meta.EventCount)
	}
	mean, err := registry.Mean(gotReg, gotStore, id, 0, 0)
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if want := (1.0 + 3.0) / 2; math.Abs(mean-want) > 1e-12 {
		t.Fatalf("Mean = %v, want %v", mean, want)
	}
}

func TestReadLastSnapshotMissingFile(t *testing.T) {
	_, _, _, err := ReadLastSnapshot(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if err == nil {
		t.Fatalf("expected error reading a missing file")
	}
}
