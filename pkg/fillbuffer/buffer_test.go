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

package fillbuffer

import (
	"errors"
	"math"
	"testing"

	"github.com/aykhuss/kakuhen-go/pkg/accum"
	"github.com/aykhuss/kakuhen-go/pkg/histstore"
)

func newCompBuffer() *Buffer[float64, uint32] {
	return New[float64, uint32](func(w float64) accum.Accumulator[float64] {
		return accum.NewCompensated(w)
	})
}

// TestCancellationInOneEvent checks that +10.0 then -9.9 into the same bin
// collapses to (0.1, 0.01), not (0.1, 2*9.9^2+...): squaring must happen
// after the per-event net weight is known, never before.
func TestCancellationInOneEvent(t *testing.T) {
	buf := newCompBuffer()
	if err := buf.Init(4, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	store := histstore.New(4)

	if err := buf.Fill(0, 10.0); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := buf.Fill(0, -9.9); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	buf.Flush(store)

	if got := store.Bin(0).Weight(); math.Abs(got-0.1) > 2*1e-15*0.1+1e-12 {
		t.Fatalf("bin[0].weight = %v, want ~0.1", got)
	}
	if got := store.Bin(0).WeightSq(); math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("bin[0].weight_sq = %v, want ~0.01", got)
	}
	if store.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", store.Count())
	}
	for i := 1; i < 4; i++ {
		if store.Bin(i).Weight() != 0 || store.Bin(i).WeightSq() != 0 {
			t.Fatalf("bin %d should be untouched", i)
		}
	}
}

// TestGenerationRollover checks that a 12-bit generation field rolls over
// after exactly maxGen flushes and resets current_gen to 1, zeroing
// sparse_map.
func TestGenerationRollover(t *testing.T) {
	buf := newCompBuffer() // uint32: bitWidth=32
	if err := buf.Init(8, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// indexBits = bits.Len(8) = 4, genBits = 32-4 = 28, maxGen = 2^28-1.
	// Use a buffer with fewer total bits instead so the test runs fast:
	// rebuild against uint16 (totalBits=16) for a small maxGen.
	b16 := New[float64, uint16](func(w float64) accum.Accumulator[float64] {
		return accum.NewCompensated(w)
	})
	if err := b16.Init(8, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// indexBits = bits.Len(8) = 4, totalBits = 16, genBits = 12, maxGen = 4095.
	if b16.MaxGen() != 4095 {
		t.Fatalf("MaxGen() = %d, want 4095", b16.MaxGen())
	}

	store := histstore.New(8)
	rollovers := 0
	b16.OnRollover(func() { rollovers++ })

	for i := 0; i < 4096; i++ {
		if err := b16.Fill(0, 1.0); err != nil {
			t.Fatalf("Fill at iter %d: %v", i, err)
		}
		b16.Flush(store)
	}

	if rollovers != 1 {
		t.Fatalf("rollovers = %d, want 1", rollovers)
	}
	// The 4095th flush (maxGen) rolls current_gen back to 1; the 4096th
	// advances it to 2.
	if b16.CurrentGen() != 2 {
		t.Fatalf("CurrentGen() one flush after rollover = %d, want 2", b16.CurrentGen())
	}
	if got := store.Bin(0).Weight(); got != 4096.0 {
		t.Fatalf("bin[0].weight = %v, want 4096.0", got)
	}
	if got := store.Bin(0).WeightSq(); got != 4096.0 {
		t.Fatalf("bin[0].weight_sq = %v, want 4096.0", got)
	}
	if store.Count() != 4096 {
		t.Fatalf("Count() = %d, want 4096", store.Count())
	}
}

// TestTwoDisjointWorkers checks that two independent buffers flushing
// into the same store sum additively, per bin.
func TestTwoDisjointWorkers(t *testing.T) {
	store := histstore.New(10)
	a := newCompBuffer()
	b := newCompBuffer()
	if err := a.Init(10, 0); err != nil {
		t.Fatalf("Init A: %v", err)
	}
	if err := b.Init(10, 0); err != nil {
		t.Fatalf("Init B: %v", err)
	}

	a.Fill(3, 2.0)
	a.Fill(7, 1.0)
	a.Flush(store)

	b.Fill(3, -0.5)
	b.Fill(7, 0.5)
	b.Flush(store)

	if got := store.Bin(3).Weight(); math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("bin[3].weight = %v, want 1.5", got)
	}
	if got := store.Bin(3).WeightSq(); math.Abs(got-4.25) > 1e-12 {
		t.Fatalf("bin[3].weight_sq = %v, want 4.25", got)
	}
	if got := store.Bin(7).Weight(); math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("bin[7].weight = %v, want 1.5", got)
	}
	if got := store.Bin(7).WeightSq(); math.Abs(got-1.25) > 1e-12 {
		t.Fatalf("bin[7].weight_sq = %v, want 1.25", got)
	}
	if store.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", store.Count())
	}
}

// TestDenseIndexOverflow checks that with a 2-bit index field only 3
// distinct bins may be touched in one event (dense_ids.size() <=
// index_mask); the bin that would make it 4 signals DenseIndexOverflowError.
func TestDenseIndexOverflow(t *testing.T) {
	// Craft a buffer with a 2-bit index field (index_mask=3) directly,
	// bypassing Init's N_total-driven sizing, so N_total can be 4 (gids
	// 0..3 all in range) while the packed word only has room for 3
	// distinct dense entries per event (dense_ids.size() <= index_mask).
	buf := &Buffer[float64, uint32]{
		newAcc: func(w float64) accum.Accumulator[float64] {
			return accum.NewCompensated(w)
		},
		sparseMap:   make([]uint32, 4),
		denseIDs:    make([]uint32, 0, 4),
		denseAcc:    make([]accum.Accumulator[float64], 0, 4),
		currentGen:  1,
		maxGen:      15,
		shiftAmount: 2,
		indexMask:   3,
		nTotal:      4,
	}

	for _, gid := range []uint32{0, 1, 2} {
		if err := buf.Fill(gid, 1.0); err != nil {
			t.Fatalf("Fill(%d): %v", gid, err)
		}
	}
	if buf.NumTouched() != 3 {
		t.Fatalf("NumTouched() = %d, want 3", buf.NumTouched())
	}

	// Re-touching an already-hit gid must never overflow.
	if err := buf.Fill(2, 1.0); err != nil {
		t.Fatalf("Fill on existing gid should not overflow: %v", err)
	}
	if buf.NumTouched() != 3 {
		t.Fatalf("NumTouched() after hit = %d, want 3 (unchanged)", buf.NumTouched())
	}

	// The 4th distinct miss must overflow, and the prior three fills must
	// remain untouched and consistent.
	fourth := buf.Fill(3, 1.0)
	if fourth == nil {
		t.Fatalf("4th distinct fill should overflow, got nil error")
	}
	var overflowErr *DenseIndexOverflowError
	if !errors.As(fourth, &overflowErr) {
		t.Fatalf("error type = %T, want *DenseIndexOverflowError", fourth)
	}
	if buf.NumTouched() != 3 {
		t.Fatalf("NumTouched() after overflow attempt = %d, want 3 (unchanged)", buf.NumTouched())
	}
	for _, gid := range []uint32{0, 1, 2} {
		acc, ok := buf.Lookup(gid)
		if !ok {
			t.Fatalf("gid %d should still be present after overflow attempt", gid)
		}
		want := 1.0
		if gid == 2 {
			want = 2.0 // filled twice above
		}
		if acc.Result() != want {
			t.Fatalf("gid %d result = %v, want %v", gid, acc.Result(), want)
		}
	}
}

// TestIndexCapacityBoundary checks that Init rejects N_total values that
// leave fewer than 4 spare generation bits in S, and accepts the boundary
// case with exactly 4.
func TestIndexCapacityBoundary(t *testing.T) {
	// uint32: totalBits=32. bits.Len(2^27)=28 -> remaining=4 -> accepted.
	// bits.Len(2^28)=29 -> remaining=3 -> rejected.
	okBuf := New[float64, uint32](func(w float64) accum.Accumulator[float64] {
		return accum.NewCompensated(w)
	})
	if err := okBuf.Init(1<<27, 0); err != nil {
		t.Fatalf("Init(2^27) should be accepted, got %v", err)
	}

	failBuf := New[float64, uint32](func(w float64) accum.Accumulator[float64] {
		return accum.NewCompensated(w)
	})
	err := failBuf.Init(1<<28, 0)
	if err == nil {
		t.Fatalf("Init(2^28) should be rejected")
	}
	var capErr *IndexCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error type = %T, want *IndexCapacityError", err)
	}
}

// TestMeanVarianceHundredEvents checks mean/variance after a run of
// identical single-weight events.
func TestMeanVarianceHundredEvents(t *testing.T) {
	buf := newCompBuffer()
	if err := buf.Init(1, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	store := histstore.New(1)
	for i := 0; i < 100; i++ {
		buf.Fill(0, 1.0)
		buf.Flush(store)
	}
	if got := store.Mean(0); got != 1.0 {
		t.Fatalf("Mean() = %v, want 1.0", got)
	}
	if got := store.VarianceOfMean(0); math.Abs(got) > 1e-12 {
		t.Fatalf("VarianceOfMean() = %v, want ~0", got)
	}
	if got := store.Error(0); got != 0 {
		t.Fatalf("Error() = %v, want 0", got)
	}
}

// TestHitMissCoherence is testable property 3: dense_ids.size() equals the
// number of distinct gids filled, and each dense accumulator's result
// matches the two-sum result of everything filled at that gid.
func TestHitMissCoherence(t *testing.T) {
	buf := newCompBuffer()
	if err := buf.Init(16, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}

	fills := map[uint32][]float64{
		2: {1.0, 2.0, -0.5},
		5: {10.0, -9.9},
		9: {3.3},
	}
	order := []struct {
		gid uint32
		w   float64
	}{
		{2, 1.0}, {5, 10.0}, {2, 2.0}, {9, 3.3}, {5, -9.9}, {2, -0.5},
	}
	for _, f := range order {
		if err := buf.Fill(f.gid, f.w); err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}

	if buf.NumTouched() != len(fills) {
		t.Fatalf("NumTouched() = %d, want %d", buf.NumTouched(), len(fills))
	}
	for gid, ws := range fills {
		acc, ok := buf.Lookup(gid)
		if !ok {
			t.Fatalf("Lookup(%d) not found", gid)
		}
		ref := accum.NewCompensated(ws[0])
		for _, w := range ws[1:] {
			ref.Add(w)
		}
		if got, want := acc.Result(), ref.Result(); got != want {
			t.Fatalf("gid %d: Result() = %v, want %v (bit-exact two-sum match)", gid, got, want)
		}
	}
}

// TestFlushResetsBufferState checks that after a completed flush,
// dense_ids is empty and current_gen has advanced by exactly 1.
func TestFlushResetsBufferState(t *testing.T) {
	buf := newCompBuffer()
	if err := buf.Init(4, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	store := histstore.New(4)
	buf.Fill(0, 1.0)
	buf.Fill(1, 2.0)
	gen0 := buf.CurrentGen()
	buf.Flush(store)
	if buf.NumTouched() != 0 {
		t.Fatalf("NumTouched() after flush = %d, want 0", buf.NumTouched())
	}
	if buf.CurrentGen() != gen0+1 {
		t.Fatalf("CurrentGen() after flush = %d, want %d", buf.CurrentGen(), gen0+1)
	}
}

// TestZeroNTotalIsNoOp checks that an empty buffer never allocates and
// tolerates Flush as a no-op.
func TestZeroNTotalIsNoOp(t *testing.T) {
	buf := newCompBuffer()
	if err := buf.Init(0, 0); err != nil {
		t.Fatalf("Init(0): %v", err)
	}
	store := histstore.New(0)
	buf.Flush(store) // must not panic
	if buf.NumTouched() != 0 {
		t.Fatalf("NumTouched() = %d, want 0", buf.NumTouched())
	}
}
