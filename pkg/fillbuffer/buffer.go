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

// Package fillbuffer implements the thread-local fill buffer: a sparse-set
// with a packed generation index that lets one worker ask "was this bin
// touched this event?" in O(1) without wiping memory between events.
//
// A Buffer is single-threaded-of-execution from Init to the last Flush; it
// is the only place in this codebase that is deliberately NOT safe for
// concurrent use. Each worker owns one Buffer and drains it into the shared
// store only at an explicit Flush call.
package fillbuffer

import (
	"math/bits"
	"unsafe"

	"github.com/aykhuss/kakuhen-go/pkg/accum"
	"github.com/aykhuss/kakuhen-go/pkg/histstore"
)

// Unsigned is the index/generation word type. Must be wide enough that
// index_bits + generation_bits <= width(S), with at least 4 generation
// bits (see Init).
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

func bitWidth[S Unsigned]() int {
	var zero S
	return int(unsafe.Sizeof(zero)) * 8
}

// NewAccumulator constructs a fresh per-bin accumulator already holding an
// initial weight w. The buffer is polymorphic over this capability alone:
// it never assumes anything about the accumulator besides
// Add/Result/construct-from-w.
type NewAccumulator[T accum.Float] func(w T) accum.Accumulator[T]

// Buffer is the thread-local fill buffer for one worker.
type Buffer[T accum.Float, S Unsigned] struct {
	sparseMap []S
	denseIDs  []S
	denseAcc  []accum.Accumulator[T]

	newAcc NewAccumulator[T]

	currentGen   S
	maxGen       S
	shiftAmount  S
	indexMask    S
	nTotal       int
	rolloverHook func()
}

// New constructs an uninitialized Buffer. Call Init before Fill/Flush.
// newAcc is the accumulator factory (see NewAccumulator); pass a function
// wrapping accum.NewCompensated for production use, or accum.NewNaive for
// benchmarking against it. The constructors themselves return concrete
// pointer types, so they do not convert to NewAccumulator directly.
func New[T accum.Float, S Unsigned](newAcc NewAccumulator[T]) *Buffer[T, S] {
	return &Buffer[T, S]{newAcc: newAcc}
}

// OnRollover registers a callback invoked each time Flush performs a
// forced generation rollover (telemetry hook; optional).
func (b *Buffer[T, S]) OnRollover(f func()) {
	b.rolloverHook = f
}

// Init fixes N_total and the packed-word layout. reserve is a capacity hint
// for the dense arrays only; it never changes correctness.
//
// If N_total == 0, Init returns without allocating; Fill must not be
// called on such a buffer.
func (b *Buffer[T, S]) Init(nTotal, reserve int) error {
	b.nTotal = nTotal
	if nTotal == 0 {
		return nil
	}

	totalBits := bitWidth[S]()
	indexBits := bits.Len(uint(nTotal))
	if totalBits < indexBits+4 {
		return &IndexCapacityError{TotalBits: totalBits, IndexBits: indexBits, RequiredBits: indexBits + 4}
	}

	b.shiftAmount = S(indexBits)
	b.indexMask = (S(1) << S(indexBits)) - 1
	b.maxGen = (S(1) << S(totalBits-indexBits)) - 1

	b.sparseMap = make([]S, nTotal) // zero-filled: 0 means "never touched"

	if reserve < 0 {
		reserve = 0
	}
	if reserve > nTotal {
		reserve = nTotal
	}
	b.denseIDs = make([]S, 0, reserve)
	b.denseAcc = make([]accum.Accumulator[T], 0, reserve)

	b.currentGen = 1
	return nil
}

// Fill folds weight w into global index gid for the current event. gid
// must be < N_total; the caller (the view/axis layer) is responsible for
// that range check — Fill itself never range-checks on the hot path.
func (b *Buffer[T, S]) Fill(gid S, w T) error {
	packed := b.sparseMap[gid]
	if (packed >> b.shiftAmount) == b.currentGen {
		j := packed & b.indexMask
		b.denseAcc[j].Add(w)
		return nil
	}

	jNew := S(len(b.denseIDs))
	if jNew >= b.indexMask {
		return &DenseIndexOverflowError{IndexMask: uint64(b.indexMask), Touched: int(jNew)}
	}

	b.sparseMap[gid] = (b.currentGen << b.shiftAmount) | jNew
	b.denseIDs = append(b.denseIDs, gid)
	b.denseAcc = append(b.denseAcc, b.newAcc(w))
	return nil
}

// Flush merges every bin touched this event into store in first-touch
// order, advances the event counter, and resets the buffer for the next
// event. It never fails: flush and store operations are not part of the
// engine's fallible surface.
func (b *Buffer[T, S]) Flush(store *histstore.Store) {
	if b.nTotal == 0 {
		return
	}

	for i, gid := range b.denseIDs {
		net := float64(b.denseAcc[i].Result())
		store.Accumulate(int(gid), net, net*net)
	}
	store.IncrementCount()

	b.denseIDs = b.denseIDs[:0]
	b.denseAcc = b.denseAcc[:0]

	b.currentGen++
	if b.currentGen > b.maxGen {
		clear(b.sparseMap)
		b.currentGen = 1
		if b.rolloverHook != nil {
			b.rolloverHook()
		}
	}
}

// NumTouched returns the number of distinct global indices filled in the
// current (unflushed) event.
func (b *Buffer[T, S]) NumTouched() int {
	return len(b.denseIDs)
}

// Touched returns a copy of the global indices touched in the current
// event, in first-touch order.
func (b *Buffer[T, S]) Touched() []S {
	out := make([]S, len(b.denseIDs))
	copy(out, b.denseIDs)
	return out
}

// Lookup reports the live accumulator for gid in the current event, if it
// has been touched since the last flush.
func (b *Buffer[T, S]) Lookup(gid S) (accum.Accumulator[T], bool) {
	if b.nTotal == 0 {
		return nil, false
	}
	packed := b.sparseMap[gid]
	if (packed >> b.shiftAmount) != b.currentGen {
		return nil, false
	}
	j := packed & b.indexMask
	return b.denseAcc[j], true
}

// CurrentGen returns the buffer's current generation counter.
func (b *Buffer[T, S]) CurrentGen() S { return b.currentGen }

// MaxGen returns the largest representable generation value.
func (b *Buffer[T, S]) MaxGen() S { return b.maxGen }

// IndexMask returns the packed word's dense-index bitmask.
func (b *Buffer[T, S]) IndexMask() S { return b.indexMask }

// NTotal returns the N_total this buffer was initialized with.
func (b *Buffer[T, S]) NTotal() int { return b.nTotal }
