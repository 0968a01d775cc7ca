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

// Package registry is the booking facade that ties view.View, axis.Axis,
// fillbuffer.Buffer and histstore.Store into the single API an analysis
// author touches: book a histogram once at startup, then fill and flush
// per-event, then read back mean/error once the run is done.
//
// Booking (Book/BookAxis) takes the registry's mutex; it happens once per
// histogram at setup time. Every lookup (View, Axis, Name, ID, Total,
// NumHistograms) takes the same mutex for its duration, and Fill, FillAxis
// and the query helpers go through View/Axis, so each of those calls
// briefly locks the registry as well; only fillbuffer.Buffer.Fill itself
// is lock-free. Nothing stops booking after CreateStore; in practice all
// booking finishes before CreateStore is ever called, so the registry is
// fixed by the time the first buffer exists.
package registry

import (
	"sync"

	"github.com/aykhuss/kakuhen-go/pkg/accum"
	"github.com/aykhuss/kakuhen-go/pkg/axis"
	"github.com/aykhuss/kakuhen-go/pkg/fillbuffer"
	"github.com/aykhuss/kakuhen-go/pkg/histstore"
	"github.com/aykhuss/kakuhen-go/pkg/view"
)

// Registry is the mutable booking table. Zero value is ready to use.
type Registry struct {
	mu     sync.Mutex
	names  []string
	views  []view.View
	axes   []axis.Axis // nil entry for histograms booked without an axis
	total  int
	frozen bool
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Book reserves nBins bins (stride 1, no coordinate axis) under name and
// returns its histogram id.
func (r *Registry) Book(name string, nBins int) (int, error) {
	return r.BookStride(name, nBins, 1)
}

// BookStride reserves nBins bins with stride values stored per bin (no
// coordinate axis).
func (r *Registry) BookStride(name string, nBins, stride int) (int, error) {
	return r.book(name, nBins, stride, nil)
}

// BookAxis reserves a histogram whose local bin is computed by ax.Map
// rather than addressed directly. If ax uses axis.PolicyDedicatedBin, two
// extra bins are reserved transparently to hold the underflow/overflow
// sentinels; FillAxis accounts for the shift, so callers never see it.
func (r *Registry) BookAxis(name string, ax axis.Axis, stride int) (int, error) {
	return r.book(name, ax.NBins(), stride, ax)
}

func (r *Registry) book(name string, nBins, stride int, ax axis.Axis) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.names {
		if existing == name {
			return 0, &DuplicateNameError{Name: name}
		}
	}

	// PolicyDedicatedBin axes map underflow/overflow to the sentinel local
	// bins -1 and NBins, outside [0, NBins): reserve those two extra slots
	// here so dedicatedBinOffset (applied in FillAxis) always lands inside
	// this view instead of wrapping or bleeding into a neighboring one.
	if ax != nil && ax.Policy() == axis.PolicyDedicatedBin {
		nBins += 2
	}

	v := view.New(r.total, nBins, stride)
	id := len(r.names)
	r.names = append(r.names, name)
	r.views = append(r.views, v)
	r.axes = append(r.axes, ax)
	r.total += v.Len()
	return id, nil
}

// Total returns N_total, the sum of every booked histogram's span. This is
// the size every buffer and store must be initialized with.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// NumHistograms returns how many histograms have been booked.
func (r *Registry) NumHistograms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// View returns the booked view for id.
func (r *Registry) View(id int) (view.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.views) {
		return view.View{}, &NotFoundError{ID: id}
	}
	return r.views[id], nil
}

// Axis returns the booked axis for id, or nil if it was booked without one.
func (r *Registry) Axis(id int) (axis.Axis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.axes) {
		return nil, &NotFoundError{ID: id}
	}
	return r.axes[id], nil
}

// Name returns the name a histogram was booked under.
func (r *Registry) Name(id int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.names) {
		return "", &NotFoundError{ID: id}
	}
	return r.names[id], nil
}

// ID looks up a histogram by name. This is a linear scan: booking happens
// at startup for a handful of histograms, never on a hot path, so an index
// isn't worth the bookkeeping.
func (r *Registry) ID(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.names {
		if existing == name {
			return i, nil
		}
	}
	return 0, &NotFoundError{Name: name}
}

// CreateStore allocates a histstore.Store sized to hold every booked
// histogram. Call this once, after all booking is done.
func (r *Registry) CreateStore() *histstore.Store {
	return histstore.New(r.Total())
}

// CreateBuffer allocates a fillbuffer.Buffer sized to this registry's
// current Total() and the given accumulator factory. reserve is a dense
// capacity hint only (see fillbuffer.Buffer.Init).
func CreateBuffer[T accum.Float, S fillbuffer.Unsigned](r *Registry, newAcc fillbuffer.NewAccumulator[T], reserve int) (*fillbuffer.Buffer[T, S], error) {
	buf := fillbuffer.New[T, S](newAcc)
	if err := buf.Init(r.Total(), reserve); err != nil {
		return nil, err
	}
	return buf, nil
}

// Fill folds weight w into histogram id's (bin, slot) for the current
// event. slot addresses the stride dimension (pass 0 for stride-1
// histograms).
func Fill[T accum.Float, S fillbuffer.Unsigned](r *Registry, buf *fillbuffer.Buffer[T, S], id, bin, slot int, w T) error {
	v, err := r.View(id)
	if err != nil {
		return err
	}
	gid := v.GlobalIndex(bin, slot)
	return buf.Fill(S(gid), w)
}

// FillAxis maps coordinate x through histogram id's booked axis and folds
// weight w into the resulting bin. Returns a *DroppedFillError (not a
// buffer error) if the axis's OverflowPolicy rejects x.
func FillAxis[T accum.Float, S fillbuffer.Unsigned](r *Registry, buf *fillbuffer.Buffer[T, S], id int, x float64, slot int, w T) error {
	ax, err := r.Axis(id)
	if err != nil {
		return err
	}
	if ax == nil {
		return &NotFoundError{ID: id}
	}
	bin, ok := ax.Map(x)
	if !ok {
		return &DroppedFillError{HistogramID: id, Coordinate: x}
	}
	// Shift the dedicated underflow/overflow sentinels (-1 and NBins) into
	// the two extra slots book() reserved for them, so bin stays within
	// [0, view.NBins) no matter which sentinel (if any) Map returned.
	if ax.Policy() == axis.PolicyDedicatedBin {
		bin++
	}
	return Fill(r, buf, id, bin, slot, w)
}

// Mean returns the per-event mean of histogram id's (bin, slot).
func Mean(r *Registry, store *histstore.Store, id, bin, slot int) (float64, error) {
	v, err := r.View(id)
	if err != nil {
		return 0, err
	}
	return store.Mean(v.GlobalIndex(bin, slot)), nil
}

// VarianceOfMean returns the estimated variance of the mean of histogram
// id's (bin, slot).
func VarianceOfMean(r *Registry, store *histstore.Store, id, bin, slot int) (float64, error) {
	v, err := r.View(id)
	if err != nil {
		return 0, err
	}
	return store.VarianceOfMean(v.GlobalIndex(bin, slot)), nil
}

// Error returns sqrt(VarianceOfMean) for histogram id's (bin, slot).
func Error(r *Registry, store *histstore.Store, id, bin, slot int) (float64, error) {
	v, err := r.View(id)
	if err != nil {
		return 0, err
	}
	return store.Error(v.GlobalIndex(bin, slot)), nil
}
