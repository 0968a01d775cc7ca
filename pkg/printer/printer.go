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

// Package printer renders a registry and store as text. Printer is a
// six-call protocol (Reset, GlobalHeader, HistogramHeader/Row/Footer,
// GlobalFooter) rather than a single Sprint method so callers can stream
// output for registries too large to buffer, and so alternate renderings
// (e.g. a future machine-readable printer) can hook the same call sequence
// without Print caring which one is active.
package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aykhuss/kakuhen-go/pkg/histstore"
	"github.com/aykhuss/kakuhen-go/pkg/registry"
)

// Printer receives one call per stage of rendering a registry's contents.
type Printer interface {
	// Reset clears any accumulated state, readying the printer for a
	// fresh Print call. Safe to call on a zero-value printer.
	Reset()
	GlobalHeader(numHistograms, nTotal int, eventCount uint64)
	HistogramHeader(name string, nBins, stride int)
	HistogramRow(bin, slot int, mean, errVal float64)
	HistogramFooter()
	GlobalFooter()
}

// Print drives p through every histogram in reg/store via the six-call
// protocol above, in booking order.
func Print(p Printer, reg *registry.Registry, store *histstore.Store) error {
	p.Reset()
	p.GlobalHeader(reg.NumHistograms(), reg.Total(), store.Count())
	for id := 0; id < reg.NumHistograms(); id++ {
		name, err := reg.Name(id)
		if err != nil {
			return err
		}
		v, err := reg.View(id)
		if err != nil {
			return err
		}
		p.HistogramHeader(name, v.NBins, v.Stride)
		for bin := 0; bin < v.NBins; bin++ {
			for slot := 0; slot < v.Stride; slot++ {
				gid := v.GlobalIndex(bin, slot)
				p.HistogramRow(bin, slot, store.Mean(gid), store.Error(gid))
			}
		}
		p.HistogramFooter()
	}
	p.GlobalFooter()
	return nil
}

// TextPrinter renders a registry as an aligned plain-text table.
type TextPrinter struct {
	w  io.Writer
	tw *tabwriter.Writer
}

// NewTextPrinter constructs a TextPrinter writing to w.
func NewTextPrinter(w io.Writer) *TextPrinter {
	p := &TextPrinter{w: w}
	p.Reset()
	return p
}

func (p *TextPrinter) Reset() {
	p.tw = tabwriter.NewWriter(p.w, 2, 4, 2, ' ', 0)
}

func (p *TextPrinter) GlobalHeader(numHistograms, nTotal int, eventCount uint64) {
	fmt.Fprintf(p.tw, "# %d histogram(s), %d bin(s) total, %d event(s)\n", numHistograms, nTotal, eventCount)
}

func (p *TextPrinter) HistogramHeader(name string, nBins, stride int) {
	fmt.Fprintf(p.tw, "\n# %s (%d bins, stride %d)\n", name, nBins, stride)
	fmt.Fprintf(p.tw, "bin\tslot\tmean\terror\n")
}

func (p *TextPrinter) HistogramRow(bin, slot int, mean, errVal float64) {
	fmt.Fprintf(p.tw, "%d\t%d\t%g\t%g\n", bin, slot, mean, errVal)
}

func (p *TextPrinter) HistogramFooter() {}

func (p *TextPrinter) GlobalFooter() {
	p.tw.Flush()
}
