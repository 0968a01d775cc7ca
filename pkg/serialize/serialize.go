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

// Package serialize writes and reads a self-describing snapshot of a
// registry's booking table together with a store's accumulated bins. The
// stream leads with a type-signature header recording three widths the
// producer ran with -- the accumulator float type T, the fill buffer index
// type S, and the event-counter type U -- purely as provenance: a snapshot
// taken on a run using uint16 dense indices can still be merged against one
// that used uint32, since none of the three widths constrain the store
// itself (histstore.Store is always float64 bins over a uint64 counter).
package serialize

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/aykhuss/kakuhen-go/pkg/axis"
	"github.com/aykhuss/kakuhen-go/pkg/histstore"
	"github.com/aykhuss/kakuhen-go/pkg/registry"
)

var magic = [4]byte{'K', 'H', 'S', '1'}

const (
	axisKindNone     uint8 = 0
	axisKindUniform  uint8 = 1
	axisKindVariable uint8 = 2
)

// Meta carries the provenance fields recorded in the header, returned by
// Deserialize alongside the reconstructed registry and store.
type Meta struct {
	FloatBits      int // width of T the producer's accumulator used (32 or 64)
	IndexBits      int // width of S the producer's fill buffer used
	EventCountBits int // width of U the producer's event counter used (always 64 today)
	EventCount     uint64
}

// Serialize writes reg's booking table and store's bins to w. floatBits,
// indexBits and eventCountBits are recorded in the header as the stream's
// T/S/U type signature (see package doc); callers typically pass the same
// widths used to instantiate their fillbuffer.Buffer, plus the width of
// histstore.Store's event counter (uint64, so 64) for eventCountBits.
func Serialize(w io.Writer, reg *registry.Registry, store *histstore.Store, floatBits, indexBits, eventCountBits int) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	header := make([]byte, 1+1+1+4+4+8)
	header[0] = byte(floatBits)
	header[1] = byte(indexBits)
	header[2] = byte(eventCountBits)
	binary.LittleEndian.PutUint32(header[3:7], uint32(reg.NumHistograms()))
	binary.LittleEndian.PutUint32(header[7:11], uint32(store.Len()))
	binary.LittleEndian.PutUint64(header[11:19], store.Count())
	if _, err := bw.Write(header); err != nil {
		return err
	}

	for id := 0; id < reg.NumHistograms(); id++ {
		if err := writeHistogramEntry(bw, reg, id); err != nil {
			return fmt.Errorf("serialize: histogram %d: %w", id, err)
		}
	}

	binBuf := make([]byte, 16)
	for i := 0; i < store.Len(); i++ {
		bin := store.Bin(i)
		binary.LittleEndian.PutUint64(binBuf[0:8], math.Float64bits(bin.Weight()))
		binary.LittleEndian.PutUint64(binBuf[8:16], math.Float64bits(bin.WeightSq()))
		if _, err := bw.Write(binBuf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeHistogramEntry(bw *bufio.Writer, reg *registry.Registry, id int) error {
	name, err := reg.Name(id)
	if err != nil {
		return err
	}
	v, err := reg.View(id)
	if err != nil {
		return err
	}
	ax, err := reg.Axis(id)
	if err != nil {
		return err
	}

	nameBytes := []byte(name)
	if err := writeUint16(bw, uint16(len(nameBytes))); err != nil {
		return err
	}
	if _, err := bw.Write(nameBytes); err != nil {
		return err
	}

	viewBuf := make([]byte, 12)
	binary.LittleEndian.PutUint32(viewBuf[0:4], uint32(v.Base))
	binary.LittleEndian.PutUint32(viewBuf[4:8], uint32(v.NBins))
	binary.LittleEndian.PutUint32(viewBuf[8:12], uint32(v.Stride))
	if _, err := bw.Write(viewBuf); err != nil {
		return err
	}

	return writeAxis(bw, ax)
}

func writeAxis(bw *bufio.Writer, ax axis.Axis) error {
	switch a := ax.(type) {
	case nil:
		return bw.WriteByte(axisKindNone)
	case *axis.Uniform:
		if err := bw.WriteByte(axisKindUniform); err != nil {
			return err
		}
		buf := make([]byte, 8+8+4+1)
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(a.Lo()))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(a.Hi()))
		binary.LittleEndian.PutUint32(buf[16:20], uint32(a.NBins()))
		buf[20] = byte(a.Policy())
		_, err := bw.Write(buf)
		return err
	case *axis.Variable:
		if err := bw.WriteByte(axisKindVariable); err != nil {
			return err
		}
		edges := a.Edges()
		if err := writeUint32(bw, uint32(len(edges))); err != nil {
			return err
		}
		buf := make([]byte, 8)
		for _, e := range edges {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(e))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		return bw.WriteByte(byte(a.Policy()))
	case *axis.None:
		return bw.WriteByte(axisKindNone)
	default:
		return fmt.Errorf("serialize: unknown axis type %T", ax)
	}
}

func writeUint16(bw *bufio.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := bw.Write(buf[:])
	return err
}

func writeUint32(bw *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := bw.Write(buf[:])
	return err
}

// Deserialize reads a stream written by Serialize and reconstructs an
// equivalent registry (with the same booking order, so ids and views
// match the original) and a populated store.
func Deserialize(r io.Reader) (*registry.Registry, *histstore.Store, Meta, error) {
	br := bufio.NewReader(r)

	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, nil, Meta{}, fmt.Errorf("deserialize: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, nil, Meta{}, fmt.Errorf("deserialize: bad magic %q, want %q", gotMagic, magic)
	}

	header := make([]byte, 1+1+1+4+4+8)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, nil, Meta{}, fmt.Errorf("deserialize: reading header: %w", err)
	}
	meta := Meta{
		FloatBits:      int(header[0]),
		IndexBits:      int(header[1]),
		EventCountBits: int(header[2]),
		EventCount:     binary.LittleEndian.Uint64(header[11:19]),
	}
	nHist := binary.LittleEndian.Uint32(header[3:7])
	nTotal := binary.LittleEndian.Uint32(header[7:11])

	reg := registry.New()
	for i := uint32(0); i < nHist; i++ {
		if err := readHistogramEntry(br, reg); err != nil {
			return nil, nil, Meta{}, fmt.Errorf("deserialize: histogram %d: %w", i, err)
		}
	}
	if got := uint32(reg.Total()); got != nTotal {
		return nil, nil, Meta{}, fmt.Errorf("deserialize: reconstructed total %d != header total %d", got, nTotal)
	}

	store := histstore.New(int(nTotal))
	binBuf := make([]byte, 16)
	for i := uint32(0); i < nTotal; i++ {
		if _, err := io.ReadFull(br, binBuf); err != nil {
			return nil, nil, Meta{}, fmt.Errorf("deserialize: reading bin %d: %w", i, err)
		}
		w := math.Float64frombits(binary.LittleEndian.Uint64(binBuf[0:8]))
		wSq := math.Float64frombits(binary.LittleEndian.Uint64(binBuf[8:16]))
		store.Accumulate(int(i), w, wSq)
	}
	for i := uint64(0); i < meta.EventCount; i++ {
		store.IncrementCount()
	}

	return reg, store, meta, nil
}

func readHistogramEntry(br *bufio.Reader, reg *registry.Registry) error {
	var lenBuf [2]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return err
	}
	nameLen := binary.LittleEndian.Uint16(lenBuf[:])
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(br, nameBytes); err != nil {
		return err
	}

	viewBuf := make([]byte, 12)
	if _, err := io.ReadFull(br, viewBuf); err != nil {
		return err
	}
	stride := int(binary.LittleEndian.Uint32(viewBuf[8:12]))

	ax, err := readAxis(br)
	if err != nil {
		return err
	}

	if ax == nil {
		nBins := int(binary.LittleEndian.Uint32(viewBuf[4:8]))
		_, err = reg.BookStride(string(nameBytes), nBins, stride)
	} else {
		_, err = reg.BookAxis(string(nameBytes), ax, stride)
	}
	return err
}

func readAxis(br *bufio.Reader) (axis.Axis, error) {
	kind, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	switch kind {
	case axisKindNone:
		return nil, nil
	case axisKindUniform:
		buf := make([]byte, 8+8+4+1)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		lo := math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
		hi := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
		nBins := int(binary.LittleEndian.Uint32(buf[16:20]))
		policy := axis.OverflowPolicy(buf[20])
		return axis.NewUniform(lo, hi, nBins, policy), nil
	case axisKindVariable:
		var nEdgesBuf [4]byte
		if _, err := io.ReadFull(br, nEdgesBuf[:]); err != nil {
			return nil, err
		}
		nEdges := binary.LittleEndian.Uint32(nEdgesBuf[:])
		edges := make([]float64, nEdges)
		buf := make([]byte, 8)
		for i := range edges {
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, err
			}
			edges[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		}
		policyByte, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		return axis.NewVariable(edges, axis.OverflowPolicy(policyByte)), nil
	default:
		return nil, fmt.Errorf("deserialize: unknown axis kind tag %d", kind)
	}
}
