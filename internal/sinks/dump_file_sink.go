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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aykhuss/kakuhen-go/pkg/histstore"
	"github.com/aykhuss/kakuhen-go/pkg/registry"
	"github.com/aykhuss/kakuhen-go/pkg/serialize"
)

// DumpFileSink appends length-prefixed registry/store snapshots to a log
// file for crash recovery and offline replay. Writes are buffered;
// WriteSnapshot flushes the buffer when more than 100ms have passed since
// the last flush, and Flush/Close flush it unconditionally.
type DumpFileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewDumpFileSink opens (or creates) the file at path in append mode.
func NewDumpFileSink(path string) (*DumpFileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &DumpFileSink{f: f, w: bufio.NewWriterSize(f, 1<<20), path: path, lastFlush: time.Now()}, nil
}

// WriteSnapshot serializes reg/store and appends it as one length-prefixed
// record. floatBits/indexBits/eventCountBits are forwarded to
// serialize.Serialize as the stream's T/S/U type signature.
func (s *DumpFileSink) WriteSnapshot(reg *registry.Registry, store *histstore.Store, floatBits, indexBits, eventCountBits int) error {
	var buf bytes.Buffer
	if err := serialize.Serialize(&buf, reg, store, floatBits, indexBits, eventCountBits); err != nil {
		return fmt.Errorf("sinks: serialize snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(buf.Len()))
	if _, err := s.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}

	if time.Since(s.lastFlush) > 100*time.Millisecond {
		_ = s.w.Flush()
		s.lastFlush = time.Now()
	}
	return nil
}

// Flush forces buffered data to be written to disk.
func (s *DumpFileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *DumpFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}

// ReadLastSnapshot scans every record in the log at path and returns the
// last one written, i.e. the most recent snapshot. Intended for recovery
// on restart.
func ReadLastSnapshot(path string) (*registry.Registry, *histstore.Store, serialize.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, serialize.Meta{}, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	var reg *registry.Registry
	var store *histstore.Store
	var meta serialize.Meta
	found := false

	for {
		var lenBuf [8]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, serialize.Meta{}, fmt.Errorf("sinks: reading record length: %w", err)
		}
		n := binary.LittleEndian.Uint64(lenBuf[:])
		record := make([]byte, n)
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, nil, serialize.Meta{}, fmt.Errorf("sinks: reading record body: %w", err)
		}
		r, st, m, err := serialize.Deserialize(bytes.NewReader(record))
		if err != nil {
			return nil, nil, serialize.Meta{}, fmt.Errorf("sinks: decoding record: %w", err)
		}
		reg, store, meta, found = r, st, m, true
	}

	if !found {
		return nil, nil, serialize.Meta{}, fmt.Errorf("sinks: %s contains no snapshots", path)
	}
	return reg, store, meta, nil
}
