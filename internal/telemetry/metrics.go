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

// Package telemetry provides opt-in Prometheus instrumentation for the
// histogram engine. Every exported function is a no-op when Enable has
// not been called, so workers can call these unconditionally on the hot
// path without branching on whether telemetry is active.
package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled atomic.Bool

	fillsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_fills_total",
		Help: "Total number of Buffer.Fill calls across all workers",
	})
	fillErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_fill_errors_total",
		Help: "Total number of Buffer.Fill calls that returned an error (dense index overflow)",
	})
	bufferHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_buffer_hits_total",
		Help: "Total fills that found an already-touched bin in the current event",
	})
	bufferMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_buffer_misses_total",
		Help: "Total fills that touched a bin for the first time in the current event",
	})
	flushesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_flushes_total",
		Help: "Total number of Buffer.Flush calls across all workers",
	})
	generationRolloversTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_generation_rollovers_total",
		Help: "Total number of forced sparse-map generation rollovers",
	})
	distinctBinsPerEvent = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kakuhen_distinct_bins_per_event",
		Help:    "Distribution of distinct global bins touched per flushed event",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 4096},
	})
	droppedFillsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kakuhen_dropped_fills_total",
		Help: "Total fills dropped by an axis's PolicyDrop overflow policy",
	})
)

func init() {
	prometheus.MustRegister(
		fillsTotal,
		fillErrorsTotal,
		bufferHitsTotal,
		bufferMissesTotal,
		flushesTotal,
		generationRolloversTotal,
		distinctBinsPerEvent,
		droppedFillsTotal,
	)
}

// Enable turns on metric recording. Safe to call multiple times. If addr is
// non-empty, a dedicated HTTP server serving /metrics is started in the
// background; leave it empty if /metrics is already exposed elsewhere.
func Enable(addr string) {
	enabled.Store(true)
	if addr != "" {
		startMetricsEndpoint(addr)
	}
}

// Enabled reports whether telemetry recording is active.
func Enabled() bool { return enabled.Load() }

// ObserveFill records the outcome of one Buffer.Fill call.
func ObserveFill(hit bool, err error) {
	if !enabled.Load() {
		return
	}
	fillsTotal.Inc()
	if err != nil {
		fillErrorsTotal.Inc()
		return
	}
	if hit {
		bufferHitsTotal.Inc()
	} else {
		bufferMissesTotal.Inc()
	}
}

// ObserveFlush records one Buffer.Flush call and how many distinct bins it
// carried.
func ObserveFlush(distinctBins int) {
	if !enabled.Load() {
		return
	}
	flushesTotal.Inc()
	distinctBinsPerEvent.Observe(float64(distinctBins))
}

// ObserveGenerationRollover records one forced sparse-map rollover. Intended
// to be passed to fillbuffer.Buffer.OnRollover.
func ObserveGenerationRollover() {
	if !enabled.Load() {
		return
	}
	generationRolloversTotal.Inc()
}

// ObserveDroppedFill records one fill discarded by an axis's PolicyDrop.
func ObserveDroppedFill() {
	if !enabled.Load() {
		return
	}
	droppedFillsTotal.Inc()
}

func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
