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

// Package main provides the entry point for a demo Monte Carlo event
// generator driving the histogram engine at full concurrency.
//
// Each worker goroutine owns one fillbuffer.Buffer and generates synthetic
// events entirely on its own: no cross-worker coordination happens until a
// buffer flushes into the shared histstore.Store.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aykhuss/kakuhen-go/internal/checkpoint"
	"github.com/aykhuss/kakuhen-go/internal/sinks"
	"github.com/aykhuss/kakuhen-go/internal/telemetry"
	"github.com/aykhuss/kakuhen-go/pkg/accum"
	"github.com/aykhuss/kakuhen-go/pkg/axis"
	"github.com/aykhuss/kakuhen-go/pkg/fillbuffer"
	"github.com/aykhuss/kakuhen-go/pkg/histstore"
	"github.com/aykhuss/kakuhen-go/pkg/printer"
	"github.com/aykhuss/kakuhen-go/pkg/registry"
	"github.com/aykhuss/kakuhen-go/pkg/serialize"
)

func main() {
	numWorkers := flag.Int("workers", 4, "number of concurrent generator goroutines")
	eventsPerWorker := flag.Int64("events", 1_000_000, "events each worker generates before stopping")
	outputPath := flag.String("output", "histograms.bin", "path to write the final serialized snapshot")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, expose Prometheus /metrics on this address")
	checkpointAddr := flag.String("checkpoint_redis_addr", "", "if non-empty, push periodic checkpoints to this Redis address instead of logging them")
	runID := flag.String("run_id", "histgen-run", "identifies this run's checkpoints in the checkpoint store")
	flag.Parse()

	telemetry.Enable(*metricsAddr)

	var checkpointStore checkpoint.Store = checkpoint.LoggingStore{}
	if *checkpointAddr != "" {
		checkpointStore = checkpoint.NewGoRedisStore(*checkpointAddr)
	}

	reg := registry.New()
	multID, err := reg.Book("multiplicity", 20)
	if err != nil {
		log.Fatalf("booking multiplicity histogram: %v", err)
	}
	ptAxis := axis.NewUniform(0, 100, 50, axis.PolicyClamp)
	ptID, err := reg.BookAxis("pt_spectrum", ptAxis, 1)
	if err != nil {
		log.Fatalf("booking pt_spectrum histogram: %v", err)
	}
	multView, err := reg.View(multID)
	if err != nil {
		log.Fatalf("view for multiplicity: %v", err)
	}

	store := reg.CreateStore()

	ctx, stopWorkers := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		fmt.Println("\nSignal received, finishing in-flight events...")
		stopWorkers()
	}()

	cfg := workerConfig{
		reg:             reg,
		store:           store,
		multID:          multID,
		multNBins:       multView.NBins,
		ptID:            ptID,
		eventsPerWorker: *eventsPerWorker,
		runID:           *runID,
		checkpointStore: checkpointStore,
	}

	var wg sync.WaitGroup
	for w := 0; w < *numWorkers; w++ {
		wg.Add(1)
		go runWorker(ctx, &wg, w, cfg)
	}
	wg.Wait()

	fmt.Printf("generated %d event(s) across %d worker(s)\n", store.Count(), *numWorkers)

	if err := writeFinalSnapshot(reg, store, *outputPath); err != nil {
		log.Fatalf("writing final snapshot: %v", err)
	}

	tp := printer.NewTextPrinter(os.Stdout)
	if err := printer.Print(tp, reg, store); err != nil {
		log.Fatalf("printing summary: %v", err)
	}
}

// workerConfig bundles the read-only state every worker goroutine shares.
type workerConfig struct {
	reg             *registry.Registry
	store           *histstore.Store
	multID          int
	multNBins       int
	ptID            int
	eventsPerWorker int64
	runID           string
	checkpointStore checkpoint.Store
}

const checkpointEvery = 50_000

func runWorker(ctx context.Context, wg *sync.WaitGroup, workerIdx int, cfg workerConfig) {
	defer wg.Done()

	buf, err := registry.CreateBuffer[float64, uint32](cfg.reg, func(w float64) accum.Accumulator[float64] { return accum.NewCompensated(w) }, 32)
	if err != nil {
		log.Printf("worker %d: init buffer: %v", workerIdx, err)
		return
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerIdx)))

	for i := int64(0); i < cfg.eventsPerWorker; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		generateEvent(cfg, buf, rng)

		touched := buf.NumTouched()
		buf.Flush(cfg.store)
		telemetry.ObserveFlush(touched)

		if (i+1)%checkpointEvery == 0 {
			pushCheckpoint(ctx, cfg, workerIdx)
		}
	}
}

func generateEvent(cfg workerConfig, buf *fillbuffer.Buffer[float64, uint32], rng *rand.Rand) {
	numParticles := 1 + rng.Intn(20)
	bin := numParticles - 1
	if bin >= cfg.multNBins {
		bin = cfg.multNBins - 1
	}
	err := registry.Fill(cfg.reg, buf, cfg.multID, bin, 0, 1.0)
	telemetry.ObserveFill(false, err)

	for p := 0; p < numParticles; p++ {
		pt := rng.ExpFloat64() * 10
		touchedBefore := buf.NumTouched()
		err := registry.FillAxis(cfg.reg, buf, cfg.ptID, pt, 0, 1.0)
		var dropped *registry.DroppedFillError
		if errors.As(err, &dropped) {
			telemetry.ObserveDroppedFill()
		} else {
			telemetry.ObserveFill(buf.NumTouched() == touchedBefore, err)
		}
	}
}

// pushCheckpoint saves a snapshot of the whole shared store under this
// worker's key. The snapshot holds every worker's flushed events so far,
// not only this worker's share.
func pushCheckpoint(ctx context.Context, cfg workerConfig, workerIdx int) {
	key := fmt.Sprintf("%s:worker-%d", cfg.runID, workerIdx)
	var buf bytes.Buffer
	if err := serialize.Serialize(&buf, cfg.reg, cfg.store, 64, 32, 64); err != nil {
		log.Printf("checkpoint serialize failed: %v", err)
		return
	}
	if err := cfg.checkpointStore.Save(ctx, key, buf.Bytes(), 10*time.Minute); err != nil {
		log.Printf("checkpoint save failed: %v", err)
	}
}

func writeFinalSnapshot(reg *registry.Registry, store *histstore.Store, path string) error {
	sink, err := sinks.NewDumpFileSink(path)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.WriteSnapshot(reg, store, 64, 32, 64)
}
