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

package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AuditProducer is a minimal abstraction over a message broker client used
// to publish flush audit records. Implementations should enable an
// idempotent producer and use FlushRecord.RunID+SeqEnd as the message key so
// broker-side dedup and per-worker ordering are preserved.
//
// We intentionally avoid importing a specific Kafka library: the audit
// trail is a downstream concern, and which broker backs it is a deployment
// decision, not a compile-time one.
type AuditProducer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// LoggingAuditProducer is a demo AuditProducer that logs instead of
// publishing to a real broker. Not for production use.
type LoggingAuditProducer struct{}

func (LoggingAuditProducer) Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[audit-demo] TOPIC=%s KEY=%s VALUE=%s\n", topic, string(key), string(value))
	return nil
}

// FlushRecord is the audit payload published once per worker flush.
type FlushRecord struct {
	RunID        string `json:"run_id"`
	WorkerID     string `json:"worker_id"`
	SeqEnd       uint64 `json:"seq_end"`
	DistinctBins int    `json:"distinct_bins"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}

// AuditPublisher publishes FlushRecord audit events. Downstream consumers
// can use it to reconstruct a worker's flush history independently of the
// checkpoint snapshots themselves.
type AuditPublisher struct {
	producer       AuditProducer
	topic          string
	defaultTimeout time.Duration
}

// NewAuditPublisher constructs an AuditPublisher publishing to topic via p.
func NewAuditPublisher(p AuditProducer, topic string) *AuditPublisher {
	return &AuditPublisher{producer: p, topic: topic, defaultTimeout: 10 * time.Second}
}

// PublishFlush publishes one FlushRecord.
func (a *AuditPublisher) PublishFlush(ctx context.Context, rec FlushRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && a.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.defaultTimeout)
		defer cancel()
	}
	if rec.TsUnixMs == 0 {
		rec.TsUnixMs = time.Now().UnixMilli()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal flush record: %w", err)
	}
	key := fmt.Sprintf("%s:%d", rec.RunID, rec.SeqEnd)
	headers := map[string]string{"content-type": "application/json"}
	if err := a.producer.Produce(ctx, a.topic, []byte(key), b, headers); err != nil {
		return fmt.Errorf("publish flush record run=%s seq=%d: %w", rec.RunID, rec.SeqEnd, err)
	}
	return nil
}
