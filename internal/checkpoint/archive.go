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
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS snapshots (
//   run_id      TEXT NOT NULL,
//   worker_id   TEXT NOT NULL,
//   seq_end     BIGINT NOT NULL,
//   payload     BYTEA NOT NULL,
//   archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//   PRIMARY KEY (run_id, worker_id, seq_end)
// );
//
// Idempotent insert per snapshot: ON CONFLICT DO NOTHING, keyed on the
// triple that uniquely identifies one worker's snapshot at one generation
// boundary -- a retried archive call after a network blip is a no-op.

// Archive writes long-term snapshot history to Postgres, independent of
// the short-lived Redis checkpoints used for live reduction (see
// GoRedisStore). Redis holds only the latest snapshot per worker; Archive
// keeps every one ever taken, for after-the-fact audits.
type Archive struct {
	db             *sql.DB
	defaultTimeout time.Duration
}

// NewArchive constructs an Archive over an already-open *sql.DB.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db, defaultTimeout: 10 * time.Second}
}

// Record is one archived snapshot.
type Record struct {
	RunID    string
	WorkerID string
	SeqEnd   uint64
	Payload  []byte
}

// Save archives rec idempotently: re-archiving the same (RunID, WorkerID,
// SeqEnd) triple is a no-op.
func (a *Archive) Save(ctx context.Context, rec Record) error {
	if rec.RunID == "" || rec.WorkerID == "" {
		return errors.New("checkpoint: Record.RunID and WorkerID must be set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && a.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.defaultTimeout)
		defer cancel()
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO snapshots(run_id, worker_id, seq_end, payload) VALUES ($1,$2,$3,$4)
		   ON CONFLICT DO NOTHING`,
		rec.RunID, rec.WorkerID, rec.SeqEnd, rec.Payload)
	if err != nil {
		return fmt.Errorf("checkpoint: archive %s/%s@%d: %w", rec.RunID, rec.WorkerID, rec.SeqEnd, err)
	}
	return nil
}

// Latest returns the highest-SeqEnd archived payload for (runID, workerID),
// or sql.ErrNoRows if none exists.
func (a *Archive) Latest(ctx context.Context, runID, workerID string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var payload []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE run_id = $1 AND worker_id = $2
		   ORDER BY seq_end DESC LIMIT 1`,
		runID, workerID).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: latest %s/%s: %w", runID, workerID, err)
	}
	return payload, nil
}
