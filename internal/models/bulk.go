// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "github.com/google/uuid"

// MaxBulkErrors bounds the error list carried in a BulkResult so that a
// large failing import cannot produce an unbounded response. Failure
// counting itself is never capped.
const MaxBulkErrors = 100

// BulkUpdateItem pairs a category id with the fields to merge into it.
type BulkUpdateItem struct {
	ID   uuid.UUID `json:"id"`
	Data Update    `json:"data"`
}

// BulkError describes one failed item of a bulk operation. ItemID is empty
// for batch-level failures, where a whole chunk failed to commit.
type BulkError struct {
	ItemID string `json:"item_id,omitempty"`
	Error  string `json:"error"`
}

// BulkResult aggregates the outcome of a bulk operation. Success and
// Failed always sum to the number of input items, regardless of how many
// error entries were retained.
type BulkResult struct {
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Errors  []BulkError `json:"errors"`
}

// Fail records one failed item, retaining the error message only while
// the list is below MaxBulkErrors.
func (r *BulkResult) Fail(itemID, msg string) {
	r.Failed++
	r.record(itemID, msg)
}

// record appends an error entry subject to the cap without touching the
// counters. Used for batch-level errors where the per-item counters are
// adjusted separately.
func (r *BulkResult) record(itemID, msg string) {
	if len(r.Errors) < MaxBulkErrors {
		r.Errors = append(r.Errors, BulkError{ItemID: itemID, Error: msg})
	}
}

// BatchFailed converts staged items of a chunk from successes to failures
// after a commit error and records a single batch-level error entry.
func (r *BulkResult) BatchFailed(staged int, msg string) {
	r.Success -= staged
	r.Failed += staged
	r.record("", msg)
}
