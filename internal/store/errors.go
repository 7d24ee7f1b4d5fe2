// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// errors.go defines the typed failure taxonomy for category operations.
// Callers distinguish the three kinds with errors.As and map them to
// user-facing responses; any other error is an I/O or transaction fault
// wrapped with its original message and never retried here.
package store

import "fmt"

// ValidationError reports missing or illegal input, such as a create
// without a resolvable slug or a delete of a category that still has
// children or products.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError reports a slug collision or an optimistic-lock version
// mismatch. Storage is left unchanged.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// NotFoundError reports an unknown category id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("category %s not found", e.ID)
}

// CheckVersion compares a caller-supplied expected version against the
// stored one. Creates have no prior version and never call this; updates
// call it only when the caller supplied an expectation.
func CheckVersion(expected, actual int64) error {
	if expected != actual {
		return &ConflictError{
			Reason: fmt.Sprintf("version mismatch: expected %d, stored version is %d", expected, actual),
		}
	}
	return nil
}
