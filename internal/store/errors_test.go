package store

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckVersion(t *testing.T) {
	if err := CheckVersion(3, 3); err != nil {
		t.Errorf("matching versions should pass, got %v", err)
	}

	err := CheckVersion(2, 3)
	if err == nil {
		t.Fatal("expected conflict for mismatched versions")
	}
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	if !strings.Contains(err.Error(), "2") || !strings.Contains(err.Error(), "3") {
		t.Errorf("conflict message should carry both versions: %q", err.Error())
	}
}

// TestErrorTypesDistinguishable ensures callers can tell the three
// failure kinds apart with errors.As.
func TestErrorTypesDistinguishable(t *testing.T) {
	var verr *ValidationError
	var cerr *ConflictError
	var nferr *NotFoundError

	var err error = &ValidationError{Reason: "missing name"}
	if !errors.As(err, &verr) || errors.As(err, &cerr) || errors.As(err, &nferr) {
		t.Error("ValidationError misclassified")
	}

	err = &ConflictError{Reason: "slug taken"}
	if !errors.As(err, &cerr) || errors.As(err, &verr) || errors.As(err, &nferr) {
		t.Error("ConflictError misclassified")
	}

	err = &NotFoundError{ID: "abc"}
	if !errors.As(err, &nferr) || errors.As(err, &verr) || errors.As(err, &cerr) {
		t.Error("NotFoundError misclassified")
	}
	if !strings.Contains(err.Error(), "abc") {
		t.Errorf("NotFoundError should name the id: %q", err.Error())
	}
}
