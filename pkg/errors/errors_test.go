package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRule(t *testing.T) {
	err := Rule(CodeDateConflict, "window taken")

	if err.Code != CodeDateConflict {
		t.Errorf("Code = %s, want %s", err.Code, CodeDateConflict)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusConflict)
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Vehicle", "abc123")

	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusNotFound)
	}
	if err.Details["resource"] != "Vehicle" || err.Details["id"] != "abc123" {
		t.Errorf("Details = %v, want resource and id", err.Details)
	}
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("store unavailable", cause)

	if !errors.Is(err, cause) {
		t.Error("Internal must wrap its cause")
	}
}

func TestHasCode(t *testing.T) {
	err := Rule(CodeAlreadyCancelled, "already cancelled")

	if !HasCode(err, CodeAlreadyCancelled) {
		t.Error("HasCode should match the error's own code")
	}
	if HasCode(err, CodeDateConflict) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(errors.New("plain"), CodeDateConflict) {
		t.Error("HasCode should not match a plain error")
	}

	// Wrapped AppErrors are still recognized.
	wrapped := fmt.Errorf("handling request: %w", err)
	if !HasCode(wrapped, CodeAlreadyCancelled) {
		t.Error("HasCode should see through wrapping")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := InvalidInput("bad id")
	if got := AsAppError(appErr); got != appErr {
		t.Error("AsAppError should return the original AppError")
	}

	got := AsAppError(errors.New("plain"))
	if got.Code != CodeInternal {
		t.Errorf("Code = %s, want %s for a plain error", got.Code, CodeInternal)
	}
	if got.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d, want %d", got.HTTPStatus, http.StatusInternalServerError)
	}
}

func TestErrorString(t *testing.T) {
	plain := Rule(CodeMinorAge, "too young")
	if plain.Error() != "MINOR_AGE: too young" {
		t.Errorf("Error() = %q", plain.Error())
	}

	withCause := Internal("query failed", errors.New("timeout"))
	want := "INTERNAL_ERROR: query failed (caused by: timeout)"
	if withCause.Error() != want {
		t.Errorf("Error() = %q, want %q", withCause.Error(), want)
	}
}
