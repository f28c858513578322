package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "fleetbook/pkg/errors"
)

func TestWriteErrorAppError(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := WriteError(rec, apperrors.Rule(apperrors.CodeDateConflict, "window taken")); err != nil {
		t.Fatalf("WriteError() error = %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Code != apperrors.CodeDateConflict {
		t.Errorf("code = %s, want %s", body.Code, apperrors.CodeDateConflict)
	}
}

// Plain errors must not leak their message to clients.
func TestWriteErrorMasksPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := WriteError(rec, errors.New("pq: secret dsn")); err != nil {
		t.Fatalf("WriteError() error = %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Code != apperrors.CodeInternal {
		t.Errorf("code = %s, want %s", body.Code, apperrors.CodeInternal)
	}
	if body.Message == "pq: secret dsn" {
		t.Error("internal error detail leaked to the response")
	}
}

func TestExtractLimitOffset(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/reservations?limit=25&offset=50", nil)
	limit, offset, err := ExtractLimitOffset(r)
	if err != nil {
		t.Fatalf("ExtractLimitOffset() error = %v", err)
	}
	if limit != 25 || offset != 50 {
		t.Errorf("limit, offset = %d, %d, want 25, 50", limit, offset)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/reservations?limit=nope", nil)
	if _, _, err := ExtractLimitOffset(r); err == nil {
		t.Error("invalid limit should be rejected")
	}

	// Out-of-range values are clamped, not rejected.
	r = httptest.NewRequest(http.MethodGet, "/api/v1/reservations?limit=9999&offset=-5", nil)
	limit, offset, err = ExtractLimitOffset(r)
	if err != nil {
		t.Fatalf("ExtractLimitOffset() error = %v", err)
	}
	if limit > 100 || offset != 0 {
		t.Errorf("limit, offset = %d, %d, want clamped values", limit, offset)
	}
}

func TestExtractDate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/reservations?start_date=2026-02-10", nil)
	got, err := ExtractDate(r, "start_date")
	if err != nil {
		t.Fatalf("ExtractDate() error = %v", err)
	}
	if got == nil || got.Year() != 2026 || got.Day() != 10 {
		t.Errorf("ExtractDate = %v, want 2026-02-10", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	got, err = ExtractDate(r, "start_date")
	if err != nil || got != nil {
		t.Errorf("absent parameter: got %v, %v, want nil, nil", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/reservations?start_date=tomorrow", nil)
	if _, err := ExtractDate(r, "start_date"); err == nil {
		t.Error("unparseable date should be rejected")
	}
}
