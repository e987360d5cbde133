package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, http.StatusConflict, "product with this url is already tracked")

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if resp.Error.Code != "Conflict" {
		t.Errorf("code = %q, want Conflict", resp.Error.Code)
	}
	if resp.Error.Message != "product with this url is already tracked" {
		t.Errorf("message = %q", resp.Error.Message)
	}
	if resp.Error.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

func TestRespondWithValidationErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithValidationErrors(rec, []ValidationError{
		{Field: "URL", Message: "This field is required"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if _, ok := resp.Error.Details["validation_errors"]; !ok {
		t.Error("validation_errors detail missing")
	}
}

func TestErrorHandlingMiddlewareRecoversPanic(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("extraction went sideways")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/products", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if resp.Error.Message != "internal server error" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestErrorHandlingMiddlewarePassThrough(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
