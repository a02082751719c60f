package json

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusForbidden, errors.New("nope"), "Moderator privileges required")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != http.StatusText(http.StatusForbidden) {
		t.Errorf("error = %q, want %q", resp.Error, http.StatusText(http.StatusForbidden))
	}
	if resp.Message != "Moderator privileges required" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestWriteRateLimitError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteRateLimitError(w, 1)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != http.StatusText(http.StatusTooManyRequests) {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestWriteRateLimitErrorWithoutRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	WriteRateLimitError(w, 0)

	if got := w.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After = %q, want unset", got)
	}
}
