package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONResponse(map[string]int{"orders": 3}).
		Status(http.StatusCreated).
		Header("Cache-Control", "no-store").
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusCreated)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	var got map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["orders"] != 3 {
		t.Errorf("body = %v", got)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *ResponseBuilder
		status  int
		message string
		header  string
		value   string
	}{
		{"bad request", BadRequestError("bad period"), http.StatusBadRequest, "bad period", "", ""},
		{"not found", NotFoundError("unknown chart"), http.StatusNotFound, "unknown chart", "", ""},
		{"method", MethodNotAllowedError("GET"), http.StatusMethodNotAllowed, "method not allowed", "Allow", "GET"},
		{"unavailable", ServiceUnavailableError("loading"), http.StatusServiceUnavailable, "loading", "Retry-After", "5"},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, "boom", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			var body errorBody
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.message {
				t.Errorf("error = %q, want %q", body.Error, tt.message)
			}
			if tt.header != "" && rr.Header().Get(tt.header) != tt.value {
				t.Errorf("%s = %q, want %q", tt.header, rr.Header().Get(tt.header), tt.value)
			}
		})
	}
}
