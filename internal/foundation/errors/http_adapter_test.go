package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: http.StatusOK,
		},
		{
			name: "classified validation error",
			err: NewError(CategoryValidation, "invalid input").
				WithSeverity(SeverityError).
				Build(),
			expected: http.StatusBadRequest,
		},
		{
			name:     "not found error",
			err:      NotFoundError("no such signature").Build(),
			expected: http.StatusNotFound,
		},
		{
			name:     "network error",
			err:      NetworkError("registry unreachable").Build(),
			expected: http.StatusBadGateway,
		},
		{
			name:     "manifest error",
			err:      ManifestError("unsupported version").Build(),
			expected: http.StatusBadGateway,
		},
		{
			name:     "daemon error",
			err:      DaemonError("not running").Build(),
			expected: http.StatusServiceUnavailable,
		},
		{
			name:     "internal error",
			err:      InternalError("oops").Build(),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "unclassified error",
			err:      &customHTTPError{msg: "unknown error"},
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.StatusCodeFor(tt.err)
			if got != tt.expected {
				t.Errorf("StatusCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		checkJSON      bool
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusOK,
			checkJSON:      false,
		},
		{
			name: "classified validation error",
			err: NewError(CategoryValidation, "invalid input").
				WithSeverity(SeverityError).
				Build(),
			expectedStatus: http.StatusBadRequest,
			checkJSON:      true,
		},
		{
			name:           "cache error",
			err:            CacheError("kv put failed").Build(),
			expectedStatus: http.StatusInternalServerError,
			checkJSON:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/status", nil)
			adapter.WriteErrorResponse(w, r, tt.err)

			if w.Code != tt.expectedStatus {
				t.Errorf("WriteErrorResponse() status = %v, want %v", w.Code, tt.expectedStatus)
			}

			if tt.checkJSON {
				// Verify we get valid JSON response
				var response HTTPErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
					t.Errorf("WriteErrorResponse() invalid JSON: %v", err)
				}

				if response.Error == "" {
					t.Error("WriteErrorResponse() missing error message")
				}

				if response.Code == "" {
					t.Error("WriteErrorResponse() missing error code")
				}

				// Check content type
				contentType := w.Header().Get("Content-Type")
				if contentType != "application/json" {
					t.Errorf("WriteErrorResponse() content-type = %v, want application/json", contentType)
				}
			}
		})
	}
}

func TestHTTPErrorAdapter_FormatErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	t.Run("classified error with context", func(t *testing.T) {
		err := NewError(CategoryValidation, "invalid field").
			WithSeverity(SeverityError).
			WithContext("field", "service_id").
			Build()

		response := adapter.FormatErrorResponse(err)

		if response.Error != "invalid field" {
			t.Errorf("FormatErrorResponse() error = %q, want %q", response.Error, "invalid field")
		}
		if response.Code != string(CategoryValidation) {
			t.Errorf("FormatErrorResponse() code = %q, want %q", response.Code, CategoryValidation)
		}
		if response.Details["field"] != "service_id" {
			t.Errorf("FormatErrorResponse() details field = %v, want service_id", response.Details["field"])
		}
	})

	t.Run("retryable error carries flag", func(t *testing.T) {
		err := NetworkError("registry timeout").Build()

		response := adapter.FormatErrorResponse(err)

		if !response.Retryable {
			t.Error("FormatErrorResponse() missing retryable flag for retryable error")
		}
		if response.Details == nil || response.Details["retryable"] != true {
			t.Error("FormatErrorResponse() missing retryable detail for retryable error")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		response := adapter.FormatErrorResponse(nil)
		if response.Error != "" {
			t.Errorf("FormatErrorResponse(nil) error = %q, want empty", response.Error)
		}
	})
}

// customHTTPError is a test helper for unclassified errors
type customHTTPError struct {
	msg string
}

func (e *customHTTPError) Error() string {
	return e.msg
}
