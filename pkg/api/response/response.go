// Package response implements the uniform envelope every endpoint replies
// with, and the boundary translator that maps taxonomy errors to wire
// statuses.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/openworld-api/pkg/apierrors"
	"github.com/cbodonnell/openworld-api/pkg/log"
)

const internalErrorMessage = "An unexpected error occurred"

// ErrorDetail is the error half of the envelope.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
	TraceID string                 `json:"trace_id"`
}

// Meta carries per-request metadata on every response.
type Meta struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	DurationMS float64   `json:"duration_ms"`
}

// Envelope is the uniform response shape: exactly one of Data or Error is
// set, Meta is always present.
type Envelope struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    Meta         `json:"meta"`
}

// HandlerFunc is an endpoint that signals failure by returning an error
// instead of writing a status itself. The translator renders the error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Translator converts handler errors into envelope responses. Unclassified
// errors render as internal errors with the message masked in production.
type Translator struct {
	production bool
}

func NewTranslator(production bool) *Translator {
	return &Translator{
		production: production,
	}
}

// Handle adapts a HandlerFunc into an http.HandlerFunc, translating any
// returned error or panic at the boundary.
func (t *Translator) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				t.Error(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		if err := fn(w, r); err != nil {
			t.Error(w, r, err)
		}
	}
}

// Error renders an error envelope. The request id doubles as the error
// trace id. duration_ms is reported as 0 on this path; only the
// X-Response-Time header carries the true elapsed time.
func (t *Translator) Error(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestID(r.Context())

	apiErr, ok := apierrors.As(err)
	if !ok {
		log.Error("unhandled error - request_id=%s: %v", requestID, err)
		message := err.Error()
		if t.production {
			message = internalErrorMessage
		}
		apiErr = &apierrors.Error{
			Code:    apierrors.CodeInternal,
			Message: message,
			Status:  http.StatusInternalServerError,
		}
	}

	writeJSON(w, apiErr.Status, Envelope{
		Success: false,
		Error: &ErrorDetail{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
			TraceID: requestID,
		},
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		},
	})
}

// Success renders a success envelope with the elapsed time recorded by the
// request pipeline.
func Success(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	ctx := r.Context()
	writeJSON(w, status, Envelope{
		Success: true,
		Data:    data,
		Meta: Meta{
			Timestamp:  time.Now().UTC(),
			RequestID:  RequestID(ctx),
			DurationMS: DurationMS(ctx),
		},
	})
}

// NoContent writes a bodyless 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}
