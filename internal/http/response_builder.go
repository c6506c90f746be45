// Package http exposes the famfin services as a JSON REST API.
//
// This file holds the response builder and the mapping from domain error
// kinds to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"famfin/internal/core"
	applog "famfin/internal/log"
)

// kindUnauthorized is reported for missing or invalid credentials. It is not
// a domain kind: the services never see unauthenticated calls.
const kindUnauthorized core.Kind = "unauthorized"

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewResponse creates a builder with a 200 status and no body.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. A nil body writes headers only.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"kind":"fatal","message":"internal error"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    core.Kind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// StatusForKind maps a domain error kind to its HTTP status.
func StatusForKind(kind core.Kind) int {
	switch kind {
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindConflict:
		return http.StatusConflict
	case kindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the JSON error body for err. Errors without a domain
// kind, and fatal ones, are reported with a generic message so internals do
// not leak.
func ErrorResponse(err error) *ResponseBuilder {
	detail := errorDetail{Kind: core.KindFatal, Message: "internal error"}

	var de *core.Error
	if errors.As(err, &de) && de.Kind != core.KindFatal {
		detail = errorDetail{Kind: de.Kind, Message: de.Message, Field: de.Field}
		if detail.Message == "" {
			detail.Message = string(de.Kind)
		}
	}
	return NewResponse().Status(StatusForKind(detail.Kind)).JSON(errorBody{Error: detail})
}

// UnauthorizedResponse asks the client for a bearer token.
func UnauthorizedResponse(message string) *ResponseBuilder {
	return NewResponse().
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate", `Bearer realm="famfin"`).
		JSON(errorBody{Error: errorDetail{Kind: kindUnauthorized, Message: message}})
}

// writeError writes err and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse(err)
	if resp.statusCode >= 500 {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).
			ErrorContext(r.Context(), "Request failed", applog.NewFields().WithError(err).ToSlice()...)
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}
