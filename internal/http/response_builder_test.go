package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		JSON(map[string]int{"n": 3}).
		Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Test"))
	assert.JSONEq(t, `{"n":3}`, w.Body.String())
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"fatal"`)
}

func TestStatusForKind(t *testing.T) {
	tests := map[core.Kind]int{
		core.KindInvalidInput: http.StatusBadRequest,
		core.KindNotFound:     http.StatusNotFound,
		core.KindForbidden:    http.StatusForbidden,
		core.KindConflict:     http.StatusConflict,
		core.KindFatal:        http.StatusInternalServerError,
		kindUnauthorized:      http.StatusUnauthorized,
		"":                    http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusForKind(kind), string(kind))
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail errorDetail
	}{
		{
			name:   "invalid input keeps field",
			err:    fmt.Errorf("create: %w", core.InvalidInput("amountCents", "amount must be positive")),
			status: http.StatusBadRequest,
			detail: errorDetail{Kind: core.KindInvalidInput, Message: "amount must be positive", Field: "amountCents"},
		},
		{
			name:   "conflict",
			err:    core.Conflict("goal is closed"),
			status: http.StatusConflict,
			detail: errorDetail{Kind: core.KindConflict, Message: "goal is closed"},
		},
		{
			name:   "fatal is masked",
			err:    core.Fatal("unknown frequency %q", "daily"),
			status: http.StatusInternalServerError,
			detail: errorDetail{Kind: core.KindFatal, Message: "internal error"},
		},
		{
			name:   "plain errors are masked",
			err:    errors.New("disk I/O error at /var/lib/famfin.db"),
			status: http.StatusInternalServerError,
			detail: errorDetail{Kind: core.KindFatal, Message: "internal error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(tt.err).Write(w)

			assert.Equal(t, tt.status, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.detail, body.Error)
		})
	}
}

func TestUnauthorizedResponse(t *testing.T) {
	w := httptest.NewRecorder()
	UnauthorizedResponse("missing bearer token").Write(w)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Bearer realm="famfin"`, w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), "missing bearer token")
}
