package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorFormatting(t *testing.T) {
	err := NewAppError(CodeBackend, "Backend request failed", "status 502")
	assert.Equal(t, "BACKEND_ERROR: Backend request failed (status 502)", err.Error())

	err = NewAppError(CodeTransport, "Service unreachable", "")
	assert.Equal(t, "TRANSPORT_ERROR: Service unreachable", err.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransportError("recommendation backend", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeTransport, err.Code)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeChatNotFound, http.StatusNotFound},
		{CodeSessionBusy, http.StatusConflict},
		{CodeNoPendingPrompt, http.StatusConflict},
		{CodeTransport, http.StatusServiceUnavailable},
		{CodeBackend, http.StatusBadGateway},
		{CodePersistence, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, NewAppError(tt.code, "m", "").StatusCode())
		})
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := NewBackendError("recommendation backend", 502, "upstream failed")

	assert.True(t, Is(err, CodeBackend))
	assert.False(t, Is(err, CodeTransport))
	assert.False(t, Is(fmt.Errorf("plain"), CodeBackend))
}

func TestBackendErrorDefaultsMessage(t *testing.T) {
	err := NewBackendError("recommendation backend", 500, "")
	assert.Equal(t, "Backend request failed", err.Message)
	assert.Equal(t, 500, err.Metadata["status"])
}
