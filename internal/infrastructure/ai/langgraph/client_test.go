package langgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"github.com/huynhbao103/dietchat/pkg/errors"
)

func testClient(baseURL string) *Client {
	return NewClient(config.RecommendConfig{
		BaseURL:     baseURL,
		BearerToken: "test-token",
		Timeout:     2 * time.Second,
	}, zap.NewNop(), nil)
}

func TestClientProcessQuestionSendsContextFields(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/langgraph/process", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"done","message":"Gợi ý: phở bò"}`))
	}))
	defer server.Close()

	ignore := true
	reply, err := testClient(server.URL).ProcessQuestion(context.Background(), outbound.PhaseOneRequest{
		Question:            "Tôi muốn ăn món cay",
		Weather:             "hot",
		TimeOfDay:           "noon",
		SessionID:           "sess-1",
		IgnoreContextFilter: &ignore,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gợi ý: phở bò", reply.Message)

	assert.Equal(t, "Tôi muốn ăn món cay", captured["question"])
	assert.Equal(t, "hot", captured["weather"])
	assert.Equal(t, "noon", captured["time_of_day"])
	assert.Equal(t, "sess-1", captured["session_id"])
	assert.Equal(t, true, captured["ignore_context_filter"])
}

func TestClientOmitsAbsentContextFields(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`"ok"`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).ProcessQuestion(context.Background(), outbound.PhaseOneRequest{
		Question: "Tôi muốn ăn món cay",
	})
	require.NoError(t, err)

	assert.NotContains(t, captured, "weather")
	assert.NotContains(t, captured, "time_of_day")
	assert.NotContains(t, captured, "session_id")
	assert.NotContains(t, captured, "ignore_context_filter")
}

func TestClientProcessCookingPath(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/langgraph/process-cooking", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"message":"Gợi ý: Gà nướng muối ớt"}`))
	}))
	defer server.Close()

	reply, err := testClient(server.URL).ProcessCooking(context.Background(), outbound.PhaseTwoRequest{
		SessionID:      "sess-1",
		CookingMethods: []string{"Nướng"},
		Allergies:      []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, "Gợi ý: Gà nướng muối ớt", reply.Message)

	assert.Equal(t, "sess-1", captured["session_id"])
	assert.Equal(t, []interface{}{"Nướng"}, captured["cooking_methods"])
	assert.Equal(t, []interface{}{}, captured["allergies"])
}

func TestClientConnectionRefusedIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := testClient(server.URL).ProcessQuestion(context.Background(), outbound.PhaseOneRequest{
		Question: "Tôi muốn ăn món cay",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTransport))
}

func TestClientNon2xxIsBackendErrorWithDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"Câu hỏi không hợp lệ"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).ProcessQuestion(context.Background(), outbound.PhaseOneRequest{
		Question: "??",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeBackend))

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, "Câu hỏi không hợp lệ", appErr.Message)
}

func TestClientNon2xxWithOpaqueBodyStillFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).ProcessQuestion(context.Background(), outbound.PhaseOneRequest{
		Question: "Tôi muốn ăn món cay",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeBackend))
}

func TestClientMalformedBodyDegradesToText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	reply, err := testClient(server.URL).ProcessQuestion(context.Background(), outbound.PhaseOneRequest{
		Question: "Tôi muốn ăn món cay",
	})
	require.NoError(t, err)
	assert.Equal(t, "not json at all", reply.Message)
}
