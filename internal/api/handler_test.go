package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memgate "github.com/blueberrycongee/memgate"
	"github.com/blueberrycongee/memgate/internal/healthcheck"
	"github.com/blueberrycongee/memgate/internal/observability"
	turnerr "github.com/blueberrycongee/memgate/pkg/errors"
)

type stubEngine struct {
	result  *memgate.TurnResult
	err     error
	cleared []string
	status  healthcheck.Status
}

func (s *stubEngine) HandleTurn(_ context.Context, _ memgate.TurnRequest) (*memgate.TurnResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubEngine) ClearConversation(_ context.Context, userID string) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

func (s *stubEngine) Health() healthcheck.Status {
	return s.status
}

func newTestHandler(engine TurnEngine) http.Handler {
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:  "error",
		Output: &strings.Builder{},
	}, observability.NewRedactor())
	return NewMux(NewHandler(engine, logger), RoutesConfig{})
}

func TestTurn_Success(t *testing.T) {
	engine := &stubEngine{result: &memgate.TurnResult{Reply: "Bonjour !", ConversationKey: "u1"}}
	srv := newTestHandler(engine)

	req := httptest.NewRequest(http.MethodPost, "/v1/turns",
		strings.NewReader(`{"query":"Bonjour","user_id":"u1"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result memgate.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Bonjour !", result.Reply)
	assert.Equal(t, "u1", result.ConversationKey)
}

func TestTurn_InvalidJSON(t *testing.T) {
	srv := newTestHandler(&stubEngine{})

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request_error", resp.Error.Type)
}

func TestTurn_EmptyQuery(t *testing.T) {
	srv := newTestHandler(&stubEngine{})

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurn_TypedErrorMapped(t *testing.T) {
	engine := &stubEngine{err: turnerr.NewAuthenticationError("/chat/completions", "invalid key")}
	srv := newTestHandler(engine)

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(`{"query":"Bonjour"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, turnerr.TypeAuthentication, resp.Error.Type)
	assert.Equal(t, "invalid key", resp.Error.Message)
}

func TestClearConversation(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestHandler(engine)

	req := httptest.NewRequest(http.MethodDelete, "/v1/conversations/u1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"u1"}, engine.cleared)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		engine := &stubEngine{status: healthcheck.Status{
			Healthy:   true,
			LastProbe: time.Now(),
			Models:    []string{"mammouth-default"},
		}}
		srv := newTestHandler(engine)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var status healthcheck.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, []string{"mammouth-default"}, status.Models)
	})

	t.Run("unhealthy", func(t *testing.T) {
		engine := &stubEngine{status: healthcheck.Status{Healthy: false, Error: "upstream down"}}
		srv := newTestHandler(engine)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
