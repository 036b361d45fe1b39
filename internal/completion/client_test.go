package completion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	turnerr "github.com/blueberrycongee/memgate/pkg/errors"
	"github.com/blueberrycongee/memgate/pkg/types"
)

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL: url,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 2 * time.Second,
	})
}

func TestComplete_Success(t *testing.T) {
	var gotBody map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Bonjour !"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reply, err := client.Complete(context.Background(), []types.Message{
		types.SystemMessage("prompt"),
		types.UserMessage("Bonjour"),
	}, map[string]json.RawMessage{"top_p": json.RawMessage(`0.9`)})

	require.NoError(t, err)
	assert.Equal(t, "Bonjour !", reply)
	assert.Equal(t, json.RawMessage(`"test-model"`), gotBody["model"])
	assert.Equal(t, json.RawMessage(`0.9`), gotBody["top_p"])
}

func TestComplete_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), []types.Message{types.UserMessage("hi")}, nil)

	require.Error(t, err)
	assert.True(t, turnerr.IsType(err, turnerr.TypeAuthentication))
	assert.Contains(t, err.Error(), "invalid key")
}

func TestComplete_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), []types.Message{types.UserMessage("hi")}, nil)

	require.Error(t, err)
	assert.True(t, turnerr.IsType(err, turnerr.TypeUpstream))
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "overloaded")
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), []types.Message{types.UserMessage("hi")}, nil)

	require.Error(t, err)
	assert.True(t, turnerr.IsType(err, turnerr.TypeProtocol))
	assert.Contains(t, err.Error(), "no response")
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := New(Config{
		BaseURL: server.URL,
		APIKey:  "k",
		Timeout: 50 * time.Millisecond,
	})
	_, err := client.Complete(context.Background(), []types.Message{types.UserMessage("hi")}, nil)

	require.Error(t, err)
	assert.True(t, turnerr.IsType(err, turnerr.TypeTimeout))
}

func TestComplete_ConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), []types.Message{types.UserMessage("hi")}, nil)

	require.Error(t, err)
	assert.True(t, turnerr.IsType(err, turnerr.TypeConnectivity))
}

func TestModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"mammouth-default"},{"id":"mammouth-large"}]}`))
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).Models(context.Background())

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "mammouth-default", models[0].ID)
}

func TestModels_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Models(context.Background())

	require.Error(t, err)
	assert.True(t, turnerr.IsType(err, turnerr.TypeAuthentication))
}

func TestNew_Defaults(t *testing.T) {
	client := New(Config{APIKey: "k"})
	assert.Equal(t, DefaultModel, client.Model())
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}
