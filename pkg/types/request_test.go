package types

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_MarshalJSON_ExtraPassthrough(t *testing.T) {
	temp := 0.7
	req := ChatRequest{
		Model:       "mammouth-default",
		Messages:    []Message{UserMessage("Bonjour")},
		Temperature: &temp,
		Extra: map[string]json.RawMessage{
			"top_p":      json.RawMessage(`0.9`),
			"max_tokens": json.RawMessage(`512`),
		},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, json.RawMessage(`"mammouth-default"`), payload["model"])
	assert.Equal(t, json.RawMessage(`0.9`), payload["top_p"])
	assert.Equal(t, json.RawMessage(`512`), payload["max_tokens"])
	assert.Equal(t, json.RawMessage(`0.7`), payload["temperature"])
}

func TestChatRequest_MarshalJSON_ExtraDoesNotOverrideKnownFields(t *testing.T) {
	req := ChatRequest{
		Model:    "mammouth-default",
		Messages: []Message{UserMessage("hi")},
		Extra: map[string]json.RawMessage{
			"model": json.RawMessage(`"injected"`),
		},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, json.RawMessage(`"mammouth-default"`), payload["model"])
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: "system", Content: "p"}, SystemMessage("p"))
	assert.Equal(t, Message{Role: "user", Content: "q"}, UserMessage("q"))
	assert.Equal(t, Message{Role: "assistant", Content: "r"}, AssistantMessage("r"))
}
