package meeting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleMeeting_Execute(t *testing.T) {
	tool := NewScheduleMeeting("https://calendly.com/acme/intro")

	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)

	payload, ok := out.(map[string]any)
	require.True(t, ok, "payload should be a map")
	assert.Equal(t, "https://calendly.com/acme/intro", payload["url"])
	assert.Contains(t, payload["message"], "https://calendly.com/acme/intro")

	// A second identical call returns the same URL.
	again, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestScheduleMeeting_Schema(t *testing.T) {
	tool := NewScheduleMeeting("https://calendly.com/acme/intro")

	schema := tool.InputSchema()
	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Required)
	assert.Empty(t, schema.Properties)
}

func TestConfigFromEnv_Default(t *testing.T) {
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.SchedulingURL)
}
