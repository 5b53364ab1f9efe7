package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denser-ai/toolfleet/mcp"
)

func allTools() []Binding {
	names := []string{
		"get_current_weather", "get_weather_forecast", "get_weather_alerts",
		"schedule_meeting", "list_tables",
	}
	out := make([]Binding, 0, len(names))
	for _, n := range names {
		out = append(out, Binding{Server: "s", Tool: mcp.Tool{Name: n}})
	}
	return out
}

func TestKeywordSelectorRouting(t *testing.T) {
	cases := []struct {
		intent   string
		tool     string
		location string
	}{
		{"What's the weather in Paris?", "get_current_weather", "Paris"},
		{"current temperature in New York", "get_current_weather", "New York"},
		{"forecast for Seattle", "get_weather_forecast", "Seattle"},
		{"any weather alerts for Miami?", "get_weather_alerts", "Miami"},
		{"I'd like to schedule a meeting", "schedule_meeting", ""},
		{"book an appointment", "schedule_meeting", ""},
		{"what tables are in the database?", "list_tables", ""},
	}

	s := NewKeywordSelector()
	for _, tc := range cases {
		sel, ok := s.Select(tc.intent, allTools())
		require.True(t, ok, "intent %q", tc.intent)
		assert.Equal(t, tc.tool, sel.Tool, "intent %q", tc.intent)
		if tc.location != "" {
			assert.Equal(t, tc.location, sel.Arguments["location"], "intent %q", tc.intent)
		}
	}
}

func TestKeywordSelectorUnknownIntent(t *testing.T) {
	s := NewKeywordSelector()
	_, ok := s.Select("tell me a joke", allTools())
	assert.False(t, ok)
}

func TestKeywordSelectorRespectsAvailability(t *testing.T) {
	s := NewKeywordSelector()
	// Weather intent, but no weather server is connected.
	only := []Binding{{Server: "meeting", Tool: mcp.Tool{Name: "schedule_meeting"}}}
	_, ok := s.Select("weather in Paris", only)
	assert.False(t, ok)
}

func TestExtractLocation(t *testing.T) {
	cases := map[string]string{
		"weather in Paris":                "Paris",
		"What's the forecast for Boston?": "Boston",
		"conditions at Denver Airport.":   "Denver Airport",
		"Sunnyvale":                       "Sunnyvale",
	}
	for intent, want := range cases {
		assert.Equal(t, want, extractLocation(intent), "intent %q", intent)
	}
}
