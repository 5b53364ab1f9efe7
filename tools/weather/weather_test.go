package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulatedService() *Service {
	return NewService(Config{Timeout: time.Second})
}

func TestCurrentWeather_Simulated(t *testing.T) {
	tool := &CurrentWeather{svc: simulatedService()}

	out, err := tool.Execute(context.Background(), map[string]any{"location": "Paris"})
	require.NoError(t, err)

	payload, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["simulated"])
	assert.Equal(t, "Paris", payload["location"])
	assert.Equal(t, "imperial", payload["units"])
	assert.NotEmpty(t, payload["conditions"])
}

func TestCurrentWeather_SimulatedDeterministic(t *testing.T) {
	tool := &CurrentWeather{svc: simulatedService()}

	first, err := tool.Execute(context.Background(), map[string]any{"location": "Lyon", "units": "metric"})
	require.NoError(t, err)
	second, err := tool.Execute(context.Background(), map[string]any{"location": "Lyon", "units": "metric"})
	require.NoError(t, err)

	assert.Equal(t, first.(map[string]any)["temperature"], second.(map[string]any)["temperature"])
	assert.Equal(t, first.(map[string]any)["conditions"], second.(map[string]any)["conditions"])
}

func TestForecast_SimulatedClampsDays(t *testing.T) {
	tool := &Forecast{svc: simulatedService()}

	out, err := tool.Execute(context.Background(), map[string]any{"location": "Oslo", "days": 12.0})
	require.NoError(t, err)

	payload := out.(map[string]any)
	forecast := payload["days"].([]map[string]any)
	assert.Len(t, forecast, 5)
	assert.Equal(t, true, payload["simulated"])
}

func TestAlerts_Simulated(t *testing.T) {
	tool := &Alerts{svc: simulatedService()}

	out, err := tool.Execute(context.Background(), map[string]any{"location": "Berlin"})
	require.NoError(t, err)

	payload := out.(map[string]any)
	assert.Equal(t, "Berlin", payload["location"])
	assert.Empty(t, payload["alerts"])
}

func TestCurrentWeather_Live(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Sunnyvale,US", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		json.NewEncoder(w).Encode(map[string]any{
			"name":    "Sunnyvale",
			"sys":     map[string]any{"country": "US"},
			"weather": []map[string]any{{"description": "clear sky"}},
			"main":    map[string]any{"temp": 72.5, "feels_like": 71.0, "humidity": 40, "pressure": 1015},
			"wind":    map[string]any{"speed": 5.2},
		})
	}))
	defer ts.Close()

	svc := NewService(Config{APIKey: "test-key", BaseURL: ts.URL, Timeout: time.Second})
	tool := &CurrentWeather{svc: svc}

	out, err := tool.Execute(context.Background(), map[string]any{"location": "Sunnyvale, CA"})
	require.NoError(t, err)

	payload := out.(map[string]any)
	assert.Equal(t, false, payload["simulated"])
	assert.Equal(t, "Sunnyvale, US", payload["location"])
	assert.Equal(t, 72.5, payload["temperature"])
	assert.Equal(t, "clear sky", payload["conditions"])
}

func TestCurrentWeather_LiveLocationNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	svc := NewService(Config{APIKey: "test-key", BaseURL: ts.URL, Timeout: time.Second})
	tool := &CurrentWeather{svc: svc}

	_, err := tool.Execute(context.Background(), map[string]any{"location": "Nowhereville"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location not found")
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sunnyvale, CA", "Sunnyvale,US"},
		{"London, UK", "London,US"}, // two-letter upper suffix is treated as a US state
		{"Paris", "Paris"},
		{"  Tokyo  ", "Tokyo"},
		{"San Jose, Costa Rica", "San Jose, Costa Rica"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizeLocation(tc.in), "input %q", tc.in)
	}
}
