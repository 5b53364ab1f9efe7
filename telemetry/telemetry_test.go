package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

func TestNewResourceCarriesServiceAttribution(t *testing.T) {
	res, err := newResource(Config{
		ServiceName:    "toolfleet",
		ServiceVersion: "1.2.3",
		DeployEnv:      "staging",
	})
	require.NoError(t, err)

	attrs := make(map[string]string)
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "toolfleet", attrs[string(semconv.ServiceNameKey)])
	assert.Equal(t, "1.2.3", attrs[string(semconv.ServiceVersionKey)])
	assert.Equal(t, "staging", attrs["deployment.environment"])
}
