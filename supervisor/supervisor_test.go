package supervisor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denser-ai/toolfleet/config"
)

func healthyServer(t *testing.T, identity string) config.ServerSpec {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "identity": identity})
	}))
	t.Cleanup(ts.Close)
	return specForURL(t, identity, ts.URL)
}

func specForURL(t *testing.T, name, rawURL string) config.ServerSpec {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.ServerSpec{Name: name, Command: []string{"unused"}, Host: host, Port: port}
}

func deadServer(t *testing.T, name string) config.ServerSpec {
	t.Helper()
	// Reserve a port and release it so nothing answers there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	spec := specForURL(t, name, "http://"+l.Addr().String())
	require.NoError(t, l.Close())
	return spec
}

func manifestFor(specs ...config.ServerSpec) *config.Manifest {
	return &config.Manifest{
		StartupTimeout: config.Duration(time.Second),
		PollInterval:   config.Duration(20 * time.Millisecond),
		CallTimeout:    config.Duration(time.Second),
		Servers:        specs,
	}
}

func TestStartAdoptsRunningServers(t *testing.T) {
	m := manifestFor(
		healthyServer(t, "weather"),
		healthyServer(t, "meeting"),
	)
	sup := New(m)

	report := sup.Start(context.Background())
	assert.ElementsMatch(t, []string{"weather", "meeting"}, report.Healthy)
	assert.Empty(t, report.Unhealthy)
	assert.True(t, report.AllHealthy())

	sup.Shutdown()
	for _, record := range sup.Records() {
		assert.Equal(t, StatusStopped, record.Status())
	}
}

func TestStartPartialFailure(t *testing.T) {
	m := manifestFor(
		healthyServer(t, "weather"),
		healthyServer(t, "database"),
		deadServer(t, "meeting"),
	)
	m.StartupTimeout = config.Duration(300 * time.Millisecond)
	sup := New(m)

	report := sup.Start(context.Background())
	assert.ElementsMatch(t, []string{"weather", "database"}, report.Healthy)
	assert.Equal(t, []string{"meeting"}, report.Unhealthy)
	assert.False(t, report.AllHealthy())

	// The healthy servers remain callable after the degraded start.
	for _, record := range sup.Records() {
		if record.Status() != StatusHealthy {
			assert.Error(t, record.Err())
			continue
		}
		resp, err := http.Get(record.Spec.BaseURL() + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestStartSpawnsAndTerminatesProcess(t *testing.T) {
	spec := deadServer(t, "sleeper")
	spec.Command = []string{"sleep", "60"}

	m := manifestFor(spec)
	m.StartupTimeout = config.Duration(200 * time.Millisecond)
	sup := New(m)

	report := sup.Start(context.Background())
	// sleep never answers health checks.
	assert.Equal(t, []string{"sleeper"}, report.Unhealthy)

	record := sup.Records()[0]
	record.mu.Lock()
	cmd := record.cmd
	record.mu.Unlock()
	require.NotNil(t, cmd)
	require.NotNil(t, cmd.Process)

	done := make(chan struct{})
	go func() {
		sup.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Shutdown did not complete")
	}

	assert.Equal(t, StatusStopped, record.Status())
}

func TestStartUnlaunchableCommand(t *testing.T) {
	spec := deadServer(t, "ghost")
	spec.Command = []string{"/nonexistent/binary"}

	m := manifestFor(spec)
	sup := New(m)

	report := sup.Start(context.Background())
	assert.Equal(t, []string{"ghost"}, report.Unhealthy)
	assert.Error(t, sup.Records()[0].Err())
}

func TestStatusNeverLeavesStopped(t *testing.T) {
	record := newRecord(config.ServerSpec{Name: "weather"})
	assert.Equal(t, StatusStarting, record.Status())

	record.setStatus(StatusHealthy, nil)
	assert.Equal(t, StatusHealthy, record.Status())

	record.setStatus(StatusStopped, nil)
	record.setStatus(StatusHealthy, nil)
	assert.Equal(t, StatusStopped, record.Status())
}

func TestStartRejectsWrongIdentity(t *testing.T) {
	// A healthy process on the right port but with another server's
	// identity must not be adopted.
	spec := healthyServer(t, "meeting")
	spec.Name = "weather"

	m := manifestFor(spec)
	sup := New(m)

	report := sup.Start(context.Background())
	assert.Equal(t, []string{"weather"}, report.Unhealthy)
	assert.False(t, report.AllHealthy())
}
