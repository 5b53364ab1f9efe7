// Package supervisor launches and monitors the fleet of tool servers as
// independent processes. It owns process lifecycle only; once the fleet is
// ready the orchestrator talks to the servers directly.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/denser-ai/toolfleet/config"
	"github.com/denser-ai/toolfleet/logger"
	"github.com/denser-ai/toolfleet/mcp"
	"github.com/denser-ai/toolfleet/orchestrator"
)

// Status is the health state of one supervised server. Transitions are
// monotonic: starting → healthy|unhealthy → stopped.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusStopped   Status = "stopped"
)

// Record tracks one supervised server process.
type Record struct {
	Spec config.ServerSpec

	mu     sync.Mutex
	status Status
	err    error
	cmd    *exec.Cmd
	waited chan struct{}
}

func newRecord(spec config.ServerSpec) *Record {
	return &Record{Spec: spec, status: StatusStarting, waited: make(chan struct{})}
}

// Status returns the current health state.
func (r *Record) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Err returns the startup failure, if any.
func (r *Record) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// setStatus applies a transition, refusing any move out of stopped.
func (r *Record) setStatus(status Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusStopped {
		return
	}
	r.status = status
	if err != nil {
		r.err = err
	}
}

// Report summarizes fleet readiness for the operator.
type Report struct {
	Healthy   []string
	Unhealthy []string
}

// AllHealthy reports whether every configured server became ready.
func (rep Report) AllHealthy() bool { return len(rep.Unhealthy) == 0 }

// probeTimeout bounds a single health request; the overall probing window
// is the manifest's startup timeout.
const probeTimeout = 2 * time.Second

// Supervisor owns a fixed set of server processes described by a manifest.
type Supervisor struct {
	manifest *config.Manifest
	records  []*Record
	clients  map[string]*orchestrator.ServerClient
}

// New creates a supervisor for the manifest.
func New(manifest *config.Manifest) *Supervisor {
	clients := make(map[string]*orchestrator.ServerClient, len(manifest.Servers))
	for _, spec := range manifest.Servers {
		clients[spec.Name] = orchestrator.NewServerClient(spec.Name, spec.BaseURL())
	}
	return &Supervisor{
		manifest: manifest,
		clients:  clients,
	}
}

// Records returns the supervised server records.
func (s *Supervisor) Records() []*Record { return s.records }

// Start launches every server in the manifest and probes until each one is
// healthy or the startup timeout elapses. Startup is parallel; a server that
// fails to become healthy is reported unhealthy without aborting the others.
func (s *Supervisor) Start(ctx context.Context) Report {
	s.launch(ctx)
	s.probeAll(ctx)
	return s.Report()
}

func (s *Supervisor) launch(ctx context.Context) {
	for _, spec := range s.manifest.Servers {
		record := newRecord(spec)
		s.records = append(s.records, record)

		// A server already serving at its address is adopted, not respawned.
		if s.checkHealth(ctx, spec) == nil {
			logger.Info("Server already running", "server", spec.Name, "url", spec.BaseURL())
			record.setStatus(StatusHealthy, nil)
			close(record.waited)
			continue
		}

		cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
		// Each server gets its own process group so teardown can signal the
		// whole tree, leaving no orphans behind.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		if err := cmd.Start(); err != nil {
			logger.Error("Failed to start server", "server", spec.Name, "error", err)
			record.setStatus(StatusUnhealthy,
				fmt.Errorf("%s: start %q: %w", mcp.KindStartupFailure, spec.Command[0], err))
			close(record.waited)
			continue
		}

		record.mu.Lock()
		record.cmd = cmd
		record.mu.Unlock()
		logger.Info("Server process started", "server", spec.Name, "pid", cmd.Process.Pid)

		go func(r *Record) {
			// Reap the child as soon as it exits.
			r.cmd.Wait() // nolint: errcheck
			close(r.waited)
		}(record)
	}
}

// probeAll polls every starting server's health endpoint in parallel until
// it responds or the startup timeout elapses.
func (s *Supervisor) probeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, record := range s.records {
		if record.Status() != StatusStarting {
			continue
		}
		wg.Add(1)
		go func(r *Record) {
			defer wg.Done()
			s.probe(ctx, r)
		}(record)
	}
	wg.Wait()
}

func (s *Supervisor) probe(ctx context.Context, record *Record) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.manifest.PollInterval.Std()
	b.MaxInterval = time.Second
	b.MaxElapsedTime = s.manifest.StartupTimeout.Std()

	err := backoff.Retry(func() error {
		return s.checkHealth(ctx, record.Spec)
	}, backoff.WithContext(b, ctx))

	if err != nil {
		logger.Warn("Server failed readiness probe",
			"server", record.Spec.Name, "timeout", s.manifest.StartupTimeout.Std(), "error", err)
		record.setStatus(StatusUnhealthy,
			fmt.Errorf("%s: %s not healthy within %s: %w",
				mcp.KindStartupFailure, record.Spec.Name, s.manifest.StartupTimeout.Std(), err))
		return
	}

	logger.Info("Server healthy", "server", record.Spec.Name, "url", record.Spec.BaseURL())
	record.setStatus(StatusHealthy, nil)
}

// checkHealth probes one server through the same client the orchestrator
// talks with. Adoption of an already-running process requires the endpoint
// to answer under the expected identity, not just any process on the port.
func (s *Supervisor) checkHealth(ctx context.Context, spec config.ServerSpec) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	health, err := s.clients[spec.Name].Health(probeCtx)
	if err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("health status %q", health.Status)
	}
	if health.Identity != spec.Name {
		return fmt.Errorf("unexpected identity %q at %s", health.Identity, spec.BaseURL())
	}
	return nil
}

// Report lists which servers are up and which failed.
func (s *Supervisor) Report() Report {
	var rep Report
	for _, record := range s.records {
		if record.Status() == StatusHealthy {
			rep.Healthy = append(rep.Healthy, record.Spec.Name)
		} else {
			rep.Unhealthy = append(rep.Unhealthy, record.Spec.Name)
		}
	}
	return rep
}

// Shutdown terminates every spawned process group and waits for exit.
// Servers that were adopted rather than spawned are left running.
func (s *Supervisor) Shutdown() {
	for _, record := range s.records {
		record.mu.Lock()
		cmd := record.cmd
		record.mu.Unlock()

		if cmd == nil || cmd.Process == nil {
			record.setStatus(StatusStopped, nil)
			continue
		}

		pgid := -cmd.Process.Pid
		logger.Info("Stopping server", "server", record.Spec.Name, "pid", cmd.Process.Pid)
		syscall.Kill(pgid, syscall.SIGTERM) // nolint: errcheck

		select {
		case <-record.waited:
		case <-time.After(5 * time.Second):
			logger.Warn("Server did not exit, killing", "server", record.Spec.Name)
			syscall.Kill(pgid, syscall.SIGKILL) // nolint: errcheck
			<-record.waited
		}
		record.setStatus(StatusStopped, nil)
	}
	logger.Info("All servers stopped")
}
