// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/civitas/internal/discovery"
	"github.com/tomtom215/civitas/internal/models"
)

func serveFor(t *testing.T, svc suture.Service, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return svc.Serve(ctx)
}

func TestPeriodicService_RunsOnScheduleAndSurvivesErrors(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	svc := NewPeriodicService("test-job", func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}, PeriodicConfig{Interval: 10 * time.Millisecond, RunOnStartup: true}, zerolog.Nop())

	err := serveFor(t, svc, 100*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want context deadline", err)
	}
	if runs.Load() < 3 {
		t.Errorf("runs = %d, want several", runs.Load())
	}
	if svc.String() != "test-job" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestPeriodicService_TimeoutBoundsRun(t *testing.T) {
	t.Parallel()

	var sawDeadline atomic.Bool
	svc := NewPeriodicService("slow", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			sawDeadline.Store(true)
		}
		return nil
	}, PeriodicConfig{Interval: time.Hour, RunOnStartup: true, Timeout: time.Second}, zerolog.Nop())

	_ = serveFor(t, svc, 20*time.Millisecond)
	if !sawDeadline.Load() {
		t.Error("job ran without a deadline")
	}
}

type fakeRunner struct {
	mu       sync.Mutex
	triggers []string
	err      error
}

func (f *fakeRunner) Run(_ context.Context, trigger string) (*discovery.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	if f.err != nil {
		return nil, f.err
	}
	return &discovery.RunReport{Trigger: trigger, Published: 1}, nil
}

func (f *fakeRunner) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

func TestDiscoveryService_Triggers(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	svc := NewDiscoveryService(runner, 10*time.Millisecond, true, zerolog.Nop())
	_ = serveFor(t, svc, 60*time.Millisecond)

	triggers := runner.seen()
	if len(triggers) < 2 {
		t.Fatalf("triggers = %v", triggers)
	}
	if triggers[0] != discovery.TriggerStartup {
		t.Errorf("first trigger = %q, want startup", triggers[0])
	}
	for _, tr := range triggers[1:] {
		if tr != discovery.TriggerCadence {
			t.Errorf("later trigger = %q, want cadence", tr)
		}
	}
	if svc.String() != DiscoveryServiceName {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestDiscoveryService_SkipsWhenRunInProgress(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: models.ErrRunInProgress}
	svc := NewDiscoveryService(runner, 10*time.Millisecond, false, zerolog.Nop())
	if err := serveFor(t, svc, 40*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v", err)
	}
	if len(runner.seen()) == 0 {
		t.Error("no ticks ran")
	}
}

type fakeMaintenance struct {
	backfillLimit atomic.Int32
	purgeLimit    atomic.Int32
	spared        atomic.Int32
}

func (f *fakeMaintenance) Backfill(_ context.Context, limit int) (int, error) {
	f.backfillLimit.Store(int32(limit))
	return 2, nil
}

func (f *fakeMaintenance) Purge(_ context.Context, limit int, referenced func(string) bool) (int, error) {
	f.purgeLimit.Store(int32(limit))
	if referenced("kept") {
		f.spared.Add(1)
	}
	return 1, nil
}

func TestMaintenanceServices(t *testing.T) {
	t.Parallel()

	m := &fakeMaintenance{}
	backfill := NewBackfillService(m, 10*time.Millisecond, 50, zerolog.Nop())
	purge := NewPurgeService(m, func(id string) bool { return id == "kept" }, 10*time.Millisecond, 25, zerolog.Nop())

	var wg sync.WaitGroup
	for _, svc := range []suture.Service{backfill, purge} {
		wg.Add(1)
		go func(s suture.Service) {
			defer wg.Done()
			_ = serveFor(t, s, 50*time.Millisecond)
		}(svc)
	}
	wg.Wait()

	if m.backfillLimit.Load() != 50 || m.purgeLimit.Load() != 25 {
		t.Errorf("limits: backfill=%d purge=%d", m.backfillLimit.Load(), m.purgeLimit.Load())
	}
	if m.spared.Load() == 0 {
		t.Error("referenced predicate not passed through")
	}
	if backfill.String() != BackfillServiceName || purge.String() != PurgeServiceName {
		t.Errorf("names = %q, %q", backfill.String(), purge.String())
	}
}

type fakeHTTPServer struct {
	listenErr error
	stop      chan struct{}
	once      sync.Once
	shutdowns atomic.Int32
}

func newFakeHTTPServer(listenErr error) *fakeHTTPServer {
	return &fakeHTTPServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.once.Do(func() { close(f.stop) })
	return nil
}

func TestHTTPServerService(t *testing.T) {
	t.Parallel()

	t.Run("graceful shutdown", func(t *testing.T) {
		t.Parallel()
		srv := newFakeHTTPServer(nil)
		err := serveFor(t, NewHTTPServerService(srv, time.Second), 20*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v", err)
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("shutdowns = %d", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		t.Parallel()
		srv := newFakeHTTPServer(errors.New("address already in use"))
		err := serveFor(t, NewHTTPServerService(srv, 0), time.Second)
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want listen failure", err)
		}
	})
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) RunWithContext(ctx context.Context) error { return f(ctx) }
func (f runnerFunc) Run(ctx context.Context) error            { return f(ctx) }

func TestHubAndBusServices(t *testing.T) {
	t.Parallel()

	blocking := runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	failing := runnerFunc(func(context.Context) error { return errors.New("transport closed") })

	if err := serveFor(t, NewWebSocketHubService(blocking), 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("hub shutdown error = %v", err)
	}
	if err := serveFor(t, NewWebSocketHubService(failing), time.Second); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("hub failure error = %v, want ErrDoNotRestart", err)
	}
	if err := serveFor(t, NewEventBusService(blocking), 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("bus shutdown error = %v", err)
	}
	if err := serveFor(t, NewEventBusService(failing), time.Second); !errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Errorf("bus failure error = %v, want ErrTerminateSupervisorTree", err)
	}
}
