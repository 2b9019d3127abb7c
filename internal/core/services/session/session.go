// Package session implements C10: start-order orchestration, inactivity
// shutdown, and coordinated teardown of every transport/front-end server
// (spec.md §4.10). Grounded on the teacher's Server.Run (a context
// cancellation goroutine driving graceful shutdown), generalized from one
// web server to the full fleet netsimd runs.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/netsim/internal/core/ports"
)

// Runner is a long-running component started by the session: gRPC/vsock
// server, the HCI TCP listener, or the REST/WS front end. Run blocks until
// ctx is cancelled or the component fails, then returns.
type Runner func(ctx context.Context) error

// Runtime ties the scene, pcap, facades, transports, and front end
// together per the start order in spec.md §4.10: scene → pcap (clear
// stale files, done by the caller before constructing Runtime) → facades
// → gRPC/vsock → HCI TCP → REST/WS. Runners are added in that order and
// all run concurrently once Run is called; only their start order (the
// order dependent state is wired, before Run) matters, not their
// goroutine scheduling order.
type Runtime struct {
	Scene ports.SceneStore

	// InactivityTimeout, if positive, triggers shutdown after this many
	// consecutive seconds with zero chips attached (spec.md §4.10).
	InactivityTimeout time.Duration

	runners []Runner
}

// Add registers a runner to be started when Run is called.
func (r *Runtime) Add(run Runner) {
	r.runners = append(r.runners, run)
}

// Run starts every registered runner and blocks until ctx is cancelled,
// the inactivity timeout fires, or a runner fails, then cancels all
// runners and waits for them to return.
func (r *Runtime) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, run := range r.runners {
		wg.Add(1)
		go func(run Runner) {
			defer wg.Done()
			if err := run(runCtx); err != nil && runCtx.Err() == nil {
				log.Printf("session: a server exited: %v", err)
				cancel()
			}
		}(run)
	}

	r.watchInactivity(runCtx, cancel)
	wg.Wait()
	return nil
}

func (r *Runtime) watchInactivity(ctx context.Context, cancel context.CancelFunc) {
	if r.InactivityTimeout <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	var idleSince time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := len(r.Scene.ListDevices(ctx).Devices)
			if n == 0 {
				if idleSince.IsZero() {
					idleSince = time.Now()
				} else if time.Since(idleSince) >= r.InactivityTimeout {
					log.Printf("session: no chips attached for %v, shutting down", r.InactivityTimeout)
					cancel()
					return
				}
			} else {
				idleSince = time.Time{}
			}
		}
	}
}
