//go:build !linux

package vsock

import (
	"errors"

	"github.com/google/netsim/internal/adapters/transport/router"
	"github.com/google/netsim/internal/core/ports"
)

// Server stubs out the AF_VSOCK ingress on non-linux hosts (spec.md §4.7:
// "vsock (linux only)").
type Server struct{}

// New always fails off-linux; callers skip starting this transport.
func New(scene ports.SceneStore, facades *router.FacadeRouter, port uint32) (*Server, error) {
	return nil, errors.New("vsock: not supported on this platform")
}

func (s *Server) Serve() error { return errors.New("vsock: not supported on this platform") }
func (s *Server) Close() error { return nil }
