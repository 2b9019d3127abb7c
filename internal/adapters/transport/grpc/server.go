// Package grpc implements C7's gRPC ingress: PacketStreamer.StreamPackets,
// a bidi stream multiplexing one chip per call. Grounded on the teacher's
// internal/core/services/grpc/grpc_server.go (NewGrpcServer/RegisterServer
// wiring style), generalized from its single ReportTraffic client-stream
// to netsimrpc's PacketStreamer service.
package grpc

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/netsim/internal/adapters/transport/outqueue"
	"github.com/google/netsim/internal/adapters/transport/router"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/rpc/netsimrpc"
	"google.golang.org/grpc"
)

// Server implements netsimrpc.PacketStreamerServer.
type Server struct {
	scene   ports.SceneStore
	facades *router.FacadeRouter

	mu     sync.Mutex
	active map[string]struct{} // "deviceName/kind/address" -> streaming
}

// New returns a PacketStreamer server dispatching onto facades.
func New(scene ports.SceneStore, facades *router.FacadeRouter) *Server {
	return &Server{scene: scene, facades: facades, active: make(map[string]struct{})}
}

// NewGrpcServer mirrors the teacher's NewGrpcServer: build a *grpc.Server
// with every service registered.
func NewGrpcServer(scene ports.SceneStore, facades *router.FacadeRouter) *grpc.Server {
	s := grpc.NewServer()
	netsimrpc.RegisterPacketStreamerServer(s, New(scene, facades))
	return s
}

func streamKey(deviceName string, kind domain.ChipKind, address string) string {
	return fmt.Sprintf("%s/%v/%s", deviceName, kind, address)
}

type sinkFunc func(payload []byte) error

func (f sinkFunc) Send(chipId uint32, payload []byte) error { return f(payload) }

// StreamPackets implements the C7 gRPC ingress (spec.md §4.7).
func (s *Server) StreamPackets(stream netsimrpc.PacketStreamer_StreamPacketsServer) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.Initial == nil {
		return statusError(domain.KindInvalidArgument, "stream_packets: first message must be initial_info")
	}
	info := first.Initial
	key := streamKey(info.DeviceName, info.Chip.Kind, info.Chip.Address)

	s.mu.Lock()
	if _, dup := s.active[key]; dup {
		s.mu.Unlock()
		return statusError(domain.KindAlreadyExists, "stream_packets: %s already streaming", key)
	}
	s.active[key] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, key)
		s.mu.Unlock()
	}()

	q := outqueue.New("grpc")
	isBluetooth := info.Chip.Kind.IsBluetooth()
	sink := sinkFunc(func(payload []byte) error {
		q.Push(payload)
		return nil
	})

	chipId, err := router.Attach(stream.Context(), s.scene, s.facades, info.DeviceName, domain.DeviceKindEmulator, domain.ChipCreate{
		Kind:         info.Chip.Kind,
		Name:         info.Chip.Name,
		Manufacturer: info.Chip.Manufacturer,
		ProductName:  info.Chip.ProductName,
		Address:      info.Chip.Address,
	}, sink)
	if err != nil {
		return statusError(domain.KindOf(err), err.Error())
	}
	defer router.Detach(stream.Context(), s.scene, s.facades, info.Chip.Kind, chipId)

	errCh := make(chan error, 2)
	go s.pump(stream, q, isBluetooth, errCh)
	go s.drain(stream, chipId, errCh)

	return <-errCh
}

// pump drains the outbound queue to the client.
func (s *Server) pump(stream netsimrpc.PacketStreamer_StreamPacketsServer, q *outqueue.Queue, isBluetooth bool, errCh chan<- error) {
	for {
		payload, ok := q.Pop()
		if !ok {
			errCh <- nil
			return
		}
		down := &netsimrpc.PacketDown{}
		if isBluetooth {
			down.HciPacket = payload
		} else {
			down.Packet = payload
		}
		if err := stream.Send(down); err != nil {
			errCh <- err
			return
		}
	}
}

// drain reads inbound frames and dispatches them to the attached chip's
// facade via HandleRequest.
func (s *Server) drain(stream netsimrpc.PacketStreamer_StreamPacketsServer, chipId uint32, errCh chan<- error) {
	for {
		in, err := stream.Recv()
		if err == io.EOF {
			errCh <- nil
			return
		}
		if err != nil {
			errCh <- err
			return
		}
		chip, _, err := s.scene.GetChip(stream.Context(), chipId)
		if err != nil {
			continue
		}
		f, err := s.facades.For(chip.Kind)
		if err != nil {
			continue
		}
		payload := in.Packet
		if len(in.HciPacket) > 0 {
			payload = in.HciPacket
		}
		if err := f.HandleRequest(stream.Context(), chipId, payload); err != nil {
			log.Printf("grpc: chip %d handle_request: %v", chipId, err)
		}
	}
}

func statusError(kind domain.Kind, msg string) error {
	return grpcStatusError(kind, msg)
}
