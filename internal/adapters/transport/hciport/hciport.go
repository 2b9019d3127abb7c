// Package hciport implements C7's raw HCI TCP ingress: one TCP connection
// is one Bluetooth chip, framed with the same length-prefixed H4 framing
// real HCI transports use (spec.md §4.7: "the raw TCP port (the hci_port)").
package hciport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"

	"github.com/google/netsim/internal/adapters/codec/hci"
	"github.com/google/netsim/internal/adapters/transport/outqueue"
	"github.com/google/netsim/internal/adapters/transport/router"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
)

// Server accepts raw HCI connections, one per Bluetooth chip.
type Server struct {
	scene    ports.SceneStore
	facades  *router.FacadeRouter
	listener net.Listener
	nextId   int
}

// New listens on addr (e.g. ":6402").
func New(scene ports.SceneStore, facades *router.FacadeRouter, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("hciport: listen %s: %w", addr, err)
	}
	return &Server{scene: scene, facades: facades, listener: ln}, nil
}

// Addr returns the bound address (useful when addr was ":0").
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until the listener closes.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		s.nextId++
		go s.handle(conn, s.nextId)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

func (s *Server) handle(conn net.Conn, connNum int) {
	defer conn.Close()
	ctx := context.Background()

	deviceName := fmt.Sprintf("hci_port-%d", connNum)
	q := outqueue.New("hci_port")
	sink := sinkFunc(func(payload []byte) error {
		q.Push(payload)
		return nil
	})

	chipId, err := router.Attach(ctx, s.scene, s.facades, deviceName, domain.DeviceKindBumble, domain.ChipCreate{
		Kind: domain.ChipKindBtClassic,
		Name: deviceName,
	}, sink)
	if err != nil {
		log.Printf("hci_port: attach conn %d: %v", connNum, err)
		return
	}
	defer router.Detach(ctx, s.scene, s.facades, domain.ChipKindBtClassic, chipId)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w := bufio.NewWriter(conn)
		for {
			payload, ok := q.Pop()
			if !ok {
				return
			}
			// The Bluetooth facade hands its sink complete H4 frames.
			if _, err := w.Write(payload); err != nil || w.Flush() != nil {
				return
			}
		}
	}()

	r := bufio.NewReader(conn)
	buf := make([]byte, 0, 4096)
	for {
		chunk := make([]byte, 4096)
		n, err := r.Read(chunk)
		if err != nil {
			if err != io.EOF {
				log.Printf("hci_port: conn %d read: %v", connNum, err)
			}
			break
		}
		buf = append(buf, chunk[:n]...)
		for {
			pkt, consumed, derr := hci.DecodeFrame(buf)
			if derr != nil {
				break
			}
			if consumed == 0 {
				break
			}
			buf = buf[consumed:]
			if f, ferr := s.facades.For(domain.ChipKindBtClassic); ferr == nil {
				if err := f.HandleRequest(ctx, chipId, hci.EncodeFrame(pkt)); err != nil {
					log.Printf("hci_port: chip %d handle_request: %v", chipId, err)
				}
			}
		}
	}
	q.Close()
	<-done
}

type sinkFunc func(payload []byte) error

func (f sinkFunc) Send(chipId uint32, payload []byte) error { return f(payload) }
