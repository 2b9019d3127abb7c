//go:build linux

// Package vsock implements C7's AF_VSOCK ingress: identical message
// shapes to the gRPC PacketStreamer (spec.md §4.7), framed as a 4-byte
// big-endian length prefix around a JSON-encoded netsimrpc.PacketUp/Down
// since a bare AF_VSOCK socket carries no HTTP/2 framing of its own.
package vsock

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/google/netsim/internal/adapters/transport/outqueue"
	"github.com/google/netsim/internal/adapters/transport/router"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/rpc/netsimrpc"
	"golang.org/x/sys/unix"
)

const maxFrameLen = 1 << 20

// Server accepts AF_VSOCK connections on VMADDR_CID_ANY, one per chip.
type Server struct {
	scene   ports.SceneStore
	facades *router.FacadeRouter
	fd      int
}

// New binds an AF_VSOCK listener on port.
func New(scene ports.SceneStore, facades *router.FacadeRouter, port uint32) (*Server, error) {
	fd, err := unix.Socket(unix.AF_VSOCK, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("vsock: socket: %w", err)
	}
	sa := &unix.SockaddrVM{CID: unix.VMADDR_CID_ANY, Port: port}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("vsock: bind: %w", err)
	}
	if err := unix.Listen(fd, 16); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("vsock: listen: %w", err)
	}
	return &Server{scene: scene, facades: facades, fd: fd}, nil
}

// Serve accepts connections until the listening socket is closed.
func (s *Server) Serve() error {
	for {
		nfd, _, err := unix.Accept(s.fd)
		if err != nil {
			return err
		}
		go s.handle(&fdConn{fd: nfd})
	}
}

// Close tears down the listening socket.
func (s *Server) Close() error { return unix.Close(s.fd) }

// fdConn adapts a raw vsock file descriptor to io.ReadWriteCloser.
type fdConn struct{ fd int }

func (c *fdConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (c *fdConn) Write(p []byte) (int, error) { return unix.Write(c.fd, p) }
func (c *fdConn) Close() error                { return unix.Close(c.fd) }

func (s *Server) handle(conn *fdConn) {
	defer conn.Close()
	ctx := context.Background()

	first, err := readFrame(conn)
	if err != nil {
		return
	}
	var up netsimrpc.PacketUp
	if err := json.Unmarshal(first, &up); err != nil || up.Initial == nil {
		writeFrame(conn, mustJSON(netsimrpc.PacketDown{Error: "first message must be initial_info"}))
		return
	}
	info := up.Initial

	q := outqueue.New("vsock")
	sink := sinkFunc(func(payload []byte) error {
		q.Push(payload)
		return nil
	})

	chipId, err := router.Attach(ctx, s.scene, s.facades, info.DeviceName, domain.DeviceKindEmulator, domain.ChipCreate{
		Kind:         info.Chip.Kind,
		Name:         info.Chip.Name,
		Manufacturer: info.Chip.Manufacturer,
		ProductName:  info.Chip.ProductName,
		Address:      info.Chip.Address,
	}, sink)
	if err != nil {
		writeFrame(conn, mustJSON(netsimrpc.PacketDown{Error: err.Error()}))
		return
	}
	defer router.Detach(ctx, s.scene, s.facades, info.Chip.Kind, chipId)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			payload, ok := q.Pop()
			if !ok {
				return
			}
			down := netsimrpc.PacketDown{}
			if info.Chip.Kind.IsBluetooth() {
				down.HciPacket = payload
			} else {
				down.Packet = payload
			}
			if err := writeFrame(conn, mustJSON(down)); err != nil {
				return
			}
		}
	}()

	for {
		frame, err := readFrame(conn)
		if err != nil {
			q.Close()
			break
		}
		var in netsimrpc.PacketUp
		if json.Unmarshal(frame, &in) != nil {
			continue
		}
		payload := in.Packet
		if len(in.HciPacket) > 0 {
			payload = in.HciPacket
		}
		if f, ferr := s.facades.For(info.Chip.Kind); ferr == nil {
			if err := f.HandleRequest(ctx, chipId, payload); err != nil {
				log.Printf("vsock: chip %d handle_request: %v", chipId, err)
			}
		}
	}
	<-done
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("vsock: frame too large: %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

type sinkFunc func(payload []byte) error

func (f sinkFunc) Send(chipId uint32, payload []byte) error { return f(payload) }
