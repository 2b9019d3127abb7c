package grpc

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/netsim/internal/adapters/facade/uwb"
	"github.com/google/netsim/internal/adapters/transport/router"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/services/pcap"
	"github.com/google/netsim/internal/core/services/scene"
	"github.com/google/netsim/internal/rpc/netsimrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeStream is a minimal in-memory PacketStreamer_StreamPacketsServer: an
// inbound queue the test feeds and an outbound slice the test inspects.
type fakeStream struct {
	ctx context.Context

	mu         sync.Mutex
	in         []*netsimrpc.PacketUp
	out        []*netsimrpc.PacketDown
	errOnEmpty error
}

func newFakeStream(ctx context.Context, in ...*netsimrpc.PacketUp) *fakeStream {
	return &fakeStream{ctx: ctx, in: in, errOnEmpty: io.EOF}
}

func (s *fakeStream) Context() context.Context { return s.ctx }

func (s *fakeStream) Send(m *netsimrpc.PacketDown) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, m)
	return nil
}

func (s *fakeStream) Recv() (*netsimrpc.PacketUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.in) == 0 {
		return nil, s.errOnEmpty
	}
	m := s.in[0]
	s.in = s.in[1:]
	return m, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := scene.New()
	pm, err := pcap.New(t.TempDir())
	require.NoError(t, err)
	facades := &router.FacadeRouter{Uwb: uwb.New(store, pm)}
	return New(store, facades)
}

func TestStreamPacketsRejectsMissingInitial(t *testing.T) {
	s := newTestServer(t)
	stream := newFakeStream(context.Background(), &netsimrpc.PacketUp{Packet: []byte("no initial")})

	err := s.StreamPackets(stream)
	require.Error(t, err)
}

func TestStreamPacketsRejectsDuplicateStream(t *testing.T) {
	s := newTestServer(t)
	initial := &netsimrpc.PacketUp{Initial: &netsimrpc.InitialInfo{
		DeviceName: "dup-dev",
		Chip:       netsimrpc.InitialInfoChip{Kind: domain.ChipKindUwb},
	}}

	key := streamKey("dup-dev", domain.ChipKindUwb, "")
	s.mu.Lock()
	s.active[key] = struct{}{}
	s.mu.Unlock()

	stream := newFakeStream(context.Background(), initial)
	err := s.StreamPackets(stream)
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())
}

func TestStreamPacketsAttachesAndDetachesOnClose(t *testing.T) {
	s := newTestServer(t)
	initial := &netsimrpc.PacketUp{Initial: &netsimrpc.InitialInfo{
		DeviceName: "attach-dev",
		Chip:       netsimrpc.InitialInfoChip{Kind: domain.ChipKindUwb},
	}}
	stream := newFakeStream(context.Background(), initial)

	done := make(chan error, 1)
	go func() { done <- s.StreamPackets(stream) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("StreamPackets did not return after Recv hit EOF")
	}

	scn := s.scene.ListDevices(context.Background())
	assert.Len(t, scn.Devices, 0, "chip should be detached once the stream closes")
}
