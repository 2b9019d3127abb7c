// Package grpcsvc implements C8's gRPC surface (spec.md §4.8), mirrored
// 1:1 by the REST adapter in internal/adapters/frontend/httpsvc. Grounded
// on the teacher's GrpcServer (internal/core/services/grpc/grpc_server.go):
// same NewGrpcServer-returns-*grpc.Server shape, same proto<->domain
// translation-at-the-boundary style.
package grpcsvc

import (
	"context"
	"io"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/rpc/netsimrpc"
	"google.golang.org/grpc"
)

const buildVersion = "netsim-go/0.1"

// Server implements netsimrpc.FrontendServiceServer against the scene
// store, pcap manager, and audit log.
type Server struct {
	netsimrpc.UnimplementedFrontendServiceServer

	Scene ports.SceneStore
	Pcap  ports.PcapManager
	Audit ports.AuditLog
}

var _ netsimrpc.FrontendServiceServer = (*Server)(nil)

// NewGrpcServer mirrors the teacher's NewGrpcServer helper.
func NewGrpcServer(svc *Server) *grpc.Server {
	s := grpc.NewServer()
	netsimrpc.RegisterFrontendServiceServer(s, svc)
	return s
}

func (s *Server) GetVersion(ctx context.Context, _ *netsimrpc.GetVersionRequest) (*netsimrpc.GetVersionResponse, error) {
	return &netsimrpc.GetVersionResponse{Version: buildVersion}, nil
}

func (s *Server) CreateDevice(ctx context.Context, req *netsimrpc.DeviceCreateRequest) (*netsimrpc.DeviceResponse, error) {
	chips := make([]domain.ChipCreate, len(req.Device.Chips))
	for i, c := range req.Device.Chips {
		chips[i] = domain.ChipCreate{Kind: c.Kind, Name: c.Name, Manufacturer: c.Manufacturer, ProductName: c.ProductName, Address: c.Address, Range: c.Range}
	}
	dev, err := s.Scene.CreateDevice(ctx, domain.DeviceCreate{Name: req.Device.Name, Kind: req.Device.Kind, Chips: chips})
	if err != nil {
		return nil, err
	}
	if s.Audit != nil {
		_ = s.Audit.Record(ctx, "create_device", req.Device.Name)
	}
	return &netsimrpc.DeviceResponse{Device: toDeviceWire(dev)}, nil
}

func (s *Server) DeleteChip(ctx context.Context, req *netsimrpc.DeleteChipRequest) (*netsimrpc.DeleteChipResponse, error) {
	if err := s.Scene.DeleteChip(ctx, req.ChipId); err != nil {
		return nil, err
	}
	if s.Audit != nil {
		_ = s.Audit.Record(ctx, "delete_chip", itoa(req.ChipId))
	}
	return &netsimrpc.DeleteChipResponse{}, nil
}

func (s *Server) PatchDevice(ctx context.Context, req *netsimrpc.PatchDeviceRequest) (*netsimrpc.PatchDeviceResponse, error) {
	patch := domain.PatchFields{Name: req.Name, Visible: req.Visible, Position: req.Position, Orientation: req.Orientation}
	for _, c := range req.Chips {
		patch.Chips = append(patch.Chips, domain.ChipPatch{Id: c.Id, Kind: c.Kind, RadioState: c.RadioState, CaptureState: c.CaptureState})
	}
	if err := s.Scene.PatchDevice(ctx, req.IdOrName, patch); err != nil {
		return nil, err
	}
	if s.Audit != nil {
		_ = s.Audit.Record(ctx, "patch_device", req.IdOrName)
	}
	return &netsimrpc.PatchDeviceResponse{}, nil
}

func (s *Server) Reset(ctx context.Context, _ *netsimrpc.ResetRequest) (*netsimrpc.ResetResponse, error) {
	if err := s.Scene.Reset(ctx); err != nil {
		return nil, err
	}
	if s.Audit != nil {
		_ = s.Audit.Record(ctx, "reset", "")
	}
	return &netsimrpc.ResetResponse{}, nil
}

func (s *Server) ListDevice(ctx context.Context, _ *netsimrpc.ListDeviceRequest) (*netsimrpc.ListDeviceResponse, error) {
	return toListResponse(s.Scene.ListDevices(ctx)), nil
}

func (s *Server) SubscribeDevice(ctx context.Context, req *netsimrpc.SubscribeDeviceRequest) (*netsimrpc.ListDeviceResponse, error) {
	since := timeFromMillis(req.LastModified)
	scene := s.Scene.Subscribe(ctx, since)
	return toListResponse(scene), nil
}

func (s *Server) PatchCapture(ctx context.Context, req *netsimrpc.PatchCaptureRequest) (*netsimrpc.PatchCaptureResponse, error) {
	if err := s.Pcap.SetState(ctx, req.ChipId, req.State); err != nil {
		return nil, err
	}
	return &netsimrpc.PatchCaptureResponse{}, nil
}

func (s *Server) ListCapture(ctx context.Context, _ *netsimrpc.ListCaptureRequest) (*netsimrpc.ListCaptureResponse, error) {
	return &netsimrpc.ListCaptureResponse{Captures: s.Pcap.List(ctx)}, nil
}

func (s *Server) GetCapture(req *netsimrpc.GetCaptureRequest, stream netsimrpc.FrontendService_GetCaptureServer) error {
	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Pcap.Stream(stream.Context(), req.ChipId, pw)
		pw.Close()
	}()

	buf := make([]byte, 1024)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if serr := stream.Send(&netsimrpc.GetCaptureChunk{Data: chunk}); serr != nil {
				return serr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return <-errCh
}
