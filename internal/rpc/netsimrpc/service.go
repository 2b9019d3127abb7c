package netsimrpc

import (
	"context"

	"google.golang.org/grpc"
)

// PacketStreamerServer is the server side of the C7 transport RPC: a
// single bidi-streaming method multiplexing every inbound chip stream.
type PacketStreamerServer interface {
	StreamPackets(PacketStreamer_StreamPacketsServer) error
}

// PacketStreamer_StreamPacketsServer mirrors the generated stream-wrapper
// type protoc-gen-go-grpc would emit: typed Send/Recv over the raw
// grpc.ServerStream.
type PacketStreamer_StreamPacketsServer interface {
	Send(*PacketDown) error
	Recv() (*PacketUp, error)
	Context() context.Context
}

type packetStreamerStreamPacketsServer struct {
	grpc.ServerStream
}

func (s *packetStreamerStreamPacketsServer) Send(m *PacketDown) error {
	return s.ServerStream.SendMsg(m)
}

func (s *packetStreamerStreamPacketsServer) Recv() (*PacketUp, error) {
	m := new(PacketUp)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _PacketStreamer_StreamPackets_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(PacketStreamerServer).StreamPackets(&packetStreamerStreamPacketsServer{stream})
}

// PacketStreamer_ServiceDesc is the hand-authored stand-in for the
// protoc-gen-go-grpc ServiceDesc, registered the same way the teacher
// registers WMapServiceServer in grpc_server.go.
var PacketStreamer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "netsim.PacketStreamer",
	HandlerType: (*PacketStreamerServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamPackets",
			Handler:       _PacketStreamer_StreamPackets_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "netsim/packet_streamer.proto",
}

func RegisterPacketStreamerServer(s grpc.ServiceRegistrar, srv PacketStreamerServer) {
	s.RegisterService(&PacketStreamer_ServiceDesc, srv)
}

// FrontendServiceServer is the C8 front-end RPC surface (spec.md §4.8).
type FrontendServiceServer interface {
	GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error)
	CreateDevice(context.Context, *DeviceCreateRequest) (*DeviceResponse, error)
	DeleteChip(context.Context, *DeleteChipRequest) (*DeleteChipResponse, error)
	PatchDevice(context.Context, *PatchDeviceRequest) (*PatchDeviceResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
	ListDevice(context.Context, *ListDeviceRequest) (*ListDeviceResponse, error)
	SubscribeDevice(context.Context, *SubscribeDeviceRequest) (*ListDeviceResponse, error)
	PatchCapture(context.Context, *PatchCaptureRequest) (*PatchCaptureResponse, error)
	ListCapture(context.Context, *ListCaptureRequest) (*ListCaptureResponse, error)
	GetCapture(*GetCaptureRequest, FrontendService_GetCaptureServer) error
}

// UnimplementedFrontendServiceServer lets concrete servers embed defaults,
// matching the teacher's UnimplementedWMapServiceServer embedding pattern.
type UnimplementedFrontendServiceServer struct{}

func (UnimplementedFrontendServiceServer) GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error) {
	return nil, grpcUnimplemented("GetVersion")
}
func (UnimplementedFrontendServiceServer) CreateDevice(context.Context, *DeviceCreateRequest) (*DeviceResponse, error) {
	return nil, grpcUnimplemented("CreateDevice")
}
func (UnimplementedFrontendServiceServer) DeleteChip(context.Context, *DeleteChipRequest) (*DeleteChipResponse, error) {
	return nil, grpcUnimplemented("DeleteChip")
}
func (UnimplementedFrontendServiceServer) PatchDevice(context.Context, *PatchDeviceRequest) (*PatchDeviceResponse, error) {
	return nil, grpcUnimplemented("PatchDevice")
}
func (UnimplementedFrontendServiceServer) Reset(context.Context, *ResetRequest) (*ResetResponse, error) {
	return nil, grpcUnimplemented("Reset")
}
func (UnimplementedFrontendServiceServer) ListDevice(context.Context, *ListDeviceRequest) (*ListDeviceResponse, error) {
	return nil, grpcUnimplemented("ListDevice")
}
func (UnimplementedFrontendServiceServer) SubscribeDevice(context.Context, *SubscribeDeviceRequest) (*ListDeviceResponse, error) {
	return nil, grpcUnimplemented("SubscribeDevice")
}
func (UnimplementedFrontendServiceServer) PatchCapture(context.Context, *PatchCaptureRequest) (*PatchCaptureResponse, error) {
	return nil, grpcUnimplemented("PatchCapture")
}
func (UnimplementedFrontendServiceServer) ListCapture(context.Context, *ListCaptureRequest) (*ListCaptureResponse, error) {
	return nil, grpcUnimplemented("ListCapture")
}
func (UnimplementedFrontendServiceServer) GetCapture(*GetCaptureRequest, FrontendService_GetCaptureServer) error {
	return grpcUnimplemented("GetCapture")
}

func grpcUnimplemented(method string) error {
	return &unimplementedError{method: method}
}

type unimplementedError struct{ method string }

func (e *unimplementedError) Error() string { return "netsimrpc: method " + e.method + " not implemented" }

// FrontendService_GetCaptureServer is the server-streaming wrapper for
// GetCapture's ≤1024-byte chunk delivery (spec.md §4.8).
type FrontendService_GetCaptureServer interface {
	Send(*GetCaptureChunk) error
	Context() context.Context
}

type frontendServiceGetCaptureServer struct {
	grpc.ServerStream
}

func (s *frontendServiceGetCaptureServer) Send(m *GetCaptureChunk) error {
	return s.ServerStream.SendMsg(m)
}

func _FrontendService_GetCapture_Handler(srv any, stream grpc.ServerStream) error {
	m := new(GetCaptureRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FrontendServiceServer).GetCapture(m, &frontendServiceGetCaptureServer{stream})
}

func _FrontendService_unaryHandler[Req, Resp any](
	call func(FrontendServiceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FrontendServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/netsim.FrontendService/"}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FrontendServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var FrontendService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "netsim.FrontendService",
	HandlerType: (*FrontendServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetVersion", Handler: _frontendUnaryHandler_GetVersion},
		{MethodName: "CreateDevice", Handler: _frontendUnaryHandler_CreateDevice},
		{MethodName: "DeleteChip", Handler: _frontendUnaryHandler_DeleteChip},
		{MethodName: "PatchDevice", Handler: _frontendUnaryHandler_PatchDevice},
		{MethodName: "Reset", Handler: _frontendUnaryHandler_Reset},
		{MethodName: "ListDevice", Handler: _frontendUnaryHandler_ListDevice},
		{MethodName: "SubscribeDevice", Handler: _frontendUnaryHandler_SubscribeDevice},
		{MethodName: "PatchCapture", Handler: _frontendUnaryHandler_PatchCapture},
		{MethodName: "ListCapture", Handler: _frontendUnaryHandler_ListCapture},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetCapture", Handler: _FrontendService_GetCapture_Handler, ServerStreams: true},
	},
	Metadata: "netsim/frontend.proto",
}

var (
	_frontendUnaryHandler_GetVersion      = _FrontendService_unaryHandler(FrontendServiceServer.GetVersion)
	_frontendUnaryHandler_CreateDevice    = _FrontendService_unaryHandler(FrontendServiceServer.CreateDevice)
	_frontendUnaryHandler_DeleteChip      = _FrontendService_unaryHandler(FrontendServiceServer.DeleteChip)
	_frontendUnaryHandler_PatchDevice     = _FrontendService_unaryHandler(FrontendServiceServer.PatchDevice)
	_frontendUnaryHandler_Reset           = _FrontendService_unaryHandler(FrontendServiceServer.Reset)
	_frontendUnaryHandler_ListDevice      = _FrontendService_unaryHandler(FrontendServiceServer.ListDevice)
	_frontendUnaryHandler_SubscribeDevice = _FrontendService_unaryHandler(FrontendServiceServer.SubscribeDevice)
	_frontendUnaryHandler_PatchCapture    = _FrontendService_unaryHandler(FrontendServiceServer.PatchCapture)
	_frontendUnaryHandler_ListCapture     = _FrontendService_unaryHandler(FrontendServiceServer.ListCapture)
)

func RegisterFrontendServiceServer(s grpc.ServiceRegistrar, srv FrontendServiceServer) {
	s.RegisterService(&FrontendService_ServiceDesc, srv)
}
