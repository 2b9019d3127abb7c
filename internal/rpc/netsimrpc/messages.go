// Package netsimrpc stands in for the pdl/protoc-generated gRPC service
// code spec.md §1 treats as out of scope ("generated protocol-buffer
// marshalling... assumed to exist"). No .proto or generated client/server
// code shipped with the retrieved examples, so the wire messages and
// service descriptors below are hand-authored: JSON-over-gRPC rather than
// real protobuf wire format, using the grpc-go codec extension point
// (see codec.go) instead of github.com/golang/protobuf/proto.
package netsimrpc

import "github.com/google/netsim/internal/core/domain"

// InitialInfo is the mandatory first message on a PacketStreamer.StreamPackets
// call (spec.md §4.7).
type InitialInfo struct {
	DeviceName string          `json:"device_name"`
	Chip       InitialInfoChip `json:"chip"`
}

type InitialInfoChip struct {
	Kind         domain.ChipKind `json:"kind"`
	Name         string          `json:"name"`
	Manufacturer string          `json:"manufacturer"`
	ProductName  string          `json:"product_name"`
	Address      string          `json:"address"`
}

// PacketUp is every StreamPackets message after the first: either an
// hci_packet (Bluetooth) or a raw packet (Wi-Fi/UWB).
type PacketUp struct {
	Initial    *InitialInfo `json:"initial_info,omitempty"`
	HciPacket  []byte       `json:"hci_packet,omitempty"`
	Packet     []byte       `json:"packet,omitempty"`
}

// PacketDown mirrors PacketUp server to client, plus a terminal error.
type PacketDown struct {
	HciPacket []byte `json:"hci_packet,omitempty"`
	Packet    []byte `json:"packet,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DeviceCreateRequest/Response wrap domain.DeviceCreate for CreateDevice.
type DeviceCreateRequest struct {
	Device DeviceCreateWire `json:"device"`
}

type DeviceCreateWire struct {
	Name  string          `json:"name"`
	Kind  domain.DeviceKind `json:"kind"`
	Chips []ChipCreateWire  `json:"chips"`
}

type ChipCreateWire struct {
	Kind         domain.ChipKind `json:"kind"`
	Name         string          `json:"name"`
	Manufacturer string          `json:"manufacturer"`
	ProductName  string          `json:"product_name"`
	Address      string          `json:"address"`
	Range        float32         `json:"range"`
}

type DeviceResponse struct {
	Device DeviceWire `json:"device"`
}

type DeviceWire struct {
	Id          uint32             `json:"id"`
	Guid        string             `json:"guid"`
	Name        string             `json:"name"`
	Kind        domain.DeviceKind  `json:"kind"`
	Visible     bool               `json:"visible"`
	Position    domain.Position    `json:"position"`
	Orientation domain.Orientation `json:"orientation"`
	Chips       []ChipWire         `json:"chips"`
}

// ChipWire is a chip as observed by a front-end caller: identity plus its
// live radio and capture state, so ListDevice/CreateDevice responses
// carry more than a bare id.
type ChipWire struct {
	Id           uint32              `json:"id"`
	Kind         domain.ChipKind     `json:"kind"`
	Name         string              `json:"name"`
	Manufacturer string              `json:"manufacturer"`
	ProductName  string              `json:"product_name"`
	Radio        domain.Radio        `json:"radio"`
	CaptureState domain.CaptureState `json:"capture_state"`
}

// DeleteChipRequest/Response implement DeleteChip(chip_id).
type DeleteChipRequest struct {
	ChipId uint32 `json:"chip_id"`
}

type DeleteChipResponse struct{}

// PatchDeviceRequest implements PatchDevice(PatchFields, id_or_name).
type PatchDeviceRequest struct {
	IdOrName    string              `json:"id_or_name"`
	Name        *string             `json:"name,omitempty"`
	Visible     *bool               `json:"visible,omitempty"`
	Position    *domain.Position    `json:"position,omitempty"`
	Orientation *domain.Orientation `json:"orientation,omitempty"`
	Chips       []ChipPatchWire     `json:"chips,omitempty"`
}

type ChipPatchWire struct {
	Id           uint32              `json:"id"`
	Kind         domain.ChipKind     `json:"kind"`
	RadioState   *domain.RadioState  `json:"radio_state,omitempty"`
	CaptureState *domain.CaptureState `json:"capture_state,omitempty"`
}

type PatchDeviceResponse struct{}

type ResetRequest struct{}
type ResetResponse struct{}

type ListDeviceRequest struct{}

type ListDeviceResponse struct {
	Devices      []DeviceWire `json:"devices"`
	LastModified int64        `json:"last_modified"`
}

// SubscribeDeviceRequest carries the client's last observed version; zero
// means "nothing observed yet", so the call returns the current scene
// immediately (spec.md §4.8).
type SubscribeDeviceRequest struct {
	LastModified int64 `json:"last_modified"`
}

type PatchCaptureRequest struct {
	ChipId uint32              `json:"chip_id"`
	State  domain.CaptureState `json:"state"`
}

type PatchCaptureResponse struct{}

type ListCaptureRequest struct{}

type ListCaptureResponse struct {
	Captures []domain.Capture `json:"captures"`
}

type GetCaptureRequest struct {
	ChipId uint32 `json:"chip_id"`
}

// GetCaptureChunk is one ≤1024-byte frame of a server-streamed capture
// file (spec.md §4.8).
type GetCaptureChunk struct {
	Data []byte `json:"data"`
}

type GetVersionRequest struct{}

type GetVersionResponse struct {
	Version string `json:"version"`
}
