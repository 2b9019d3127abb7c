package grpcsvc

import (
	"strconv"
	"time"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/rpc/netsimrpc"
)

func itoa(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

func timeFromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func toChipWire(c domain.Chip) netsimrpc.ChipWire {
	return netsimrpc.ChipWire{
		Id:           c.Id,
		Kind:         c.Kind,
		Name:         c.Name,
		Manufacturer: c.Manufacturer,
		ProductName:  c.ProductName,
		Radio:        *c.ActiveRadio(),
		CaptureState: c.CaptureState,
	}
}

func toDeviceWire(d domain.Device) netsimrpc.DeviceWire {
	out := netsimrpc.DeviceWire{
		Id:          d.Id,
		Guid:        d.Guid,
		Name:        d.Name,
		Kind:        d.Kind,
		Visible:     d.Visible,
		Position:    d.Position,
		Orientation: d.Orientation,
	}
	for _, c := range d.Chips {
		out.Chips = append(out.Chips, toChipWire(c))
	}
	return out
}

func toListResponse(scene domain.Scene) *netsimrpc.ListDeviceResponse {
	out := &netsimrpc.ListDeviceResponse{LastModified: scene.LastModified.UnixMilli()}
	for _, d := range scene.Devices {
		out.Devices = append(out.Devices, toDeviceWire(d))
	}
	return out
}
