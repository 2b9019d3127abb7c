package domain

import "time"

// Scene is a point-in-time, deep-copied snapshot of every device and chip,
// safe to hand to a caller outside the store's lock. LastModified is the
// version counter spec.md §3 calls out: it advances whenever any field
// other than a packet counter changes.
type Scene struct {
	Devices      []Device  `json:"devices"`
	LastModified time.Time `json:"last_modified"`
}

// DeviceCreate is the input to CreateDevice: a caller-supplied device shell
// plus the chips it should be created with.
type DeviceCreate struct {
	Name  string       `json:"name"`
	Kind  DeviceKind   `json:"kind"`
	Chips []ChipCreate `json:"chips"`
}

// ChipCreate is one chip requested as part of a DeviceCreate.
type ChipCreate struct {
	Kind         ChipKind `json:"kind"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	ProductName  string   `json:"product_name"`
	Address      string       `json:"address,omitempty"` // copied into Beacon.Address when Beacon is set and has none; ignored otherwise
	Range        float32      `json:"range,omitempty"`   // radio range in meters; 0 means "use the default"
	Beacon       *BeaconState `json:"beacon,omitempty"`
}

// PatchFields is a partial update to a Device. A nil pointer/field means
// "leave unmodified"; this mirrors the protobuf field-presence semantics
// PatchDevice is built on.
type PatchFields struct {
	Name        *string      `json:"name,omitempty"`
	Visible     *bool        `json:"visible,omitempty"`
	Position    *Position    `json:"position,omitempty"`
	Orientation *Orientation `json:"orientation,omitempty"`
	Chips       []ChipPatch  `json:"chips,omitempty"`
}

// ChipPatch updates one chip of the device being patched. A chip patch
// matches by Id if non-zero, else by Kind (spec.md §4.2).
type ChipPatch struct {
	Id           uint32      `json:"id,omitempty"`
	Kind         ChipKind    `json:"kind,omitempty"`
	RadioState   *RadioState `json:"radio_state,omitempty"`
	CaptureState *CaptureState `json:"capture_state,omitempty"`
}
