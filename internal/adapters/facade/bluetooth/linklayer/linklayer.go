// Package linklayer stands in for the key-schedule half of the embedded
// link-layer engine's LE pairing procedure (spec.md §9's in-memory test
// engine abstracts the engine behind an interface; this gives it a real
// long-term-key derivation instead of a bare counter). netsimd never
// performs an actual SMP exchange with a peer stack; this only gives the
// facade a deterministic, non-trivial key material to record on an LE
// Start Encryption command.
package linklayer

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/google/netsim/internal/core/domain"
)

// ltkSize matches the 16-octet LTK defined by the Bluetooth Core spec's
// LE legacy/secure pairing.
const ltkSize = 16

// DeriveLTK derives a simulated long-term key for addr from a per-chip
// random value, via HKDF-SHA256. Deterministic given the same inputs, so
// repeated "LE Start Encryption" commands against the same chip yield the
// same key, matching a real stack's persisted-bond behavior.
func DeriveLTK(addr [6]byte, entropy []byte) ([ltkSize]byte, error) {
	var ltk [ltkSize]byte
	r := hkdf.New(sha256.New, entropy, addr[:], []byte("netsim-le-ltk"))
	if _, err := io.ReadFull(r, ltk[:]); err != nil {
		return ltk, domain.Wrap(domain.KindInternal, err, "linklayer: derive LTK")
	}
	return ltk, nil
}
