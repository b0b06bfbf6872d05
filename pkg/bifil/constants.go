// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bifil provides a reference Go implementation of the Bifil
// synchronous serial link.
//
// Bifil is a point-to-point two-wire link (shared clock + one data line per
// direction) exchanging 33-bit slots between two peers in the Thermoquad
// ecosystem. One peer acts as initiator and drives the clock; the other acts
// as responder and tracks it. This package provides the slot codec, the word
// queues, both link engines, and the host-facing control/status surface.
package bifil

// Link identification constants, reported through the host register surface.
const (
	LinkID      = 0x4249464C // "BIFL"
	LinkVersion = 0x00010200 // 1.2.0
)

// Slot geometry: one exchange unit is 33 bits, transmitted MSB first.
// Bit 32 is the validity bit, bits 31..0 carry the word.
const (
	SlotBits = 33
	slotMask = (uint64(1) << SlotBits) - 1
	validBit = uint64(1) << 32
)

// Default engine timing. All values are in system ticks; only their ratios to
// the bit period are part of the protocol contract. A bit period is two clock
// half-periods.
const (
	DefaultQueueDepth       = 64
	DefaultClockHalfPeriod  = 2
	DefaultIdleGap          = 64
	DefaultDesyncBitPeriods = 16
	DefaultPeerTimeout      = 4096
)

// Role selects which side of the link an engine plays.
type Role uint32

// Link roles. The initiator drives the shared clock; the responder tracks
// externally driven edges.
const (
	RoleInitiator Role = iota
	RoleResponder
)

// String returns the role name for diagnostics.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// Flags holds the sticky error flags. They remain set until an explicit
// clearErrors or softReset control write.
type Flags uint32

// Sticky error flags.
const (
	FlagRxOverflow Flags = 1 << iota // peer sent a valid word while RxQueue was full
	FlagTxOverflow                   // host pushed while TxQueue was full
	FlagDesync                       // responder lost bit sync mid-slot
)

// Control word bits (internal). The whole control state is packed into a
// single word so a host write can never tear across execution contexts.
const (
	ctlEnabled = 1 << 0
	ctlRole    = 1 << 1 // 0 = initiator, 1 = responder
	ctlPoll    = 1 << 2
)

// Pending one-shot operations handed from the host context to the link
// context (internal).
const (
	opAbort = 1 << 0
)
