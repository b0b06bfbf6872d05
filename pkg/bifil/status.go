// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

// Status is a read-only snapshot of the link state for host-side flow
// control and diagnostics. Fields read by the host are eventually consistent
// with the link context; each underlying value is read atomically.
type Status struct {
	LinkUp      bool // engine enabled
	PeerPresent bool // a slot completed within the peer timeout window
	TxFull      bool
	RxEmpty     bool

	// Sticky error flags, cleared only by clearErrors or softReset.
	RxOverflow bool
	TxOverflow bool
	Desync     bool

	// Occupancy counts.
	TxSpace int
	RxCount int
}

// Status returns the current link status.
func (e *Engine) Status() Status {
	enabled, _, _ := controlState(e.control.Load())
	flags := Flags(e.flags.Load())
	return Status{
		LinkUp:      enabled,
		PeerPresent: e.peerTicks.Load() != 0,
		TxFull:      e.txq.Full(),
		RxEmpty:     e.rxq.Empty(),
		RxOverflow:  flags&FlagRxOverflow != 0,
		TxOverflow:  flags&FlagTxOverflow != 0,
		Desync:      flags&FlagDesync != 0,
		TxSpace:     e.txq.Space(),
		RxCount:     e.rxq.Len(),
	}
}
