// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

// Control is one host control write. The persistent fields (Enable, Role,
// PollEnabled) replace the engine's control state atomically; the remaining
// fields are one-shot operations carried by the same write.
type Control struct {
	Enable      bool
	Role        Role
	PollEnabled bool

	// SoftReset clears both queues, the error flags, and the peer timer,
	// aborts any in-flight slot, and leaves the engine disabled and idle.
	SoftReset bool

	// ClearErrors clears the sticky error flags only.
	ClearErrors bool

	// FlushTx and FlushRx clear the named queue and abort an in-flight slot.
	FlushTx bool
	FlushRx bool
}

// SetControl applies a host control write. The persistent control state is
// committed as a single atomic word; the link context observes the change and
// aborts any in-flight slot at the next tick if the role changed or the
// engine was disabled. Partial slots are discarded, never delivered.
func (e *Engine) SetControl(c Control) {
	var w uint32
	if c.Enable {
		w |= ctlEnabled
	}
	if c.Role == RoleResponder {
		w |= ctlRole
	}
	if c.PollEnabled {
		w |= ctlPoll
	}

	if c.SoftReset {
		// A soft reset always returns the link to the disabled idle state,
		// regardless of the Enable bit in the same write.
		w &^= ctlEnabled
		e.txq.Clear()
		e.rxq.Clear()
		e.flags.Store(0)
		e.peerTicks.Store(0)
		e.pending.Or(opAbort)
	}
	if c.ClearErrors {
		e.flags.Store(0)
	}
	if c.FlushTx {
		e.txq.Clear()
		e.pending.Or(opAbort)
	}
	if c.FlushRx {
		e.rxq.Clear()
		e.pending.Or(opAbort)
	}

	e.control.Store(w)
}

// controlState unpacks a control word (internal, link context).
func controlState(w uint32) (enabled bool, role Role, poll bool) {
	enabled = w&ctlEnabled != 0
	role = RoleInitiator
	if w&ctlRole != 0 {
		role = RoleResponder
	}
	poll = w&ctlPoll != 0
	return enabled, role, poll
}
