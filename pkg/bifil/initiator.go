// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

// Initiator state machine. The initiator owns the clock line: while a slot is
// active it toggles the clock every ClockHalfPeriod ticks, asserting its
// output bit before each rising edge and sampling the peer's data line at the
// sample point. While idle it starts a slot for the TX head word, or paces
// validity-0 poll slots when idle polling is enabled.

func (e *Engine) initiatorTick() {
	if !e.active {
		_, _, poll := controlState(e.linkCtl)
		if w, ok := e.txq.Pop(); ok {
			e.startInitiatorSlot(Slot{Valid: true, Word: w})
			return
		}
		if poll && !e.rxq.Full() {
			e.idleTicks++
			if e.idleTicks >= e.cfg.IdleGap {
				e.startInitiatorSlot(Slot{})
			}
		} else {
			e.idleTicks = 0
		}
		return
	}

	e.halfTicks++
	if e.halfTicks < e.cfg.ClockHalfPeriod {
		return
	}
	e.halfTicks = 0

	if !e.clockHigh {
		// Sample point: capture the peer's data bit, then raise the clock.
		e.recv = shiftIn(e.recv, e.port.In.Get())
		e.port.Clock.Set(true)
		e.clockHigh = true
		return
	}

	e.port.Clock.Set(false)
	e.clockHigh = false
	e.bitPos++
	if e.bitPos == SlotBits {
		e.finishSlot()
		return
	}
	e.port.Out.Set(slotBit(e.sending, e.bitPos))
}

// startInitiatorSlot begins clocking a slot, MSB first. The first output bit
// goes on the wire a full half-period before the first rising edge.
func (e *Engine) startInitiatorSlot(s Slot) {
	e.active = true
	e.activeRole = RoleInitiator
	e.sentSlot = s
	e.sending = s.Pack()
	e.recv = 0
	e.bitPos = 0
	e.clockHigh = false
	e.halfTicks = 0
	e.idleTicks = 0
	e.port.Out.Set(slotBit(e.sending, 0))
}
