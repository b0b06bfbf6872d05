// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

// Responder state machine. The responder never drives the clock: once per
// tick it samples the clock line and detects edges by comparing against the
// previous sample. While idle it keeps its first output bit preloaded on the
// data line so the bit is already stable when the initiator starts a slot;
// the TX head word is committed (popped) at that moment. Rising edges sample
// the incoming bit, falling edges advance to the next output bit. A missing
// edge for longer than the desync timeout aborts the slot.

func (e *Engine) responderTick() {
	clk := e.port.Clock.Get()
	rising := clk && !e.prevClock
	falling := !clk && e.prevClock
	e.prevClock = clk

	if !e.active {
		e.preloadResponder()
		if rising {
			e.active = true
			e.activeRole = RoleResponder
			e.recv = shiftIn(0, e.port.In.Get())
			e.bitPos = 1
			e.desyncTicks = 0
		}
		return
	}

	switch {
	case rising:
		e.desyncTicks = 0
		e.recv = shiftIn(e.recv, e.port.In.Get())
		e.bitPos++

	case falling:
		e.desyncTicks = 0
		if e.bitPos == SlotBits {
			e.finishSlot()
			return
		}
		e.port.Out.Set(slotBit(e.sending, e.bitPos))

	default:
		e.desyncTicks++
		if e.desyncTicks >= e.cfg.DesyncTimeout {
			e.abortSlot(true)
		}
	}
}

// preloadResponder latches the next outgoing slot while idle. An empty
// preload (validity-0) is upgraded in place if a word arrives before the
// peer starts clocking; nothing is lost because the word is only popped at
// the moment it is latched.
func (e *Engine) preloadResponder() {
	if e.preloaded && e.sentSlot.Valid {
		return
	}
	if w, ok := e.txq.Pop(); ok {
		e.sentSlot = Slot{Valid: true, Word: w}
	} else if e.preloaded {
		return
	} else {
		e.sentSlot = Slot{}
	}
	e.sending = e.sentSlot.Pack()
	e.preloaded = true
	e.port.Out.Set(slotBit(e.sending, 0))
}
