// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Config holds the tunable engine parameters. All durations are in system
// ticks. The zero value of any field selects its default.
type Config struct {
	// QueueDepth is the fixed capacity of both word queues.
	QueueDepth int

	// ClockHalfPeriod is the initiator's clock half-period. A bit period is
	// twice this value.
	ClockHalfPeriod int

	// IdleGap paces idle polling: the initiator waits this many idle ticks
	// between validity-0 poll slots. It controls poll cadence, not clock rate.
	IdleGap int

	// DesyncTimeout is how long the responder tolerates a missing clock edge
	// mid-slot before aborting. Zero selects DefaultDesyncBitPeriods bit
	// periods.
	DesyncTimeout int

	// PeerTimeout is the peer presence window, re-armed on every completed
	// slot exchange.
	PeerTimeout int

	// OnExchange, if set, is invoked from the link context for every
	// completed or aborted slot exchange. It must not block.
	OnExchange func(Exchange)
}

// withDefaults fills zero fields with default values.
func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.ClockHalfPeriod <= 0 {
		c.ClockHalfPeriod = DefaultClockHalfPeriod
	}
	if c.IdleGap <= 0 {
		c.IdleGap = DefaultIdleGap
	}
	if c.DesyncTimeout <= 0 {
		c.DesyncTimeout = DefaultDesyncBitPeriods * 2 * c.ClockHalfPeriod
	}
	if c.PeerTimeout <= 0 {
		c.PeerTimeout = DefaultPeerTimeout
	}
	return c
}

// Validate checks configuration correctness. The desync timeout must exceed a
// bit period or the responder would abort healthy slots.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.DesyncTimeout <= 2*c.ClockHalfPeriod {
		return fmt.Errorf("desync timeout %d must exceed one bit period (%d ticks)",
			c.DesyncTimeout, 2*c.ClockHalfPeriod)
	}
	return nil
}

// Exchange describes one slot exchange as observed by the engine, for
// host-side tooling. Sent is what this engine clocked out, Received what it
// accumulated. Aborted exchanges carry no received slot.
type Exchange struct {
	Sent     Slot
	Received Slot
	Aborted  bool // slot discarded mid-flight (abort request or desync)
	Desync   bool // abort was caused by a desync timeout
	Overflow bool // received word dropped because RxQueue was full
	Time     time.Time
}

// Engine is one end of a Bifil link. Host-facing methods (PushTx, PopRx,
// SetControl, Status, ...) may be called from any goroutine at any time; the
// link context advances exclusively through Tick, either driven by Run or
// called directly for lock-step simulation. The two contexts communicate only
// through the queues and the atomic control/flag words.
type Engine struct {
	cfg  Config
	port Port
	txq  *Queue[Word]
	rxq  *Queue[Word]

	control   atomic.Uint32
	flags     atomic.Uint32
	pending   atomic.Uint32
	peerTicks atomic.Int64

	// Link-context state, owned by Tick. Never touched by host methods.
	linkCtl     uint32
	active      bool
	activeRole  Role
	sentSlot    Slot
	sending     uint64 // outgoing 33-bit shift register
	recv        uint64 // incoming accumulator
	bitPos      int
	clockHigh   bool
	halfTicks   int
	idleTicks   int
	preloaded   bool
	prevClock   bool
	desyncTicks int
}

// New creates a disabled engine attached to the given port. The engine stays
// idle until a control write sets the enable bit.
func New(port Port, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:  cfg,
		port: port,
		txq:  NewQueue[Word](cfg.QueueDepth),
		rxq:  NewQueue[Word](cfg.QueueDepth),
	}
}

// ID returns the static link identification constant.
func (e *Engine) ID() uint32 { return LinkID }

// Version returns the static link version constant.
func (e *Engine) Version() uint32 { return LinkVersion }

// PushTx queues a word for transmission. If the TX queue is full the word is
// dropped, the sticky txOverflow flag is set, and false is returned.
func (e *Engine) PushTx(w Word) bool {
	if !e.txq.Push(w) {
		e.setFlags(FlagTxOverflow)
		return false
	}
	return true
}

// PopRx dequeues the oldest received word. The second result is false if the
// RX queue is empty.
func (e *Engine) PopRx() (Word, bool) {
	return e.rxq.Pop()
}

// TxSpace returns the number of free TX queue entries.
func (e *Engine) TxSpace() int { return e.txq.Space() }

// RxCount returns the number of received words waiting to be popped.
func (e *Engine) RxCount() int { return e.rxq.Len() }

// setFlags merges sticky error flags (safe from either context).
func (e *Engine) setFlags(f Flags) {
	e.flags.Or(uint32(f))
}

// Tick advances the link context by one system tick. Exactly one goroutine
// may call Tick; Run does so on a real-time ticker, tests and simulators call
// it directly in lock step with a peer engine.
func (e *Engine) Tick() {
	ctl := e.control.Load()
	enabled, role, _ := controlState(ctl)

	// Explicit abort requests (reset/flush) and control transitions that
	// invalidate the in-flight slot apply here, at a tick boundary.
	if e.pending.Swap(0)&opAbort != 0 {
		e.abortSlot(false)
	}
	if ctl != e.linkCtl {
		_, prevRole, _ := controlState(e.linkCtl)
		if !enabled || role != prevRole {
			e.abortSlot(false)
		}
		e.linkCtl = ctl
	}

	// Peer presence decays by one per tick, clamped at zero.
	if e.peerTicks.Load() > 0 {
		if e.peerTicks.Add(-1) < 0 {
			e.peerTicks.Store(0)
		}
	}

	if !enabled {
		return
	}

	switch role {
	case RoleInitiator:
		e.initiatorTick()
	case RoleResponder:
		e.responderTick()
	}
}

// Run drives the link context with a real-time ticker until ctx is done.
func (e *Engine) Run(ctx context.Context, tick time.Duration) error {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			e.Tick()
		}
	}
}

// finishSlot completes a 33-bit exchange: accept the incoming slot, re-arm
// the peer timer, report the exchange, and return to idle.
func (e *Engine) finishSlot() {
	in := UnpackSlot(e.recv)
	overflow := false
	if in.Valid && !e.rxq.Push(in.Word) {
		e.setFlags(FlagRxOverflow)
		overflow = true
	}
	// Any completed exchange proves the peer is clocking slots, so polls and
	// overflowed words refresh liveness too.
	e.peerTicks.Store(int64(e.cfg.PeerTimeout))

	e.emit(Exchange{
		Sent:     e.sentSlot,
		Received: in,
		Overflow: overflow,
		Time:     time.Now(),
	})
	e.clearSlotState()
}

// abortSlot discards any in-flight slot and preloaded output and returns to
// idle. Aborted outgoing words are lost: the transport is best-effort.
func (e *Engine) abortSlot(desync bool) {
	if e.active {
		if desync {
			e.setFlags(FlagDesync)
		}
		e.emit(Exchange{
			Sent:    e.sentSlot,
			Aborted: true,
			Desync:  desync,
			Time:    time.Now(),
		})
	}
	if e.activeRole == RoleInitiator && (e.active || e.clockHigh) {
		e.port.Clock.Set(false)
	}
	e.clearSlotState()
}

// clearSlotState resets all per-slot link-context state and releases the
// data line.
func (e *Engine) clearSlotState() {
	e.active = false
	e.preloaded = false
	e.sending = 0
	e.recv = 0
	e.sentSlot = Slot{}
	e.bitPos = 0
	e.clockHigh = false
	e.halfTicks = 0
	e.idleTicks = 0
	e.desyncTicks = 0
	e.port.Out.Set(false)
}

// emit reports an exchange to the host tap, if one is configured.
func (e *Engine) emit(ev Exchange) {
	if e.cfg.OnExchange != nil {
		e.cfg.OnExchange(ev)
	}
}
