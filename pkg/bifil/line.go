// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import "sync/atomic"

// Line models a single wire as an atomically sampled logic level. Writers and
// samplers may live in different goroutines; a Line read always observes a
// whole level, never a torn one.
type Line struct {
	v atomic.Uint32
}

// Set drives the line to the given level.
func (l *Line) Set(high bool) {
	if high {
		l.v.Store(1)
	} else {
		l.v.Store(0)
	}
}

// Get samples the current line level.
func (l *Line) Get() bool {
	return l.v.Load() != 0
}

// Port is one peer's view of the physical link: the shared clock line, the
// data line this peer drives, and the data line driven by the remote peer.
// Clock ownership is determined by role — the initiator drives Clock, the
// responder only samples it.
type Port struct {
	Clock *Line
	Out   *Line
	In    *Line
}

// NewWire creates the three lines of a Bifil link and returns the two peer
// ports, with the data lines crossed so each peer's Out is the other's In.
func NewWire() (a, b Port) {
	clock := new(Line)
	aToB := new(Line)
	bToA := new(Line)
	a = Port{Clock: clock, Out: aToB, In: bToA}
	b = Port{Clock: clock, Out: bToA, In: aToB}
	return a, b
}
