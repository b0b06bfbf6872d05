// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/bifil/pkg/bifil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	monitorTickHz int
	monitorEcho   bool
	monitorTrace  string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for a simulated link pair",
	Long: `Monitor and drive a simulated Bifil link pair in an interactive
terminal UI.

An initiator and a responder run back to back over a simulated wire at the
configured tick rate. The UI shows live status and statistics for both
endpoints, an event log, and an input field for transmitting words.

Keys:
  enter    transmit the entered hex word from the initiator
  ctrl+p   toggle idle polling
  ctrl+r   soft reset both endpoints
  ctrl+e   clear sticky error flags
  ctrl+f   inject a fault (freeze the initiator mid-slot)
  q        quit

With --echo, words delivered to the responder are sent straight back.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorTickHz, "tick-hz", 20000, "Simulation ticks per second")
	monitorCmd.Flags().BoolVar(&monitorEcho, "echo", true, "Responder echoes received words back")
	monitorCmd.Flags().StringVar(&monitorTrace, "trace", "", "Write initiator-side exchanges to a CBOR trace file")
}

// linkRunner owns the simulated wire and ticks both engines in lock step.
// The TUI talks to the engines directly (SetControl, PushTx, Status are
// host-safe); the runner only ticks, drains receive queues, and batches
// events for the UI.
type linkRunner struct {
	init *bifil.Engine
	resp *bifil.Engine

	// Fault injection: initiator ticks to skip
	freezeTicks atomic.Int64

	events chan monitorEvent
	p      *tea.Program
	done   chan struct{}
	tracer *TraceWriter
}

type monitorEvent struct {
	exchange  *bifil.Exchange
	delivered *bifil.Word // word drained from the responder's receive queue
	echoed    *bifil.Word // word drained from the initiator's receive queue
}

func newLinkRunner(cfg *ToolConfig, tracer *TraceWriter) *linkRunner {
	r := &linkRunner{
		events: make(chan monitorEvent, 256),
		done:   make(chan struct{}),
		tracer: tracer,
	}

	ec := cfg.Link.EngineConfig()
	ec.OnExchange = func(ev bifil.Exchange) {
		if r.tracer != nil {
			r.tracer.Record(bifil.RoleInitiator, ev)
		}
		e := ev
		select {
		case r.events <- monitorEvent{exchange: &e}:
		default:
		}
	}

	a, b := bifil.NewWire()
	r.init = bifil.New(a, ec)
	r.resp = bifil.New(b, cfg.Link.EngineConfig())

	r.init.SetControl(bifil.Control{Enable: true, Role: bifil.RoleInitiator, PollEnabled: cfg.Link.Poll})
	r.resp.SetControl(bifil.Control{Enable: true, Role: bifil.RoleResponder})

	return r
}

// injectFault freezes the initiator long enough to trip the responder's
// desync watchdog
func (r *linkRunner) injectFault() {
	r.freezeTicks.Store(int64(4 * bifil.DefaultDesyncBitPeriods * bifil.SlotBits))
}

// tickLoop runs the simulation until the done channel closes
func (r *linkRunner) tickLoop() {
	// Tick in bursts so high rates don't need a sub-millisecond timer
	const step = 10 * time.Millisecond
	perStep := monitorTickHz / 100
	if perStep < 1 {
		perStep = 1
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
		}

		for i := 0; i < perStep; i++ {
			if r.freezeTicks.Load() > 0 {
				r.freezeTicks.Add(-1)
			} else {
				r.init.Tick()
			}
			r.resp.Tick()
		}

		for {
			w, ok := r.resp.PopRx()
			if !ok {
				break
			}
			if monitorEcho {
				r.resp.PushTx(w)
			}
			word := w
			select {
			case r.events <- monitorEvent{delivered: &word}:
			default:
			}
		}
		for {
			w, ok := r.init.PopRx()
			if !ok {
				break
			}
			word := w
			select {
			case r.events <- monitorEvent{echoed: &word}:
			default:
			}
		}
	}
}

// batchLoop forwards pending events to the TUI at a fixed rate
func (r *linkRunner) batchLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			var batch monitorBatchMsg
		drainLoop:
			for {
				select {
				case ev := <-r.events:
					batch.events = append(batch.events, ev)
				default:
					break drainLoop
				}
			}
			if len(batch.events) > 0 {
				r.p.Send(batch)
			}
		}
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig()
	if err != nil {
		return err
	}

	var tracer *TraceWriter
	if monitorTrace != "" {
		tracer, err = NewTraceWriter(monitorTrace)
		if err != nil {
			return err
		}
		defer tracer.Close()
	}

	r := newLinkRunner(cfg, tracer)

	m := initialMonitorModel(r, cfg.Link.Poll)
	p := tea.NewProgram(m, tea.WithAltScreen())
	r.p = p

	go r.tickLoop()
	go r.batchLoop()

	if _, err := p.Run(); err != nil {
		close(r.done)
		return fmt.Errorf("TUI error: %v", err)
	}

	close(r.done)
	return nil
}
