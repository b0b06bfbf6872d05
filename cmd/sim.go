// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Thermoquad/bifil/pkg/bifil"
	"github.com/spf13/cobra"
)

var (
	simCount    int
	simRandom   bool
	simSeed     int64
	simShowAll  bool
	simMaxTicks int
	simTraceOut string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Exercise a back-to-back link pair",
	Long: `Run an initiator and a responder back to back over a simulated wire.

Both endpoints are loaded with a word burst and ticked in lock step until
every word has been delivered in each direction. Each completed exchange is
validated against the expected sequence, and a statistics summary is printed
at the end.

With --trace, every exchange observed by the initiator is appended to a
CBOR trace file that can be inspected later with the dump command.`,
	RunE: runSim,
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().IntVarP(&simCount, "count", "n", 32, "Words to send in each direction")
	simCmd.Flags().BoolVar(&simRandom, "random", false, "Send random words instead of a counter pattern")
	simCmd.Flags().Int64Var(&simSeed, "seed", 0, "Seed for --random (0 uses current time)")
	simCmd.Flags().BoolVar(&simShowAll, "show-all", false, "Print every completed exchange (including polls)")
	simCmd.Flags().IntVar(&simMaxTicks, "max-ticks", 0, "Abort after this many ticks (0 auto-scales with --count)")
	simCmd.Flags().StringVar(&simTraceOut, "trace", "", "Write initiator-side exchanges to a CBOR trace file")
}

// simPattern builds the word burst for one direction
func simPattern(count int, marker bifil.Word, rng *rand.Rand) []bifil.Word {
	words := make([]bifil.Word, count)
	for i := range words {
		if rng != nil {
			words[i] = bifil.Word(rng.Uint32())
		} else {
			words[i] = marker | bifil.Word(i)
		}
	}
	return words
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig()
	if err != nil {
		return err
	}

	var rng *rand.Rand
	if simRandom {
		seed := simSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		fmt.Printf("Random words, seed %d\n", seed)
		rng = rand.New(rand.NewSource(seed))
	}

	toResponder := simPattern(simCount, 0xA0000000, rng)
	toInitiator := simPattern(simCount, 0xB0000000, rng)

	var tracer *TraceWriter
	if simTraceOut != "" {
		tracer, err = NewTraceWriter(simTraceOut)
		if err != nil {
			return err
		}
		defer tracer.Close()
	}

	stats := bifil.NewStatistics()
	ec := cfg.Link.EngineConfig()
	ec.OnExchange = func(ev bifil.Exchange) {
		stats.Update(ev)
		if tracer != nil {
			tracer.Record(bifil.RoleInitiator, ev)
		}
		if simShowAll || ev.Aborted {
			printExchange("initiator", ev)
		}
	}

	a, b := bifil.NewWire()
	init := bifil.New(a, ec)
	resp := bifil.New(b, cfg.Link.EngineConfig())

	init.SetControl(bifil.Control{Enable: true, Role: bifil.RoleInitiator, PollEnabled: true})
	resp.SetControl(bifil.Control{Enable: true, Role: bifil.RoleResponder})

	fmt.Printf("Bifil - Link Simulation\n")
	fmt.Printf("Link ID 0x%08X, version 0x%08X\n", init.ID(), init.Version())
	fmt.Printf("Sending %d words each way\n\n", simCount)

	// Responder words are committed up front; initiator words are fed as
	// queue space opens
	// Feed through TxSpace so a full queue never trips the sticky
	// TX overflow flag
	sent := 0
	for sent < len(toResponder) && init.TxSpace() > 0 {
		init.PushTx(toResponder[sent])
		sent++
	}
	respSent := 0
	for respSent < len(toInitiator) && resp.TxSpace() > 0 {
		resp.PushTx(toInitiator[respSent])
		respSent++
	}

	maxTicks := simMaxTicks
	if maxTicks == 0 {
		// Worst case: one slot plus the idle gap per word, doubled for margin
		half := ec.ClockHalfPeriod
		if half == 0 {
			half = bifil.DefaultClockHalfPeriod
		}
		gap := ec.IdleGap
		if gap == 0 {
			gap = bifil.DefaultIdleGap
		}
		maxTicks = 2 * (simCount + 4) * (bifil.SlotBits*2*half + gap)
	}

	var gotAtInit, gotAtResp []bifil.Word
	tick := 0
	for ; tick < maxTicks; tick++ {
		init.Tick()
		resp.Tick()

		for sent < len(toResponder) && init.TxSpace() > 0 {
			init.PushTx(toResponder[sent])
			sent++
		}
		for respSent < len(toInitiator) && resp.TxSpace() > 0 {
			resp.PushTx(toInitiator[respSent])
			respSent++
		}
		for {
			w, ok := resp.PopRx()
			if !ok {
				break
			}
			gotAtResp = append(gotAtResp, w)
		}
		for {
			w, ok := init.PopRx()
			if !ok {
				break
			}
			gotAtInit = append(gotAtInit, w)
		}

		if len(gotAtInit) >= len(toInitiator) && len(gotAtResp) >= len(toResponder) {
			break
		}
	}

	stats.CalculateRates()
	fmt.Println()
	fmt.Print(stats.String())
	fmt.Println()

	if err := checkDelivery("initiator -> responder", toResponder, gotAtResp); err != nil {
		return err
	}
	if err := checkDelivery("responder -> initiator", toInitiator, gotAtInit); err != nil {
		return err
	}

	st := init.Status()
	fmt.Printf("Delivered %d words each way in %d ticks\n", simCount, tick)
	fmt.Printf("Peer present: %v, errors: overflow=%v/%v desync=%v\n",
		st.PeerPresent, st.RxOverflow, st.TxOverflow, st.Desync)
	return nil
}

// printExchange prints one completed exchange in raw-log format
func printExchange(side string, ev bifil.Exchange) {
	timestamp := ev.Time.Format("15:04:05.000")
	switch {
	case ev.Aborted && ev.Desync:
		fmt.Printf("[%s] %s: \033[1;31mDESYNC\033[0m slot aborted\n", timestamp, side)
	case ev.Aborted:
		fmt.Printf("[%s] %s: slot aborted\n", timestamp, side)
	case ev.Overflow:
		fmt.Printf("[%s] %s: sent %s, received %s \033[1;33m(dropped, queue full)\033[0m\n",
			timestamp, side, ev.Sent, ev.Received)
	default:
		fmt.Printf("[%s] %s: sent %s, received %s\n", timestamp, side, ev.Sent, ev.Received)
	}
}

// checkDelivery verifies a received word sequence against what was sent
func checkDelivery(direction string, want, got []bifil.Word) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s: delivered %d of %d words", direction, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%s: word %d is 0x%08X, want 0x%08X", direction, i, got[i], want[i])
		}
	}
	fmt.Printf("%s: %d words OK\n", direction, len(want))
	return nil
}
