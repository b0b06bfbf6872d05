// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/Thermoquad/bifil/pkg/bifil"
	"github.com/spf13/cobra"
)

// Wire sample framing: one byte per simulation tick, both directions
const (
	sampleClockBit = 0x01
	sampleDataBit  = 0x02
)

var (
	bridgeSend     string
	bridgePolls    bool
	bridgeTraceOut string
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge a local link endpoint over a connection",
	Long: `Run one Bifil link endpoint locally and tunnel its wire over a serial
port or WebSocket to a remote peer.

Each simulation tick exchanges one sample byte per direction: bit 0 carries
the clock level, bit 1 the data level. The initiator end paces the link by
writing its sample first; the responder end ticks on each received sample,
so both engines stay in lock step across the tunnel.

The local role comes from the link configuration (--config); the remote end
must run the opposite role. Words given with --send are queued for
transmission at startup, and every word received from the peer is printed
as it arrives.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeSend, "send", "", "Comma-separated hex words to transmit")
	bridgeCmd.Flags().BoolVar(&bridgePolls, "polls", false, "Print poll-only exchanges too")
	bridgeCmd.Flags().StringVar(&bridgeTraceOut, "trace", "", "Write exchanges to a CBOR trace file")
}

// parseWordList parses a comma-separated list of hex words
func parseWordList(s string) ([]bifil.Word, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var words []bifil.Word
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), "0x")
		v, err := strconv.ParseUint(part, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid hex word %q: %w", part, err)
		}
		words = append(words, bifil.Word(v))
	}
	return words, nil
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig()
	if err != nil {
		return err
	}

	words, err := parseWordList(bridgeSend)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var tracer *TraceWriter
	if bridgeTraceOut != "" {
		tracer, err = NewTraceWriter(bridgeTraceOut)
		if err != nil {
			return err
		}
		defer tracer.Close()
	}

	role := cfg.Link.EngineRole()

	stats := bifil.NewStatistics()
	ec := cfg.Link.EngineConfig()
	ec.OnExchange = func(ev bifil.Exchange) {
		stats.Update(ev)
		if tracer != nil {
			tracer.Record(role, ev)
		}
		if ev.Aborted || ev.Overflow || bridgePolls {
			printExchange(role.String(), ev)
		}
	}

	a, b := bifil.NewWire()
	engine := bifil.New(a, ec)
	engine.SetControl(bifil.Control{
		Enable:      true,
		Role:        role,
		PollEnabled: cfg.Link.Poll && role == bifil.RoleInitiator,
	})

	for i, w := range words {
		if !engine.PushTx(w) {
			return fmt.Errorf("TX queue full after %d of %d words", i, len(words))
		}
	}

	fmt.Printf("Bifil - Link Bridge\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Role: %s, %d words queued\n", role, len(words))
	fmt.Printf("Press Ctrl+C to exit\n\n")

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	// localSample captures the wire levels this end is driving
	localSample := func() byte {
		var sample byte
		if a.Clock.Get() {
			sample |= sampleClockBit
		}
		if a.Out.Get() {
			sample |= sampleDataBit
		}
		return sample
	}

	// applyRemote drives the peer's side of the wire from a received sample
	applyRemote := func(sample byte) {
		if role == bifil.RoleResponder {
			b.Clock.Set(sample&sampleClockBit != 0)
		}
		b.Out.Set(sample&sampleDataBit != 0)
	}

	for {
		if role == bifil.RoleInitiator {
			// Initiator paces: tick, publish, then wait for the peer
			engine.Tick()
			if err := writer.WriteByte(localSample()); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			if err := writer.Flush(); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}

			sample, err := reader.ReadByte()
			if err != nil {
				if err == ErrConnectionClosed {
					log.Printf("Connection closed")
					break
				}
				return fmt.Errorf("read failed: %w", err)
			}
			applyRemote(sample)
		} else {
			// Responder ticks on each received sample
			sample, err := reader.ReadByte()
			if err != nil {
				if err == ErrConnectionClosed {
					log.Printf("Connection closed")
					break
				}
				return fmt.Errorf("read failed: %w", err)
			}
			applyRemote(sample)
			engine.Tick()

			if err := writer.WriteByte(localSample()); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			if err := writer.Flush(); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
		}

		for {
			w, ok := engine.PopRx()
			if !ok {
				break
			}
			fmt.Printf("Received word 0x%08X\n", uint32(w))
		}
	}

	stats.CalculateRates()
	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
