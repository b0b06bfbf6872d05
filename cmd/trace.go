// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/Thermoquad/bifil/pkg/bifil"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

// TraceRecord is one captured exchange as stored in a trace file.
// Records are appended as a plain CBOR stream, one map per exchange.
type TraceRecord struct {
	Seq       uint64    `cbor:"seq"`
	Time      time.Time `cbor:"time"`
	Role      string    `cbor:"role"`
	SentValid bool      `cbor:"sent_valid"`
	SentWord  uint32    `cbor:"sent_word"`
	RecvValid bool      `cbor:"recv_valid"`
	RecvWord  uint32    `cbor:"recv_word"`
	Aborted   bool      `cbor:"aborted,omitempty"`
	Desync    bool      `cbor:"desync,omitempty"`
	Overflow  bool      `cbor:"overflow,omitempty"`
}

// NewTraceRecord converts an engine exchange event into a trace record
func NewTraceRecord(seq uint64, role bifil.Role, ev bifil.Exchange) TraceRecord {
	return TraceRecord{
		Seq:       seq,
		Time:      ev.Time,
		Role:      role.String(),
		SentValid: ev.Sent.Valid,
		SentWord:  uint32(ev.Sent.Word),
		RecvValid: ev.Received.Valid,
		RecvWord:  uint32(ev.Received.Word),
		Aborted:   ev.Aborted,
		Desync:    ev.Desync,
		Overflow:  ev.Overflow,
	}
}

// FormatTraceRecord renders one record the way raw exchange logging does
func FormatTraceRecord(r TraceRecord) string {
	timestamp := r.Time.Format("15:04:05.000")

	slot := func(valid bool, word uint32) string {
		if !valid {
			return "poll"
		}
		return fmt.Sprintf("word 0x%08X", word)
	}

	switch {
	case r.Aborted && r.Desync:
		return fmt.Sprintf("[%s] #%d %s: DESYNC slot aborted\n", timestamp, r.Seq, r.Role)
	case r.Aborted:
		return fmt.Sprintf("[%s] #%d %s: slot aborted\n", timestamp, r.Seq, r.Role)
	case r.Overflow:
		return fmt.Sprintf("[%s] #%d %s: sent %s, received %s (dropped, queue full)\n",
			timestamp, r.Seq, r.Role, slot(r.SentValid, r.SentWord), slot(r.RecvValid, r.RecvWord))
	default:
		return fmt.Sprintf("[%s] #%d %s: sent %s, received %s\n",
			timestamp, r.Seq, r.Role, slot(r.SentValid, r.SentWord), slot(r.RecvValid, r.RecvWord))
	}
}

// TraceWriter appends exchange records to a CBOR trace file
type TraceWriter struct {
	f   *os.File
	enc *cbor.Encoder
	seq uint64
}

// NewTraceWriter creates (or truncates) a trace file
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file %s: %w", path, err)
	}
	return &TraceWriter{f: f, enc: cbor.NewEncoder(f)}, nil
}

// Record appends one exchange to the trace
func (w *TraceWriter) Record(role bifil.Role, ev bifil.Exchange) error {
	rec := NewTraceRecord(w.seq, role, ev)
	w.seq++
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode trace record: %w", err)
	}
	return nil
}

func (w *TraceWriter) Close() error {
	return w.f.Close()
}

// ReadTrace decodes every record from a CBOR trace stream
func ReadTrace(r io.Reader) ([]TraceRecord, error) {
	dec := cbor.NewDecoder(r)
	var records []TraceRecord
	for {
		var rec TraceRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("failed to decode trace record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

var (
	traceCount int
	traceSeed  int64
)

var traceCmd = &cobra.Command{
	Use:   "trace <output-file>",
	Short: "Capture a simulated link session to a CBOR trace file",
	Long: `Run a back-to-back link pair with idle polling enabled, feed it random
words, and record every exchange the initiator observes as CBOR records.

The capture stops once the requested number of exchanges has completed.
Inspect the result with the dump command.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().IntVarP(&traceCount, "count", "n", 1000, "Exchanges to capture")
	traceCmd.Flags().Int64Var(&traceSeed, "seed", 0, "Word stream seed (0 uses current time)")
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig()
	if err != nil {
		return err
	}

	tracer, err := NewTraceWriter(args[0])
	if err != nil {
		return err
	}
	defer tracer.Close()

	seed := traceSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	captured := 0
	ec := cfg.Link.EngineConfig()
	ec.OnExchange = func(ev bifil.Exchange) {
		tracer.Record(bifil.RoleInitiator, ev)
		captured++
	}

	a, b := bifil.NewWire()
	init := bifil.New(a, ec)
	resp := bifil.New(b, cfg.Link.EngineConfig())

	init.SetControl(bifil.Control{Enable: true, Role: bifil.RoleInitiator, PollEnabled: true})
	resp.SetControl(bifil.Control{Enable: true, Role: bifil.RoleResponder})

	fmt.Printf("Capturing %d exchanges to %s (seed %d)\n", traceCount, args[0], seed)

	for captured < traceCount {
		// Keep a steady trickle of words flowing in both directions
		if rng.Intn(4) == 0 && init.TxSpace() > 0 {
			init.PushTx(bifil.Word(rng.Uint32()))
		}
		if rng.Intn(4) == 0 && resp.TxSpace() > 0 {
			resp.PushTx(bifil.Word(rng.Uint32()))
		}

		init.Tick()
		resp.Tick()

		init.PopRx()
		resp.PopRx()
	}

	fmt.Printf("Captured %d exchanges\n", captured)
	return nil
}

var (
	dumpPollSlots bool
	dumpErrorsTop bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <trace-file>",
	Short: "Display a captured trace file in human-readable format",
	Long: `Decode a CBOR trace file written by sim --trace or monitor and print
each exchange with timestamp, role, and slot contents.

Poll slots are hidden by default since idle links produce a lot of them;
use --polls to include them.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpPollSlots, "polls", false, "Include poll-only exchanges")
	dumpCmd.Flags().BoolVar(&dumpErrorsTop, "errors-only", false, "Show only aborted or overflowed exchanges")
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open trace file %s: %w", args[0], err)
	}
	defer f.Close()

	records, err := ReadTrace(f)
	if err != nil {
		return err
	}

	shown := 0
	for _, rec := range records {
		hasError := rec.Aborted || rec.Overflow
		if dumpErrorsTop && !hasError {
			continue
		}
		if !dumpPollSlots && !hasError && !rec.SentValid && !rec.RecvValid {
			continue
		}
		fmt.Print(FormatTraceRecord(rec))
		shown++
	}

	fmt.Printf("\n%d exchanges shown (%d in trace)\n", shown, len(records))
	return nil
}
