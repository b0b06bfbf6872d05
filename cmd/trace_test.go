// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/bifil/pkg/bifil"
)

func TestTraceWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.trace")

	w, err := NewTraceWriter(path)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}

	events := []bifil.Exchange{
		{
			Sent:     bifil.Slot{Valid: true, Word: 0xDEADBEEF},
			Received: bifil.Slot{},
			Time:     time.Now(),
		},
		{
			Sent:     bifil.Slot{},
			Received: bifil.Slot{Valid: true, Word: 0x12345678},
			Overflow: true,
			Time:     time.Now(),
		},
		{
			Aborted: true,
			Desync:  true,
			Time:    time.Now(),
		},
	}
	for _, ev := range events {
		if err := w.Record(bifil.RoleInitiator, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()

	records, err := ReadTrace(f)
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if len(records) != len(events) {
		t.Fatalf("decoded %d records, want %d", len(records), len(events))
	}

	for i, rec := range records {
		if rec.Seq != uint64(i) {
			t.Errorf("record %d: seq = %d", i, rec.Seq)
		}
		if rec.Role != "initiator" {
			t.Errorf("record %d: role = %q", i, rec.Role)
		}
	}

	if !records[0].SentValid || records[0].SentWord != 0xDEADBEEF {
		t.Errorf("record 0 sent slot wrong: %+v", records[0])
	}
	if records[0].RecvValid {
		t.Errorf("record 0 should have received a poll: %+v", records[0])
	}
	if !records[1].Overflow || records[1].RecvWord != 0x12345678 {
		t.Errorf("record 1 overflow slot wrong: %+v", records[1])
	}
	if !records[2].Aborted || !records[2].Desync {
		t.Errorf("record 2 should be a desync abort: %+v", records[2])
	}
}

func TestFormatTraceRecord(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 45, 250_000_000, time.UTC)

	tests := []struct {
		name string
		rec  TraceRecord
		want []string
	}{
		{
			name: "word exchange",
			rec: TraceRecord{
				Seq: 7, Time: at, Role: "initiator",
				SentValid: true, SentWord: 0xCAFE0001,
			},
			want: []string{"#7", "initiator", "sent word 0xCAFE0001", "received poll"},
		},
		{
			name: "desync abort",
			rec: TraceRecord{
				Seq: 8, Time: at, Role: "responder",
				Aborted: true, Desync: true,
			},
			want: []string{"#8", "responder", "DESYNC"},
		},
		{
			name: "overflow drop",
			rec: TraceRecord{
				Seq: 9, Time: at, Role: "responder",
				RecvValid: true, RecvWord: 0x0000BEEF, Overflow: true,
			},
			want: []string{"received word 0x0000BEEF", "dropped, queue full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatTraceRecord(tt.rec)
			if !strings.Contains(out, "12:30:45.250") {
				t.Errorf("missing timestamp: %q", out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q in %q", want, out)
				}
			}
		})
	}
}

func TestParseWordList(t *testing.T) {
	words, err := parseWordList("DEADBEEF, 0x1234, ff")
	if err != nil {
		t.Fatalf("parseWordList: %v", err)
	}
	want := []bifil.Word{0xDEADBEEF, 0x1234, 0xFF}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, words[i], want[i])
		}
	}

	if _, err := parseWordList("nothex"); err == nil {
		t.Error("expected error for non-hex input")
	}
	if _, err := parseWordList("1FFFFFFFF"); err == nil {
		t.Error("expected error for word wider than 32 bits")
	}

	words, err = parseWordList("  ")
	if err != nil || words != nil {
		t.Errorf("blank list should be empty, got %v, %v", words, err)
	}
}
