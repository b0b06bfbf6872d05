// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import (
	"strings"
	"testing"
)

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()

	s.Update(Exchange{Sent: Slot{Valid: true, Word: 1}, Received: Slot{Valid: true, Word: 2}})
	s.Update(Exchange{Received: Slot{}})
	s.Update(Exchange{Received: Slot{Valid: true, Word: 3}, Overflow: true})
	s.Update(Exchange{Aborted: true, Desync: true})
	s.Update(Exchange{Aborted: true})
	s.RecordTxOverflow()

	if s.TotalExchanges != 5 {
		t.Errorf("TotalExchanges = %d, want 5", s.TotalExchanges)
	}
	if s.ValidWords != 2 {
		t.Errorf("ValidWords = %d, want 2", s.ValidWords)
	}
	if s.PollSlots != 1 {
		t.Errorf("PollSlots = %d, want 1", s.PollSlots)
	}
	if s.RxOverflows != 1 {
		t.Errorf("RxOverflows = %d, want 1", s.RxOverflows)
	}
	if s.TxOverflows != 1 {
		t.Errorf("TxOverflows = %d, want 1", s.TxOverflows)
	}
	if s.Desyncs != 1 {
		t.Errorf("Desyncs = %d, want 1", s.Desyncs)
	}
	if s.Aborted != 2 {
		t.Errorf("Aborted = %d, want 2", s.Aborted)
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.Update(Exchange{Received: Slot{Valid: true, Word: 1}})
	s.Update(Exchange{Aborted: true, Desync: true})

	out := s.String()
	for _, want := range []string{"Total Exchanges", "Valid Words", "Desyncs", "Exchange Rate"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update(Exchange{Received: Slot{Valid: true, Word: 1}})
	s.RecordTxOverflow()
	s.CalculateRates()

	s.Reset()

	if s.TotalExchanges != 0 || s.ValidWords != 0 || s.TxOverflows != 0 {
		t.Errorf("counters not cleared: %+v", s)
	}
	if s.ExchangeRate != 0 || s.WordRate != 0 {
		t.Errorf("rates not cleared: %+v", s)
	}
}
