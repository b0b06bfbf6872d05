// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import (
	"fmt"
	"time"
)

// Statistics tracks slot exchange counts and error rates for host tooling.
// It is not safe for concurrent use; feed it from a single goroutine.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalExchanges uint64
	ValidWords     uint64
	PollSlots      uint64
	RxOverflows    uint64
	TxOverflows    uint64
	Desyncs        uint64
	Aborted        uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	WordRate     float64 // valid words/sec
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one observed exchange.
func (s *Statistics) Update(ev Exchange) {
	s.TotalExchanges++

	if ev.Aborted {
		s.Aborted++
		if ev.Desync {
			s.Desyncs++
		}
		return
	}

	if ev.Received.Valid {
		s.ValidWords++
	} else {
		s.PollSlots++
	}
	if ev.Overflow {
		s.RxOverflows++
	}

	s.LastUpdateTime = time.Now()
}

// RecordTxOverflow records a host push rejected by a full TX queue. TX
// overflows happen in the host context and never surface as exchanges.
func (s *Statistics) RecordTxOverflow() {
	s.TxOverflows++
}

// CalculateRates calculates exchange and word rates.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.TotalExchanges) / elapsed
		s.WordRate = float64(s.ValidWords) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Exchanges: %8d\n", s.TotalExchanges)
	result += fmt.Sprintf("Valid Words:     %8d\n", s.ValidWords)
	result += fmt.Sprintf("Poll Slots:      %8d\n", s.PollSlots)

	if s.RxOverflows > 0 {
		result += fmt.Sprintf("RX Overflows:    %8d\n", s.RxOverflows)
	}
	if s.TxOverflows > 0 {
		result += fmt.Sprintf("TX Overflows:    %8d\n", s.TxOverflows)
	}
	if s.Desyncs > 0 {
		result += fmt.Sprintf("Desyncs:         %8d\n", s.Desyncs)
	}
	if s.Aborted > 0 {
		result += fmt.Sprintf("Aborted Slots:   %8d\n", s.Aborted)
	}

	result += fmt.Sprintf("Exchange Rate:   %8.1f slots/sec\n", s.ExchangeRate)
	result += fmt.Sprintf("Word Rate:       %8.1f words/sec\n", s.WordRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters.
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalExchanges = 0
	s.ValidWords = 0
	s.PollSlots = 0
	s.RxOverflows = 0
	s.TxOverflows = 0
	s.Desyncs = 0
	s.Aborted = 0
	s.ExchangeRate = 0
	s.WordRate = 0
}
