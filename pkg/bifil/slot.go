// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import "fmt"

// Word is the opaque 32-bit payload exchanged over the link. The engine never
// interprets it; framing of word streams belongs to higher layers.
type Word uint32

// Slot is one 33-bit exchange unit: a validity bit plus a word. Slots exist
// only for the duration of a single exchange and are never persisted. A slot
// with Valid=false is an idle poll that refreshes peer liveness without
// consuming queue space.
type Slot struct {
	Valid bool
	Word  Word
}

// Pack encodes the slot into its 33-bit wire representation. Bit 32 is the
// validity bit, bits 31..0 are the word.
func (s Slot) Pack() uint64 {
	v := uint64(s.Word)
	if s.Valid {
		v |= validBit
	}
	return v
}

// UnpackSlot decodes a 33-bit wire value back into a slot. Bits above the
// slot width are ignored.
func UnpackSlot(v uint64) Slot {
	return Slot{
		Valid: v&validBit != 0,
		Word:  Word(v & 0xFFFFFFFF),
	}
}

// String formats the slot for diagnostics.
func (s Slot) String() string {
	if !s.Valid {
		return "poll"
	}
	return fmt.Sprintf("word 0x%08X", uint32(s.Word))
}

// slotBit returns bit number pos of a packed slot in transmission order:
// pos 0 is the validity bit (MSB), pos 32 is the least significant word bit.
func slotBit(packed uint64, pos int) bool {
	return packed&(uint64(1)<<(SlotBits-1-pos)) != 0
}

// shiftIn appends one received bit to an MSB-first accumulator.
func shiftIn(acc uint64, bit bool) uint64 {
	acc <<= 1
	if bit {
		acc |= 1
	}
	return acc & slotMask
}
