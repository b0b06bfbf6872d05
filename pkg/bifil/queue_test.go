// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import "testing"

// ============================================================
// Queue Tests
// ============================================================

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue[Word](8)
	words := []Word{0x11, 0x22, 0x33, 0x44}

	for _, w := range words {
		if !q.Push(w) {
			t.Fatalf("Push(0x%X) failed on non-full queue", w)
		}
	}

	for i, want := range words {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d failed on non-empty queue", i)
		}
		if got != want {
			t.Errorf("Pop %d = 0x%X, want 0x%X", i, got, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should fail")
	}
}

func TestQueue_RejectWhenFull(t *testing.T) {
	q := NewQueue[Word](4)
	for i := 0; i < 4; i++ {
		if !q.Push(Word(i)) {
			t.Fatalf("Push %d failed below capacity", i)
		}
	}

	if q.Push(0xDEAD) {
		t.Error("Push on full queue should fail")
	}

	// Contents must be unchanged after the rejected push
	for i := 0; i < 4; i++ {
		got, ok := q.Pop()
		if !ok || got != Word(i) {
			t.Errorf("Pop %d = 0x%X, %v; want 0x%X, true", i, got, ok, i)
		}
	}
}

func TestQueue_Occupancy(t *testing.T) {
	q := NewQueue[Word](4)

	if q.Cap() != 4 {
		t.Errorf("Cap = %d, want 4", q.Cap())
	}
	if !q.Empty() || q.Full() {
		t.Error("new queue should be empty and not full")
	}
	if q.Space() != 4 || q.Len() != 0 {
		t.Errorf("Space/Len = %d/%d, want 4/0", q.Space(), q.Len())
	}

	q.Push(1)
	q.Push(2)
	if q.Space() != 2 || q.Len() != 2 {
		t.Errorf("Space/Len = %d/%d, want 2/2", q.Space(), q.Len())
	}

	q.Push(3)
	q.Push(4)
	if !q.Full() || q.Empty() {
		t.Error("queue at capacity should be full and not empty")
	}
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue[Word](4)
	q.Push(1)
	q.Push(2)

	q.Clear()

	if q.Len() != 0 || !q.Empty() {
		t.Errorf("Len after Clear = %d, want 0", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop after Clear should fail")
	}

	// Cleared queue is reusable
	q.Push(9)
	if got, ok := q.Pop(); !ok || got != 9 {
		t.Errorf("Pop after Clear+Push = 0x%X, %v; want 0x9, true", got, ok)
	}
}

func TestQueue_WrapAround(t *testing.T) {
	q := NewQueue[Word](3)

	// Cycle through the ring several times
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			if !q.Push(Word(round*10 + i)) {
				t.Fatalf("round %d: Push %d failed", round, i)
			}
		}
		for i := 0; i < 3; i++ {
			got, ok := q.Pop()
			want := Word(round*10 + i)
			if !ok || got != want {
				t.Fatalf("round %d: Pop = %d, %v; want %d, true", round, got, ok, want)
			}
		}
	}
}

func TestQueue_DefaultCapacity(t *testing.T) {
	q := NewQueue[Word](0)
	if q.Cap() != DefaultQueueDepth {
		t.Errorf("Cap = %d, want %d", q.Cap(), DefaultQueueDepth)
	}
}
