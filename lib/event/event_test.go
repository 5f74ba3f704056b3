// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"testing"
	"time"
)

func TestNotifyReachesEveryQueue(t *testing.T) {
	producer := NewProducer[int]()
	first := producer.NewQueue()
	second := producer.NewQueue()

	producer.Notify(7)

	if got, ok := first.TryPop(); !ok || got != 7 {
		t.Errorf("first queue: got %d, %v", got, ok)
	}
	if got, ok := second.TryPop(); !ok || got != 7 {
		t.Errorf("second queue: got %d, %v", got, ok)
	}
}

func TestTryPopEmpty(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()
	if _, ok := queue.TryPop(); ok {
		t.Error("TryPop on empty queue returned an event")
	}
}

func TestInitialEventPrecedesNotify(t *testing.T) {
	producer := NewProducer[string]()
	queue := producer.NewQueue("initial")
	producer.Notify("later")

	if got, _ := queue.Pop(); got != "initial" {
		t.Errorf("first pop = %q, want initial", got)
	}
	if got, _ := queue.Pop(); got != "later" {
		t.Errorf("second pop = %q, want later", got)
	}
}

func TestCloseWakesBlockedPop(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := queue.Pop()
		done <- ok
	}()

	// Give the reader time to block, then close underneath it.
	time.Sleep(10 * time.Millisecond)
	queue.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop returned an event from a closed empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Close")
	}
}

func TestCloseDrainsRemainingEvents(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()
	producer.Notify(1)
	producer.Notify(2)
	queue.Close()

	if got, ok := queue.Pop(); !ok || got != 1 {
		t.Errorf("pop after close = %d, %v; want 1, true", got, ok)
	}
	if got, ok := queue.Pop(); !ok || got != 2 {
		t.Errorf("pop after close = %d, %v; want 2, true", got, ok)
	}
	if _, ok := queue.Pop(); ok {
		t.Error("drained closed queue still returned an event")
	}
}

func TestClosedQueueDropsNewEvents(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()
	queue.Close()
	producer.Notify(9)

	if _, ok := queue.TryPop(); ok {
		t.Error("closed queue received an event")
	}
}

func TestTryPopForTimesOut(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()

	start := time.Now()
	if _, ok := queue.TryPopFor(20 * time.Millisecond); ok {
		t.Error("TryPopFor returned an event from an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("TryPopFor returned after %v, expected to wait", elapsed)
	}
}

func TestTryPopForDeliversLateEvent(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		producer.Notify(42)
	}()

	if got, ok := queue.TryPopFor(time.Second); !ok || got != 42 {
		t.Errorf("TryPopFor = %d, %v; want 42, true", got, ok)
	}
}

func TestProducerCloseClosesQueues(t *testing.T) {
	producer := NewProducer[int]()
	queue := producer.NewQueue()
	producer.Close()

	if _, ok := queue.Pop(); ok {
		t.Error("queue still open after producer close")
	}
}
