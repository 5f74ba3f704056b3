// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the thread-safe fan-out used to deliver session
// state transitions and definition-change notifications to any number of
// consumers.
//
// A Producer holds the set of open queues; Notify clones the event into
// every one of them. Each consumer owns a Queue and drains it with the
// pop variants. Closing a queue detaches it from the producer, wakes any
// blocked reader, and lets the reader drain whatever was already queued
// before seeing end-of-stream.
package event
