// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package secure implements the secure-session handshake and the
// authenticated encryption used on the action channel.
//
// The backend publishes one or more public-key offers in the session
// descriptor, each an X25519 public key signed with the backend vendor's
// Ed25519 key. The client verifies the signature against its trust
// anchor, runs X25519 key agreement with its own keypair, and derives an
// AES-128-GCM session key by hashing the shared secret with a salt bound
// to the session id and the client's registration name. Actions are then
// sealed with a 12-byte IV and a 12-byte authentication tag.
//
// The first IV of a session comes from crypto/rand; subsequent IVs
// increment little-endian. An IV is consumed per sealed frame, so the
// counter never repeats under one key.
package secure
