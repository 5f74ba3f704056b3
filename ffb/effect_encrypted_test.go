// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package ffb

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"math"
	"testing"

	"golang.org/x/crypto/curve25519"

	"github.com/riglink-foundation/riglink/action"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/secure"
)

// memoryTransport collects datagrams without a socket.
type memoryTransport struct {
	sent [][]byte
}

func (m *memoryTransport) ControllerID() uint16 { return 9 }

func (m *memoryTransport) SendDatagram(d []byte) action.Status {
	m.sent = append(m.sent, bytes.Clone(d))
	return action.StatusComplete
}

func (m *memoryTransport) SendDatagramBlocking(d []byte) action.Status { return m.SendDatagram(d) }

func (m *memoryTransport) SendDatagramAsync(d []byte, r *action.AsyncResult) {
	r.Store(m.SendDatagram(d))
}

func TestEncryptedEffectFrame(t *testing.T) {
	// Stand up both ends of the handshake.
	serverPublic, serverPrivate, err := secure.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	anchor, anchorPrivate, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	clientPublic, clientPrivate, err := secure.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	offer := protocol.PublicKeyOffer{
		Method:    protocol.SecurityMethodX25519AES128GCM,
		Key:       serverPublic,
		Signature: ed25519.Sign(anchorPrivate, serverPublic),
	}
	sec, err := secure.KeyExchange(offer, anchor, 31, clientPrivate, clientPublic)
	if err != nil {
		t.Fatal(err)
	}
	if err := sec.DeriveKey("enc-test"); err != nil {
		t.Fatal(err)
	}

	transport := &memoryTransport{}
	builder := action.NewBuilder(transport)
	samples := []float32{0.25, -0.25, 0.5}
	if !buildEffectAction(builder, sec, 2, 4, 1000, 500, samples) {
		t.Fatal("buildEffectAction failed")
	}
	if builder.SendNonBlocking() != action.StatusComplete {
		t.Fatal("send failed")
	}
	frame := transport.sent[0]

	header, _ := protocol.ParseActionHeader(frame)
	if header.Flags&protocol.ActionFlagEncrypted == 0 {
		t.Fatal("encrypted flag missing")
	}

	// Layout: header, IV, AAD, device, ciphertext (enc header + padded
	// samples), tag. Three f32 samples pad to 16 bytes.
	const paddedSamples = 16
	wantSize := protocol.ActionHeaderSize + protocol.ActionIVSize + protocol.EffectAADSize +
		deviceFieldSize + protocol.EffectEncHeaderSize + paddedSamples + protocol.ActionTagSize
	if len(frame) != wantSize || int(header.Size) != wantSize {
		t.Fatalf("frame size = %d (header %d), want %d", len(frame), header.Size, wantSize)
	}

	payload := frame[protocol.ActionHeaderSize:]
	iv := payload[:protocol.ActionIVSize]
	aad := payload[protocol.ActionIVSize : protocol.ActionIVSize+protocol.EffectAADSize]
	if aad[0] != 2 {
		t.Errorf("pipeline index = %d", aad[0])
	}
	deviceOffset := protocol.ActionIVSize + protocol.EffectAADSize
	if device := binary.LittleEndian.Uint16(payload[deviceOffset:]); device != 4 {
		t.Errorf("device = %d", device)
	}

	// Decrypt like the device would: derive the same key from the
	// server's view of the shared secret.
	sharedSecret, err := curve25519.X25519(serverPrivate, clientPublic)
	if err != nil {
		t.Fatal(err)
	}
	key := secure.DeriveSymmetricKey(31, "enc-test", sharedSecret)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, secure.TagSize)
	if err != nil {
		t.Fatal(err)
	}

	ciphertext := payload[deviceOffset+deviceFieldSize:]
	plaintext, err := aead.Open(nil, iv, ciphertext, aad)
	if err != nil {
		t.Fatalf("device-side decrypt failed: %v", err)
	}

	if plaintext[0] != protocol.SampleFormatF32 {
		t.Errorf("sample format = %d", plaintext[0])
	}
	if count := binary.LittleEndian.Uint16(plaintext[2:]); count != 2 {
		t.Errorf("sample_count_minus_1 = %d", count)
	}
	for i, want := range samples {
		got := math.Float32frombits(binary.LittleEndian.Uint32(plaintext[protocol.EffectEncHeaderSize+4*i:]))
		if got != want {
			t.Errorf("sample[%d] = %v, want %v", i, got, want)
		}
	}
}
