// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/curve25519"

	"github.com/riglink-foundation/riglink/protocol"
)

// MethodName is the wire name of the only supported handshake method,
// sent in the register request's secure_session block.
const MethodName = "x25519-AES128-GCM"

// Sizes of the handshake inputs and the AEAD framing.
const (
	KeySize       = 32 // X25519 public, private, and shared secret
	SignatureSize = ed25519.SignatureSize
	IVSize        = protocol.ActionIVSize
	TagSize       = protocol.ActionTagSize
	aesKeySize    = 16
)

// Handshake failures, surfaced verbatim to the registration caller.
var (
	ErrNotSupported          = errors.New("secure: security method not supported")
	ErrSignatureVerification = errors.New("secure: server key signature verification failed")
	ErrInvalidPublicKey      = errors.New("secure: invalid public key")
	ErrInvalidPrivateKey     = errors.New("secure: invalid private key")
)

// keySalt is appended to the session id in the key derivation salt.
var keySalt = []byte("T_RY")

// GenerateKeypair creates a fresh X25519 keypair for the client side of
// the handshake.
func GenerateKeypair() (publicKey, privateKey []byte, err error) {
	privateKey = make([]byte, KeySize)
	if _, err := rand.Read(privateKey); err != nil {
		return nil, nil, fmt.Errorf("secure: generating private key: %w", err)
	}
	publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("secure: deriving public key: %w", err)
	}
	return publicKey, privateKey, nil
}

// Session holds the negotiated secure-session state: the key agreement
// result after KeyExchange, and the symmetric cipher after DeriveKey.
// Seal is safe for concurrent use.
type Session struct {
	sessionID       uint32
	method          uint16
	sharedSecret    []byte
	clientPublicKey []byte

	mu   sync.Mutex
	aead cipher.AEAD
	iv   [IVSize]byte
	ivOK bool
}

// KeyExchange verifies a public-key offer against the Ed25519 trust
// anchor and runs X25519 key agreement with the client keypair. The
// session id binds the result to the session whose descriptor carried
// the offer; registration rejects a Session built for a different one.
func KeyExchange(offer protocol.PublicKeyOffer, trustAnchor ed25519.PublicKey, sessionID uint32,
	clientPrivateKey, clientPublicKey []byte) (*Session, error) {

	if offer.Method != protocol.SecurityMethodX25519AES128GCM {
		return nil, fmt.Errorf("%w: method %d", ErrNotSupported, offer.Method)
	}
	if len(offer.Key) != KeySize {
		return nil, fmt.Errorf("%w: server key is %d bytes", ErrNotSupported, len(offer.Key))
	}
	if len(clientPrivateKey) != KeySize {
		return nil, ErrInvalidPrivateKey
	}
	if len(clientPublicKey) != KeySize {
		return nil, ErrInvalidPublicKey
	}
	if len(offer.Signature) != SignatureSize {
		return nil, ErrSignatureVerification
	}
	if !ed25519.Verify(trustAnchor, offer.Key, offer.Signature) {
		return nil, ErrSignatureVerification
	}

	sharedSecret, err := curve25519.X25519(clientPrivateKey, offer.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	return &Session{
		sessionID:       sessionID,
		method:          offer.Method,
		sharedSecret:    sharedSecret,
		clientPublicKey: append([]byte(nil), clientPublicKey...),
	}, nil
}

// DeriveSymmetricKey computes the AES-128 session key: the first 16
// bytes of SHA-512 over the salt (session id little-endian plus a fixed
// tag), the registration id name, and the shared secret. The shared
// secret is never used as a key directly.
func DeriveSymmetricKey(sessionID uint32, idName string, sharedSecret []byte) []byte {
	var salt [8]byte
	binary.LittleEndian.PutUint32(salt[0:], sessionID)
	copy(salt[4:], keySalt)

	digest := sha512.New()
	digest.Write(salt[:])
	digest.Write([]byte(idName))
	digest.Write(sharedSecret)
	return digest.Sum(nil)[:aesKeySize]
}

// DeriveKey installs the symmetric cipher for this session, keyed by the
// registration id name the client is about to use.
func (s *Session) DeriveKey(idName string) error {
	key := DeriveSymmetricKey(s.sessionID, idName, s.sharedSecret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("secure: %w", err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return fmt.Errorf("secure: %w", err)
	}

	s.mu.Lock()
	s.aead = aead
	s.mu.Unlock()
	return nil
}

// SessionID returns the session id the handshake was bound to.
func (s *Session) SessionID() uint32 { return s.sessionID }

// ClientPublicKey returns the client's X25519 public key for the
// register request.
func (s *Session) ClientPublicKey() []byte { return s.clientPublicKey }

// Ready reports whether key agreement and key derivation have both
// completed, so frames can be sealed.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aead != nil && len(s.sharedSecret) == KeySize
}

// Seal encrypts plaintext in place and authenticates aad alongside it.
// ivOut receives the IV used (IVSize bytes); the ciphertext plus TagSize
// tag bytes are written over plaintext's storage, which must have
// capacity len(plaintext)+TagSize. Returns the ciphertext-plus-tag
// slice.
func (s *Session) Seal(ivOut, aad, plaintext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aead == nil {
		return nil, fmt.Errorf("secure: session key not derived")
	}
	if err := s.nextIVLocked(); err != nil {
		return nil, err
	}
	copy(ivOut, s.iv[:])
	return s.aead.Seal(plaintext[:0], s.iv[:], plaintext, aad), nil
}

// nextIVLocked draws the first IV from the CSPRNG and increments it
// little-endian for every subsequent frame.
func (s *Session) nextIVLocked() error {
	if !s.ivOK {
		if _, err := rand.Read(s.iv[:]); err != nil {
			return fmt.Errorf("secure: generating IV: %w", err)
		}
		s.ivOK = true
		return nil
	}
	for i := range s.iv {
		s.iv[i]++
		if s.iv[i] != 0 {
			break
		}
	}
	return nil
}
