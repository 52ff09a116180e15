// Package session holds the ephemeral agent key that signs trading actions
// and the nonce stream scoped to it. A session exists from the moment the
// user enables one-click trading until logout, explicit disable, or a
// detected signature failure; the key is treated as opaque material and is
// never logged or persisted.
package session

import (
	"crypto/ecdsa"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSessionExpired is returned when key material is requested from an
// inactive session. Submissions fail closed on it: nothing is transmitted.
var ErrSessionExpired = errors.New("session expired")

// Session is an active signing session. Safe for concurrent use, but
// submissions against one session are serialized through Acquire/Release so
// concurrent order plans cannot interleave their nonce streams.
type Session struct {
	mu     sync.RWMutex
	key    *ecdsa.PrivateKey
	active bool

	address   common.Address
	lastNonce atomic.Uint64
	submitMu  sync.Mutex
}

// New activates a session around an agent key.
func New(key *ecdsa.PrivateKey) (*Session, error) {
	if key == nil {
		return nil, errors.New("agent key is required")
	}
	return &Session{
		key:     key,
		active:  true,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Key returns the agent key, or ErrSessionExpired once the session has been
// deactivated.
func (s *Session) Key() (*ecdsa.PrivateKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active || s.key == nil {
		return nil, ErrSessionExpired
	}
	return s.key, nil
}

// Address is the agent address derived from the key. Valid even after
// deactivation, for logging and correlation.
func (s *Session) Address() common.Address {
	return s.address
}

// Active reports whether the session can still sign.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Deactivate drops the key reference. Called on logout, explicit disable, or
// when the exchange rejects a signature (key presumed stale).
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.key = nil
}

// NextNonce returns a strictly increasing nonce. It starts at the wall clock
// in milliseconds and advances by at least one per call, so ordering holds
// even under clock skew or sub-millisecond issuance.
func (s *Session) NextNonce() uint64 {
	now := uint64(time.Now().UnixMilli())
	for {
		prev := s.lastNonce.Load()
		next := now
		if prev >= next {
			next = prev + 1
		}
		if s.lastNonce.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Acquire takes the session's submission slot. One order plan is in flight
// per session at a time; dependent steps of concurrent plans must never
// interleave.
func (s *Session) Acquire() {
	s.submitMu.Lock()
}

// Release frees the submission slot.
func (s *Session) Release() {
	s.submitMu.Unlock()
}
