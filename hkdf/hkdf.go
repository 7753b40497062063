// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hkdf provides HKDF-SHA256 key derivation.
//
// https://datatracker.ietf.org/doc/html/rfc5869
//
// Extract and Expand are exposed as separate steps so a single pseudorandom
// key can feed several expansions. All key material, inputs and outputs, is
// held in securebuf buffers; the caller owns every returned buffer and must
// Destroy it.
//
// Every function in this package is pure and safe for concurrent use.
package hkdf

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"github.com/dark-bio/hkdf-go/securebuf"
)

const (
	// Size is the size of a pseudorandom key (and of one HMAC-SHA256 block)
	// in bytes.
	Size = sha256.Size

	// MaxOutputSize is the largest OKM Expand can produce: the block counter
	// is a single octet, so at most 255 blocks.
	MaxOutputSize = 255 * Size
)

// Error types for HKDF operations
var (
	ErrOutputTooLong  = errors.New("hkdf: output length too long")
	ErrNegativeLength = errors.New("hkdf: negative output length")
)

// Optional is a byte string that is either present (possibly empty) or
// absent. The zero value is absent.
type Optional struct {
	data    []byte
	present bool
}

// Some returns a present byte string. A nil or empty b is present and empty.
func Some(b []byte) Optional {
	return Optional{data: b, present: true}
}

// None returns an absent byte string.
func None() Optional {
	return Optional{}
}

// Present reports whether the byte string was supplied.
func (o Optional) Present() bool {
	return o.present
}

// Bytes returns the byte string, nil if absent.
func (o Optional) Bytes() []byte {
	return o.data
}

// Extract condenses the input keying material into a 32 byte pseudorandom
// key: PRK = HMAC-SHA256(salt, ikm). An absent salt is replaced by Size zero
// bytes.
//
// Panics if ikm was already destroyed.
func Extract(salt Optional, ikm *securebuf.Buffer) *securebuf.Buffer {
	if !ikm.IsAlive() {
		panic("hkdf: input keying material already destroyed")
	}
	key := salt.Bytes()
	if !salt.Present() {
		key = make([]byte, Size)
	}
	h := hmac.New(sha256.New, key)
	h.Write(ikm.Bytes())

	var sum [Size]byte
	defer securebuf.Wipe(sum[:])
	h.Sum(sum[:0])

	return securebuf.New(sum[:])
}

// Expand stretches the pseudorandom key into n bytes of output keying
// material, bound to the optional info context:
//
//	T(0) = empty
//	T(i) = HMAC-SHA256(prk, T(i-1) || info || i)
//	OKM  = first n bytes of T(1) || T(2) || ...
//
// An absent info is the empty string. Asking for zero bytes returns an empty
// buffer without hashing anything. Lengths above MaxOutputSize are rejected
// with ErrOutputTooLong before any work is done. The prk is not modified.
//
// Panics if prk was already destroyed.
func Expand(prk *securebuf.Buffer, info Optional, n int) (*securebuf.Buffer, error) {
	if err := checkLength(n); err != nil {
		return nil, err
	}
	if !prk.IsAlive() {
		panic("hkdf: pseudorandom key already destroyed")
	}
	okm := securebuf.NewSized(n)
	if n == 0 {
		return okm, nil
	}
	// crypto/hmac keeps its padded copies of the key in ordinary heap memory,
	// out of reach of any wipe.
	h := hmac.New(sha256.New, prk.Bytes())

	var t [Size]byte
	defer securebuf.Wipe(t[:])

	out := okm.Bytes()
	for i := 1; len(out) > 0; i++ {
		h.Reset()
		if i > 1 {
			h.Write(t[:])
		}
		h.Write(info.Bytes())
		h.Write([]byte{byte(i)})
		h.Sum(t[:0])

		out = out[copy(out, t[:]):]
	}
	return okm, nil
}

// Key derives n bytes from the secret, salt, and info in one shot. The salt
// and info may be nil or empty, both meaning absent. Intermediate key
// material is destroyed before returning.
//
// Returns ErrOutputTooLong if n exceeds MaxOutputSize.
func Key(secret, salt, info []byte, n int) (*securebuf.Buffer, error) {
	if err := checkLength(n); err != nil {
		return nil, err
	}
	ikm := securebuf.New(secret)
	defer ikm.Destroy()

	prk := Extract(optional(salt), ikm)
	defer prk.Destroy()

	return Expand(prk, optional(info), n)
}

func checkLength(n int) error {
	switch {
	case n < 0:
		return ErrNegativeLength
	case n > MaxOutputSize:
		return ErrOutputTooLong
	}
	return nil
}

func optional(b []byte) Optional {
	if len(b) == 0 {
		return None()
	}
	return Some(b)
}
