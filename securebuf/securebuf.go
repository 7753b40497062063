// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package securebuf provides fixed-length containers for key material.
//
// A Buffer lives in guarded, locked memory allocated by memguard. Destroying
// it overwrites every byte with zero before the pages are released, and the
// wipe cannot be removed by the compiler. Callers should always pair a
// constructor with a deferred Destroy:
//
//	key := securebuf.New(secret)
//	defer key.Destroy()
//
// Buffers that are never destroyed are still wiped once the garbage collector
// finds them unreachable, but that is a backstop, not a substitute.
//
// A Buffer is not safe for concurrent mutation. It may be handed over to
// another goroutine, but reading and writing the same buffer from several
// goroutines needs external synchronization.
package securebuf

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// Buffer is an owned, fixed-length byte region holding key material. It is
// always used by pointer; copying the struct does not copy the secret.
type Buffer struct {
	buf  *memguard.LockedBuffer
	size int
	dead bool
}

// New allocates a buffer of len(data) bytes and copies data into it. The
// source is left untouched and not retained. Data may be nil or empty.
//
// Allocation failure is fatal: memguard wipes all guarded memory and panics.
func New(data []byte) *Buffer {
	b := NewSized(len(data))
	b.buf.Copy(data)
	return b
}

// Move is like New but wipes data after copying it, so the only remaining
// copy of the secret is the guarded one.
func Move(data []byte) *Buffer {
	b := New(data)
	Wipe(data)
	return b
}

// NewSized allocates a zero-filled buffer of n bytes, for algorithms that
// fill their output in place. It panics if n is negative.
func NewSized(n int) *Buffer {
	if n < 0 {
		panic("securebuf: negative buffer size")
	}
	// memguard hands out a null buffer for n == 0, which is exactly the
	// empty container we want.
	return &Buffer{buf: memguard.NewBuffer(n), size: n}
}

// Bytes returns a read/write view of the contents. The view must not be used
// after Destroy, nor retained beyond the buffer's lifetime. Returns nil once
// the buffer is destroyed.
func (b *Buffer) Bytes() []byte {
	if !b.IsAlive() {
		return nil
	}
	return b.buf.Bytes()
}

// Size returns the number of bytes owned, or 0 after Destroy.
func (b *Buffer) Size() int {
	if !b.IsAlive() {
		return 0
	}
	return b.size
}

// IsAlive reports whether the buffer still holds its contents: it was not
// destroyed, and memguard has not wiped it behind our back (memguard.Purge,
// an interrupt caught by memguard.CatchInterrupt).
func (b *Buffer) IsAlive() bool {
	// memguard's zero length buffers always report dead
	return !b.dead && (b.size == 0 || b.buf.IsAlive())
}

// Equal reports whether the contents equal other, in constant time with
// respect to the contents. A destroyed buffer equals nothing.
func (b *Buffer) Equal(other []byte) bool {
	if !b.IsAlive() {
		return false
	}
	return subtle.ConstantTimeCompare(b.Bytes(), other) == 1
}

// Destroy wipes the contents and releases the memory. It is safe to call
// more than once.
func (b *Buffer) Destroy() {
	b.buf.Destroy()
	b.dead = true
}

// Wipe overwrites b with zeros. Use it on transient copies of key material
// that cannot live in a Buffer (hash scratch, decoded arguments).
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
