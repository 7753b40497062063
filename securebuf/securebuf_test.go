// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package securebuf

import (
	"bytes"
	"testing"

	"github.com/awnumar/memguard"
)

// Tests that New copies the source into independent storage.
func TestNew(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5}
	b := New(src)
	defer b.Destroy()

	if b.Size() != len(src) {
		t.Fatalf("Size() = %d, want %d", b.Size(), len(src))
	}
	if !bytes.Equal(b.Bytes(), src) {
		t.Fatalf("Bytes() = %x, want %x", b.Bytes(), src)
	}
	src[0] = 0xff
	if b.Bytes()[0] != 1 {
		t.Errorf("buffer aliases its source")
	}
	b.Bytes()[1] = 0xee
	if src[1] != 2 {
		t.Errorf("source aliases the buffer")
	}
}

func TestNewEmpty(t *testing.T) {
	for _, src := range [][]byte{nil, {}} {
		b := New(src)
		if b.Size() != 0 || len(b.Bytes()) != 0 {
			t.Errorf("New(%v) size = %d, want 0", src, b.Size())
		}
		if !b.IsAlive() {
			t.Errorf("New(%v) not alive", src)
		}
		if !b.Equal(nil) {
			t.Errorf("empty buffer does not equal empty input")
		}
		b.Destroy()
		b.Destroy()
	}
}

func TestNewSized(t *testing.T) {
	b := NewSized(48)
	defer b.Destroy()

	if b.Size() != 48 {
		t.Fatalf("Size() = %d, want 48", b.Size())
	}
	if !bytes.Equal(b.Bytes(), make([]byte, 48)) {
		t.Errorf("NewSized() not zero filled: %x", b.Bytes())
	}
	copy(b.Bytes(), "in place")
	if !bytes.HasPrefix(b.Bytes(), []byte("in place")) {
		t.Errorf("in place write lost: %x", b.Bytes())
	}
}

func TestNewSizedNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("NewSized(-1) did not panic")
		}
	}()
	NewSized(-1)
}

// Tests that Move wipes the source after taking its copy.
func TestMove(t *testing.T) {
	src := []byte("a secret that must not linger")
	want := append([]byte(nil), src...)

	b := Move(src)
	defer b.Destroy()

	if !b.Equal(want) {
		t.Errorf("Move() = %q, want %q", b.Bytes(), want)
	}
	if !bytes.Equal(src, make([]byte, len(src))) {
		t.Errorf("Move() left source intact: %q", src)
	}
}

// Tests that a destroyed buffer no longer exposes any contents. The guarded
// pages are unmapped after the wipe, so the released memory itself cannot be
// inspected from here.
func TestDestroy(t *testing.T) {
	b := New([]byte{0xde, 0xad, 0xbe, 0xef})
	b.Destroy()

	if b.IsAlive() {
		t.Errorf("IsAlive() = true after Destroy")
	}
	if b.Size() != 0 {
		t.Errorf("Size() = %d after Destroy", b.Size())
	}
	if b.Bytes() != nil {
		t.Errorf("Bytes() = %x after Destroy", b.Bytes())
	}
	for _, other := range [][]byte{{0xde, 0xad, 0xbe, 0xef}, nil, {}} {
		if b.Equal(other) {
			t.Errorf("Equal(%x) matched a destroyed buffer", other)
		}
	}
	b.Destroy()

	empty := New(nil)
	empty.Destroy()
	if empty.Equal(nil) {
		t.Errorf("Equal(nil) matched a destroyed empty buffer")
	}
}

// Tests that buffers wiped by memguard itself report dead instead of looking
// like live empty buffers.
func TestPurge(t *testing.T) {
	b := New([]byte("purged secret"))
	empty := New(nil)
	memguard.Purge()

	if b.IsAlive() {
		t.Errorf("IsAlive() = true after memguard.Purge")
	}
	if b.Size() != 0 || b.Bytes() != nil {
		t.Errorf("purged buffer exposes size %d, bytes %x", b.Size(), b.Bytes())
	}
	if b.Equal(nil) {
		t.Errorf("Equal(nil) matched a purged buffer")
	}
	b.Destroy()

	// Zero length buffers own no memory, so there is nothing to purge
	if !empty.IsAlive() {
		t.Errorf("empty buffer died in memguard.Purge")
	}
	empty.Destroy()
}

// Tests that a destroy deferred on a panicking path still runs.
func TestDestroyOnPanic(t *testing.T) {
	var b *Buffer
	func() {
		defer func() { _ = recover() }()

		b = New([]byte("unwind"))
		defer b.Destroy()
		panic("boom")
	}()
	if b.IsAlive() {
		t.Errorf("buffer survived a panicking scope")
	}
}

func TestEqual(t *testing.T) {
	b := New([]byte("abc"))
	defer b.Destroy()

	tests := []struct {
		other []byte
		want  bool
	}{
		{[]byte("abc"), true},
		{[]byte("abd"), false},
		{[]byte("ab"), false},
		{[]byte("abcd"), false},
		{nil, false},
	}
	for _, tc := range tests {
		if got := b.Equal(tc.other); got != tc.want {
			t.Errorf("Equal(%q) = %v, want %v", tc.other, got, tc.want)
		}
	}
}

func TestWipe(t *testing.T) {
	b := bytes.Repeat([]byte{0xa5}, 100)
	Wipe(b)
	if !bytes.Equal(b, make([]byte, 100)) {
		t.Errorf("Wipe() left data: %x", b)
	}
	Wipe(nil)
}
