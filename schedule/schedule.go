// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schedule derives sets of named, independent subkeys from a single
// HKDF pseudorandom key.
//
// Each subkey is expanded with its own info string, the deterministic CBOR
// encoding of the array
//
//	[domain: tstr, label: tstr, size: uint]
//
// which binds every key to the application domain, its name and its length.
// Two requests differing in any of the three never share output.
//
// https://datatracker.ietf.org/doc/html/rfc8949#section-4.2
package schedule

import (
	"errors"
	"fmt"

	"github.com/dark-bio/hkdf-go/hkdf"
	"github.com/dark-bio/hkdf-go/securebuf"
	"github.com/fxamacker/cbor/v2"
)

// Error types for key schedule derivation
var (
	ErrEmptyLabel     = errors.New("schedule: empty key label")
	ErrDuplicateLabel = errors.New("schedule: duplicate key label")
)

// encMode is the core deterministic encoding, immutable once built.
var encMode cbor.EncMode

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err) // cannot fail, be loud if it does
	}
}

// Request names one subkey to derive.
type Request struct {
	Label string
	Size  int
}

// Keys maps labels to derived subkeys. The caller owns every buffer.
type Keys map[string]*securebuf.Buffer

// Destroy wipes and releases every key in the set.
func (k Keys) Destroy() {
	for _, key := range k {
		key.Destroy()
	}
}

// labelInfo is the HKDF info structure for a single subkey.
type labelInfo struct {
	_      struct{} `cbor:",toarray"`
	Domain string
	Label  string
	Size   uint64
}

// Info returns the HKDF info string binding a subkey to its domain, label and
// size. Negative sizes are a programming error and panic.
func Info(domain, label string, size int) []byte {
	if size < 0 {
		panic("schedule: negative key size")
	}
	blob, err := encMode.Marshal(&labelInfo{
		Domain: domain,
		Label:  label,
		Size:   uint64(size),
	})
	if err != nil {
		panic(err) // cannot fail, be loud if it does
	}
	return blob
}

// Derive expands one subkey per request from prk. Either every requested key
// is returned, or none are: on failure all keys derived so far are destroyed.
func Derive(prk *securebuf.Buffer, domain string, reqs []Request) (Keys, error) {
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if req.Label == "" {
			return nil, ErrEmptyLabel
		}
		if _, ok := seen[req.Label]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, req.Label)
		}
		seen[req.Label] = struct{}{}

		// Reject bad sizes before anything is derived
		switch {
		case req.Size < 0:
			return nil, fmt.Errorf("schedule: key %q: %w", req.Label, hkdf.ErrNegativeLength)
		case req.Size > hkdf.MaxOutputSize:
			return nil, fmt.Errorf("schedule: key %q: %w", req.Label, hkdf.ErrOutputTooLong)
		}
	}
	keys := make(Keys, len(reqs))
	for _, req := range reqs {
		key, err := hkdf.Expand(prk, hkdf.Some(Info(domain, req.Label, req.Size)), req.Size)
		if err != nil {
			keys.Destroy()
			return nil, fmt.Errorf("schedule: key %q: %w", req.Label, err)
		}
		keys[req.Label] = key
	}
	return keys, nil
}
