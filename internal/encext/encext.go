// Package encext provides strict decoding of byte string arguments.
//
// Inputs carry an optional encoding prefix:
//   - "hex:" lowercase or uppercase hexadecimal (the default, if unprefixed)
//   - "base64:" standard base64 with strict padding
//   - "text:" the UTF-8 bytes of the remainder, verbatim
package encext

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// Error types for argument decoding
var (
	// ErrInvalidCharacter is returned when the input contains \r or \n.
	ErrInvalidCharacter = errors.New("encext: invalid character")

	// ErrUnknownEncoding is returned for an unsupported prefix.
	ErrUnknownEncoding = errors.New("encext: unknown encoding")
)

// DecodeString decodes s according to its prefix. Line breaks are rejected in
// every encoding, so a value pasted with a trailing newline fails instead of
// silently decoding to different bytes.
func DecodeString(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, ErrInvalidCharacter
	}
	kind, rest, found := strings.Cut(s, ":")
	if !found {
		return hex.DecodeString(s)
	}
	switch kind {
	case "hex":
		return hex.DecodeString(rest)
	case "base64":
		return base64.StdEncoding.Strict().DecodeString(rest)
	case "text":
		return []byte(rest), nil
	default:
		return nil, ErrUnknownEncoding
	}
}
