package encext

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeString(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"", []byte{}},
		{"000102", []byte{0, 1, 2}},
		{"hex:f0F1", []byte{0xf0, 0xf1}},
		{"hex:", []byte{}},
		{"base64:AAEC", []byte{0, 1, 2}},
		{"text:dark bio", []byte("dark bio")},
		{"text:a:b", []byte("a:b")},
	}
	for _, tc := range tests {
		got, err := DecodeString(tc.in)
		if err != nil {
			t.Errorf("DecodeString(%q) failed: %v", tc.in, err)
			continue
		}
		if !bytes.Equal(got, tc.want) {
			t.Errorf("DecodeString(%q) = %x, want %x", tc.in, got, tc.want)
		}
	}
}

func TestDecodeStringRejects(t *testing.T) {
	tests := []struct {
		in  string
		err error
	}{
		{"0001\n", ErrInvalidCharacter},
		{"text:line\r\n", ErrInvalidCharacter},
		{"base64:AA\nEC", ErrInvalidCharacter},
		{"oct:777", ErrUnknownEncoding},
	}
	for _, tc := range tests {
		if _, err := DecodeString(tc.in); !errors.Is(err, tc.err) {
			t.Errorf("DecodeString(%q) error = %v, want %v", tc.in, err, tc.err)
		}
	}
	// Malformed payloads surface the codec's own error
	for _, in := range []string{"0g", "hex:abc", "base64:AAE=x", "base64:AAE"} {
		if _, err := DecodeString(in); err == nil {
			t.Errorf("DecodeString(%q) succeeded", in)
		}
	}
}
