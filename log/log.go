// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log provides a leveled logging backend, based around go-logging.
//
// Loggers must never be handed key material; log sizes and labels only.
package log

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/op/go-logging.v1"
)

// Backend is a log backend shared by per-module loggers.
type Backend struct {
	backend logging.LeveledBackend
	file    *os.File
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

// New initializes a logging backend. An empty file name logs to stderr,
// keeping stdout free for derived output.
func New(f string, level string, disable bool) (*Backend, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch {
	case disable:
		return NewWriter(io.Discard, lvl), nil
	case f == "":
		return NewWriter(os.Stderr, lvl), nil
	}
	const fileMode = 0600

	flags := os.O_CREATE | os.O_APPEND | os.O_WRONLY
	file, err := os.OpenFile(f, flags, fileMode)
	if err != nil {
		return nil, fmt.Errorf("log: failed to create log file: %w", err)
	}
	b := NewWriter(file, lvl)
	b.file = file
	return b, nil
}

// Close closes the log file opened by New, if any. It is safe to call more
// than once.
func (b *Backend) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

// NewWriter initializes a logging backend writing to w at the given level.
func NewWriter(w io.Writer, lvl logging.Level) *Backend {
	logFmt := logging.MustStringFormatter("%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(base, logFmt)

	b := &Backend{backend: logging.AddModuleLevel(formatted)}
	b.backend.SetLevel(lvl, "")
	return b
}

// ParseLevel converts a level name to its go-logging value.
func ParseLevel(l string) (logging.Level, error) {
	switch l {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("log: invalid level: '%v'", l)
	}
}
