// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads key derivation profiles.
//
// A profile names the application domain, an optional salt, and the set of
// subkeys to derive from one input secret:
//
//	Domain = "dark-bio-v1"
//	Salt = "hex:000102030405060708090a0b0c"
//
//	[Logging]
//	Level = "NOTICE"
//
//	[[Key]]
//	Label = "encryption"
//	Size = 32
//
// Profiles never contain the secret itself.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dark-bio/hkdf-go/hkdf"
	"github.com/dark-bio/hkdf-go/internal/encext"
	"github.com/dark-bio/hkdf-go/schedule"
)

const defaultLogLevel = "NOTICE"

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := lCfg.Level
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lCfg.Level = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lvl)
	}
	return nil
}

// Key is a single subkey of the profile.
type Key struct {
	// Label names the subkey and is bound into its derivation.
	Label string

	// Size is the subkey length in bytes.
	Size int
}

// Config is a key derivation profile.
type Config struct {
	// Domain binds every derived key to the application.
	Domain string

	// Salt is the encoded HKDF salt, absent if empty.
	Salt string

	Logging *Logging
	Key     []*Key
}

// FixupAndValidate applies defaults to config entries and validates the
// profile.
func (c *Config) FixupAndValidate() error {
	if c.Domain == "" {
		return errors.New("config: Domain is not set")
	}
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if _, err := c.SaltOption(); err != nil {
		return err
	}
	if len(c.Key) == 0 {
		return errors.New("config: No Key blocks were present")
	}
	seen := make(map[string]bool)
	for i, k := range c.Key {
		if k.Label == "" {
			return fmt.Errorf("config: Key %d: Label is not set", i)
		}
		if seen[k.Label] {
			return fmt.Errorf("config: Key '%v' is defined more than once", k.Label)
		}
		seen[k.Label] = true
		if k.Size < 1 || k.Size > hkdf.MaxOutputSize {
			return fmt.Errorf("config: Key '%v': Size %d is outside [1, %d]", k.Label, k.Size, hkdf.MaxOutputSize)
		}
	}
	return nil
}

// SaltOption decodes the configured salt.
func (c *Config) SaltOption() (hkdf.Optional, error) {
	if c.Salt == "" {
		return hkdf.None(), nil
	}
	salt, err := encext.DecodeString(c.Salt)
	if err != nil {
		return hkdf.None(), fmt.Errorf("config: Salt: %w", err)
	}
	return hkdf.Some(salt), nil
}

// Requests returns the subkey requests in profile order.
func (c *Config) Requests() []schedule.Request {
	reqs := make([]schedule.Request, 0, len(c.Key))
	for _, k := range c.Key {
		reqs = append(reqs, schedule.Request{Label: k.Label, Size: k.Size})
	}
	return reqs
}

// Load parses and validates the provided buffer b as a profile and returns
// the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
