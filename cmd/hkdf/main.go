// hkdf-go: HKDF-SHA256 key derivation over guarded memory
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command hkdf derives keys with HKDF-SHA256 from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/dark-bio/hkdf-go/config"
	"github.com/dark-bio/hkdf-go/hkdf"
	"github.com/dark-bio/hkdf-go/internal/encext"
	"github.com/dark-bio/hkdf-go/log"
	"github.com/dark-bio/hkdf-go/schedule"
	"github.com/dark-bio/hkdf-go/securebuf"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/op/go-logging.v1"
)

func main() {
	// Wipe all guarded memory if the process is interrupted
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(versioninfo.Short()),
	); err != nil {
		memguard.SafeExit(1)
	}
}

// maxIKMSize bounds secrets read from files and standard input.
const maxIKMSize = 16 << 10

var (
	errNoIKM      = errors.New("no input keying material: use --ikm, --ikm-file or standard input")
	errIKMTooLong = fmt.Errorf("input keying material longer than %d bytes", maxIKMSize)
)

// app holds the state shared by all subcommands.
type app struct {
	logLevel string
	logFile  string
	backend  *log.Backend
}

func (a *app) logger(module string) *logging.Logger {
	return a.backend.GetLogger(module)
}

// setBackend swaps in a new log backend, closing the file of the old one.
func (a *app) setBackend(b *log.Backend) error {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			return err
		}
	}
	a.backend = b
	return nil
}

// newRootCommand creates the root cobra command
func newRootCommand() *cobra.Command {
	a := new(app)

	cmd := &cobra.Command{
		Use:   "hkdf",
		Short: "HKDF-SHA256 key derivation",
		Long: `Derive keys from a shared secret with HKDF-SHA256 (RFC 5869).

Byte string arguments take an encoding prefix: hex: (the default), base64:
or text:. Secrets are never accepted from a profile file; they come from
--ikm, --ikm-file or standard input, which is read without echo when it is
a terminal. Derived keys are printed hex encoded on standard output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			backend, err := log.New(a.logFile, a.logLevel, false)
			if err != nil {
				return err
			}
			return a.setBackend(backend)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.setBackend(nil)
		},
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "ERROR", "logging level (DEBUG, INFO, NOTICE, WARNING, ERROR)")
	cmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "log file (default: stderr)")

	cmd.AddCommand(
		newExtractCommand(a),
		newExpandCommand(a),
		newDeriveCommand(a),
	)
	return cmd
}

// addIKMFlags registers the mutually exclusive secret input flags.
func addIKMFlags(cmd *cobra.Command, ikm, ikmFile *string) {
	cmd.Flags().StringVar(ikm, "ikm", "", "input keying material, encoded")
	cmd.Flags().StringVar(ikmFile, "ikm-file", "", "file holding raw input keying material (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("ikm", "ikm-file")
}

func newExtractCommand(a *app) *cobra.Command {
	var salt, ikm, ikmFile string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a pseudorandom key from input keying material",
		Example: `  # RFC 5869 test case 1
  hkdf extract --salt 000102030405060708090a0b0c --ikm 0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.logger("extract")

			saltOpt, err := optionalFlag(cmd, "salt", salt)
			if err != nil {
				return err
			}
			secret, err := readIKM(cmd, ikm, ikmFile)
			if err != nil {
				return err
			}
			defer secret.Destroy()

			l.Debugf("Extracting from %d bytes of input keying material (salt present: %v)", secret.Size(), saltOpt.Present())
			prk := hkdf.Extract(saltOpt, secret)
			defer prk.Destroy()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%x\n", prk.Bytes())
			return err
		},
	}
	cmd.Flags().StringVar(&salt, "salt", "", "salt, encoded (default: absent)")
	addIKMFlags(cmd, &ikm, &ikmFile)
	return cmd
}

func newExpandCommand(a *app) *cobra.Command {
	var prkArg, info string
	var length int

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand a pseudorandom key into output keying material",
		Example: `  # RFC 5869 test case 1
  hkdf expand --prk 077709362c2e32df0ddc3f0dc47bba6390b6c73bb50f9c3122ec844ad7c2b3e5 \
    --info f0f1f2f3f4f5f6f7f8f9 --length 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.logger("expand")

			infoOpt, err := optionalFlag(cmd, "info", info)
			if err != nil {
				return err
			}
			raw, err := encext.DecodeString(prkArg)
			if err != nil {
				return fmt.Errorf("invalid --prk: %w", err)
			}
			prk := securebuf.Move(raw)
			defer prk.Destroy()

			if prk.Size() < hkdf.Size {
				l.Warningf("Pseudorandom key is %d bytes, RFC 5869 expects at least %d", prk.Size(), hkdf.Size)
			}
			okm, err := hkdf.Expand(prk, infoOpt, length)
			if err != nil {
				return fmt.Errorf("expand: %w", err)
			}
			defer okm.Destroy()

			l.Debugf("Expanded %d bytes (info present: %v)", okm.Size(), infoOpt.Present())
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%x\n", okm.Bytes())
			return err
		},
	}
	cmd.Flags().StringVar(&prkArg, "prk", "", "pseudorandom key, encoded")
	cmd.Flags().StringVar(&info, "info", "", "context info, encoded (default: absent)")
	cmd.Flags().IntVarP(&length, "length", "l", hkdf.Size, fmt.Sprintf("output length in bytes (at most %d)", hkdf.MaxOutputSize))
	cmd.MarkFlagRequired("prk")
	return cmd
}

func newDeriveCommand(a *app) *cobra.Command {
	var configFile, ikm, ikmFile string

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the labelled subkeys of a profile",
		Example: `  # Derive every key of a profile from a secret read from stdin
  hkdf derive -c profile.toml < secret.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config file: %w", err)
			}
			// The profile's logging applies unless overridden on the command line
			if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-file") {
				backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
				if err != nil {
					return err
				}
				if err := a.setBackend(backend); err != nil {
					return err
				}
			}
			l := a.logger("derive")

			salt, err := cfg.SaltOption()
			if err != nil {
				return err
			}
			secret, err := readIKM(cmd, ikm, ikmFile)
			if err != nil {
				return err
			}
			defer secret.Destroy()

			prk := hkdf.Extract(salt, secret)
			defer prk.Destroy()

			reqs := cfg.Requests()
			keys, err := schedule.Derive(prk, cfg.Domain, reqs)
			if err != nil {
				return err
			}
			defer keys.Destroy()

			l.Noticef("Derived %d keys for domain %q", len(keys), cfg.Domain)
			out := cmd.OutOrStdout()
			for _, req := range reqs {
				if _, err := fmt.Fprintf(out, "%s %x\n", req.Label, keys[req.Label].Bytes()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "derivation profile")
	addIKMFlags(cmd, &ikm, &ikmFile)
	cmd.MarkFlagRequired("config")
	return cmd
}

// optionalFlag decodes an encoded flag, absent unless set on the command line.
func optionalFlag(cmd *cobra.Command, name, value string) (hkdf.Optional, error) {
	if !cmd.Flags().Changed(name) {
		return hkdf.None(), nil
	}
	b, err := encext.DecodeString(value)
	if err != nil {
		return hkdf.None(), fmt.Errorf("invalid --%s: %w", name, err)
	}
	return hkdf.Some(b), nil
}

// readIKM loads the input keying material into guarded memory, wiping the
// transient copy it was read into.
func readIKM(cmd *cobra.Command, ikm, ikmFile string) (*securebuf.Buffer, error) {
	switch {
	case cmd.Flags().Changed("ikm"):
		raw, err := encext.DecodeString(ikm)
		if err != nil {
			return nil, fmt.Errorf("invalid --ikm: %w", err)
		}
		return securebuf.Move(raw), nil

	case ikmFile != "" && ikmFile != "-":
		f, err := os.Open(ikmFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readSecret(f)
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Input keying material: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		return securebuf.Move(raw), nil
	}
	secret, err := readSecret(in)
	if err != nil {
		return nil, err
	}
	if secret.Size() == 0 && ikmFile == "" {
		secret.Destroy()
		return nil, errNoIKM
	}
	return secret, nil
}

// readSecret reads r to the end straight into guarded memory, so no growing
// heap buffer ever holds the secret.
func readSecret(r io.Reader) (*securebuf.Buffer, error) {
	scratch := securebuf.NewSized(maxIKMSize + 1)
	defer scratch.Destroy()

	n, err := io.ReadFull(r, scratch.Bytes())
	switch {
	case err == nil:
		return nil, errIKMTooLong
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return securebuf.New(scratch.Bytes()[:n]), nil
	default:
		return nil, err
	}
}
