// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nod32mirror/nod32tools/internal/credential"
	"github.com/nod32mirror/nod32tools/internal/fsutil"
	"github.com/nod32mirror/nod32tools/internal/i18n"
	"github.com/nod32mirror/nod32tools/internal/keyimport"
	"github.com/nod32mirror/nod32tools/internal/keystore"
	"github.com/nod32mirror/nod32tools/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the license keys store",
	}
	cmd.PersistentFlags().String("keys-file", "", "path to the JSON keys store")

	cmd.AddCommand(newKeyImportCmd(a))
	cmd.AddCommand(newKeyListCmd(a))
	cmd.AddCommand(newKeyInvalidateCmd(a))
	cmd.AddCommand(newKeyForgetCmd(a))
	cmd.AddCommand(newKeyBackupCmd(a))
	cmd.AddCommand(newKeyRestoreCmd(a))
	return cmd
}

func newKeyImportCmd(a *app) *cobra.Command {
	var keys []string

	cmd := &cobra.Command{
		Use:   "import [-k LOGIN:PASSWORD]...",
		Short: "Import license keys for every enabled version",
		Long: `Validates the given keys and stores them for every product version the
mirror configuration enables. A key that is already stored gets the missing
versions appended.

Without -k, keys are read one per line from standard input when it is not a
terminal. Blank lines and lines starting with '#' are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(keys) == 0 {
				read, err := readKeys(cmd.InOrStdin())
				if err != nil {
					return err
				}
				keys = read
			}
			if len(keys) == 0 {
				return errors.New(i18n.T("cli.key.import.no_keys"))
			}

			s := a.settings
			res, err := keyimport.Run(cmd.Context(), keyimport.Options{
				MirrorConfig: s.Config,
				KeysFile:     s.KeysFile,
				Pattern:      s.Pattern,
				Bucket:       keystore.Bucket(s.Bucket),
				Keys:         keys,
			})
			if errors.Is(err, keyimport.ErrNoVersions) {
				logging.Warnf("%s", i18n.T("cli.key.import.no_versions", s.Config))
				return nil
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				i18n.T("cli.key.import.done", res.Added, res.Merged, res.Unchanged, strings.Join(res.Versions, ", ")))
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "license key as LOGIN:PASSWORD (repeatable)")
	cmd.Flags().StringP("config", "c", "", "mirror configuration file")
	cmd.Flags().String("bucket", "", "bucket to store the keys in (valid or invalid)")
	cmd.Flags().String("pattern", "", "regular expression keys must match")
	return cmd
}

// readKeys collects one key per line from r. A terminal yields nothing so
// that an interactive run without -k fails fast instead of waiting.
func readKeys(r io.Reader) ([]string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil
	}
	var keys []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading keys from stdin: %w", err)
	}
	return keys, nil
}

func newKeyListCmd(a *app) *cobra.Command {
	var (
		bucket        string
		version       string
		showPasswords bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			buckets := keystore.Buckets
			if bucket != "" {
				b, err := keystore.ParseBucket(bucket)
				if err != nil {
					return err
				}
				buckets = []keystore.Bucket{b}
			}

			store, err := keystore.Load(a.settings.KeysFile)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, b := range buckets {
				for _, r := range store.Keys(b, version) {
					pw := r.Password
					if !showPasswords {
						pw = credential.Mask(pw)
					}
					rows = append(rows, []string{string(b), r.Login, pw, strings.Join(r.Versions, ",")})
				}
			}
			if len(rows) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.list.empty", a.settings.KeysFile))
				return err
			}
			printTable(cmd.OutOrStdout(), []string{"bucket", "login", "password", "versions"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "only list this bucket (valid or invalid)")
	cmd.Flags().StringVar(&version, "version", "", "only list keys authorised for this version")
	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "print passwords in clear text")
	return cmd
}

func newKeyInvalidateCmd(a *app) *cobra.Command {
	var (
		version     string
		removeValid bool
	)

	cmd := &cobra.Command{
		Use:   "invalidate LOGIN:PASSWORD",
		Short: "Record a key as invalid for a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := keyimport.Invalidate(cmd.Context(), a.settings.KeysFile, args[0], version, removeValid)
			if err != nil {
				return err
			}
			msg := "cli.key.invalidate.done"
			if !changed {
				msg = "cli.key.invalidate.unchanged"
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), i18n.T(msg, loginOf(args[0]), version))
			return err
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "product version the key failed for")
	cmd.Flags().BoolVar(&removeValid, "remove-valid", false, "also drop the version from the valid record")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newKeyForgetCmd(a *app) *cobra.Command {
	var (
		version string
		bucket  string
	)

	cmd := &cobra.Command{
		Use:   "forget LOGIN:PASSWORD",
		Short: "Remove a version from a stored key",
		Long: `Removes the version from the key's record in the bucket. A record left
without versions is deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := keystore.ParseBucket(bucket)
			if err != nil {
				return err
			}
			changed, err := keyimport.Forget(cmd.Context(), a.settings.KeysFile, b, args[0], version)
			if err != nil {
				return err
			}
			if !changed {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.forget.unchanged", loginOf(args[0]), version, b))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.forget.done", version, loginOf(args[0])))
			return err
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "product version to remove")
	cmd.Flags().StringVar(&bucket, "bucket", string(keystore.Valid), "bucket holding the key (valid or invalid)")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

// loginOf returns the login half of key for messages, never the password.
func loginOf(key string) string {
	login, _, _ := strings.Cut(key, ":")
	return login
}

func newKeyBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup FILE",
		Short: "Write a compressed snapshot of the keys store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			store, err := keystore.Backup(a.settings.KeysFile, &buf)
			if err != nil {
				return err
			}
			if err := fsutil.WriteFileAtomic(args[0], buf.Bytes(), keystore.FileMode); err != nil {
				return fmt.Errorf("writing backup: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				i18n.T("cli.key.backup.done", len(store.Valid), len(store.Invalid), args[0]))
			return err
		},
	}
}

func newKeyRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace the keys store with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening backup: %w", err)
			}
			defer func() { _ = f.Close() }()

			store, err := keystore.Restore(f, a.settings.KeysFile)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				i18n.T("cli.key.restore.done", len(store.Valid), len(store.Invalid), a.settings.KeysFile))
			return err
		},
	}
}
