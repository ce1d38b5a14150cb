// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the root command, the settings every subcommand shares and
// the version information.

package cli

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/nod32mirror/nod32tools/buildvars"
	"github.com/nod32mirror/nod32tools/internal/config"
	"github.com/nod32mirror/nod32tools/internal/i18n"
	"github.com/nod32mirror/nod32tools/internal/logging"
	"github.com/spf13/cobra"
)

const modulePath = "github.com/nod32mirror/nod32tools"

var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

// app carries the settings resolved for the running command.
type app struct {
	settings config.Settings
}

// getSettingsPathFromCli returns the --settings value when the flag was given.
func getSettingsPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("settings") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("settings")
	if err != nil {
		return nil, err
	}
	return &path, nil
}

// setup loads the settings for cmd and applies the ambient ones.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	explicit, err := getSettingsPathFromCli(cmd)
	if err != nil {
		return err
	}
	s, err := config.LoadConfig[config.Settings](cmd, config.Defaults(), explicit)
	if err != nil {
		return fmt.Errorf("error loading settings: %w", err)
	}
	a.settings = s

	logging.SetDebug(s.Verbose)
	i18n.Init(s.Language)
	logging.Debugf("settings: config=%s keys-file=%s bucket=%s language=%s", s.Config, s.KeysFile, s.Bucket, s.Language)
	return nil
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "nod32tools",
		Short: "nod32tools manages the keys and language files of a NOD32 update mirror.",
		Long: `nod32tools keeps the license keys of an ESET NOD32 update mirror in a
JSON keys store. Keys are imported for every product version the mirror
configuration enables, and can later be listed, invalidated or forgotten.

It also maintains the translation files of the mirror's web pages.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().String("settings", "", "settings file (default searches the user and system config dirs)")
	cmd.PersistentFlags().String("language", "", `output language ("en", "ru")`)
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolP("version", "V", false, "Print version and exit")

	cmd.AddCommand(newKeyCmd(a))
	cmd.AddCommand(newVersionsCmd(a))
	cmd.AddCommand(newLangstringCmd(a))
	cmd.AddCommand(newSettingsCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		// Printing the version needs no settings.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "nod32tools %s\n", compositeVersion())
			return err
		},
	}
}

// compositeVersion renders version, commit and build date on one line.
func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date. The ldflags value wins; otherwise the module build info is used.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault("dev")
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, found := debug.ReadBuildInfo(); found {
			info = local
		}
	}

	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module among the dependencies.
		if resolvedVersion == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
