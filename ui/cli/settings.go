// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/nod32mirror/nod32tools/internal/config"
	"github.com/nod32mirror/nod32tools/internal/i18n"
	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or persist the tool settings",
	}

	var (
		system bool
		output string
	)
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the effective settings to a settings file",
		Long: `Writes the settings resolved from defaults, the settings file, the
environment and flags as YAML. Without --output the user settings file is
written, or the system one with --system.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := output
			if path == "" {
				var err error
				if path, err = config.WriteConfigFile(&a.settings, system); err != nil {
					return err
				}
			} else if err := config.WriteConfigFileTo(&a.settings, path); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.settings.written", path))
			return err
		},
	}
	write.Flags().BoolVar(&system, "system", false, "write the system-wide settings file")
	write.Flags().StringVarP(&output, "output", "o", "", "write to this path instead")
	// Every settings key can be given here so it can be persisted.
	write.Flags().StringP("config", "c", "", "mirror configuration file")
	write.Flags().String("keys-file", "", "path to the JSON keys store")
	write.Flags().String("pattern", "", "regular expression keys must match")
	write.Flags().String("bucket", "", "default import bucket")
	write.Flags().String("langpacks", "", "directory holding the *.lng files")
	cmd.AddCommand(write)
	return cmd
}
