// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"strings"

	"github.com/nod32mirror/nod32tools/internal/i18n"
	"github.com/nod32mirror/nod32tools/internal/logging"
	"github.com/nod32mirror/nod32tools/internal/mirrorconf"
	"github.com/spf13/cobra"
)

func newVersionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Show the versions the mirror configuration enables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := mirrorconf.Load(a.settings.Config)
			if err != nil {
				return err
			}
			versions := mirrorconf.EnabledVersions(doc)
			if len(versions) == 0 {
				logging.Warnf("%s", i18n.T("cli.versions.none", a.settings.Config))
				return nil
			}

			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				platforms, allPlatforms := mirrorconf.Platforms(doc, v)
				channels, allChannels := mirrorconf.Channels(doc, v)
				rows = append(rows, []string{v, listOrAll(platforms, allPlatforms), listOrAll(channels, allChannels)})
			}
			printTable(cmd.OutOrStdout(), []string{"version", "platforms", "channels"}, rows)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "mirror configuration file")
	return cmd
}

func listOrAll(list []string, all bool) string {
	if all {
		return i18n.T("cli.versions.all")
	}
	return strings.Join(list, ",")
}

