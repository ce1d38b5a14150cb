// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"strconv"

	"github.com/nod32mirror/nod32tools/internal/i18n"
	"github.com/nod32mirror/nod32tools/internal/langpack"
	"github.com/spf13/cobra"
)

func newLangstringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "langstring",
		Short: "Edit the translation files of the mirror web pages",
	}

	del := &cobra.Command{
		Use:   "delete LINE",
		Short: "Delete a line from every language file",
		Long: `Removes the 1-based LINE from every *.lng file in the langpacks directory.
Files with fewer lines are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid line number %q: %w", args[0], err)
			}
			dir := a.settings.Langpacks
			changed, err := langpack.DeleteLine(dir, line)
			if err != nil {
				return err
			}
			if len(changed) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.langstring.none", dir, line))
				return err
			}
			for _, f := range changed {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.langstring.done", line, f)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	del.Flags().String("langpacks", "", "directory holding the *.lng files")
	cmd.AddCommand(del)
	return cmd
}
