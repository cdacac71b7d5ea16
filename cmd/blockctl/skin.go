package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type skinResult struct {
	Identifier string `json:"identifier"`
	URL        string `json:"url,omitempty"`
	Valid      bool   `json:"valid"`
}

func newSkinCommand(ctx *commandContext) *cobra.Command {
	skinCmd := &cobra.Command{
		Use:   "skin",
		Short: "Work with Winamp skin identifiers",
	}
	skinCmd.AddCommand(newSkinResolveCommand(ctx))
	return skinCmd
}

func newSkinResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Resolve a skin hash or URL to the URL the player loads",
		Long: "Resolve a skin identifier the same way the editor does. An empty\n" +
			"identifier resolves to the default skin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skins, err := ctx.skins()
			if err != nil {
				return err
			}
			url, ok := skins.Resolve(args[0])
			res := skinResult{Identifier: args[0], URL: url, Valid: ok}

			out := cmd.OutOrStdout()
			if ctx.wantJSON(out) {
				return writeJSON(cmd, res)
			}
			if !ok {
				return fmt.Errorf("%q is not a recognized skin identifier", args[0])
			}
			fmt.Fprintln(out, url)
			return nil
		},
	}
}
