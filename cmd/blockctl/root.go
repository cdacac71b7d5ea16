package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() (*cobra.Command, *commandContext) {
	var configFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "blockctl",
		Short:         "Inspect and edit stored Winamp player blocks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON even on a terminal")

	rootCmd.AddCommand(newBlocksCommand(ctx))
	rootCmd.AddCommand(newSkinCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))

	return rootCmd, ctx
}
