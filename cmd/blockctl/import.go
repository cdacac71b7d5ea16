package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winamp-block/internal/editor"
	"winamp-block/internal/webamp"
)

type importResult struct {
	BlockID string   `json:"blockId"`
	Tracks  int      `json:"tracks"`
	Missing []string `json:"missing"`
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <block-id> <file.wpl>",
		Short: "Import a Windows Media Player playlist into a player block",
		Long: "Import the tracks of a WPL playlist that exist in the media library.\n" +
			"The server must be stopped while importing.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockID, wplPath := args[0], args[1]

			f, err := os.Open(wplPath)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := ctx.exclusive(); err != nil {
				return err
			}
			db, err := ctx.database(cmd.Context())
			if err != nil {
				return err
			}
			skins, err := ctx.skins()
			if err != nil {
				return err
			}

			svc := editor.New(db, editor.Options{Factory: webamp.NewFactory(), Skins: skins})
			defer svc.Close()

			pl, missing, err := svc.ImportWPL(cmd.Context(), blockID, f)
			if err != nil {
				return fmt.Errorf("import %s: %w", wplPath, err)
			}
			if missing == nil {
				missing = []string{}
			}
			res := importResult{BlockID: blockID, Tracks: len(pl), Missing: missing}

			out := cmd.OutOrStdout()
			if ctx.wantJSON(out) {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(out, "Block %s now has %d tracks\n", blockID, res.Tracks)
			if len(missing) > 0 {
				rows := make([][]string, len(missing))
				for i, src := range missing {
					rows[i] = []string{src}
				}
				fmt.Fprintln(out, "Not in the media library:")
				fmt.Fprintln(out, renderTable([]string{"Source"}, rows, nil))
			}
			return nil
		},
	}
}
