package main

import (
	"fmt"
	"path"
	"strconv"

	"github.com/spf13/cobra"

	"winamp-block/internal/database"
	"winamp-block/internal/editor"
)

func newBlocksCommand(ctx *commandContext) *cobra.Command {
	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "List and inspect player blocks",
	}

	blocksCmd.AddCommand(newBlocksListCommand(ctx))
	blocksCmd.AddCommand(newBlocksShowCommand(ctx))

	return blocksCmd
}

func newBlocksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List player blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.database(cmd.Context())
			if err != nil {
				return err
			}
			blocks, err := db.ListBlocks(cmd.Context(), database.BlockNamePlayer)
			if err != nil {
				return err
			}
			if blocks == nil {
				blocks = []database.Block{}
			}

			out := cmd.OutOrStdout()
			if ctx.wantJSON(out) {
				return writeJSON(cmd, blocks)
			}
			if len(blocks) == 0 {
				fmt.Fprintln(out, "No player blocks")
				return nil
			}
			rows := make([][]string, 0, len(blocks))
			for _, b := range blocks {
				rows = append(rows, []string{
					b.ClientID,
					strconv.Itoa(len(b.InnerBlocks)),
					skinLabel(b),
					savedLabel(b),
					b.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Tracks", "Skin", "Saved", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newBlocksShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one player block and its tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.database(cmd.Context())
			if err != nil {
				return err
			}
			b, err := db.GetBlock(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("block %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if ctx.wantJSON(out) {
				return writeJSON(cmd, b)
			}

			fmt.Fprintf(out, "Block:  %s (%s)\n", b.ClientID, b.Name)
			fmt.Fprintf(out, "Skin:   %s\n", skinLabel(*b))
			fmt.Fprintf(out, "Saved:  %s\n", savedLabel(*b))
			if len(b.InnerBlocks) == 0 {
				fmt.Fprintln(out, "Tracks: none")
				return nil
			}
			rows := make([][]string, 0, len(b.InnerBlocks))
			for i, child := range b.InnerBlocks {
				url := child.Attributes.String(editor.AttrSrc)
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					path.Base(url),
					mediaID(child.Attributes),
					url,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Track", "Media ID", "URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func skinLabel(b database.Block) string {
	if s := b.Attributes.String(editor.AttrCurrentSkin); s != "" {
		return s
	}
	return "(default)"
}

func savedLabel(b database.Block) string {
	if b.OriginalContent == "" {
		return "no"
	}
	return "yes"
}

// mediaID formats the library id, which JSON decoding may leave as a number.
func mediaID(a database.Attributes) string {
	v, ok := a[editor.AttrID]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
