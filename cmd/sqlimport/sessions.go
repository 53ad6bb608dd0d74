package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/SteelMorgan/sqldump-importer/internal/checkpoint"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored import sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			// Listing needs only the checkpoint store, not the database
			store, err := checkpoint.NewBoltDBStore(cfg.CheckpointDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tFILE\tSTATUS\tLINE\tOFFSET\tQUERIES\tERRORS\tUPDATED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					s.SessionID, filepath.Base(s.FilePath), s.Status, s.LineNumber, s.ByteOffset,
					s.TotalStatements, s.TotalErrors, s.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}
