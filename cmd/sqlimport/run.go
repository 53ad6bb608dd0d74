package main

import (
	"fmt"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Import a dump to completion, resuming an unfinished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, err := service.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create import service: %w", err)
			}
			defer svc.Close()

			var cp *domain.ImportCheckpoint
			if fresh {
				cp, err = svc.StartSession(ctx, args[0])
			} else {
				cp, err = svc.ResumeOrStart(ctx, args[0])
			}
			if err != nil {
				return err
			}

			log.Info().
				Str("session_id", cp.SessionID).
				Str("file", cp.FilePath).
				Int64("offset", cp.ByteOffset).
				Str("log_file", cp.LogFile).
				Msg("Import started")

			result, err := svc.RunToCompletion(ctx, cp.SessionID, func(res *domain.BatchResult) {
				for _, line := range res.Log {
					log.Warn().Str("session_id", cp.SessionID).Msg(line)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%6.2f%%  line %d  queries %d  errors %d\n",
					res.Percent, res.Checkpoint.LineNumber, res.Checkpoint.TotalStatements, res.Checkpoint.TotalErrors)
			})
			if err != nil {
				if ctx.Err() != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Interrupted; run again to resume session %s\n", cp.SessionID)
					return nil
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nImport %s: %d queries, %d errors\n",
				result.Status(), result.Checkpoint.TotalStatements, result.Checkpoint.TotalErrors)
			fmt.Fprintf(out, "Log file: %s\n", cp.LogFile)

			if len(result.TableStats) > 0 {
				fmt.Fprintf(out, "\n%-40s %12s %10s\n", "TABLE", "ROWS", "SIZE MB")
				for _, t := range result.TableStats {
					fmt.Fprintf(out, "%-40s %12d %10.2f\n", t.Name, t.Rows, t.SizeMB)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "Start a new session even if an unfinished one exists")
	return cmd
}
