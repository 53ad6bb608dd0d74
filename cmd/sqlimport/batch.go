package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SteelMorgan/sqldump-importer/internal/api"
	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/importer"
	"github.com/SteelMorgan/sqldump-importer/internal/service"
	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	var cp domain.ImportCheckpoint

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run a single stateless batch and print the JSON response",
		Long: `batch runs exactly one batch from the checkpoint given by flags and prints the
same JSON document the HTTP endpoint returns. Feed current_offset, current_line,
total_queries, total_errors and delimiter back in to run the next batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, err := service.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create import service: %w", err)
			}
			defer svc.Close()

			cp.FilePath = args[0]

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			result, err := svc.RunCheckpoint(ctx, cp)
			if err != nil {
				var sessionErr *importer.SessionError
				if errors.As(err, &sessionErr) {
					return enc.Encode(api.ErrorResponse{Status: domain.StatusError.String(), Message: err.Error()})
				}
				return err
			}
			return enc.Encode(api.NewBatchResponse(result))
		},
	}

	cmd.Flags().Int64Var(&cp.ByteOffset, "offset", 0, "Byte offset to resume at")
	cmd.Flags().Int64Var(&cp.LineNumber, "line", 0, "Lines consumed so far")
	cmd.Flags().Int64Var(&cp.TotalStatements, "queries", 0, "Statements executed so far")
	cmd.Flags().Int64Var(&cp.TotalErrors, "errors", 0, "Errors counted so far")
	cmd.Flags().StringVar(&cp.Delimiter, "delimiter", domain.DefaultDelimiter, "Active statement delimiter")
	cmd.Flags().StringVar(&cp.LogFile, "log-file", "", "Session log file name inside the log directory")
	return cmd
}
