package api

import (
	"encoding/json"
	"net/http"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/rs/zerolog/log"
)

// BatchResponse is the JSON shape of a batch outcome
type BatchResponse struct {
	Status        string             `json:"status"`
	SessionID     string             `json:"session_id,omitempty"`
	CurrentLine   int64              `json:"current_line"`
	CurrentOffset int64              `json:"current_offset"`
	TotalQueries  int64              `json:"total_queries"`
	TotalErrors   int64              `json:"total_errors"`
	PctComplete   float64            `json:"pct_complete"`
	BatchLog      []string           `json:"batch_log"`
	LogFile       string             `json:"log_file"`
	Delimiter     string             `json:"delimiter"`
	TableStats    []domain.TableStat `json:"table_stats"`
	Message       string             `json:"message,omitempty"`
}

// ErrorResponse is returned for any failed request
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewBatchResponse renders a batch result in the wire format of the import page
func NewBatchResponse(res *domain.BatchResult) BatchResponse {
	cp := res.Checkpoint

	batchLog := res.Log
	if batchLog == nil {
		batchLog = []string{}
	}
	stats := res.TableStats
	if stats == nil {
		stats = []domain.TableStat{}
	}

	return BatchResponse{
		Status:        cp.Status.String(),
		SessionID:     cp.SessionID,
		CurrentLine:   cp.LineNumber,
		CurrentOffset: cp.ByteOffset,
		TotalQueries:  cp.TotalStatements,
		TotalErrors:   cp.TotalErrors,
		PctComplete:   res.Percent,
		BatchLog:      batchLog,
		LogFile:       res.LogFile,
		Delimiter:     cp.ActiveDelimiter(),
		TableStats:    stats,
	}
}

// writeJSON encodes v as JSON and writes it to w
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: domain.StatusError.String(), Message: message})
}
