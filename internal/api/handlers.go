package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/importer"
	"github.com/SteelMorgan/sqldump-importer/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxRequestBody = 1 << 20

// StartSessionRequest names the dump file to import
type StartSessionRequest struct {
	Filename string `json:"filename"`
}

// BatchRequest carries a caller-owned checkpoint. Field names follow the
// form fields of the browser import page.
type BatchRequest struct {
	Filename     string `json:"filename"`
	StartLine    int64  `json:"start_line"`
	FileOffset   int64  `json:"file_offset"`
	TotalQueries int64  `json:"total_queries"`
	TotalErrors  int64  `json:"total_errors"`
	Delimiter    string `json:"delimiter"`
	LogFile      string `json:"log_file"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.importer.Sessions(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.ImportCheckpoint{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	cp, err := s.importer.StartSession(r.Context(), req.Filename)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	cp, err := s.importer.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleSessionBatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.importer.RunBatch(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewBatchResponse(res))
}

func (s *Server) handleStatelessBatch(w http.ResponseWriter, r *http.Request) {
	req, err := parseBatchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.StartLine < 0 || req.FileOffset < 0 {
		writeError(w, http.StatusBadRequest, "start_line and file_offset must not be negative")
		return
	}

	res, err := s.importer.RunCheckpoint(r.Context(), domain.ImportCheckpoint{
		FilePath:        req.Filename,
		LogFile:         req.LogFile,
		ByteOffset:      req.FileOffset,
		LineNumber:      req.StartLine,
		TotalStatements: req.TotalQueries,
		TotalErrors:     req.TotalErrors,
		Delimiter:       req.Delimiter,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewBatchResponse(res))
}

// writeServiceError maps service errors onto HTTP statuses. Session-fatal
// batch errors are answered with 200 and status "error" so polling clients
// stop on the status field.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var sessionErr *importer.SessionError

	switch {
	case errors.As(err, &sessionErr):
		writeError(w, http.StatusOK, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDumpNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidFileName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBatchInProgress), errors.Is(err, service.ErrSessionFinished):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	return dec.Decode(v)
}

// parseBatchRequest accepts a JSON body or url-encoded form fields
func parseBatchRequest(w http.ResponseWriter, r *http.Request) (BatchRequest, error) {
	var req BatchRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, errors.New("invalid form body")
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxRequestBody); err != nil {
			return req, errors.New("invalid form body")
		}
	default:
		if err := decodeJSON(w, r, &req); err != nil {
			return req, errors.New("invalid request body")
		}
		return req, nil
	}

	req.Filename = r.PostFormValue("filename")
	req.Delimiter = r.PostFormValue("delimiter")
	req.LogFile = r.PostFormValue("log_file")

	fields := []struct {
		name string
		dest *int64
	}{
		{"start_line", &req.StartLine},
		{"file_offset", &req.FileOffset},
		{"total_queries", &req.TotalQueries},
		{"total_errors", &req.TotalErrors},
	}
	for _, f := range fields {
		v := r.PostFormValue(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errors.New(f.name + " must be an integer")
		}
		*f.dest = n
	}

	return req, nil
}
