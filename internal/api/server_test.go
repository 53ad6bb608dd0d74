package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/importer"
	"github.com/SteelMorgan/sqldump-importer/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImporter struct {
	sessions   map[string]*domain.ImportCheckpoint
	batchErr   error
	result     *domain.BatchResult
	checkpoint domain.ImportCheckpoint
}

func (f *fakeImporter) StartSession(ctx context.Context, file string) (*domain.ImportCheckpoint, error) {
	if file == "missing.sql" {
		return nil, service.ErrDumpNotFound
	}
	cp := &domain.ImportCheckpoint{SessionID: "s-1", FilePath: "/data/" + file, Status: domain.StatusContinue}
	f.sessions[cp.SessionID] = cp
	return cp, nil
}

func (f *fakeImporter) Session(ctx context.Context, id string) (*domain.ImportCheckpoint, error) {
	cp, ok := f.sessions[id]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	return cp, nil
}

func (f *fakeImporter) Sessions(ctx context.Context) ([]domain.ImportCheckpoint, error) {
	var out []domain.ImportCheckpoint
	for _, cp := range f.sessions {
		out = append(out, *cp)
	}
	return out, nil
}

func (f *fakeImporter) RunBatch(ctx context.Context, id string) (*domain.BatchResult, error) {
	if _, ok := f.sessions[id]; !ok {
		return nil, service.ErrSessionNotFound
	}
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.result, nil
}

func (f *fakeImporter) RunCheckpoint(ctx context.Context, cp domain.ImportCheckpoint) (*domain.BatchResult, error) {
	f.checkpoint = cp
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.result, nil
}

func newTestServer() (*Server, *fakeImporter) {
	f := &fakeImporter{
		sessions: map[string]*domain.ImportCheckpoint{},
		result: &domain.BatchResult{
			Checkpoint: domain.ImportCheckpoint{
				SessionID:       "s-1",
				ByteOffset:      2048,
				LineNumber:      3000,
				TotalStatements: 2500,
				TotalErrors:     1,
				Status:          domain.StatusContinue,
			},
			Percent: 12.5,
			Log:     []string{"Error in [users]: Unknown column 'x' in 'field list'..."},
			LogFile: "import_log_2026-01-02_03-04-05.txt",
		},
	}
	return NewServer(f), f
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer()

	rec := do(t, s, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_StartAndGetSession(t *testing.T) {
	s, _ := newTestServer()

	rec := do(t, s, http.MethodPost, "/api/sessions", "application/json", `{"filename":"dump.sql"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var cp domain.ImportCheckpoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cp))
	assert.Equal(t, "s-1", cp.SessionID)
	assert.Equal(t, domain.StatusContinue, cp.Status)

	rec = do(t, s, http.MethodGet, "/api/sessions/s-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"continue"`)

	rec = do(t, s, http.MethodGet, "/api/sessions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"s-1"`)
}

func TestServer_StartSessionErrors(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"no filename", `{}`, http.StatusBadRequest},
		{"missing dump", `{"filename":"missing.sql"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/sessions", "application/json", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"error"`)
		})
	}
}

func TestServer_SessionBatch(t *testing.T) {
	s, f := newTestServer()
	f.sessions["s-1"] = &domain.ImportCheckpoint{SessionID: "s-1"}

	rec := do(t, s, http.MethodPost, "/api/sessions/s-1/batch", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "continue", resp.Status)
	assert.Equal(t, int64(3000), resp.CurrentLine)
	assert.Equal(t, int64(2048), resp.CurrentOffset)
	assert.Equal(t, int64(2500), resp.TotalQueries)
	assert.Equal(t, int64(1), resp.TotalErrors)
	assert.Equal(t, 12.5, resp.PctComplete)
	assert.Equal(t, ";", resp.Delimiter)
	assert.Len(t, resp.BatchLog, 1)
	assert.NotNil(t, resp.TableStats)
	assert.Equal(t, "import_log_2026-01-02_03-04-05.txt", resp.LogFile)
}

func TestServer_SessionBatchErrors(t *testing.T) {
	tests := []struct {
		name     string
		batchErr error
		want     int
	}{
		{"finished", service.ErrSessionFinished, http.StatusConflict},
		{"in progress", service.ErrBatchInProgress, http.StatusConflict},
		{"session fatal", &importer.SessionError{Kind: importer.ErrConnect, Err: errors.New("refused")}, http.StatusOK},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, f := newTestServer()
			f.sessions["s-1"] = &domain.ImportCheckpoint{SessionID: "s-1"}
			f.batchErr = tt.batchErr

			rec := do(t, s, http.MethodPost, "/api/sessions/s-1/batch", "", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"error"`)
		})
	}

	s, _ := newTestServer()
	rec := do(t, s, http.MethodPost, "/api/sessions/unknown/batch", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StatelessBatchJSON(t *testing.T) {
	s, f := newTestServer()

	body := `{"filename":"dump.sql.gz","start_line":3000,"file_offset":2048,"total_queries":2500,"total_errors":1,"delimiter":"$$","log_file":"import_log_a.txt"}`
	rec := do(t, s, http.MethodPost, "/api/import/batch", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.ImportCheckpoint{
		FilePath:        "dump.sql.gz",
		LogFile:         "import_log_a.txt",
		ByteOffset:      2048,
		LineNumber:      3000,
		TotalStatements: 2500,
		TotalErrors:     1,
		Delimiter:       "$$",
	}, f.checkpoint)
}

func TestServer_StatelessBatchForm(t *testing.T) {
	s, f := newTestServer()

	form := url.Values{
		"filename":      {"dump.sql"},
		"start_line":    {"10"},
		"file_offset":   {"512"},
		"total_queries": {"7"},
		"total_errors":  {"0"},
	}
	rec := do(t, s, http.MethodPost, "/api/import/batch", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "dump.sql", f.checkpoint.FilePath)
	assert.Equal(t, int64(10), f.checkpoint.LineNumber)
	assert.Equal(t, int64(512), f.checkpoint.ByteOffset)
	assert.Equal(t, int64(7), f.checkpoint.TotalStatements)
}

func TestServer_StatelessBatchValidation(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"missing filename", "application/json", `{"start_line":1}`},
		{"negative offset", "application/json", `{"filename":"d.sql","file_offset":-1}`},
		{"non numeric form field", "application/x-www-form-urlencoded", "filename=d.sql&start_line=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/import/batch", tt.contentType, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
