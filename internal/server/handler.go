package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/importer"
)

// UploadField is the multipart field carrying the spreadsheet.
const UploadField = "excel_file"

// Bounds for GET /api/last_transactions?count=N.
const (
	DefaultRecentCount = 5
	MaxRecentCount     = 100
)

// processExcel handles POST /api/process_excel.
func (s *Server) processExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile(UploadField)
	if err != nil {
		s.log.Warn().Err(err).Msg("upload without spreadsheet")
		writeError(w, http.StatusBadRequest, "no '"+UploadField+"' file in request")
		return
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "empty file name")
		return
	}
	if !s.registry.Supports(name) {
		writeError(w, http.StatusBadRequest, "file type not allowed: "+filepath.Ext(name)+
			" (accepted: "+strings.Join(s.registry.Extensions(), ", ")+")")
		return
	}

	sheet, err := s.registry.Read(name, file, s.opts)
	if err != nil {
		s.log.Warn().Err(err).Str("source", name).Msg("unreadable spreadsheet")
		msg := "could not read the file: " + err.Error()
		if errors.Is(err, importer.ErrMissingColumns) {
			msg = err.Error()
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := s.proc.Process(ctx, name, sheet.Rows, batch.Options{})
	if err != nil {
		s.log.Error().Err(err).Str("source", name).Msg("processing upload")
		resp := ProcessResponse{Status: "error", Message: "storage error while processing " + name, Errors: []string{}}
		if report != nil {
			resp = newProcessResponse(name, report)
			resp.Status = "error"
			resp.Message = "storage error while processing " + name
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	if s.afterBatch != nil {
		if err := s.afterBatch(ctx, name, report); err != nil {
			s.log.Error().Err(err).Str("source", name).Msg("after batch hook")
		}
	}

	writeJSON(w, http.StatusOK, newProcessResponse(name, report))
}

// lastTransactions handles GET /api/last_transactions.
func (s *Server) lastTransactions(w http.ResponseWriter, r *http.Request) {
	count := parseCount(r.URL.Query().Get("count"))

	txns, err := s.store.Recent(r.Context(), count)
	if err != nil {
		s.log.Error().Err(err).Msg("querying recent transactions")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not query transactions"})
		return
	}

	out := make([]TransactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, newTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// parseCount returns DefaultRecentCount for missing, invalid or out of range values.
func parseCount(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxRecentCount {
		return DefaultRecentCount
	}
	return n
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", DBConnection: true})
}
