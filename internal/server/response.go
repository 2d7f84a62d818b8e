package server

import (
	"encoding/json"
	"net/http"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/model"
)

// ProcessResponse is the body returned by POST /api/process_excel.
type ProcessResponse struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	Processed      int      `json:"processed"`
	NewCount       int      `json:"new_count"`
	DuplicateCount int      `json:"duplicate_count"`
	FailedRows     int      `json:"failed_rows"`
	Errors         []string `json:"errors"`
}

func newProcessResponse(source string, r *batch.Report) ProcessResponse {
	resp := ProcessResponse{
		Status:         string(r.Status()),
		Message:        r.Message(source),
		Processed:      r.Processed,
		NewCount:       r.Accepted,
		DuplicateCount: r.Duplicates,
		FailedRows:     len(r.Malformed),
		Errors:         make([]string, 0, len(r.Malformed)),
	}
	for _, m := range r.Malformed {
		resp.Errors = append(resp.Errors, m.Error())
	}
	return resp
}

// TransactionJSON is the wire form of a stored transaction.
type TransactionJSON struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	BankID      string `json:"bank_id,omitempty"`
	Source      string `json:"source,omitempty"`
}

func newTransactionJSON(t model.Transaction) TransactionJSON {
	return TransactionJSON{
		ID:          t.ID,
		Date:        t.Date.Format(model.DateFormat),
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		BankID:      t.BankID,
		Source:      t.Source,
	}
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	DBConnection bool   `json:"db_connection"`
	Message      string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ProcessResponse{Status: "error", Message: message, Errors: []string{}})
}
