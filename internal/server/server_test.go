package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/dedup"
	"github.com/cleared-dev/bankfeed/internal/importer"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/normalize"
	"github.com/cleared-dev/bankfeed/internal/storage"
)

var testMapping = normalize.Mapping{Date: "Fecha", Description: "Descripción", Amount: "Importe"}

const marchCSV = "Fecha;Descripción;Importe\n" +
	"01/03/2024;MERCADONA VALENCIA;-45,20\n" +
	"02/03/2024;REPSOL GASOLINERA;-60,00\n" +
	"03/03/2024;;-5,00\n"

type hookCall struct {
	source string
	report *batch.Report
}

type fixture struct {
	srv   *httptest.Server
	store *storage.SQLiteStorage
	hooks []hookCall
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(context.Background(), storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store}
	s := New(Config{
		Processor:     batch.NewCoordinator(store, nil, testMapping, dedup.DefaultConfig()),
		Store:         store,
		ImportOptions: importer.Options{Mapping: testMapping},
		AfterBatch: func(_ context.Context, source string, r *batch.Report) error {
			f.hooks = append(f.hooks, hookCall{source, r})
			return nil
		},
		Logger: zerolog.Nop(),
	})
	f.srv = httptest.NewServer(s.Router())
	t.Cleanup(f.srv.Close)
	return f
}

func upload(t *testing.T, url, field, name, content string) (*http.Response, ProcessResponse) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/process_excel", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out ProcessResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestProcessExcel(t *testing.T) {
	f := newFixture(t)

	resp, out := upload(t, f.srv.URL, UploadField, "march.csv", marchCSV)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "warning", out.Status)
	assert.Equal(t, 3, out.Processed)
	assert.Equal(t, 2, out.NewCount)
	assert.Equal(t, 0, out.DuplicateCount)
	assert.Equal(t, 1, out.FailedRows)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "row 4")
	assert.Contains(t, out.Message, "march.csv")

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, f.hooks, 1)
	assert.Equal(t, "march.csv", f.hooks[0].source)
	assert.Equal(t, 2, f.hooks[0].report.Accepted)
}

func TestProcessExcel_Reupload(t *testing.T) {
	f := newFixture(t)

	upload(t, f.srv.URL, UploadField, "march.csv", marchCSV)
	resp, out := upload(t, f.srv.URL, UploadField, "march-again.csv", marchCSV)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, out.NewCount)
	assert.Equal(t, 2, out.DuplicateCount)

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestProcessExcel_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		file    string
		content string
		message string
	}{
		{"missing file", "", "", "", "no 'excel_file' file"},
		{"wrong field", "upload", "march.csv", marchCSV, "no 'excel_file' file"},
		{"bad extension", UploadField, "march.pdf", "%PDF", "file type not allowed: .pdf"},
		{"unreadable xls", UploadField, "march.xls", "binary", "could not read the file"},
		{"missing columns", UploadField, "march.csv", "Fecha;Concepto;Importe\n01/03/2024;X;1\n", "Descripción"},
		{"unreadable xlsx", UploadField, "march.xlsx", "not a zip", "could not read the file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resp, out := upload(t, f.srv.URL, tt.field, tt.file, tt.content)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "error", out.Status)
			assert.Contains(t, out.Message, tt.message)
			assert.Empty(t, f.hooks)
		})
	}
}

func TestProcessExcel_EmptyFile(t *testing.T) {
	f := newFixture(t)

	resp, out := upload(t, f.srv.URL, UploadField, "empty.csv", "Fecha;Descripción;Importe\n")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "warning", out.Status)
	assert.Equal(t, "empty.csv: empty file, no rows to process", out.Message)
	assert.Zero(t, out.Processed)
	assert.Zero(t, out.NewCount)
}

func TestProcessExcel_NotMultipart(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.srv.URL+"/api/process_excel", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessExcel_TooLarge(t *testing.T) {
	proc := &fakeProcessor{}
	s := New(Config{Processor: proc, Store: &fakeStore{}, MaxUploadBytes: 64, Logger: zerolog.Nop()})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, _ := upload(t, srv.URL, UploadField, "big.csv", marchCSV+marchCSV+marchCSV)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, proc.calls)
}

func TestProcessExcel_StorageError(t *testing.T) {
	proc := &fakeProcessor{
		report: &batch.Report{Processed: 2, Accepted: 1},
		err:    errors.New("disk full"),
	}
	hooked := false
	s := New(Config{
		Processor:     proc,
		Store:         &fakeStore{},
		ImportOptions: importer.Options{Mapping: testMapping},
		AfterBatch: func(context.Context, string, *batch.Report) error {
			hooked = true
			return nil
		},
		Logger: zerolog.Nop(),
	})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, out := upload(t, srv.URL, UploadField, "march.csv", marchCSV)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error", out.Status)
	assert.Equal(t, 1, out.NewCount)
	assert.NotContains(t, out.Message, "disk full")
	assert.False(t, hooked)
}

func TestProcessExcel_HookErrorIgnored(t *testing.T) {
	proc := &fakeProcessor{report: &batch.Report{Processed: 1, Accepted: 1}}
	s := New(Config{
		Processor:     proc,
		Store:         &fakeStore{},
		ImportOptions: importer.Options{Mapping: testMapping},
		AfterBatch: func(context.Context, string, *batch.Report) error {
			return errors.New("log unwritable")
		},
		Logger: zerolog.Nop(),
	})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, out := upload(t, srv.URL, UploadField, "march.csv", marchCSV)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", out.Status)
}

func TestLastTransactions(t *testing.T) {
	f := newFixture(t)
	upload(t, f.srv.URL, UploadField, "march.csv", marchCSV)

	resp, err := http.Get(f.srv.URL + "/api/last_transactions?count=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out []TransactionJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "2024-03-02", out[0].Date)
	assert.Equal(t, "REPSOL GASOLINERA", out[0].Description)
	assert.Equal(t, "-60.00", out[0].Amount)
	assert.Equal(t, "march.csv", out[0].Source)
	assert.NotEmpty(t, out[0].ID)
}

func TestLastTransactions_Empty(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/last_transactions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []TransactionJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestLastTransactions_StoreError(t *testing.T) {
	s := New(Config{Store: &fakeStore{err: errors.New("locked")}, Logger: zerolog.Nop()})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/last_transactions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 5},
		{"10", 10},
		{"1", 1},
		{"100", 100},
		{"0", 5},
		{"-3", 5},
		{"101", 5},
		{"ten", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCount(tt.raw), tt.raw)
	}
}

func TestLastTransactions_PassesCount(t *testing.T) {
	store := &fakeStore{}
	s := New(Config{Store: store, Logger: zerolog.Nop()})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	for _, q := range []string{"?count=7", "?count=500"} {
		resp, err := http.Get(srv.URL + "/api/last_transactions" + q)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, []int{7, 5}, store.counts)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, HealthResponse{Status: "ok", DBConnection: true}, out)
}

func TestHealth_Unavailable(t *testing.T) {
	s := New(Config{Store: &fakeStore{err: errors.New("database is closed")}, Logger: zerolog.Nop()})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, out.DBConnection)
	assert.Equal(t, "database is closed", out.Message)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/process_excel")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	var fromCtx bool
	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, fromCtx)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/health", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(Config{Store: &fakeStore{}, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type fakeProcessor struct {
	report *batch.Report
	err    error
	calls  int
}

func (p *fakeProcessor) Process(context.Context, string, []model.RawRow, batch.Options) (*batch.Report, error) {
	p.calls++
	return p.report, p.err
}

type fakeStore struct {
	err    error
	counts []int
}

func (s *fakeStore) Recent(_ context.Context, n int) ([]model.Transaction, error) {
	s.counts = append(s.counts, n)
	if s.err != nil {
		return nil, s.err
	}
	return []model.Transaction{{
		ID:          "txn-1",
		Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Description: "MERCADONA",
		Amount:      decimal.RequireFromString("-45.2"),
	}}, nil
}

func (s *fakeStore) Ping(context.Context) error {
	return s.err
}
