package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/nashville/config"
	"github.com/tsawler/nashville/history"
	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/storage"
	"github.com/tsawler/nashville/transpose"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []pipeline.ConversionRequest
	result   *pipeline.ConversionResult
	output   []byte
	valid    *pipeline.ValidationResult
}

func (f *fakeRunner) Run(_ context.Context, _ []byte, req pipeline.ConversionRequest) (*pipeline.ConversionResult, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	res := *f.result
	res.CorrelationID = req.CorrelationID
	res.Key = req.Key
	res.Mode = req.Mode
	return &res, f.output
}

func (f *fakeRunner) Validate(_ context.Context, _ []byte, id string) *pipeline.ValidationResult {
	res := *f.valid
	res.CorrelationID = id
	return &res
}

func (f *fakeRunner) Config() pipeline.Config {
	return pipeline.DefaultConfig()
}

func okResult() *pipeline.ConversionResult {
	return &pipeline.ConversionResult{
		Success:               true,
		ChordsConverted:       7,
		ProcessingTimeSeconds: 0.25,
		Warnings:              []string{},
	}
}

func newTestServer(t *testing.T, runner *fakeRunner, opts ...Option) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	s := New(cfg, runner, opts...)
	s.newID = func() string { return "fixed-id" }
	return s
}

type upload struct {
	filename    string
	contentType string
	data        []byte
	fields      map[string]string
}

func pdfUpload(fields map[string]string) upload {
	return upload{
		filename:    "chart.pdf",
		contentType: "application/pdf",
		data:        []byte("%PDF-1.4\n"),
		fields:      fields,
	}
}

func (u upload) request(t *testing.T, path string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if u.filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+u.filename+`"`)
		h.Set("Content-Type", u.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	for k, v := range u.fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeRunner{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, config.Version, body["version"])
	caps := body["capabilities"].(map[string]any)
	assert.Equal(t, false, caps["ocr_support"])
	assert.Len(t, caps["supported_keys"], len(transpose.SupportedKeys()))
	assert.EqualValues(t, 10, caps["max_file_mb"])
}

func TestKeys(t *testing.T) {
	s := newTestServer(t, &fakeRunner{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/keys", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	keys := decode(t, rec)["keys"].([]any)
	assert.Contains(t, keys, "Bb")
	assert.Contains(t, keys, "F#")
}

func TestConvert_Success(t *testing.T) {
	runner := &fakeRunner{result: okResult(), output: []byte("%PDF-converted")}
	s := newTestServer(t, runner)

	rec := serve(s, pdfUpload(map[string]string{"key": "G"}).request(t, "/convert"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-converted", rec.Body.String())
	assert.Equal(t, "fixed-id", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "7", rec.Header().Get(HeaderChordsConverted))
	assert.Equal(t, "0.250", rec.Header().Get(HeaderProcessingTime))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "nashville_chart.pdf")

	require.Len(t, runner.requests, 1)
	req := runner.requests[0]
	assert.Equal(t, "G", req.Key)
	assert.Equal(t, transpose.Major, req.Mode, "mode defaults to major")
	assert.False(t, req.AutoMode)
}

func TestConvert_AutoAndDebug(t *testing.T) {
	runner := &fakeRunner{result: okResult(), output: []byte("%PDF")}
	s := newTestServer(t, runner)

	rec := serve(s, pdfUpload(map[string]string{"key": "A", "mode": "auto", "debug": "true"}).request(t, "/convert"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"], "debug responds with the result")
	require.Len(t, runner.requests, 1)
	assert.True(t, runner.requests[0].AutoMode)
	assert.True(t, runner.requests[0].Debug)
}

func TestConvert_RejectsUploads(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: okResult()})

	tests := []struct {
		name   string
		upload upload
		status int
		msg    string
	}{
		{"no file", upload{fields: map[string]string{"key": "C"}}, http.StatusBadRequest, "Missing file."},
		{"extension", upload{filename: "chart.txt", contentType: "application/pdf", data: []byte("x"), fields: map[string]string{"key": "C"}},
			http.StatusBadRequest, "Invalid file type. Only PDF files are accepted."},
		{"content type", upload{filename: "chart.PDF", contentType: "text/plain", data: []byte("x"), fields: map[string]string{"key": "C"}},
			http.StatusBadRequest, "Invalid content type. File must be a PDF."},
		{"too large", upload{filename: "big.pdf", contentType: "application/pdf", data: make([]byte, 11*1024*1024), fields: map[string]string{"key": "C"}},
			http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10 MB."},
		{"missing key", pdfUpload(nil), http.StatusBadRequest, "Missing key."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.upload.request(t, "/convert"))
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestConvert_Failure(t *testing.T) {
	tests := []struct {
		kind   pipeline.ErrorKind
		status int
	}{
		{pipeline.KindNoChordsFound, http.StatusBadRequest},
		{pipeline.KindInvalidRequest, http.StatusBadRequest},
		{pipeline.KindUnsupportedDocument, http.StatusBadRequest},
		{pipeline.KindRenderFailure, http.StatusInternalServerError},
		{pipeline.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			runner := &fakeRunner{result: &pipeline.ConversionResult{
				Error:    &pipeline.StructuredError{Stage: pipeline.StageIdentify, Kind: tt.kind, Message: "boom"},
				Warnings: []string{},
			}}
			s := newTestServer(t, runner)

			rec := serve(s, pdfUpload(map[string]string{"key": "C"}).request(t, "/convert"))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "fixed-id", body["correlation_id"])
			errBody := body["error"].(map[string]any)
			assert.Equal(t, string(tt.kind), errBody["error_type"])
			assert.Equal(t, "identify", errBody["stage"])
			assert.Equal(t, "boom", errBody["message"])
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	runner := &fakeRunner{valid: &pipeline.ValidationResult{
		Valid: true, IsTextBased: true, NumPages: 2, SampleChords: []string{"C", "G"},
	}}
	s := newTestServer(t, runner)

	rec := serve(s, pdfUpload(nil).request(t, "/validate"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.EqualValues(t, 2, body["num_pages"])
	assert.Equal(t, "fixed-id", body["correlation_id"])
	assert.Equal(t, []any{"C", "G"}, body["sample_chords"])
}

func TestConversions_History(t *testing.T) {
	h, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	runner := &fakeRunner{result: okResult(), output: []byte("%PDF")}
	s := newTestServer(t, runner, WithHistory(h))

	rec := serve(s, pdfUpload(map[string]string{"key": "D", "mode": "minor"}).request(t, "/convert"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/conversions/fixed-id", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "chart.pdf", body["filename"])
	assert.Equal(t, "D", body["key"])
	assert.Equal(t, "minor", body["mode"])
	assert.Equal(t, true, body["success"])

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/conversions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["conversions"], 1)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/conversions/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversions_HistoryDisabled(t *testing.T) {
	s := newTestServer(t, &fakeRunner{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/conversions/any", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Conversion history is disabled.", decode(t, rec)["error"])
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		s := newTestServer(t, &fakeRunner{})
		req := httptest.NewRequest(http.MethodGet, "/keys", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := serve(s, req)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	cfg := config.DefaultConfig()
	cfg.Server.CORSOrigins = []string{"https://app.example.com"}
	s := New(cfg, &fakeRunner{})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/keys", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := serve(s, req)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/convert", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := serve(s, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/keys", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := serve(s, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodOptions, "/convert", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		assert.Equal(t, http.StatusForbidden, serve(s, req).Code)
	})
}

func TestSweep(t *testing.T) {
	store := storage.New("mem://localhost/server-sweep")
	ctx := context.Background()
	_, err := store.Put(ctx, "stale-run", "input.pdf", []byte("x"))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Storage.TTL = "1ns"
	s := New(cfg, &fakeRunner{}, WithStore(store))

	time.Sleep(time.Millisecond)
	s.sweep(ctx)

	n, err := store.Sweep(ctx, time.Nanosecond)
	require.NoError(t, err)
	assert.Zero(t, n, "the stale namespace is already gone")
}

func TestSweeperStopsWithContext(t *testing.T) {
	s := New(config.DefaultConfig(), &fakeRunner{}, WithStore(storage.New("mem://localhost/server-stop")))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Sweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
