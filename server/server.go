// Package server exposes the converter over HTTP.
//
//	GET  /                  health and capabilities
//	GET  /keys              supported keys
//	POST /convert           multipart file, key, mode -> converted PDF
//	POST /validate          multipart file -> can it be converted?
//	GET  /conversions/:id   a recorded conversion
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsawler/nashville/config"
	"github.com/tsawler/nashville/format"
	"github.com/tsawler/nashville/history"
	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/storage"
	"github.com/tsawler/nashville/transpose"
)

// Header names set on a converted document.
const (
	HeaderCorrelationID   = "X-Correlation-ID"
	HeaderChordsConverted = "X-Chords-Converted"
	HeaderProcessingTime  = "X-Processing-Time"
)

// Runner runs conversions. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, data []byte, req pipeline.ConversionRequest) (*pipeline.ConversionResult, []byte)
	Validate(ctx context.Context, data []byte, correlationID string) *pipeline.ValidationResult
	Config() pipeline.Config
}

// Server is the HTTP front end.
type Server struct {
	cfg     *config.Config
	runner  Runner
	store   *storage.TempStore
	history *history.Store
	logger  *zap.Logger
	router  *gin.Engine
	newID   func() string
}

// Option customises a Server.
type Option func(*Server)

// WithHistory records every conversion in h.
func WithHistory(h *history.Store) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStore sets the temp store swept by Sweeper.
func WithStore(t *storage.TempStore) Option {
	return func(s *Server) { s.store = t }
}

// New builds a server and its routes.
func New(cfg *config.Config, runner Runner, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), corsMiddleware(cfg.Server.CORSOrigins))
	r.GET("/", s.handleHealth)
	r.GET("/keys", s.handleKeys)
	r.POST("/convert", s.handleConvert)
	r.POST("/validate", s.handleValidate)
	r.GET("/conversions", s.handleRecent)
	r.GET("/conversions/:id", s.handleConversion)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Stale temp artifacts are swept in the background while serving.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.Sweeper(sweepCtx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Sweeper removes stale temp namespaces every interval until ctx is done.
// It does nothing without a store.
func (s *Server) Sweeper(ctx context.Context, interval time.Duration) {
	if s.store == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	n, err := s.store.Sweep(ctx, s.cfg.TempTTL())
	if err != nil {
		s.logger.Warn("temp sweep failed", zap.Error(err))
	}
	if n > 0 {
		s.logger.Info("temp sweep", zap.Int("removed", n))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	limits := s.runner.Config()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"name":    config.AppName,
		"version": config.Version,
		"capabilities": gin.H{
			"text_pdf_support": true,
			"ocr_support":      false,
			"supported_keys":   transpose.SupportedKeys(),
			"supported_modes":  []string{string(transpose.Major), string(transpose.Minor), "auto"},
			"max_file_mb":      limits.MaxFileBytes / (1024 * 1024),
			"history":          s.history != nil,
		},
	})
}

func (s *Server) handleKeys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"keys": transpose.SupportedKeys()})
}

func (s *Server) handleConvert(c *gin.Context) {
	filename, data, ok := s.readUpload(c)
	if !ok {
		return
	}

	key := strings.TrimSpace(c.PostForm("key"))
	if key == "" {
		abort(c, http.StatusBadRequest, "Missing key.")
		return
	}
	mode := c.DefaultPostForm("mode", string(transpose.Major))
	debug, _ := strconv.ParseBool(c.DefaultPostForm("debug", c.Query("debug")))

	req := pipeline.ConversionRequest{
		CorrelationID: s.newID(),
		Key:           key,
		Mode:          transpose.Mode(mode),
		AutoMode:      strings.EqualFold(mode, "auto"),
		Debug:         debug,
	}
	res, out := s.runner.Run(c.Request.Context(), data, req)
	s.record(c.Request.Context(), filename, res)

	c.Header(HeaderCorrelationID, res.CorrelationID)
	if !res.Success {
		c.JSON(statusFor(res.Error), gin.H{
			"success":        false,
			"correlation_id": res.CorrelationID,
			"error":          res.Error,
			"warnings":       res.Warnings,
		})
		return
	}

	c.Header(HeaderChordsConverted, strconv.Itoa(res.ChordsConverted))
	c.Header(HeaderProcessingTime, strconv.FormatFloat(res.ProcessingTimeSeconds, 'f', 3, 64))
	if debug {
		c.JSON(http.StatusOK, res)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "nashville_" + filename,
	}))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) handleValidate(c *gin.Context) {
	_, data, ok := s.readUpload(c)
	if !ok {
		return
	}
	res := s.runner.Validate(c.Request.Context(), data, s.newID())
	c.Header(HeaderCorrelationID, res.CorrelationID)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleConversion(c *gin.Context) {
	if s.history == nil {
		abort(c, http.StatusNotFound, "Conversion history is disabled.")
		return
	}
	entry, err := s.history.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, history.ErrNotFound):
		abort(c, http.StatusNotFound, "Conversion not found.")
	case err != nil:
		s.logger.Error("history lookup failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, "History lookup failed.")
	default:
		c.JSON(http.StatusOK, entry)
	}
}

func (s *Server) handleRecent(c *gin.Context) {
	if s.history == nil {
		abort(c, http.StatusNotFound, "Conversion history is disabled.")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("history listing failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, "History lookup failed.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversions": entries})
}

// readUpload checks and reads the "file" form field. It writes the error
// response itself and reports false when the upload is unacceptable.
func (s *Server) readUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		abort(c, http.StatusBadRequest, "Missing file.")
		return "", nil, false
	}
	name := filepath.Base(fh.Filename)
	if !format.HasPDFExtension(name) {
		abort(c, http.StatusBadRequest, "Invalid file type. Only PDF files are accepted.")
		return "", nil, false
	}
	if !format.IsPDFContentType(fh.Header.Get("Content-Type")) {
		abort(c, http.StatusBadRequest, "Invalid content type. File must be a PDF.")
		return "", nil, false
	}
	limit := s.runner.Config().MaxFileBytes
	if fh.Size > limit {
		abort(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %.0f MB.", float64(limit)/(1024*1024)))
		return "", nil, false
	}

	f, err := fh.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read upload.")
		return "", nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read upload.")
		return "", nil, false
	}
	return name, data, true
}

func (s *Server) record(ctx context.Context, filename string, res *pipeline.ConversionResult) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, filename, res); err != nil {
		s.logger.Warn("failed to record conversion",
			zap.String("correlation_id", res.CorrelationID), zap.Error(err))
	}
}

// statusFor maps a failed run to an HTTP status. Problems with the input
// are the client's; everything else is ours.
func statusFor(err *pipeline.StructuredError) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Kind {
	case pipeline.KindInvalidRequest, pipeline.KindInvalidDocument,
		pipeline.KindUnsupportedDocument, pipeline.KindNoChordsFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
