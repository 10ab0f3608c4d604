// Package devserver is a local stand-in for the three intake endpoints. It
// stores uploaded photos on disk and keeps completions and error reports in
// memory so the wizard and the submission pipeline can run end to end
// without the production site.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"virtualcare/internal/config"
	"virtualcare/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadMemory = 32 << 20

// Completion is a received completion request.
type Completion struct {
	Email          string                     `json:"email"`
	Answers        map[string]json.RawMessage `json:"answers"`
	SubmissionFrom string                     `json:"submissionFrom"`
	ReceivedAt     time.Time                  `json:"received_at"`
}

// Endpoint names for failure injection.
const (
	EndpointUpload   = "upload"
	EndpointComplete = "complete"
	EndpointError    = "error"
)

// Server serves the stand-in endpoints.
type Server struct {
	cfg       config.DevServerConfig
	endpoints config.EndpointsConfig
	log       *zap.Logger

	mu          sync.Mutex
	completions []Completion
	reports     []json.RawMessage
	uploads     []string
	failures    map[string]int
}

// New creates a server and its upload directory.
func New(cfg *config.Config) (*Server, error) {
	if err := os.MkdirAll(cfg.DevServer.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Server{
		cfg:       cfg.DevServer,
		endpoints: cfg.Endpoints,
		log:       logging.Get(logging.CategoryDevServer),
		failures:  make(map[string]int),
	}, nil
}

// FailWith makes endpoint answer with status until cleared with status 0.
func (s *Server) FailWith(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = status
}

func (s *Server) failure(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[endpoint]
}

// Completions returns the received completion requests.
func (s *Server) Completions() []Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Completion(nil), s.completions...)
}

// Reports returns the received error_body values.
func (s *Server) Reports() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.reports...)
}

// Uploads returns stored upload file names.
func (s *Server) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Post(routePath(s.endpoints.UploadPath), s.handleUpload)
	r.Post(routePath(s.endpoints.CompletePath), s.handleComplete)
	r.Post(routePath(s.endpoints.ErrorPath), s.handleError)
	r.Get("/uploads/{name}", s.handleGetUpload)
	return r
}

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("devserver listening", zap.String("addr", s.cfg.Addr), zap.String("upload_dir", s.cfg.UploadDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if status := s.failure(EndpointUpload); status != 0 {
		http.Error(w, "upload failure injected", status)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "multipart body required", http.StatusBadRequest)
		return
	}
	headers := r.MultipartForm.File["files[]"]
	if len(headers) == 0 {
		http.Error(w, "files[] required", http.StatusBadRequest)
		return
	}

	base := s.publicURL(r)
	urls := make([]string, 0, len(headers))
	for _, fh := range headers {
		name := uuid.NewString()[:8] + "-" + sanitize(fh.Filename)
		if err := s.store(fh, name); err != nil {
			s.log.Error("storing upload failed", zap.String("name", fh.Filename), zap.Error(err))
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		urls = append(urls, base+"/uploads/"+name)
		s.mu.Lock()
		s.uploads = append(s.uploads, name)
		s.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, map[string][]string{"urls": urls})
}

func (s *Server) store(fh *multipart.FileHeader, name string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if status := s.failure(EndpointComplete); status != 0 {
		http.Error(w, "completion failure injected", status)
		return
	}
	var c Completion
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(c.Email) == "" {
		http.Error(w, "email required", http.StatusBadRequest)
		return
	}
	c.ReceivedAt = time.Now()

	s.mu.Lock()
	s.completions = append(s.completions, c)
	s.mu.Unlock()

	s.log.Info("assessment completed", zap.String("email", c.Email), zap.Int("answers", len(c.Answers)))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	if status := s.failure(EndpointError); status != 0 {
		http.Error(w, "error report failure injected", status)
		return
	}
	var body struct {
		ErrorBody json.RawMessage `json:"error_body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.reports = append(s.reports, body.ErrorBody)
	s.mu.Unlock()

	s.log.Warn("assessment error reported", zap.ByteString("error_body", body.ErrorBody))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.UploadDir, name))
}

func (s *Server) publicURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	}
	return "http://" + r.Host
}

func routePath(p string) string {
	return "/" + strings.TrimPrefix(p, "/")
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
