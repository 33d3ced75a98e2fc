// Package statushttp implements the node's read-only status HTTP endpoint
// (§6): the current telemetry snapshot as JSON at /telemetry, plus embedded
// static assets on every other path.
package statushttp

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dl1pag/pocsag-transmitter/internal/telemetry"
)

//go:embed static
var staticFS embed.FS

// Server serves /telemetry and the embedded static asset tree.
type Server struct {
	telemetry *telemetry.Store
	logger    *log.Logger
}

// New builds a Server reporting from tel.
func New(tel *telemetry.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{telemetry: tel, logger: logger}
}

// ListenAndServe blocks, serving the status HTTP endpoint on addr (e.g. "0.0.0.0:8073").
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// Handler returns the server's http.Handler, for tests and for embedding
// behind a caller-managed http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/telemetry", s.handleTelemetry)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		s.logger.Warn("embedded static assets unavailable", "err", err)
		return mux
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	snap := s.telemetry.Get()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn("encoding telemetry response failed", "err", err)
	}
}
