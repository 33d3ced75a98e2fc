// Package controlws implements the node's interactive control websocket
// (§6): a tagged JSON request/response protocol for reading and changing
// configuration, querying telemetry, sending test messages, and driving
// restart/shutdown - gated behind authentication except for loopback clients.
package controlws

import (
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/dl1pag/pocsag-transmitter/internal/config"
	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
	"github.com/dl1pag/pocsag-transmitter/internal/telemetry"
)

// Server serves the control websocket described in §6.
type Server struct {
	configPath string
	authKey    string
	version    string
	priorities int

	bus       *event.Bus
	telemetry *telemetry.Store
	upgrader  websocket.Upgrader
	logger    *log.Logger
}

// New builds a Server. authKey is the shared secret a non-loopback client
// must present via Authenticate; configPath is where SetConfig/DefaultConfig
// persist their result; priorities is the configured priority-lane count
// (config.Config.Priorities) SendMessage validates incoming requests against.
func New(configPath, authKey, version string, priorities int, bus *event.Bus, tel *telemetry.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		configPath: configPath,
		authKey:    authKey,
		version:    version,
		priorities: priorities,
		bus:        bus,
		telemetry:  tel,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:     logger,
	}
}

// ListenAndServe blocks, serving the control websocket on addr (e.g. "0.0.0.0:8055").
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// Handler returns the server's http.Handler, for tests and for embedding
// behind a caller-managed http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	return mux
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.serveConn(conn, isLoopback(r.RemoteAddr))
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// serveConn runs the read/dispatch/write loop for one client connection.
// preAuthenticated clients (loopback) skip the Authenticate gate entirely.
func (s *Server) serveConn(conn *websocket.Conn, preAuthenticated bool) {
	authed := preAuthenticated

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		resp := s.handleRequest(req, &authed)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(req request, authed *bool) response {
	if req.Type != reqAuthenticate && !*authed {
		return response{Type: respAuthenticated, Authed: false}
	}

	switch req.Type {
	case reqAuthenticate:
		*authed = s.authKey != "" && req.AuthKey == s.authKey
		return response{Type: respAuthenticated, Authed: *authed}

	case reqGetConfig:
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return response{Type: respMessage, Message: "could not load config: " + err.Error()}
		}
		return response{Type: respConfig, Config: &cfg}

	case reqSetConfig:
		if req.Config == nil {
			return response{Type: respMessage, Message: "missing config payload"}
		}
		if err := config.Save(s.configPath, *req.Config); err != nil {
			return response{Type: respMessage, Message: "could not save config: " + err.Error()}
		}
		s.bus.Publish(event.ConfigUpdate{Path: s.configPath})
		return response{Type: respConfig, Config: req.Config}

	case reqDefaultConfig:
		def := config.Default()
		if err := config.Save(s.configPath, def); err != nil {
			return response{Type: respMessage, Message: "could not save config: " + err.Error()}
		}
		s.bus.Publish(event.ConfigUpdate{Path: s.configPath})
		return response{Type: respConfig, Config: &def}

	case reqGetTelemetry:
		return response{Type: respTelemetry, Telemetry: s.telemetry.Get()}

	case reqGetTimeslot:
		snap := s.telemetry.Get()
		return response{Type: respTimeslot, Timeslot: snap.Slots.ToHexChars()}

	case reqGetVersion:
		return response{Type: respVersion, Version: s.version}

	case reqSendMessage:
		return s.handleSendMessage(req)

	case reqRestart:
		s.bus.Publish(event.Restart{})
		return response{Type: respMessage, Message: "restart requested"}

	case reqShutdown:
		s.bus.Publish(event.Shutdown{Reason: "control websocket request"})
		return response{Type: respMessage, Message: "shutdown requested"}

	case reqTest:
		s.bus.Publish(event.Test{})
		return response{Type: respMessage, Message: "test transmission requested"}

	default:
		return response{Type: respMessage, Message: "unknown request type: " + req.Type}
	}
}

func (s *Server) handleSendMessage(req request) response {
	mtype := pocsag.AlphaNum
	if req.MType == "numeric" {
		mtype = pocsag.Numeric
	}

	msg := pocsag.Message{
		ID:       newMessageID(),
		Priority: req.Priority,
		RIC:      req.RIC,
		Func:     pocsag.Func(req.Func & 0b11),
		Type:     mtype,
		Data:     []byte(req.Text),
		Speed:    1200,
	}
	if err := msg.Validate(s.priorities); err != nil {
		return response{Type: respMessage, Message: err.Error()}
	}

	s.bus.Publish(event.MessageReceived{Message: msg})
	return response{Type: respMessage, Message: "queued"}
}

var messageIDCounter uint64

// newMessageID returns a process-wide unique id. atomic.AddUint64 keeps
// concurrent connections' SendMessage calls from racing on the counter.
func newMessageID() string {
	n := atomic.AddUint64(&messageIDCounter, 1)
	return "ws-" + strconv.FormatUint(n, 10)
}
