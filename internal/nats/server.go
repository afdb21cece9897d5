package nats

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ErrServerNotReady is returned when the embedded server does not accept
// connections in time.
var ErrServerNotReady = errors.New("embedded NATS server not ready")

const readyTimeout = 5 * time.Second

// Server wraps an embedded NATS server bound to a local address, for BMCs
// without an external broker.
type Server struct {
	ns     *server.Server
	addr   string
	logger *slog.Logger
}

// NewServer creates an embedded server listening on addr ("host:port").
// Port 0 picks a free port.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		logger: logger.With("component", "nats-server"),
	}
}

// Start starts the embedded server and waits for it to be ready.
func (s *Server) Start() error {
	host, portStr, err := net.SplitHostPort(s.addr)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}
	if port == 0 {
		port = server.RANDOM_PORT
	}

	ns, err := server.NewServer(&server.Options{
		Host:       host,
		Port:       port,
		ServerName: "powerled",
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 64 * 1024,
	})
	if err != nil {
		return err
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return ErrServerNotReady
	}

	s.ns = ns
	s.logger.Info("Embedded NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it to finish.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.logger.Info("Stopping embedded NATS server")
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
}

// ClientURL returns the URL clients should use to connect.
func (s *Server) ClientURL() string {
	if s.ns == nil {
		return "nats://" + s.addr
	}
	return s.ns.ClientURL()
}

// IsRunning returns true if the server is running and accepting connections.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}
