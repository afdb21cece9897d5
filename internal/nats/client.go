package nats

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/powerled/internal/events"
	"github.com/smazurov/powerled/internal/version"
)

// Publisher announces boot state and LED presentation changes of one host
// and receives control commands. It degrades gracefully when NATS is
// unavailable: publishing becomes a no-op until a reconnect succeeds.
type Publisher struct {
	url       string
	host      int
	conn      *nats.Conn
	sub       *nats.Subscription
	logger    *slog.Logger
	mu        sync.RWMutex
	onReapply func(reason string)
	connected bool
}

// NewPublisher creates a publisher for host index host.
func NewPublisher(url string, host int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		url:    url,
		host:   host,
		logger: logger.With("component", "nats-publisher", "host", host),
	}
}

// Connect establishes a connection to the NATS server. A failed connect
// leaves the publisher in offline mode.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("powerled-host%d/%s", p.host, version.Version)),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.mu.Lock()
			p.connected = false
			p.mu.Unlock()
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			} else {
				p.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.mu.Lock()
			p.connected = true
			p.mu.Unlock()
			p.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(p.url, opts...)
	if err != nil {
		p.logger.Warn("Failed to connect to NATS, running in offline mode", "error", err)
		return err
	}

	p.conn = conn
	p.connected = true
	p.logger.Info("Connected to NATS", "url", p.url)

	p.subscribeControlLocked()
	return nil
}

// subscribeControlLocked subscribes to control commands (must hold lock).
// The client library restores the subscription after a reconnect.
func (p *Publisher) subscribeControlLocked() {
	if p.conn == nil || p.onReapply == nil || p.sub != nil {
		return
	}

	sub, err := p.conn.Subscribe(SubjectControl(p.host), p.handleControl)
	if err != nil {
		p.logger.Warn("Failed to subscribe to control commands", "error", err)
		return
	}
	if err := p.conn.FlushTimeout(time.Second); err != nil {
		p.logger.Debug("Control subscription not confirmed", "error", err)
	}
	p.sub = sub
}

func (p *Publisher) handleControl(msg *nats.Msg) {
	ctrl, err := UnmarshalControl(msg.Data)
	if err != nil {
		p.logger.Warn("Failed to unmarshal control message", "error", err)
		return
	}

	p.logger.Info("Received control command", "action", ctrl.Action, "reason", ctrl.Reason)

	p.mu.RLock()
	onReapply := p.onReapply
	p.mu.RUnlock()

	switch ctrl.Action {
	case ActionReapply:
		if onReapply != nil {
			onReapply(ctrl.Reason)
		}
	default:
		p.logger.Warn("Ignoring unknown control action", "action", ctrl.Action)
	}
}

// OnReapply sets the callback for reapply commands.
func (p *Publisher) OnReapply(fn func(reason string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReapply = fn
	p.subscribeControlLocked()
}

// Forward publishes bus events until the returned function is called.
func (p *Publisher) Forward(bus *events.Bus) func() {
	unsubState := bus.Subscribe(func(e events.BootStateChangedEvent) {
		p.PublishState(StateMessage{
			Host:        p.host,
			HostPowerOn: e.HostPowerOn,
			BootStarted: e.BootStarted,
			BootEnded:   e.BootEnded,
			Cause:       e.Cause,
			Timestamp:   e.Timestamp,
		})
	})
	unsubPresentation := bus.Subscribe(func(e events.PresentationChangedEvent) {
		p.PublishPresentation(PresentationMessage{
			Host:         p.host,
			Presentation: e.Presentation,
			Previous:     e.Previous,
			Timestamp:    e.Timestamp,
		})
	})
	return func() {
		unsubState()
		unsubPresentation()
	}
}

// PublishPresentation publishes a presentation change.
// No-op if not connected.
func (p *Publisher) PublishPresentation(m PresentationMessage) {
	p.publish(SubjectPresentation(p.host), m)
}

// PublishState publishes a boot state change.
// No-op if not connected.
func (p *Publisher) PublishState(m StateMessage) {
	p.publish(SubjectState(p.host), m)
}

func (p *Publisher) publish(subject string, m interface{ Marshal() ([]byte, error) }) {
	p.mu.RLock()
	conn := p.conn
	connected := p.connected
	p.mu.RUnlock()

	if conn == nil || !connected {
		return
	}

	data, err := m.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal message", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish message", "subject", subject, "error", err)
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil
}

// Close flushes pending messages and closes the NATS connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub != nil {
		_ = p.sub.Unsubscribe()
		p.sub = nil
	}

	if p.conn != nil {
		_ = p.conn.FlushTimeout(time.Second)
		p.conn.Close()
		p.conn = nil
	}

	p.connected = false
	p.logger.Debug("NATS publisher closed")
}

// ControlSender sends commands to a running daemon.
type ControlSender struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewControlSender connects a command sender to url.
func NewControlSender(url string, logger *slog.Logger) (*ControlSender, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("powerled-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}

	return &ControlSender{
		conn:   conn,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// Reapply asks the daemon of host to re-send its current presentation.
func (s *ControlSender) Reapply(host int, reason string) error {
	msg := ControlMessage{
		Action:    ActionReapply,
		Host:      host,
		Timestamp: time.Now().Format(time.RFC3339),
		Reason:    reason,
	}

	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	if err := s.conn.Publish(SubjectControl(host), data); err != nil {
		return err
	}
	if err := s.conn.FlushTimeout(2 * time.Second); err != nil {
		return err
	}

	s.logger.Info("Sent reapply command", "host", host, "reason", reason)
	return nil
}

// Close closes the sender connection.
func (s *ControlSender) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
