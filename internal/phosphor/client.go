package phosphor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/smazurov/powerled/internal/postcode"
	"github.com/smazurov/powerled/internal/tracker"
)

const (
	hostService        = "xyz.openbmc_project.State.Host"
	hostInterface      = "xyz.openbmc_project.State.Host"
	postCodeInterface  = "xyz.openbmc_project.State.Boot.PostCode"
	getPostCodesMethod = postCodeInterface + ".GetPostCodes"

	// currentBootCycle is the GetPostCodes index of the running boot cycle.
	currentBootCycle uint16 = 1

	signalBuffer = 64
)

// Paths holds the bus names and object paths for one host.
type Paths struct {
	HostState       dbus.ObjectPath
	RawPostCode     dbus.ObjectPath
	PostCodeService string
	PostCodeObject  dbus.ObjectPath
}

// PathsFor returns the object paths of host index n.
func PathsFor(n int) Paths {
	return Paths{
		HostState:       dbus.ObjectPath(fmt.Sprintf("/xyz/openbmc_project/state/host%d", n)),
		RawPostCode:     dbus.ObjectPath(fmt.Sprintf("/xyz/openbmc_project/state/boot/raw%d", n)),
		PostCodeService: fmt.Sprintf("xyz.openbmc_project.State.Boot.PostCode%d", n),
		PostCodeObject:  dbus.ObjectPath(fmt.Sprintf("/xyz/openbmc_project/State/Boot/PostCode%d", n)),
	}
}

// busConn is the part of *dbus.Conn the client uses.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// Client reads host power state and POST codes from the system bus.
type Client struct {
	raw    *dbus.Conn
	conn   busConn
	paths  Paths
	logger *slog.Logger

	mu      sync.Mutex
	signals chan *dbus.Signal
}

// Connect opens a system bus connection for host index n.
func Connect(n int, logger *slog.Logger) (*Client, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return NewClient(conn, n, logger), nil
}

// NewClient wraps an existing bus connection.
func NewClient(conn *dbus.Conn, n int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := newClient(conn, PathsFor(n), logger.With("host", n))
	c.raw = conn
	return c
}

func newClient(conn busConn, paths Paths, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:   conn,
		paths:  paths,
		logger: logger,
	}
}

// Conn returns the underlying bus connection.
func (c *Client) Conn() *dbus.Conn {
	return c.raw
}

// HostPowered queries CurrentHostState once.
func (c *Client) HostPowered(ctx context.Context) (bool, error) {
	var value dbus.Variant
	obj := c.conn.Object(hostService, c.paths.HostState)
	err := obj.CallWithContext(ctx, propertiesGet, 0, hostInterface, hostStateProperty).Store(&value)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", hostStateProperty, err)
	}

	state, ok := value.Value().(string)
	if !ok {
		return false, fmt.Errorf("%s is %T, want string", hostStateProperty, value.Value())
	}
	return ParseHostState(state)
}

// PostCodes returns every POST code recorded for the current boot cycle.
func (c *Client) PostCodes(ctx context.Context) ([]postcode.Entry, error) {
	var raw []struct {
		Primary   uint64
		Secondary []byte
	}
	obj := c.conn.Object(c.paths.PostCodeService, c.paths.PostCodeObject)
	err := obj.CallWithContext(ctx, getPostCodesMethod, 0, currentBootCycle).Store(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to get POST codes: %w", err)
	}

	entries := make([]postcode.Entry, len(raw))
	for i, r := range raw {
		entries[i] = postcode.Entry{Primary: r.Primary, Secondary: postcode.Code(r.Secondary)}
	}
	return entries, nil
}

// matchRules returns the PropertiesChanged match options of every
// watched object.
func (c *Client) matchRules() [][]dbus.MatchOption {
	paths := []dbus.ObjectPath{c.paths.HostState, c.paths.RawPostCode}
	rules := make([][]dbus.MatchOption, 0, len(paths))
	for _, path := range paths {
		rules = append(rules, []dbus.MatchOption{
			dbus.WithMatchObjectPath(path),
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		})
	}
	return rules
}

// Subscribe registers the host state and POST code signal matches. Signals
// are queued from this point on and delivered once Watch is called, so
// nothing emitted while the startup queries run is lost. The matches are
// removed when ctx is done.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signals != nil {
		return nil
	}

	rules := c.matchRules()
	for i, rule := range rules {
		if err := c.conn.AddMatchSignal(rule...); err != nil {
			for _, added := range rules[:i] {
				_ = c.conn.RemoveMatchSignal(added...)
			}
			return fmt.Errorf("failed to add signal match: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, signalBuffer)
	c.conn.Signal(signals)
	c.signals = signals

	go func() {
		<-ctx.Done()
		c.conn.RemoveSignal(signals)
		for _, rule := range rules {
			if err := c.conn.RemoveMatchSignal(rule...); err != nil {
				c.logger.Debug("Failed to remove signal match", "error", err)
			}
		}
	}()
	return nil
}

// Watch delivers the signals queued since Subscribe, and every later one,
// to handle in bus order from a single goroutine until ctx is done. It
// subscribes first when Subscribe was not called.
func (c *Client) Watch(ctx context.Context, handle func(tracker.Event)) error {
	if err := c.Subscribe(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	signals := c.signals
	c.mu.Unlock()

	c.logger.Info("Watching host state and POST code signals",
		"raw_postcode_path", string(c.paths.RawPostCode))
	go dispatchSignals(ctx, signals, c.paths, handle, c.logger)
	return nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// dispatchSignals decodes signals and forwards the resulting events until
// ctx is done or signals is closed.
func dispatchSignals(ctx context.Context, signals <-chan *dbus.Signal, paths Paths, handle func(tracker.Event), logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Signal dispatch stopped")
			return

		case sig, ok := <-signals:
			if !ok {
				logger.Warn("Bus signal channel closed")
				return
			}

			ev, err := decodeSignal(sig, paths)
			if err != nil {
				signalErrors.Inc()
				logger.Warn("Dropping malformed signal", "path", string(sig.Path), "error", err)
				continue
			}
			if ev != nil {
				handle(ev)
			}
		}
	}
}
