package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/powerled/cmd"
	"github.com/smazurov/powerled/internal/api"
	"github.com/smazurov/powerled/internal/config"
	"github.com/smazurov/powerled/internal/events"
	"github.com/smazurov/powerled/internal/led"
	"github.com/smazurov/powerled/internal/logging"
	"github.com/smazurov/powerled/internal/nats"
	"github.com/smazurov/powerled/internal/phosphor"
	"github.com/smazurov/powerled/internal/powerled"
	"github.com/smazurov/powerled/internal/systemd"
	"github.com/smazurov/powerled/internal/tracker"
	"github.com/smazurov/powerled/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config   string `help:"Path to the power LED document (JSON, or TOML with a .toml extension)" short:"c" default:""`
	Settings string `help:"Path to the daemon settings file" default:"/etc/powerled/settings.toml"`

	// Host settings
	Host           int    `help:"Host index, selects host<N>, raw<N> and PostCode<N>" default:"0" toml:"host.index" env:"HOST_INDEX"`
	LEDBackend     string `help:"LED backend (auto, dbus, sysfs, noop)" default:"dbus" toml:"led.backend" env:"LED_BACKEND"`
	StrictConfig   bool   `help:"Exit with status 1 when the power LED document is missing or invalid" default:"false" toml:"policy.strict_config" env:"STRICT_CONFIG"`
	RequireHistory bool   `help:"Fail startup when the POST code history cannot be read" default:"false" toml:"policy.require_history" env:"REQUIRE_HISTORY"`

	// API settings
	Listen       string `help:"Status API listen address, empty disables the API" default:"" toml:"api.listen" env:"API_LISTEN"`
	AuthUsername string `help:"Basic auth username" default:"" toml:"api.auth_username" env:"API_AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"api.auth_password" env:"API_AUTH_PASSWORD"`

	// NATS settings
	NatsURL    string `help:"NATS server URL for change notifications, empty disables NATS" default:"" toml:"nats.url" env:"NATS_URL"`
	NatsListen string `help:"Run an embedded NATS server on this address" default:"" toml:"nats.listen" env:"NATS_LISTEN"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingTracker  string `help:"Tracker logging level" default:"" toml:"logging.tracker" env:"LOGGING_TRACKER"`
	LoggingLED      string `help:"LED logging level" default:"" toml:"logging.led" env:"LOGGING_LED"`
	LoggingPhosphor string `help:"D-Bus ingestion logging level" default:"" toml:"logging.phosphor" env:"LOGGING_PHOSPHOR"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats     string `help:"NATS logging level" default:"" toml:"logging.nats" env:"LOGGING_NATS"`
}

// exitCode is the process status for a missing or invalid power LED document.
func (o *Options) exitCode() int {
	if o.StrictConfig {
		return 1
	}
	return 0
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load settings file and environment overrides
		settingsErr := config.LoadConfig(opts, cli.Root())

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"tracker":  opts.LoggingTracker,
				"led":      opts.LoggingLED,
				"phosphor": opts.LoggingPhosphor,
				"api":      opts.LoggingAPI,
				"nats":     opts.LoggingNats,
			},
		})
		logger := logging.GetLogger("main")
		if settingsErr != nil {
			logger.Warn("Failed to load settings", "error", settingsErr)
		}

		d := &daemon{opts: opts, logger: logger}
		hooks.OnStart(d.run)
		hooks.OnStop(d.stop)
	})

	cli.Root().Use = "powerled"
	cli.Root().Short = "Drive the host power LED from power state and POST codes"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateValidateConfigCmd())
	cli.Root().AddCommand(cmd.CreateReapplyCmd())

	cli.Run()
}

// daemon holds everything started by run so that stop can tear it down.
type daemon struct {
	opts   *Options
	logger *slog.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	client     *phosphor.Client
	server     *api.Server
	publisher  *nats.Publisher
	natsServer *nats.Server
	watcher    *config.Watcher
	stopped    bool
}

func (d *daemon) run() {
	opts := d.opts
	logger := d.logger

	cfg, err := config.LoadPowerLED(opts.Config)
	if err != nil {
		logger.Error("Invalid power LED document", "path", opts.Config, "error", err)
		os.Exit(opts.exitCode())
	}

	ctx, cancel := context.WithCancel(context.Background())

	client, err := phosphor.Connect(opts.Host, logging.GetLogger("phosphor"))
	if err != nil {
		logger.Error("Failed to connect to D-Bus", "error", err)
		cancel()
		os.Exit(1)
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		cancel()
		_ = client.Close()
		return
	}
	d.cancel = cancel
	d.client = client
	d.mu.Unlock()

	eventBus := events.New()
	groups := led.Groups{
		Booted:     cfg.BootedGroup,
		PostActive: cfg.PostActiveGroup,
		PoweredOn:  cfg.PoweredOnGroup,
	}

	ledLogger := logging.GetLogger("led")
	controller, err := led.New(opts.LEDBackend, client.Conn(), ledLogger)
	if err != nil {
		logger.Error("Failed to create LED controller", "error", err)
		d.stop()
		os.Exit(1)
	}
	leds := led.NewManager(controller, groups, eventBus, ledLogger)

	svc := powerled.New(powerled.Options{
		References: tracker.References{Start: cfg.PostStart, End: cfg.PostEnd},
		LEDs:       leds,
		EventBus:   eventBus,
		Logger:     logging.GetLogger("tracker"),

		RequireHistory: opts.RequireHistory,
	})

	d.startNATS(eventBus, svc)
	d.watchSettings()

	if err := svc.Start(ctx, client); err != nil {
		logger.Error("Startup reconciliation failed", "error", err)
		d.stop()
		os.Exit(1)
	}

	status, _ := svc.Snapshot()
	logger.Info("powerled started",
		"version", version.Version,
		"host", opts.Host,
		"led_backend", opts.LEDBackend,
		"presentation", status.Presentation.String())

	if _, err := systemd.NotifyReady(); err != nil {
		logger.Debug("sd_notify READY failed", "error", err)
	}
	_, _ = systemd.NotifyStatus(fmt.Sprintf("Host %d: %s", opts.Host, status.Presentation))
	unsubStatus := eventBus.Subscribe(func(e events.PresentationChangedEvent) {
		_, _ = systemd.NotifyStatus(fmt.Sprintf("Host %d: %s", opts.Host, e.Presentation))
	})
	defer unsubStatus()

	if opts.Listen == "" {
		<-ctx.Done()
		return
	}

	apiOpts := &api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Host:              opts.Host,
		Status:            svc,
		Groups:            groups,
		LEDBackend:        opts.LEDBackend,
		EventBus:          eventBus,
		PrometheusHandler: promhttp.Handler(),
	}
	if units, err := systemd.NewManager(ctx); err != nil {
		logger.Warn("systemd unit reporting unavailable", "error", err)
	} else {
		defer units.Close()
		apiOpts.Units = units
		apiOpts.UnitNames = systemd.HostUnits(opts.Host)
	}

	server := api.NewServer(apiOpts)
	d.mu.Lock()
	d.server = server
	d.mu.Unlock()

	if err := server.Start(opts.Listen); err != nil {
		logger.Error("Failed to start status API", "error", err)
		d.stop()
		os.Exit(1)
	}
	<-ctx.Done()
}

// startNATS connects the publisher, optionally after starting an embedded
// server. NATS failures never stop the daemon.
func (d *daemon) startNATS(eventBus *events.Bus, svc *powerled.Service) {
	opts := d.opts
	natsLogger := logging.GetLogger("nats")

	url := opts.NatsURL
	if opts.NatsListen != "" {
		server := nats.NewServer(opts.NatsListen, natsLogger)
		if err := server.Start(); err != nil {
			d.logger.Warn("Failed to start embedded NATS server", "error", err)
		} else {
			d.mu.Lock()
			d.natsServer = server
			d.mu.Unlock()
			if url == "" {
				url = server.ClientURL()
			}
		}
	}
	if url == "" {
		return
	}

	publisher := nats.NewPublisher(url, opts.Host, natsLogger)
	publisher.OnReapply(func(reason string) {
		if err := svc.Reapply(); err != nil {
			natsLogger.Warn("Reapply failed", "reason", reason, "error", err)
		}
	})
	// A failed connect leaves the publisher offline.
	_ = publisher.Connect()
	publisher.Forward(eventBus)

	d.mu.Lock()
	d.publisher = publisher
	d.mu.Unlock()
}

// watchSettings applies logging level changes from the settings file
// without a restart.
func (d *daemon) watchSettings() {
	if _, err := os.Stat(d.opts.Settings); err != nil {
		return
	}
	watcher := config.NewWatcher(d.opts.Settings, 0, func(s config.LoggingSettings) {
		if s.Level != "" && !logging.SetLevel("", s.Level) {
			d.logger.Warn("Ignoring invalid logging level", "level", s.Level)
		}
		for module, level := range s.Modules {
			if level != "" && !logging.SetLevel(module, level) {
				d.logger.Warn("Ignoring logging level", "module", module, "level", level)
			}
		}
	}, d.logger)
	if err := watcher.Start(); err != nil {
		d.logger.Warn("Failed to watch settings file", "error", err)
		return
	}

	d.mu.Lock()
	d.watcher = watcher
	d.mu.Unlock()
}

func (d *daemon) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true

	d.logger.Info("Shutting down")
	_, _ = systemd.NotifyStopping()

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.server.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("Error stopping status API", "error", err)
		}
		cancel()
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.client != nil {
		if err := d.client.Close(); err != nil {
			d.logger.Debug("Error closing D-Bus connection", "error", err)
		}
	}
	if d.publisher != nil {
		d.publisher.Close()
	}
	if d.natsServer != nil {
		d.natsServer.Stop()
	}
	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
}
