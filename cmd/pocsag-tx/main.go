// Command pocsag-tx runs one POCSAG paging transmitter node: it bootstraps
// against and consumes from an upstream AMQP dispatcher, schedules and
// transmits queued messages in their permitted time slots, and exposes a
// control websocket and a read-only status HTTP endpoint.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/dl1pag/pocsag-transmitter/internal/bootstrap"
	"github.com/dl1pag/pocsag-transmitter/internal/config"
	"github.com/dl1pag/pocsag-transmitter/internal/controlws"
	"github.com/dl1pag/pocsag-transmitter/internal/discovery"
	"github.com/dl1pag/pocsag-transmitter/internal/dispatcher"
	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/logging"
	"github.com/dl1pag/pocsag-transmitter/internal/queue"
	"github.com/dl1pag/pocsag-transmitter/internal/scheduler"
	"github.com/dl1pag/pocsag-transmitter/internal/statushttp"
	"github.com/dl1pag/pocsag-transmitter/internal/telemetry"
)

const softwareName = "pocsag-transmitter"

// version is overridable at build time via -ldflags "-X main.version=...".
var version = "dev"

const telemetryUpdateInterval = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = pflag.String("config", "config.json", "path to the persistent configuration file")
		initOnly    = pflag.Bool("init", false, "write a default config.json at -config and exit")
		logLevel    = pflag.String("log-level", "info", "log level: debug, info, warn, error")
		controlAddr = pflag.String("control-addr", "0.0.0.0:8055", "control websocket listen address")
		statusAddr  = pflag.String("status-addr", "0.0.0.0:8073", "status HTTP listen address")
		controlAuth = pflag.String("control-auth", "", "shared secret non-loopback control websocket clients must present")
		announce    = pflag.Bool("discovery", true, "advertise the control websocket via mDNS/DNS-SD")
		timeFormat  = pflag.String("timestamp-format", "", "strftime pattern for the periodic telemetry log line (default: %Y-%m-%d %H:%M:%S)")
		showVersion = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println(softwareName, version)
		return 0
	}

	if *initOnly {
		if err := config.Save(*configPath, config.Default()); err != nil {
			fmt.Fprintln(os.Stderr, "writing default config:", err)
			return 1
		}
		fmt.Println("wrote default configuration to", *configPath)
		return 0
	}

	logger := logging.New(logging.Options{Level: *logLevel})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading configuration", "err", err)
		return 1
	}

	bus := event.New(logger)
	mainSub := bus.Register(event.RoleMain)

	tel := telemetry.New(bus, cfg.Priorities, telemetry.Software{Name: softwareName, Version: version})
	tel.SetLogger(logger, *timeFormat)
	q := queue.New(cfg.Priorities, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bootstrapClient := bootstrap.New(cfg.Master.Server, cfg.Master.Port, cfg.Master.Call, cfg.Master.Auth, softwareName, version, bus, logger)
	disp := dispatcher.New(dispatcher.Config{
		Server: cfg.Master.Server,
		Port:   cfg.Master.Port,
		Call:   cfg.Master.Call,
		Auth:   cfg.Master.Auth,
	}, bus, bootstrapClient, logger)

	ctl := controlws.New(*configPath, *controlAuth, version, cfg.Priorities, bus, tel, logger)
	status := statushttp.New(tel, logger)

	go disp.Run(ctx)
	go bootstrapClient.RunHeartbeat(ctx)
	go tel.RunPeriodicUpdates(ctx, telemetryUpdateInterval)
	go serveUntilDone(ctx, logger, "control websocket", *controlAddr, ctl.ListenAndServe)
	go serveUntilDone(ctx, logger, "status http", *statusAddr, status.ListenAndServe)
	if *announce {
		go discovery.Advertise(ctx, "", mustPort(*controlAddr), logger)
	}

	schedulerDone := make(chan struct{})
	go runScheduler(ctx, bus, q, tel, cfg, *configPath, logger, schedulerDone)

	select {
	case e := <-mainSub.Recv():
		if _, ok := e.(event.Shutdown); ok {
			logger.Info("shutdown requested")
		}
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	cancel()
	bus.Publish(event.Shutdown{Reason: "process exit"})
	<-schedulerDone
	bus.Close()
	return 0
}

// runScheduler builds the transmitter back-end and runs the scheduler's
// main loop, rebuilding the back-end and re-running whenever a
// Restart/ConfigUpdate asks for it, until a real Shutdown is observed.
func runScheduler(ctx context.Context, bus *event.Bus, q *queue.Queue, tel *telemetry.Store, cfg config.Config, configPath string, logger *log.Logger, done chan<- struct{}) {
	defer close(done)

	var sched *scheduler.Scheduler

	for {
		tx, cleanup, err := buildTransmitter(cfg, logger)
		if err != nil {
			logger.Error("building transmitter back-end, retrying in 5s", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		// The scheduler itself is built once and reused across restarts: a
		// Test/Restart/ConfigUpdate only needs a fresh transmitter, not a
		// fresh queue, slot set, or pending test-mode flag.
		if sched == nil {
			sched = scheduler.New(bus, q, tel, tx, cfg.Baud, logger)
		} else {
			sched.SetTransmitter(tx)
			sched.SetBaud(cfg.Baud)
		}

		restart := sched.Run()
		cleanup()

		if !restart {
			return
		}

		if reloaded, err := config.Load(configPath); err == nil {
			cfg = reloaded
		} else {
			logger.Warn("could not reload configuration for restart, reusing previous settings", "err", err)
		}
	}
}

func serveUntilDone(ctx context.Context, logger *log.Logger, name, addr string, listenAndServe func(string) error) {
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(addr) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "server", name, "err", err)
		}
	}
}

func mustPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
