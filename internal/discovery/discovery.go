// Package discovery optionally advertises this node's control websocket on
// the local network via mDNS/DNS-SD, so a control client doesn't need the
// node's address typed in by hand.
package discovery

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// ServiceType is the DNS-SD service type this node announces itself under.
const ServiceType = "_pocsag-ctrl._tcp"

// Advertise announces the control websocket at the given port under name
// (or a hostname-derived default if name is empty), and keeps responding to
// mDNS queries until ctx is cancelled. Failures are logged, never fatal:
// discovery is a convenience, not a requirement of the control interface.
func Advertise(ctx context.Context, name string, port int, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	if name == "" {
		name = defaultServiceName()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		logger.Warn("discovery: failed to create service", "err", err)
		return
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		logger.Warn("discovery: failed to create responder", "err", err)
		return
	}

	if _, err := responder.Add(svc); err != nil {
		logger.Warn("discovery: failed to add service", "err", err)
		return
	}

	logger.Info("discovery: announcing control websocket", "name", name, "port", port)

	if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("discovery: responder stopped", "err", err)
	}
}

func defaultServiceName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "POCSAG transmitter"
	}
	hostname, _, _ = strings.Cut(hostname, ".")
	return "POCSAG transmitter on " + hostname
}
