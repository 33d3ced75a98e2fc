// Package bootstrap implements the HTTP handshake with the upstream
// dispatch network: a one-shot _bootstrap call that seeds the permitted
// time-slot set, and a recurring _heartbeat that keeps this node listed
// as reachable.
package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

const heartbeatInterval = 60 * time.Second

// Node describes one other transmitter in the network, as returned by _bootstrap.
type Node struct {
	Host       string  `json:"host"`
	Reachable  bool    `json:"reachable"`
	LastSeenAt *string `json:"last_seen,omitempty"`
}

type bootstrapRequest struct {
	Callsign string `json:"callsign"`
	AuthKey  string `json:"auth_key"`
	Software struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"software"`
}

type bootstrapResponse struct {
	Timeslots []bool          `json:"timeslots"`
	Nodes     map[string]Node `json:"nodes"`
}

type heartbeatRequest struct {
	Callsign string `json:"callsign"`
	AuthKey  string `json:"auth_key"`
}

// Client talks to a dispatcher's HTTP bootstrap/heartbeat endpoints.
type Client struct {
	baseURL         string
	callsign        string
	authKey         string
	softwareName    string
	softwareVersion string

	bus        *event.Bus
	httpClient *http.Client
	logger     *log.Logger
}

// New builds a Client against server:port for callsign/authKey, identifying
// itself as softwareName/softwareVersion in the bootstrap payload.
func New(server string, port int, callsign, authKey, softwareName, softwareVersion string, bus *event.Bus, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL:         fmt.Sprintf("http://%s:%d", server, port),
		callsign:        callsign,
		authKey:         authKey,
		softwareName:    softwareName,
		softwareVersion: softwareVersion,
		bus:             bus,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		logger:          logger,
	}
}

// Bootstrap posts to _bootstrap and publishes a TimeslotsUpdate from the
// response. It satisfies internal/dispatcher.Bootstrapper.
func (c *Client) Bootstrap(ctx context.Context) error {
	if c.callsign == "" {
		return fmt.Errorf("bootstrap: no callsign configured")
	}
	if c.authKey == "" {
		return fmt.Errorf("bootstrap: no auth key configured")
	}

	req := bootstrapRequest{Callsign: c.callsign, AuthKey: c.authKey}
	req.Software.Name = c.softwareName
	req.Software.Version = c.softwareVersion

	var resp bootstrapResponse
	if err := c.post(ctx, "/transmitters/_bootstrap", req, &resp); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	slots := pocsag.TimeSlotSet(0)
	for i, allowed := range resp.Timeslots {
		if i >= 16 {
			break
		}
		if allowed {
			slots |= 1 << uint(i)
		}
	}

	c.logger.Info("bootstrap successful", "nodes", len(resp.Nodes))
	if c.bus != nil {
		c.bus.Publish(event.TimeslotsUpdate{Slots: slots})
	}
	return nil
}

// RunHeartbeat sends a heartbeat every 60s until ctx is cancelled.
func (c *Client) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.heartbeat(ctx); err != nil {
				c.logger.Warn("heartbeat failed", "err", err)
			}
		}
	}
}

func (c *Client) heartbeat(ctx context.Context) error {
	req := heartbeatRequest{Callsign: c.callsign, AuthKey: c.authKey}
	var resp map[string]any
	return c.post(ctx, "/transmitters/_heartbeat", req, &resp)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
