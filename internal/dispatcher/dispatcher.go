// Package dispatcher maintains the upstream AMQP 0-9-1 link: it declares
// and binds this node's call-sign queue, consumes inbound paging messages
// onto the event bus, and republishes telemetry back to the network.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
)

const localCallsExchange = "dapnet.local_calls"
const telemetryExchange = "dapnet.telemetry"

// Bootstrapper fetches the permitted time-slot set and node roster before
// each (re)connection attempt, the way the original connects to the master
// HTTP endpoint first and only then opens the AMQP link.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) error
}

// Dispatcher owns the upstream AMQP connection lifecycle: connect, declare,
// bind, consume, reconnect with backoff on failure.
type Dispatcher struct {
	url              string
	call             string
	routingKey       string
	telemetryRouting string

	bus          *event.Bus
	sub          event.Subscription
	bootstrap    Bootstrapper
	reconnectMin time.Duration
	reconnectMax time.Duration
	logger       *log.Logger
}

// Config is the minimal connection info the dispatcher needs; New folds
// server/port/call/auth into the AMQP URL (internal/config's Master block
// maps directly onto these fields).
type Config struct {
	Server string
	Port   int
	Call   string
	Auth   string
}

// New builds a Dispatcher for cfg, subscribing to bus under RoleDispatcher.
// bootstrap may be nil if the caller doesn't want a pre-connection HTTP
// bootstrap step (e.g. in tests).
func New(cfg Config, bus *event.Bus, bootstrap Bootstrapper, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	call := strings.ToLower(cfg.Call)
	return &Dispatcher{
		url:              fmt.Sprintf("amqp://tx-%s:%s@%s:%d/%%2f", call, cfg.Auth, cfg.Server, cfg.Port),
		call:             call,
		routingKey:       call,
		telemetryRouting: "transmitter." + call,
		bus:              bus,
		sub:              bus.Register(event.RoleDispatcher),
		bootstrap:        bootstrap,
		reconnectMin:     1 * time.Second,
		reconnectMax:     60 * time.Second,
		logger:           logger,
	}
}

// Run connects, consumes, and reconnects with capped exponential backoff
// until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	backoff := d.reconnectMin

	for {
		if ctx.Err() != nil {
			return
		}

		if d.bootstrap != nil {
			if err := d.bootstrap.Bootstrap(ctx); err != nil {
				d.logger.Error("bootstrap failed, retrying", "err", err, "backoff", backoff)
				if !sleepOrDone(ctx, backoff) {
					return
				}
				backoff = nextBackoff(backoff, d.reconnectMax)
				continue
			}
		}

		if err := d.runOnce(ctx); err != nil {
			d.logger.Warn("amqp connection lost, reconnecting", "err", err, "backoff", backoff)
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, d.reconnectMax)
			continue
		}

		backoff = d.reconnectMin
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) error {
	conn, err := amqp.Dial(d.url)
	if err != nil {
		return fmt.Errorf("dispatcher: dialing %s: %w", d.call, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("dispatcher: opening channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(d.call, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("dispatcher: declaring queue %s: %w", d.call, err)
	}

	if err := ch.QueueBind(q.Name, d.routingKey, localCallsExchange, false, nil); err != nil {
		return fmt.Errorf("dispatcher: binding queue to %s: %w", localCallsExchange, err)
	}

	deliveries, err := ch.Consume(q.Name, "consumer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("dispatcher: starting consumer: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	d.logger.Info("connected to dispatcher, listening for calls", "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("dispatcher: delivery channel closed")
			}
			d.handleDelivery(ch, delivery)

		case e, ok := <-d.sub.Recv():
			if !ok {
				return fmt.Errorf("dispatcher: event bus closed")
			}
			if err := d.handleEvent(ctx, ch, e); err != nil {
				return err
			}

		case amqpErr := <-closed:
			if amqpErr != nil {
				return fmt.Errorf("dispatcher: connection closed: %s", amqpErr.Reason)
			}
			return fmt.Errorf("dispatcher: connection closed")
		}
	}
}

func (d *Dispatcher) handleDelivery(ch *amqp.Channel, delivery amqp.Delivery) {
	msg, err := decodeMessage(delivery.Body)
	if err != nil {
		d.logger.Warn("could not decode incoming message", "err", err)
		_ = delivery.Ack(false)
		return
	}

	d.logger.Info("message received", "id", msg.ID, "ric", msg.RIC)
	d.bus.Publish(event.MessageReceived{Message: msg})
	_ = delivery.Ack(false)
}

func (d *Dispatcher) handleEvent(ctx context.Context, ch *amqp.Channel, e event.Event) error {
	switch ev := e.(type) {
	case event.TelemetryUpdate:
		return d.publishTelemetry(ctx, ch, ev)
	case event.TelemetryPartialUpdate:
		return d.publishTelemetry(ctx, ch, ev)
	case event.Shutdown:
		return fmt.Errorf("dispatcher: shutdown requested")
	}
	return nil
}

func (d *Dispatcher) publishTelemetry(ctx context.Context, ch *amqp.Channel, payload any) error {
	data, err := marshalTelemetry(payload)
	if err != nil {
		d.logger.Error("could not marshal telemetry for publish", "err", err)
		return nil
	}
	return ch.PublishWithContext(ctx, telemetryExchange, d.telemetryRouting, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        data,
	})
}
