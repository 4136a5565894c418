package auditworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"webpage-auditor/config"
	"webpage-auditor/internal/pkg/amqpclient"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrHandlerMissing = errors.New("auditworker handler missing")

type Handler interface {
	Handle(ctx context.Context, msg AuditRequestedEnvelope) error
}

// Channel is the subset of *amqp.Channel the consumer uses.
type Channel interface {
	amqpclient.Declarer
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

type Consumer struct {
	cfg     *config.Config
	channel Channel
	handler Handler
	logger  *zap.SugaredLogger

	consumerTag string
	done        chan struct{}
}

type NewConsumerParams struct {
	fx.In

	Config  *config.Config
	Channel *amqp.Channel `optional:"true"`
	Handler Handler       `optional:"true"`
	Logger  *zap.SugaredLogger
}

func NewConsumer(p NewConsumerParams) *Consumer {
	var ch Channel
	if p.Channel != nil {
		ch = p.Channel
	}
	return newConsumer(p.Config, ch, p.Handler, p.Logger)
}

func newConsumer(cfg *config.Config, ch Channel, h Handler, logger *zap.SugaredLogger) *Consumer {
	if h == nil {
		h = missingHandler{}
	}
	return &Consumer{
		cfg:         cfg,
		channel:     ch,
		handler:     h,
		logger:      logger,
		consumerTag: "auditworker",
	}
}

// Start begins consuming in the background. ctx bounds the consumer's lifetime,
// so callers pass a context that outlives fx's start timeout.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cfg == nil || strings.TrimSpace(c.cfg.RabbitMQ.URL) == "" || c.channel == nil {
		c.logger.Infow("auditworker_disabled", "reason", "missing rabbitmq config or channel")
		return nil
	}

	topo := amqpclient.TopologyFromConfig(c.cfg)
	if c.cfg.RabbitMQ.DeclareTopology {
		if err := amqpclient.DeclareTopology(c.channel, topo); err != nil {
			return err
		}
		c.logger.Infow(
			"auditworker_topology_declared",
			"exchange", topo.Exchange,
			"queue", topo.Queue,
			"routing_key", topo.RoutingKey,
			"dlx", topo.DeadLetterExchange(),
			"dlq", topo.DeadLetterQueue(),
		)
	}

	prefetch := c.cfg.RabbitMQ.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	deliveries, err := c.channel.Consume(
		topo.Queue,
		c.consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Infow(
		"auditworker_started",
		"queue", topo.Queue,
		"prefetch", prefetch,
	)

	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.handleDelivery(ctx, d)
			}
		}
	}()

	return nil
}

// Stop cancels the consumer and waits for the in-flight delivery, if any.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.channel == nil {
		return nil
	}
	_ = c.channel.Cancel(c.consumerTag, false)
	if c.done == nil {
		return nil
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	eventID := strings.TrimSpace(d.MessageId)
	if eventID == "" {
		eventID = strings.TrimSpace(d.CorrelationId)
	}

	var msg AuditRequestedEnvelope
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Errorw("auditworker_invalid_json",
			"err", err,
			"message_id", eventID,
		)
		_ = d.Reject(false)
		return
	}

	if strings.TrimSpace(msg.EventID) == "" && eventID != "" {
		msg.EventID = eventID
	}

	if strings.TrimSpace(msg.EventID) == "" {
		c.logger.Errorw("auditworker_missing_event_id",
			"message_id", eventID,
			"event_name", msg.EventName,
		)
		_ = d.Reject(false)
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Errorw("auditworker_handle_failed",
			"err", err,
			"event_id", msg.EventID,
			"event_name", msg.EventName,
		)
		_ = d.Reject(false)
		return
	}

	_ = d.Ack(false)
}

type missingHandler struct{}

func (missingHandler) Handle(ctx context.Context, msg AuditRequestedEnvelope) error {
	_ = ctx
	_ = msg
	return ErrHandlerMissing
}
