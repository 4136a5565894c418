package amqpclient

import (
	"context"
	"fmt"
	"strings"

	"webpage-auditor/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultExchange = "events"
	defaultQueue    = "auditor.url.requested.v1"
)

type NewAMQPParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.SugaredLogger
}

type AMQPOut struct {
	fx.Out

	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// NewAMQP dials RabbitMQ when RABBITMQ_URL is set. Both outputs are nil otherwise.
func NewAMQP(p NewAMQPParams) (AMQPOut, error) {
	url := ""
	if p.Config != nil {
		url = strings.TrimSpace(p.Config.RabbitMQ.URL)
	}
	if url == "" {
		p.Logger.Infow("rabbitmq_disabled", "reason", "missing RABBITMQ_URL")
		return AMQPOut{Conn: nil, Channel: nil}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return AMQPOut{}, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return AMQPOut{}, fmt.Errorf("rabbitmq channel: %w", err)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			_ = ch.Close()
			_ = conn.Close()
			return nil
		},
	})

	t := TopologyFromConfig(p.Config)
	p.Logger.Infow(
		"rabbitmq_enabled",
		"exchange", t.Exchange,
		"queue", t.Queue,
		"routing_key", t.RoutingKey,
		"prefetch", p.Config.RabbitMQ.Prefetch,
		"declare_topology", p.Config.RabbitMQ.DeclareTopology,
	)

	return AMQPOut{Conn: conn, Channel: ch}, nil
}

// Topology names the exchange/queue pair audit requests travel through.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

func (t Topology) DeadLetterExchange() string { return t.Exchange + ".dlx" }
func (t Topology) DeadLetterQueue() string    { return t.Queue + ".dlq" }

func TopologyFromConfig(cfg *config.Config) Topology {
	t := Topology{
		Exchange:   defaultExchange,
		Queue:      defaultQueue,
		RoutingKey: defaultQueue,
	}
	if cfg == nil {
		return t
	}
	if ex := strings.TrimSpace(cfg.RabbitMQ.Exchange); ex != "" {
		t.Exchange = ex
	}
	if q := strings.TrimSpace(cfg.RabbitMQ.Queue); q != "" {
		t.Queue = q
	}
	if key := strings.TrimSpace(cfg.RabbitMQ.RoutingKey); key != "" {
		t.RoutingKey = key
	}
	return t
}

// Declarer is the subset of *amqp.Channel used to declare topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareExchange declares the topic exchange publishers write to.
func DeclareExchange(ch Declarer, t Topology) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare %q: %w", t.Exchange, err)
	}
	return nil
}

// DeclareTopology declares the exchange, the work queue and its dead-letter pair.
func DeclareTopology(ch Declarer, t Topology) error {
	if err := DeclareExchange(ch, t); err != nil {
		return err
	}
	dlx, dlq := t.DeadLetterExchange(), t.DeadLetterQueue()
	if err := ch.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlx exchange declare %q: %w", dlx, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": dlx,
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("rabbitmq queue declare %q: %w", t.Queue, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlq declare %q: %w", dlq, err)
	}

	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind queue=%q key=%q ex=%q: %w", t.Queue, t.RoutingKey, t.Exchange, err)
	}
	if err := ch.QueueBind(dlq, t.RoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlq bind queue=%q key=%q ex=%q: %w", dlq, t.RoutingKey, dlx, err)
	}
	return nil
}
