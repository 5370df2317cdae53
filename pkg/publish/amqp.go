package publish

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pcdshub/rixcalc/pkg/beamline"
)

// amqpChannel is the subset of *amqp.Channel used by AMQP.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ Sink = &AMQP{}

// AMQP publishes every cycle as a JSON Message to a topic exchange.
type AMQP struct {
	channel    amqpChannel
	exchange   string
	routingKey string
	prefix     string
}

// NewAMQP opens a channel on conn and declares a durable topic exchange.
func NewAMQP(conn *amqp.Connection, exchange, routingKey, prefix string) (*AMQP, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open amqp channel")
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, pkgerrors.Wrapf(err, "failed to declare exchange %s", exchange)
	}

	return &AMQP{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		prefix:     prefix,
	}, nil
}

func (a *AMQP) Name() string {
	return "amqp"
}

func (a *AMQP) Publish(ctx context.Context, r *beamline.Result) error {
	body, err := json.Marshal(NewMessage(a.prefix, r))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal cycle message")
	}

	err = a.channel.PublishWithContext(ctx,
		a.exchange,
		a.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   r.ID,
			Timestamp:   r.Time,
			Body:        body,
		},
	)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to publish to exchange %s", a.exchange)
	}
	return nil
}

func (a *AMQP) Close() error {
	return a.channel.Close()
}
