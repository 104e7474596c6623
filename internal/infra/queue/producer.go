package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eadhub/eadhub-payments/internal/usecase"
)

type RabbitMQProducer struct {
	Ch *amqp.Channel
}

func NewProducer(ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

// EnqueueSubscriptionConfirmed publishes the confirmation e-mail job as a
// persistent message; delivery survives a broker restart.
func (p *RabbitMQProducer) EnqueueSubscriptionConfirmed(ctx context.Context, data usecase.SubscriptionConfirmedEmail) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode confirmation payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish confirmation: %w", err)
	}
	return nil
}
