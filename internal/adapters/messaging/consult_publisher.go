package messaging

import (
	"context"
	"encoding/json"

	"unimalia-core/internal/ports/notify"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishConsultAccepted implementa notify.Publisher.
func (b *Broker) PublishConsultAccepted(ctx context.Context, evt notify.ConsultAcceptedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	_, err = b.cb.Execute(func() (any, error) {
		err := b.ch.PublishWithContext(
			ctx,
			"",          // exchange default
			b.queueName, // routing key == queue
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}
