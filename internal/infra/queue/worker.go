package queue

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eadhub/eadhub-payments/internal/usecase"
)

// Worker drains the e-mail queue. It is fully decoupled from the database:
// everything it needs rides in the message body.
type Worker struct {
	Channel *amqp.Channel
	Mailer  usecase.EmailService
}

func NewWorker(ch *amqp.Channel, mailer usecase.EmailService) *Worker {
	return &Worker{Channel: ch, Mailer: mailer}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("❌ failed to register rabbitmq consumer: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var data usecase.SubscriptionConfirmedEmail
			if err := json.Unmarshal(d.Body, &data); err != nil {
				log.Printf("❌ [worker] malformed message, rejecting: %s", err)
				// Poison message, no requeue.
				d.Nack(false, false)
				continue
			}

			log.Printf("📧 [worker] sending confirmation email to %s", data.StudentEmail)

			if err := w.Mailer.SendPixPaymentConfirmedEmail(data); err != nil {
				log.Printf("❌ [worker] email delivery failed: %s", err)
				// Off to the DLQ; retrying a bad SMTP target forever blocks the queue.
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] email worker waiting on queue '%s'", queueName)
	<-forever
}
