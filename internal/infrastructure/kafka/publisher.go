package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
)

var _ checkout.EventPublisher = (*Publisher)(nil)

// Publisher publica eventos de ciclo de vida del checkout en Kafka. La clave
// del mensaje es el id del carrito para que los eventos de un mismo carrito
// conserven el orden dentro de su partición.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher construye el publicador contra los brokers y tópico dados.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Publish serializa el evento como JSON y lo escribe en el tópico.
func (p *Publisher) Publish(ctx context.Context, event checkout.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CartID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close cierra el writer subyacente.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
