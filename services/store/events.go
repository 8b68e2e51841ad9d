package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Tópicos do ciclo de vida do pedido. A chave de partição é o ID do
// pedido, para que os eventos de um mesmo pedido mantenham a ordem.
const (
	TopicOrderCreated  = "order.created"
	TopicOrderPaid     = "order.paid"
	TopicOrderCanceled = "order.canceled"
	TopicOrderExpired  = "order.expired"
)

// EventEnvelope é o envelope versionado dos eventos publicados
type EventEnvelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	OrderID      string          `json:"order_id"`
	Payload      json.RawMessage `json:"payload"`
}

// OrderEventPayload é o corpo dos eventos de pedido
type OrderEventPayload struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Status     string      `json:"status"`
	TotalCents int         `json:"total_cents"`
	Items      []OrderItem `json:"items"`
}

// EventPublisher publica eventos de pedido. A publicação é best-effort:
// falha de broker é logada e nunca derruba a operação de negócio.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, topic string, order *Order) error
}

// KafkaPublisher implementa EventPublisher usando Kafka
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher cria uma nova instância de KafkaPublisher
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// PublishOrderEvent publica o evento no tópico correspondente
func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, topic string, order *Order) error {
	payload, err := json.Marshal(OrderEventPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Items:      order.Items,
	})
	if err != nil {
		return fmt.Errorf("falha ao serializar payload do evento: %w", err)
	}

	envelope, err := json.Marshal(EventEnvelope{
		EventID:      uuid.New().String(),
		EventType:    topic,
		EventVersion: 1,
		OccurredAt:   time.Now(),
		Producer:     "store-service",
		OrderID:      order.ID,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("falha ao serializar envelope do evento: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(order.ID),
		Value: envelope,
	})
	if err != nil {
		return fmt.Errorf("falha ao publicar evento %s: %w", topic, err)
	}

	log.Printf("📣 [EVENT] %s publicado para OrderID=%s", topic, order.ID)
	return nil
}

// Close encerra o writer do Kafka
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher descarta eventos; usado em testes e quando não há
// broker configurado
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(ctx context.Context, topic string, order *Order) error {
	return nil
}
