package sms

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/segmentio/kafka-go"
)

// Sender hands a persisted message to the SMS gateway.
type Sender interface {
	Send(ctx context.Context, msg *models.SMSMessage) error
}

// NopSender discards messages. Used when no broker is configured.
type NopSender struct{}

// Send implements Sender by doing nothing.
func (NopSender) Send(context.Context, *models.SMSMessage) error { return nil }

// KafkaSender publishes outbound commands to the gateway topic.
type KafkaSender struct {
	writer *kafka.Writer
}

// NewKafkaSender builds a sender writing to the given brokers and topic.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// outboundPayload is the wire format consumed by the SMS gateway.
type outboundPayload struct {
	MessageID   uint64 `json:"message_id"`
	MessageType string `json:"message_type"`
	Recipient   string `json:"recipient,omitempty"`
	Content     string `json:"content"`
}

// Send publishes the message keyed by its ID for per-message ordering.
func (s *KafkaSender) Send(ctx context.Context, msg *models.SMSMessage) error {
	payload, err := json.Marshal(outboundPayload{
		MessageID:   msg.ID,
		MessageType: msg.MessageType,
		Recipient:   msg.Recipient,
		Content:     msg.Content,
	})
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(msg.ID, 10)),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
