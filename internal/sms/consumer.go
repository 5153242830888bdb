package sms

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GroupID derives the consumer group identifier from a topic name.
func GroupID(topic string) string {
	return "sms_handler_" + topic + "_group"
}

// NewConsumer builds a reader for the given topic. Offsets start from the
// earliest message for new groups and are committed manually after each
// message is handled.
func NewConsumer(brokers []string, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     GroupID(topic),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})
}

// deliveryReport is the gateway's status callback for a dispatched message.
type deliveryReport struct {
	MessageID uint64 `json:"message_id"`
	Status    string `json:"status"`
}

// RunConsumer consumes gateway delivery reports until ctx is cancelled,
// updating message statuses. Each message is committed only after handling,
// so an interrupted handler replays the report instead of dropping it.
func RunConsumer(ctx context.Context, reader *kafka.Reader, conn *gorm.DB) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if errHandle := handleDeliveryReport(ctx, conn, msg.Value); errHandle != nil {
			log.WithError(errHandle).WithField("offset", msg.Offset).Error("delivery report rejected")
		}
		if errCommit := reader.CommitMessages(ctx, msg); errCommit != nil {
			return errCommit
		}
	}
}

func handleDeliveryReport(ctx context.Context, conn *gorm.DB, raw []byte) error {
	var report deliveryReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return err
	}
	if report.MessageID == 0 {
		return errors.New("sms: delivery report without message_id")
	}

	status := models.SMSSent
	if report.Status == "failed" {
		status = models.SMSFailed
	}
	return conn.WithContext(ctx).
		Model(&models.SMSMessage{}).
		Where("id = ?", report.MessageID).
		Updates(map[string]any{
			"status":          status,
			"delivery_report": datatypes.JSON(raw),
		}).Error
}
