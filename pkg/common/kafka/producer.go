package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/vitalsight-ai/platform/pkg/common/config"
	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/common/models"
)

const eventTypePredictionCreated = "prediction.created"

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(topic string) *Producer {
	cfg := config.Load()
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// PublishPredictionEvent emits a prediction.created event keyed by the
// prediction id so downstream consumers see per-prediction ordering.
func (p *Producer) PublishPredictionEvent(ctx context.Context, record models.PredictionRecord) error {
	event := models.PredictionEvent{
		ID:             uuid.New().String(),
		Type:           eventTypePredictionCreated,
		PredictionID:   record.ID,
		PatientID:      record.PatientPublicID,
		PredictionType: record.PredictionType,
		RiskScore:      record.Score.Probability,
		RiskLevel:      record.Score.Band,
		Timestamp:      time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(record.ID.String()),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventTypePredictionCreated)},
			{Key: "source", Value: []byte("risk-service")},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":      event.ID,
			"prediction_id": record.ID.String(),
		}).Error("Failed to publish prediction event")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":      event.ID,
		"prediction_id": record.ID.String(),
		"topic":         p.writer.Topic,
	}).Info("Prediction event published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
