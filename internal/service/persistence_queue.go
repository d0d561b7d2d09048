package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"adaptive-dialogue-be/internal/pkg/logger"
	"adaptive-dialogue-be/pkg/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const attemptMetadataKey = "attempt"

// PersistTurnMessage is the queued payload of one failed durable write.
type PersistTurnMessage struct {
	SessionID string      `json:"session_id"`
	Turn      memory.Turn `json:"turn"`
	Embedding []float32   `json:"embedding,omitempty"`
}

// PersistenceQueue retries turn writes that failed against the durable store.
// The dialogue keeps its in-process copy of the turn either way, so a write
// is queued here instead of being dropped, and replayed until it lands.
// Re-saving an already landed turn is safe, writes upsert by turn number.
type PersistenceQueue struct {
	pubSub     *gochannel.GoChannel
	topic      string
	store      memory.Store
	logger     logger.ILogger
	retryDelay time.Duration
}

func NewPersistenceQueue(pubSub *gochannel.GoChannel, topic string, store memory.Store, log logger.ILogger) *PersistenceQueue {
	return &PersistenceQueue{
		pubSub:     pubSub,
		topic:      topic,
		store:      store,
		logger:     log,
		retryDelay: 2 * time.Second,
	}
}

// Enqueue schedules a failed turn write for replay.
func (q *PersistenceQueue) Enqueue(ctx context.Context, sessionID string, turn memory.Turn, embedding []float32) error {
	payload, err := json.Marshal(PersistTurnMessage{
		SessionID: sessionID,
		Turn:      turn,
		Embedding: embedding,
	})
	if err != nil {
		return fmt.Errorf("marshal persist message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(attemptMetadataKey, "0")
	if err := q.pubSub.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("enqueue turn %d of %s: %w", turn.TurnNumber, sessionID, err)
	}

	q.logger.Warn("persistence_queue", "turn write queued for replay", map[string]interface{}{
		"session_id":  sessionID,
		"turn_number": turn.TurnNumber,
	})
	return nil
}

// Consume starts the replay worker. It returns after subscribing; processing
// runs until ctx is cancelled.
func (q *PersistenceQueue) Consume(ctx context.Context) error {
	messages, err := q.pubSub.Subscribe(ctx, q.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.topic, err)
	}

	go func() {
		for msg := range messages {
			q.processMessage(ctx, msg)
		}
	}()
	return nil
}

func (q *PersistenceQueue) processMessage(ctx context.Context, msg *message.Message) {
	var payload PersistTurnMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		q.logger.Error("persistence_queue", "dropping malformed message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	attempt, _ := strconv.Atoi(msg.Metadata.Get(attemptMetadataKey))
	attempt++

	if err := q.store.SaveTurn(ctx, payload.SessionID, payload.Turn, payload.Embedding); err != nil {
		q.logger.Warn("persistence_queue", "replay failed, will retry", map[string]interface{}{
			"session_id":  payload.SessionID,
			"turn_number": payload.Turn.TurnNumber,
			"attempt":     attempt,
			"error":       err.Error(),
		})
		msg.Metadata.Set(attemptMetadataKey, strconv.Itoa(attempt))

		select {
		case <-ctx.Done():
		case <-time.After(q.retryDelay):
		}
		msg.Nack()
		return
	}

	q.logger.Info("persistence_queue", "queued turn write landed", map[string]interface{}{
		"session_id":  payload.SessionID,
		"turn_number": payload.Turn.TurnNumber,
		"attempt":     attempt,
	})
	msg.Ack()
}
