package repository

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// EventJournal append-only journal of committed message events for downstream
// consumers (search indexing, archival). Best effort: the pipeline logs
// failures and moves on.
type EventJournal interface {
	Append(ctx context.Context, conversationID string, event interface{}) error
}

type kafkaEventJournal struct {
	writer *kafka.Writer
}

// NewKafkaEventJournal create an EventJournal on a kafka writer
func NewKafkaEventJournal(writer *kafka.Writer) EventJournal {
	return &kafkaEventJournal{writer: writer}
}

// Append conversation id 當 partition key,同會話的事件下游讀起來保持 commit 順序
func (j *kafkaEventJournal) Append(ctx context.Context, conversationID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return j.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(conversationID),
		Value: data,
	})
}
