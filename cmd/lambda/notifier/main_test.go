package main

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func record(offset int64, value string) events.KafkaRecord {
	return events.KafkaRecord{
		Topic:     "order-events",
		Partition: 0,
		Offset:    offset,
		Key:       base64.StdEncoding.EncodeToString([]byte("order-1")),
		Value:     base64.StdEncoding.EncodeToString([]byte(value)),
	}
}

func TestBatchHandler_HandlesInOffsetOrder(t *testing.T) {
	var seen []string
	b := &batchHandler{
		handle: func(_ context.Context, key, value []byte) error {
			assert.Equal(t, "order-1", string(key))
			seen = append(seen, string(value))
			return nil
		},
		logger: zap.NewNop(),
	}

	err := b.Handle(context.Background(), events.KafkaEvent{Records: map[string][]events.KafkaRecord{
		"order-events-0": {record(2, "second"), record(1, "first")},
	}})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestBatchHandler_FailsTheBatchButTriesEveryRecord(t *testing.T) {
	calls := 0
	b := &batchHandler{
		handle: func(_ context.Context, _, value []byte) error {
			calls++
			if string(value) == "bad" {
				return errors.New("smtp down")
			}
			return nil
		},
		logger: zap.NewNop(),
	}

	err := b.Handle(context.Background(), events.KafkaEvent{Records: map[string][]events.KafkaRecord{
		"order-events-0": {record(1, "bad"), record(2, "good")},
	}})

	assert.ErrorContains(t, err, "order-events-0@1: smtp down")
	assert.Equal(t, 2, calls)
}
