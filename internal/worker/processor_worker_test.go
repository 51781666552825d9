package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mortgage-service/internal/domain"
	"github.com/spec-kit/mortgage-service/internal/events"
	"github.com/spec-kit/mortgage-service/internal/processor"
	"github.com/spec-kit/mortgage-service/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func noOpEventBody(t *testing.T, id string) string {
	t.Helper()
	data, err := json.Marshal(events.Event{
		ID:            id,
		Type:          events.EventStatusChanged,
		ApplicationID: "app-1",
		Timestamp:     time.Now(),
		Payload: events.StatusChangedPayload{
			PreviousStatus: domain.StatusUnderReview,
			NewStatus:      domain.StatusDenied,
		},
	})
	require.NoError(t, err)
	return string(data)
}

func TestProcessBatchDeletesProcessedMessages(t *testing.T) {
	sqsClient := &fakeSQS{}
	consumer := queue.NewConsumer(sqsClient, "queue-url", 1, 10)
	w := NewProcessorWorker(consumer, processor.New(nil, nil, nil), zap.NewNop())

	messages := []types.Message{
		{MessageId: aws.String("m1"), ReceiptHandle: aws.String("r1"), Body: aws.String(noOpEventBody(t, "evt-1"))},
		{MessageId: aws.String("m2"), ReceiptHandle: aws.String("r2"), Body: aws.String(noOpEventBody(t, "evt-2"))},
	}
	require.NoError(t, w.processBatch(context.Background(), messages))
	assert.Equal(t, []string{"r1", "r2"}, sqsClient.deleted)
}

func TestProcessBatchLeavesFailedMessagesForRedelivery(t *testing.T) {
	sqsClient := &fakeSQS{}
	consumer := queue.NewConsumer(sqsClient, "queue-url", 1, 10)
	w := NewProcessorWorker(consumer, processor.New(nil, nil, nil), zap.NewNop())

	messages := []types.Message{
		{MessageId: aws.String("m1"), ReceiptHandle: aws.String("r1"), Body: aws.String("{malformed")},
		{MessageId: aws.String("m2"), ReceiptHandle: aws.String("r2"), Body: aws.String(noOpEventBody(t, "evt-2"))},
	}
	err := w.processBatch(context.Background(), messages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 messages failed")
	// The bad message stays in flight; only the good one is acknowledged.
	assert.Equal(t, []string{"r2"}, sqsClient.deleted)
}

func TestUnwrapEnvelope(t *testing.T) {
	inner := noOpEventBody(t, "evt-1")
	envelope, err := json.Marshal(snsEnvelope{Type: "Notification", Message: inner})
	require.NoError(t, err)

	assert.Equal(t, []byte(inner), unwrapEnvelope(envelope))
	// Raw delivery passes through untouched.
	assert.Equal(t, []byte(inner), unwrapEnvelope([]byte(inner)))
	assert.Equal(t, []byte("plain"), unwrapEnvelope([]byte("plain")))
}
