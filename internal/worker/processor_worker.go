package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/spec-kit/mortgage-service/internal/processor"
	"github.com/spec-kit/mortgage-service/internal/queue"
)

// ProcessorWorker pumps queued status-change events into the processor.
type ProcessorWorker struct {
	consumer *queue.Consumer
	proc     *processor.Processor
	logger   *zap.Logger
}

// NewProcessorWorker builds the worker.
func NewProcessorWorker(consumer *queue.Consumer, proc *processor.Processor, logger *zap.Logger) *ProcessorWorker {
	return &ProcessorWorker{consumer: consumer, proc: proc, logger: logger}
}

// Run long-polls the queue until the context is cancelled. Failed messages
// are left unacknowledged so the queue's redelivery/dead-letter policy
// governs retry; the worker itself performs none.
func (w *ProcessorWorker) Run(ctx context.Context) error {
	w.logger.Info("processor worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("processor worker stopping")
			return ctx.Err()
		default:
		}

		messages, err := w.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("receive failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		if err := w.processBatch(ctx, messages); err != nil {
			w.logger.Error("batch completed with failures", zap.Error(err))
		}
	}
}

func (w *ProcessorWorker) processBatch(ctx context.Context, messages []types.Message) error {
	failed := 0
	for _, msg := range messages {
		if msg.Body == nil {
			continue
		}
		body := unwrapEnvelope([]byte(*msg.Body))
		if err := w.proc.HandleMessage(ctx, body); err != nil {
			failed++
			w.logger.Error("message processing failed",
				zap.Stringp("message_id", msg.MessageId),
				zap.Error(err))
			continue
		}
		if err := w.consumer.Delete(ctx, msg.ReceiptHandle); err != nil {
			w.logger.Warn("failed to delete message",
				zap.Stringp("message_id", msg.MessageId),
				zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(messages))
	}
	return nil
}

// snsEnvelope is the wrapper SNS adds when raw message delivery is off.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func unwrapEnvelope(body []byte) []byte {
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil &&
		envelope.Type == "Notification" && envelope.Message != "" {
		return []byte(envelope.Message)
	}
	return body
}
