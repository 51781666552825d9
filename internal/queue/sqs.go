package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client used by the consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls an SQS queue for status-change events.
type Consumer struct {
	client      SQSAPI
	queueURL    string
	waitTime    int32
	maxMessages int32
}

// NewSQSClient builds an SQS client for the given region.
func NewSQSClient(ctx context.Context, region string) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(cfg), nil
}

// NewConsumer wires a consumer against a queue.
func NewConsumer(client SQSAPI, queueURL string, waitTime, maxMessages int32) *Consumer {
	if waitTime <= 0 {
		waitTime = 20
	}
	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}
	return &Consumer{client: client, queueURL: queueURL, waitTime: waitTime, maxMessages: maxMessages}
}

// Receive fetches the next batch of messages, blocking up to the configured
// wait time.
func (c *Consumer) Receive(ctx context.Context) ([]types.Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		WaitTimeSeconds:     c.waitTime,
		MaxNumberOfMessages: c.maxMessages,
	})
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Delete acknowledges a processed message. Unacknowledged messages reappear
// after the visibility timeout, which is how redelivery happens.
func (c *Consumer) Delete(ctx context.Context, receiptHandle *string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	return err
}
