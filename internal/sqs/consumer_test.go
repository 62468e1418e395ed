package sqs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSQSConsumerClient is a mock implementation of the SQS client for consumer testing.
type mockSQSConsumerClient struct {
	receiveMessageFunc func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	deleteMessageFunc  func(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func (m *mockSQSConsumerClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if m.receiveMessageFunc != nil {
		return m.receiveMessageFunc(ctx, params, optFns...)
	}
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{}}, nil
}

func (m *mockSQSConsumerClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if m.deleteMessageFunc != nil {
		return m.deleteMessageFunc(ctx, params, optFns...)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789/catalog-events"

func TestConsumer_processMessage(t *testing.T) {
	t.Run("dispatches message to handler", func(t *testing.T) {
		// given
		var received CatalogMessage
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, func(_ context.Context, msg CatalogMessage) error {
			received = msg
			return nil
		})

		messageBody := `{"action":"snapshot.published","version":1700000000000,"total":250}`
		message := types.Message{
			Body:          aws.String(messageBody),
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.NoError(t, err)
		assert.Equal(t, ActionSnapshotPublished, received.Action)
		assert.Equal(t, int64(1700000000000), received.Version)
		assert.Equal(t, 250, received.Total)
	})

	t.Run("nil handler logs and succeeds", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, nil)

		message := types.Message{
			Body:          aws.String(`{"action":"catalog.reconciled","inserted":2,"total":2}`),
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.NoError(t, err)
	})

	t.Run("nil message body", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, nil)

		message := types.Message{
			Body:          nil,
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "message body is nil")
	})

	t.Run("invalid JSON message body", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, nil)

		message := types.Message{
			Body:          aws.String(`{"invalid json`),
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal message")
	})
}

func TestConsumer_receiveMessages(t *testing.T) {
	t.Run("receives, handles and deletes messages", func(t *testing.T) {
		// given
		ctx := context.Background()
		deleted := false

		mockClient := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				assert.Equal(t, testQueueURL, *params.QueueUrl)
				assert.Equal(t, int32(10), params.MaxNumberOfMessages)
				assert.Equal(t, int32(20), params.WaitTimeSeconds)
				return &sqs.ReceiveMessageOutput{
					Messages: []types.Message{
						{
							Body:          aws.String(`{"action":"snapshot.published","version":1,"total":3}`),
							ReceiptHandle: aws.String("test-receipt-handle"),
						},
					},
				}, nil
			},
			deleteMessageFunc: func(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				assert.Equal(t, "test-receipt-handle", *params.ReceiptHandle)
				deleted = true
				return &sqs.DeleteMessageOutput{}, nil
			},
		}

		handled := 0
		consumer := NewConsumer(mockClient, testQueueURL, func(context.Context, CatalogMessage) error {
			handled++
			return nil
		})

		// when
		err := consumer.receiveMessages(ctx)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, handled)
		assert.True(t, deleted)
	})

	t.Run("handles receive message error", func(t *testing.T) {
		// given
		mockClient := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				return nil, errors.New("failed to receive")
			},
		}

		consumer := NewConsumer(mockClient, testQueueURL, nil)

		// when
		err := consumer.receiveMessages(context.Background())

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to receive messages")
	})

	t.Run("failed handler keeps message on the queue", func(t *testing.T) {
		// given
		deleted := false
		mockClient := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				return &sqs.ReceiveMessageOutput{
					Messages: []types.Message{
						{
							Body:          aws.String(`{"action":"snapshot.published","total":1}`),
							ReceiptHandle: aws.String("test-receipt-handle"),
						},
					},
				}, nil
			},
			deleteMessageFunc: func(_ context.Context, _ *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				deleted = true
				return &sqs.DeleteMessageOutput{}, nil
			},
		}

		consumer := NewConsumer(mockClient, testQueueURL, func(context.Context, CatalogMessage) error {
			return errors.New("cache refresh failed")
		})

		// when
		err := consumer.receiveMessages(context.Background())

		// then
		// Handler errors are logged, the message is not deleted and the
		// consumer keeps running.
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestNewConsumer(t *testing.T) {
	t.Run("creates consumer successfully", func(t *testing.T) {
		// given
		mockClient := &mockSQSConsumerClient{}

		// when
		consumer := NewConsumer(mockClient, testQueueURL, nil)

		// then
		require.NotNil(t, consumer)
		assert.Equal(t, testQueueURL, consumer.queueURL)
	})
}
