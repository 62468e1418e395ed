package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/centremart/catalog-service/internal/cache"
	"github.com/centremart/catalog-service/internal/mapper"
	sqspkg "github.com/centremart/catalog-service/internal/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSQSClient implements the ConsumerAPI interface for testing.
type MockSQSClient struct {
	mock.Mock
}

func (m *MockSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

// TestStorefrontConsumer_Integration verifies that a snapshot publication
// announcement makes the storefront drop its cached catalog and reload the
// new snapshot.
func TestStorefrontConsumer_Integration(t *testing.T) {
	// Snapshot endpoint serving a growing catalog: one product before the
	// refresh, two after.
	var version atomic.Int64
	version.Store(1)
	snapshotServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		products := []mapper.Raw{
			{"id": "p1", "Item Code": "A1", "Description": "Widget", "SP": 100.0, "Stock": 5.0},
		}
		if version.Load() > 1 {
			products = append(products, mapper.Raw{"id": "p2", "Item Code": "B2", "Description": "Gadget", "SP": 50.0, "Stock": 1.0})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"version": version.Load(), "products": products})
	}))
	defer snapshotServer.Close()

	catalogCache := cache.New(cache.NewHTTPSource(snapshotServer.URL), "")
	require.Equal(t, 1, catalogCache.GetTotalCount(context.Background()))

	// The published snapshot grows, and its announcement arrives on the queue.
	version.Store(2)

	announcement := sqspkg.CatalogMessage{
		Action:  sqspkg.ActionSnapshotPublished,
		Version: 2,
		Total:   2,
	}
	body, err := json.Marshal(announcement)
	require.NoError(t, err)

	mockClient := new(MockSQSClient)
	mockClient.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{
				Body:          aws.String(string(body)),
				ReceiptHandle: aws.String("receipt-1"),
			},
		},
	}, nil).Once()
	mockClient.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil)
	mockClient.On("DeleteMessage", mock.Anything, mock.Anything).Return(&sqs.DeleteMessageOutput{}, nil)

	queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/catalog-events"
	consumer := sqspkg.NewConsumer(mockClient, queueURL, func(ctx context.Context, msg sqspkg.CatalogMessage) error {
		if msg.Action == sqspkg.ActionSnapshotPublished {
			catalogCache.Refresh(ctx)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Start(ctx) }()

	require.Eventually(t, func() bool {
		return catalogCache.GetTotalCount(context.Background()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	_, ok := catalogCache.GetByID(context.Background(), "p2")
	assert.True(t, ok)
	mockClient.AssertCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}
