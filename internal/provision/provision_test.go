package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sqs-event-poller/internal/catalog"
	"sqs-event-poller/internal/queue"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) CreateQueue(ctx context.Context, endpoint, name string, attributes map[string]string) error {
	return m.Called(endpoint, name, attributes).Error(0)
}

func (m *mockTransport) Receive(ctx context.Context, address string, maxMessages int) ([]queue.Message, error) {
	args := m.Called(address, maxMessages)
	msgs, _ := args.Get(0).([]queue.Message)
	return msgs, args.Error(1)
}

func (m *mockTransport) DeleteBatch(ctx context.Context, address string, messages queue.Batch) error {
	return m.Called(address, messages).Error(0)
}

type staticProps map[string]map[string]any

func (s staticProps) PropertiesFor(name string) map[string]any { return s[name] }

var orders = catalog.Definition{Function: "f", QueueName: "orders", ARN: "arn:aws:sqs:us-east-1:0:orders", Region: "us-east-1", Enabled: true, BatchSize: 5}

func TestProvision_SendsDeclaredAttributes(t *testing.T) {
	tr := &mockTransport{}
	props := staticProps{"orders": {
		"QueueName":         "orders",
		"VisibilityTimeout": 30,
		"FifoQueue":         true,
		"RedrivePolicy":     map[string]any{"maxReceiveCount": 3},
	}}
	want := map[string]string{
		"VisibilityTimeout": "30",
		"FifoQueue":         "true",
		"RedrivePolicy":     `{"maxReceiveCount":3}`,
	}
	tr.On("CreateQueue", "http://localhost:9324", "orders", want).Return(nil).Once()

	p := &Provisioner{Transport: tr, Catalog: props, Endpoint: "http://localhost:9324", Retries: 5}
	require.NoError(t, p.Provision(context.Background(), orders))
	tr.AssertExpectations(t)
}

func TestProvision_AlreadyExistsIsNotRetried(t *testing.T) {
	tr := &mockTransport{}
	tr.On("CreateQueue", "", "orders", map[string]string{}).
		Return(errors.New("Queue orders already exists")).Once()

	p := &Provisioner{Transport: tr, Retries: 5}
	require.NoError(t, p.Provision(context.Background(), orders))
	tr.AssertNumberOfCalls(t, "CreateQueue", 1)
}

func TestProvision_RetriesThenGivesUp(t *testing.T) {
	tr := &mockTransport{}
	tr.On("CreateQueue", "", "orders", map[string]string{}).
		Return(queue.Errorf("CreateQueue", "connection refused"))

	p := &Provisioner{Transport: tr, Retries: 5}
	require.NoError(t, p.Provision(context.Background(), orders))
	tr.AssertNumberOfCalls(t, "CreateQueue", 6)
}

func TestProvision_SucceedsAfterTransientFailure(t *testing.T) {
	tr := &mockTransport{}
	tr.On("CreateQueue", "", "orders", map[string]string{}).
		Return(queue.Errorf("CreateQueue", "connection refused")).Twice()
	tr.On("CreateQueue", "", "orders", map[string]string{}).Return(nil).Once()

	p := &Provisioner{Transport: tr, Retries: 5}
	require.NoError(t, p.Provision(context.Background(), orders))
	tr.AssertNumberOfCalls(t, "CreateQueue", 3)
}

func TestProvision_ReturnsWhenContextEnds(t *testing.T) {
	tr := &mockTransport{}
	tr.On("CreateQueue", "", "orders", map[string]string{}).
		Return(queue.Errorf("CreateQueue", "connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Provisioner{Transport: tr, Retries: 5}
	assert.ErrorIs(t, p.Provision(ctx, orders), context.Canceled)
}

func TestProvision_UnencodableAttributesDoNotFail(t *testing.T) {
	tr := &mockTransport{}
	props := staticProps{"orders": {
		"QueueName": "orders",
		"Policy":    map[string]any{"ch": make(chan int)},
	}}

	p := &Provisioner{Transport: tr, Catalog: props, Retries: 5}
	require.NoError(t, p.Provision(context.Background(), orders))
	tr.AssertNotCalled(t, "CreateQueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttributes(t *testing.T) {
	attrs, err := Attributes(map[string]any{
		"QueueName":    "q",
		"DelaySeconds": 5,
		"Policy":       []any{"a", "b"},
		"Empty":        nil,
		"Ratio":        1.5,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"DelaySeconds": "5",
		"Policy":       `["a","b"]`,
		"Ratio":        "1.5",
	}, attrs)

	_, err = Attributes(map[string]any{"Policy": map[string]any{"ch": make(chan int)}})
	assert.Error(t, err)
}
