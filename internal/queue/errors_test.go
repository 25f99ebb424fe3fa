package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code    string
		message string
		want    Kind
	}{
		{"AWS.SimpleQueueService.NonExistentQueue", "", QueueNotFound},
		{"QueueDoesNotExist", "", QueueNotFound},
		{"QueueAlreadyExists", "", QueueAlreadyExists},
		{"QueueNameExists", "", QueueAlreadyExists},
		{"InvalidParameterValue", "Queue orders already exists", QueueAlreadyExists},
		{"InvalidParameterValue", "bad value", TransportFailure},
		{"", "", TransportFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.code, tt.message), "%s/%s", tt.code, tt.message)
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("Op", nil))

	apiErr := &smithy.GenericAPIError{Code: "AWS.SimpleQueueService.NonExistentQueue", Message: "gone"}
	err := Wrap("ReceiveMessage", fmt.Errorf("operation error: %w", apiErr))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, QueueNotFound, te.Kind)
	assert.Equal(t, "AWS.SimpleQueueService.NonExistentQueue", te.Code)
	assert.Equal(t, "ReceiveMessage: AWS.SimpleQueueService.NonExistentQueue: gone", te.Error())
	assert.ErrorIs(t, err, apiErr)

	// already wrapped errors keep their original op
	assert.Same(t, te, Wrap("Other", err).(*TransportError))

	plain := Wrap("CreateQueue", errors.New("dial tcp: connection refused"))
	assert.Equal(t, TransportFailure, KindOf(plain))
	assert.Equal(t, "CreateQueue: dial tcp: connection refused", plain.Error())
}

func TestKindOf(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("fetch: %w", &TransportError{Kind: QueueNotFound})))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsAlreadyExists(nil))
	assert.True(t, IsAlreadyExists(errors.New("queue already exists")))
	assert.Equal(t, TransportFailure, KindOf(errors.New("boom")))
	assert.Equal(t, "ParseFailure", ParseFailure.String())
}

func TestBatchReceiptHandles(t *testing.T) {
	b := Batch{{ReceiptHandle: "a"}, {ReceiptHandle: "b"}}
	assert.Equal(t, []string{"a", "b"}, b.ReceiptHandles())
}
