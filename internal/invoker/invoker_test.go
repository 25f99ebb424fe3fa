package invoker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqs-event-poller/internal/queue"
)

var batch = queue.Batch{
	{MessageID: "m1", ReceiptHandle: "r1", Body: "hello", MD5OfBody: "5d41402abc4b2a76b9719d911017c592",
		Attributes: map[string]string{"ApproximateReceiveCount": "1"}},
	{MessageID: "m2", ReceiptHandle: "r2", Body: "world",
		MessageAttributes: map[string]queue.MessageAttribute{"k": {DataType: "String", StringValue: "v"}}},
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(batch, "us-east-1", "arn:aws:sqs:us-east-1:0:orders")
	require.Len(t, ev.Records, 2)

	r := ev.Records[0]
	assert.Equal(t, "m1", r.MessageID)
	assert.Equal(t, "r1", r.ReceiptHandle)
	assert.Equal(t, "hello", r.Body)
	assert.Equal(t, "aws:sqs", r.EventSource)
	assert.Equal(t, "arn:aws:sqs:us-east-1:0:orders", r.EventSourceARN)
	assert.Equal(t, "us-east-1", r.AWSRegion)
	assert.NotNil(t, r.MessageAttributes)

	assert.NotNil(t, ev.Records[1].Attributes)
	assert.Equal(t, "v", ev.Records[1].MessageAttributes["k"].StringValue)
}

func TestHTTPInvoker_Success(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2015-03-31/functions/handleOrders/invocations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inv := NewHTTP(srv.URL, time.Second, 0)
	err := inv.Invoke(context.Background(), "handleOrders", NewEvent(batch, "us-east-1", "arn"))
	require.NoError(t, err)
	assert.Len(t, got.Records, 2)
}

func TestHTTPInvoker_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "function error header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(FunctionErrorHeader, "Unhandled")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"errorMessage":"boom"}`))
			},
		},
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			inv := NewHTTP(srv.URL, time.Second, 3)
			err := inv.Invoke(context.Background(), "f", Event{})

			var fe *FunctionError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "f", fe.Function)
			// a response means the handler ran, so it is never retried
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestHTTPInvoker_RetriesUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	inv := NewHTTP(endpoint, time.Second, 2)
	inv.BaseDelay = time.Millisecond
	inv.MaxDelay = 2 * time.Millisecond

	err := inv.Invoke(context.Background(), "f", Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoke f")
}

func TestInvokerFunc(t *testing.T) {
	var fn string
	var inv Invoker = InvokerFunc(func(_ context.Context, function string, _ Event) error {
		fn = function
		return nil
	})
	require.NoError(t, inv.Invoke(context.Background(), "f", Event{}))
	assert.Equal(t, "f", fn)
}
