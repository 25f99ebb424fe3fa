package queue

import "context"

// MaxReceive is the largest number of messages a single receive call may return.
const MaxReceive = 10

// MaxDeleteBatch is the largest number of entries a single batch-delete call accepts.
const MaxDeleteBatch = 10

// Transport defines the capability set shared by every queue backend (native SQS, local emulator).
type Transport interface {
	// CreateQueue creates the named queue with the given attributes. endpoint is
	// the service endpoint the request is sent to; backends with a preconfigured
	// client ignore it.
	CreateQueue(ctx context.Context, endpoint, name string, attributes map[string]string) error
	// Receive fetches at most maxMessages messages from the queue at address.
	Receive(ctx context.Context, address string, maxMessages int) ([]Message, error)
	// DeleteBatch deletes the given messages from the queue at address.
	DeleteBatch(ctx context.Context, address string, messages Batch) error
}

// URLLookup resolves a queue name to its address through the backend.
type URLLookup interface {
	GetQueueURL(ctx context.Context, name string) (string, error)
}

// Message is a received work item in backend-neutral form.
type Message struct {
	MessageID         string
	ReceiptHandle     string
	Body              string
	MD5OfBody         string
	Attributes        map[string]string
	MessageAttributes map[string]MessageAttribute
}

// MessageAttribute is a typed user attribute attached to a message.
type MessageAttribute struct {
	DataType    string `json:"dataType"`
	StringValue string `json:"stringValue,omitempty"`
	BinaryValue []byte `json:"binaryValue,omitempty"`
}

// Batch is an ordered group of messages handled within one polling cycle.
type Batch []Message

// ReceiptHandles returns the deletion tokens of the batch in order.
func (b Batch) ReceiptHandles() []string {
	handles := make([]string, 0, len(b))
	for _, m := range b {
		handles = append(handles, m.ReceiptHandle)
	}
	return handles
}
