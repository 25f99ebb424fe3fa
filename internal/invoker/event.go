package invoker

import "sqs-event-poller/internal/queue"

const EventSourceSQS = "aws:sqs"

// Event is the payload handed to a consumer for one batch.
type Event struct {
	Records []Record `json:"Records"`
}

// Record is one message of the batch in the shape SQS-triggered handlers expect.
type Record struct {
	MessageID         string                            `json:"messageId"`
	ReceiptHandle     string                            `json:"receiptHandle"`
	Body              string                            `json:"body"`
	Attributes        map[string]string                 `json:"attributes"`
	MessageAttributes map[string]queue.MessageAttribute `json:"messageAttributes"`
	MD5OfBody         string                            `json:"md5OfBody"`
	EventSource       string                            `json:"eventSource"`
	EventSourceARN    string                            `json:"eventSourceARN"`
	AWSRegion         string                            `json:"awsRegion"`
}

// NewEvent builds the event for batch, received from the queue identified by arn.
func NewEvent(batch queue.Batch, region, arn string) Event {
	records := make([]Record, 0, len(batch))
	for _, m := range batch {
		attrs := m.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		msgAttrs := m.MessageAttributes
		if msgAttrs == nil {
			msgAttrs = map[string]queue.MessageAttribute{}
		}
		records = append(records, Record{
			MessageID:         m.MessageID,
			ReceiptHandle:     m.ReceiptHandle,
			Body:              m.Body,
			Attributes:        attrs,
			MessageAttributes: msgAttrs,
			MD5OfBody:         m.MD5OfBody,
			EventSource:       EventSourceSQS,
			EventSourceARN:    arn,
			AWSRegion:         region,
		})
	}
	return Event{Records: records}
}
