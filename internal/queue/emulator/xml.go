package emulator

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"sqs-event-poller/internal/queue"
)

type errorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
	RequestID string `xml:"RequestId"`
}

type createQueueResponse struct {
	XMLName  xml.Name `xml:"CreateQueueResponse"`
	QueueURL string   `xml:"CreateQueueResult>QueueUrl"`
}

// Message decodes from a single <Message> element or from a sequence of them,
// so one-vs-many cardinality never leaks past this type.
type receiveMessageResponse struct {
	XMLName  xml.Name     `xml:"ReceiveMessageResponse"`
	Messages []xmlMessage `xml:"ReceiveMessageResult>Message"`
}

type deleteMessageResponse struct {
	XMLName xml.Name `xml:"DeleteMessageResponse"`
}

type xmlMessage struct {
	MessageID         string                `xml:"MessageId"`
	ReceiptHandle     string                `xml:"ReceiptHandle"`
	MD5OfBody         string                `xml:"MD5OfBody"`
	Body              string                `xml:"Body"`
	Attributes        []xmlAttribute        `xml:"Attribute"`
	MessageAttributes []xmlMessageAttribute `xml:"MessageAttribute"`
}

type xmlAttribute struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

type xmlMessageAttribute struct {
	Name  string `xml:"Name"`
	Value struct {
		DataType    string `xml:"DataType"`
		StringValue string `xml:"StringValue"`
		BinaryValue string `xml:"BinaryValue"`
	} `xml:"Value"`
}

func (m xmlMessage) toMessage() queue.Message {
	msg := queue.Message{
		MessageID:         m.MessageID,
		ReceiptHandle:     m.ReceiptHandle,
		Body:              m.Body,
		MD5OfBody:         m.MD5OfBody,
		Attributes:        make(map[string]string, len(m.Attributes)),
		MessageAttributes: make(map[string]queue.MessageAttribute, len(m.MessageAttributes)),
	}
	for _, a := range m.Attributes {
		msg.Attributes[a.Name] = a.Value
	}
	for _, a := range m.MessageAttributes {
		attr := queue.MessageAttribute{
			DataType:    a.Value.DataType,
			StringValue: a.Value.StringValue,
		}
		if a.Value.BinaryValue != "" {
			if b, err := base64.StdEncoding.DecodeString(a.Value.BinaryValue); err == nil {
				attr.BinaryValue = b
			}
		}
		msg.MessageAttributes[a.Name] = attr
	}
	return msg
}

// decodeResponse unmarshals body into v. A body carrying an error envelope is
// surfaced as the embedded error even when the envelope is the reason decoding failed.
func decodeResponse(op string, status int, body []byte, v any) error {
	err := xml.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	if bytes.Contains(body, []byte("<ErrorResponse")) {
		return decodeErrorResponse(op, body)
	}
	if status >= 400 {
		return &queue.TransportError{
			Kind:    queue.TransportFailure,
			Op:      op,
			Message: fmt.Sprintf("unexpected status code: %d", status),
		}
	}
	return &queue.TransportError{
		Kind:    queue.ParseFailure,
		Op:      op,
		Message: fmt.Sprintf("failed to parse emulator response: %v", err),
		Err:     err,
	}
}

func decodeErrorResponse(op string, body []byte) error {
	var resp errorResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return &queue.TransportError{
			Kind:    queue.ParseFailure,
			Op:      op,
			Message: fmt.Sprintf("emulator XML parse error: %v", err),
			Err:     err,
		}
	}
	code := resp.Error.Code
	if code == "" {
		code = "UnknownError"
	}
	message := resp.Error.Message
	if message == "" {
		message = "Unknown error"
	}
	return &queue.TransportError{
		Kind:    queue.Classify(code, message),
		Op:      op,
		Code:    code,
		Message: message,
	}
}
