package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Kind classifies a transport failure independently of the backend that produced it.
type Kind int

const (
	TransportFailure Kind = iota
	QueueNotFound
	QueueAlreadyExists
	ParseFailure
)

func (k Kind) String() string {
	switch k {
	case QueueNotFound:
		return "QueueNotFound"
	case QueueAlreadyExists:
		return "QueueAlreadyExists"
	case ParseFailure:
		return "ParseFailure"
	default:
		return "TransportFailure"
	}
}

// Error codes and names reported by either backend for a missing queue.
var notFoundCodes = []string{
	"AWS.SimpleQueueService.NonExistentQueue",
	"NonExistentQueue",
	"QueueDoesNotExist",
}

// Error codes and names reported by either backend for a duplicate queue.
var alreadyExistsCodes = []string{
	"QueueAlreadyExists",
	"AWS.SimpleQueueService.QueueAlreadyExists",
	"QueueAlreadyExistsException",
	"QueueNameExists",
}

// The emulator reports duplicates only through the message text.
var alreadyExistsPhrases = []string{
	"already exists",
	"QueueAlreadyExists",
}

// TransportError is returned by every Transport operation.
type TransportError struct {
	Kind    Kind
	Op      string // CreateQueue, ReceiveMessage, DeleteMessage, ...
	Code    string // backend error code, if any
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify derives a Kind from a backend error code and message.
func Classify(code, message string) Kind {
	for _, c := range notFoundCodes {
		if code == c {
			return QueueNotFound
		}
	}
	for _, c := range alreadyExistsCodes {
		if code == c {
			return QueueAlreadyExists
		}
	}
	for _, p := range alreadyExistsPhrases {
		if strings.Contains(message, p) {
			return QueueAlreadyExists
		}
	}
	return TransportFailure
}

// Wrap converts an arbitrary backend error into a *TransportError for op.
// Errors that already are transport errors are returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{
			Kind:    Classify(apiErr.ErrorCode(), apiErr.ErrorMessage()),
			Op:      op,
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return &TransportError{
		Kind: Classify("", err.Error()),
		Op:   op,
		Err:  err,
	}
}

// Errorf builds a TransportFailure for op.
func Errorf(op, format string, args ...any) error {
	return &TransportError{Kind: TransportFailure, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err. Foreign errors are classified by
// their message text.
func KindOf(err error) Kind {
	if err == nil {
		return TransportFailure
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return Classify("", err.Error())
}

// IsNotFound reports whether err means the queue does not exist.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == QueueNotFound
}

// IsAlreadyExists reports whether err means the queue already exists.
func IsAlreadyExists(err error) bool {
	return err != nil && KindOf(err) == QueueAlreadyExists
}
