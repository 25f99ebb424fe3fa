package sqs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"sqs-event-poller/internal/queue"
)

// API is the subset of *sqs.Client used by SqsActions.
type API interface {
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// SqsActions implements queue.Transport and queue.URLLookup against AWS SQS.
type SqsActions struct {
	SqsClient API     // AWS SQS client
	Config    *Config // Configuration for SQS
}

type Config struct {
	WaitTimeSeconds int32 // Long-poll wait for ReceiveMessage
}

// ClientOptions describes how to reach SQS.
type ClientOptions struct {
	Region          string
	Endpoint        string // optional override
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient creates a new sqs client
func NewClient(ctx context.Context, opts ClientOptions) (*sqs.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	// Load the Shared AWS Configuration
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	// Create an SQS service client
	svc := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return svc, nil
}

// New wraps client as a queue.Transport.
func New(client API, cfg *Config) *SqsActions {
	return &SqsActions{SqsClient: client, Config: cfg}
}

// CreateQueue creates the queue. The endpoint argument is ignored, the client
// already carries it.
func (a *SqsActions) CreateQueue(ctx context.Context, _ string, name string, attributes map[string]string) error {
	_, err := a.SqsClient.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: attributes,
	})
	return queue.Wrap("CreateQueue", err)
}

// GetQueueURL looks up the URL of the named queue.
func (a *SqsActions) GetQueueURL(ctx context.Context, name string) (string, error) {
	out, err := a.SqsClient.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", queue.Wrap("GetQueueUrl", err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// Receive receives messages from the SQS queue.
func (a *SqsActions) Receive(ctx context.Context, address string, maxMessages int) ([]queue.Message, error) {
	if maxMessages > queue.MaxReceive {
		maxMessages = queue.MaxReceive
	}
	result, err := a.SqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(address),
		MaxNumberOfMessages:   int32(maxMessages),
		AttributeNames:        []types.QueueAttributeName{types.QueueAttributeNameAll},
		MessageAttributeNames: []string{"All"},
		WaitTimeSeconds:       a.Config.WaitTimeSeconds,
	})
	if err != nil {
		return nil, queue.Wrap("ReceiveMessage", err)
	}

	messages := make([]queue.Message, 0, len(result.Messages))
	for _, m := range result.Messages {
		messages = append(messages, toMessage(m))
	}
	return messages, nil
}

// DeleteBatch deletes messages in groups of ten, one DeleteMessageBatch call per group, concurrently.
// Every group is attempted even when another fails; the first error is returned.
func (a *SqsActions) DeleteBatch(ctx context.Context, address string, messages queue.Batch) error {
	var g errgroup.Group
	for start := 0; start < len(messages); start += queue.MaxDeleteBatch {
		end := min(start+queue.MaxDeleteBatch, len(messages))
		entries := make([]types.DeleteMessageBatchRequestEntry, 0, end-start)
		for _, m := range messages[start:end] {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(m.MessageID),
				ReceiptHandle: aws.String(m.ReceiptHandle),
			})
		}
		g.Go(func() error {
			out, err := a.SqsClient.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
				QueueUrl: aws.String(address),
				Entries:  entries,
			})
			if err != nil {
				return queue.Wrap("DeleteMessageBatch", err)
			}
			if len(out.Failed) > 0 {
				return queue.Errorf("DeleteMessageBatch", "%d of %d entries failed: %s",
					len(out.Failed), len(entries), failedSummary(out.Failed))
			}
			return nil
		})
	}
	return g.Wait()
}

func failedSummary(failed []types.BatchResultErrorEntry) string {
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		parts = append(parts, aws.ToString(f.Id)+"="+aws.ToString(f.Code))
	}
	return strings.Join(parts, ", ")
}

func toMessage(m types.Message) queue.Message {
	msg := queue.Message{
		MessageID:     aws.ToString(m.MessageId),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		Body:          aws.ToString(m.Body),
		MD5OfBody:     aws.ToString(m.MD5OfBody),
		Attributes:    m.Attributes,
	}
	if msg.Attributes == nil {
		msg.Attributes = map[string]string{}
	}
	msg.MessageAttributes = make(map[string]queue.MessageAttribute, len(m.MessageAttributes))
	for name, v := range m.MessageAttributes {
		msg.MessageAttributes[name] = queue.MessageAttribute{
			DataType:    aws.ToString(v.DataType),
			StringValue: aws.ToString(v.StringValue),
			BinaryValue: v.BinaryValue,
		}
	}
	return msg
}
