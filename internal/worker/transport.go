package worker

import (
	"context"
	"net/http"
	"time"

	"sqs-event-poller/configs"
	"sqs-event-poller/internal/queue"
	"sqs-event-poller/internal/queue/emulator"
	sqsqueue "sqs-event-poller/internal/queue/sqs"
)

// emulatorTimeoutMargin is added to the long-poll wait to bound one emulator request.
const emulatorTimeoutMargin = 10 * time.Second

// NewTransport selects the backend for cfg once. The emulator backend has no
// lookup; its addresses are always synthesized.
func NewTransport(ctx context.Context, cfg *configs.Config) (queue.Transport, queue.URLLookup, error) {
	if cfg.IsEmulator() {
		return emulator.New(emulatorHTTPClient(cfg.ReceiveWaitSeconds), cfg.ReceiveWaitSeconds), nil, nil
	}

	opts := sqsqueue.ClientOptions{Region: cfg.Region, Endpoint: cfg.Endpoint}
	// real AWS uses the default credential chain
	if cfg.Endpoint != "" {
		opts.AccessKeyID = cfg.AccessKeyID
		opts.SecretAccessKey = cfg.SecretAccessKey
	}
	client, err := sqsqueue.NewClient(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	actions := sqsqueue.New(client, &sqsqueue.Config{WaitTimeSeconds: cfg.ReceiveWaitSeconds})
	return actions, actions, nil
}

func emulatorHTTPClient(waitSeconds int32) *http.Client {
	return &http.Client{Timeout: time.Duration(waitSeconds)*time.Second + emulatorTimeoutMargin}
}
