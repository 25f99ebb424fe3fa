// Package invoker hands batches to the consumer and reports success or failure.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"sqs-event-poller/internal/logger"
)

// FunctionErrorHeader is set by the runtime when the handler itself failed.
const FunctionErrorHeader = "X-Amz-Function-Error"

// Invoker runs function with event and returns once it has completed.
type Invoker interface {
	Invoke(ctx context.Context, function string, event Event) error
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, function string, event Event) error

func (f InvokerFunc) Invoke(ctx context.Context, function string, event Event) error {
	return f(ctx, function, event)
}

// HTTPInvoker posts events to a Lambda-compatible invoke endpoint.
type HTTPInvoker struct {
	Endpoint   string
	Client     *http.Client
	Timeout    time.Duration // per invocation, 0 = none
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewHTTP returns an HTTPInvoker with default backoff settings.
func NewHTTP(endpoint string, timeout time.Duration, maxRetries int) *HTTPInvoker {
	return &HTTPInvoker{
		Endpoint:   endpoint,
		Client:     &http.Client{},
		Timeout:    timeout,
		MaxRetries: maxRetries,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// FunctionError is returned when the handler ran and reported a failure.
type FunctionError struct {
	Function   string
	StatusCode int
	Type       string
	Payload    string
}

func (e *FunctionError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("function %s failed: %s: %s", e.Function, e.Type, e.Payload)
	}
	return fmt.Sprintf("function %s failed with status %d: %s", e.Function, e.StatusCode, e.Payload)
}

// Invoke posts event and waits for the response. Only failures to reach the
// endpoint are retried; once a response arrives the handler has run.
func (h *HTTPInvoker) Invoke(ctx context.Context, function string, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	target := h.Endpoint + "/2015-03-31/functions/" + url.PathEscape(function) + "/invocations"

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	attempts := h.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(jsonData))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err == nil {
			return h.checkResponse(function, resp)
		}
		lastErr = err

		if ctx.Err() != nil || attempt == attempts {
			break
		}

		delay := h.BaseDelay << (attempt - 1)
		if delay > h.MaxDelay {
			delay = h.MaxDelay
		}
		logger.WarnCtx(ctx, "Invoke endpoint unreachable, retrying",
			zap.String("function", function), zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// retry
		}
	}

	if lastErr == nil {
		lastErr = errors.New("invocation failed after multiple attempts")
	}
	return fmt.Errorf("invoke %s: %w", function, lastErr)
}

func (h *HTTPInvoker) checkResponse(function string, resp *http.Response) error {
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	errType := resp.Header.Get(FunctionErrorHeader)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && errType == "" {
		return nil
	}
	return &FunctionError{
		Function:   function,
		StatusCode: resp.StatusCode,
		Type:       errType,
		Payload:    string(payload),
	}
}
