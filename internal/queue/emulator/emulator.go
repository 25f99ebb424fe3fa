package emulator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"sqs-event-poller/internal/queue"
)

// APIVersion is the Query API version sent with every action.
const APIVersion = "2012-11-05"

// Client implements queue.Transport for a local queue emulator that speaks the
// SQS Query protocol and answers in XML.
type Client struct {
	HTTPClient      *http.Client
	WaitTimeSeconds int32
}

// New returns a Client using httpClient, or http.DefaultClient when nil.
func New(httpClient *http.Client, waitTimeSeconds int32) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTPClient: httpClient, WaitTimeSeconds: waitTimeSeconds}
}

// CreateQueue issues CreateQueue against endpoint, passing attributes as
// numbered Attribute.N.Name / Attribute.N.Value pairs in key order.
func (c *Client) CreateQueue(ctx context.Context, endpoint, name string, attributes map[string]string) error {
	params := url.Values{}
	params.Set("QueueName", name)

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		params.Set(fmt.Sprintf("Attribute.%d.Name", i+1), k)
		params.Set(fmt.Sprintf("Attribute.%d.Value", i+1), attributes[k])
	}

	var resp createQueueResponse
	return c.do(ctx, endpoint, "CreateQueue", params, &resp)
}

// Receive issues ReceiveMessage against the queue address.
func (c *Client) Receive(ctx context.Context, address string, maxMessages int) ([]queue.Message, error) {
	if maxMessages > queue.MaxReceive {
		maxMessages = queue.MaxReceive
	}
	params := url.Values{}
	params.Set("MaxNumberOfMessages", strconv.Itoa(maxMessages))
	params.Set("AttributeName.1", "All")
	params.Set("MessageAttributeName.1", "All")
	if c.WaitTimeSeconds > 0 {
		params.Set("WaitTimeSeconds", strconv.Itoa(int(c.WaitTimeSeconds)))
	}

	var resp receiveMessageResponse
	if err := c.do(ctx, address, "ReceiveMessage", params, &resp); err != nil {
		return nil, err
	}

	messages := make([]queue.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, m.toMessage())
	}
	return messages, nil
}

// DeleteBatch deletes every message individually and concurrently; the
// emulator's DeleteMessageBatch is not reliable. A failed delete does not
// stop the others.
func (c *Client) DeleteBatch(ctx context.Context, address string, messages queue.Batch) error {
	var g errgroup.Group
	for _, handle := range messages.ReceiptHandles() {
		g.Go(func() error {
			params := url.Values{}
			params.Set("ReceiptHandle", handle)
			var resp deleteMessageResponse
			return c.do(ctx, address, "DeleteMessage", params, &resp)
		})
	}
	return g.Wait()
}

// do POSTs action to target with the parameters in the query string and
// decodes the XML reply into out.
func (c *Client) do(ctx context.Context, target, action string, params url.Values, out any) error {
	u, err := url.Parse(target)
	if err != nil {
		return queue.Wrap(action, fmt.Errorf("invalid emulator address %q: %w", target, err))
	}
	query := u.Query()
	query.Set("Action", action)
	query.Set("Version", APIVersion)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), http.NoBody)
	if err != nil {
		return queue.Wrap(action, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return queue.Wrap(action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return queue.Wrap(action, err)
	}
	return decodeResponse(action, resp.StatusCode, body, out)
}
