package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coppertill/till/internal/ledger"
)

// Remote is the remote ledger backend: one batch endpoint that must
// tolerate redelivery of the same batch (dedupe by order ID), since a
// local retry cannot distinguish "never received" from "ack lost".
type Remote interface {
	// LogBatch delivers a batch of orders. A nil return means the remote
	// acknowledged the whole batch. ErrRejected (possibly wrapped) means
	// the remote answered and refused; any other error is a transport
	// failure.
	LogBatch(ctx context.Context, orders []ledger.Order) error
}

// ErrRejected reports that the remote received the batch and refused it.
var ErrRejected = errors.New("remote rejected batch")

// batchRequest is the wire format of the batch endpoint.
type batchRequest struct {
	Action  string       `json:"action"`
	Payload batchPayload `json:"payload"`
}

type batchPayload struct {
	SalesData []ledger.Order `json:"salesData"`
}

type batchResponse struct {
	Status string `json:"status"`
}

// Client posts order batches to the remote backend over HTTP.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a remote client for the given endpoint URL. The
// timeout bounds only the network leg; ledger writes have no timeouts.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// LogBatch implements Remote.
func (c *Client) LogBatch(ctx context.Context, orders []ledger.Order) error {
	body, err := json.Marshal(batchRequest{
		Action:  "logBatchData",
		Payload: batchPayload{SalesData: orders},
	})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post batch: %w: HTTP %d", ErrRejected, resp.StatusCode)
	}

	var parsed batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Can't tell whether the remote processed the batch; treat as a
		// transport failure so the orders stay queued.
		return fmt.Errorf("decode batch response: %w", err)
	}
	if parsed.Status != "success" {
		return fmt.Errorf("post batch: %w: status %q", ErrRejected, parsed.Status)
	}
	return nil
}
