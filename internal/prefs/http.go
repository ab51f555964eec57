package prefs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/quotewright/internal/common"
)

// SaveRequest is the body of the save_table_prefs action.
type SaveRequest struct {
	Widths  map[string]int `json:"widths"`
	Context Context        `json:"context" binding:"required"`
	Order   []string       `json:"order"`
}

// LoadRequest is the body of the get_table_prefs action.
type LoadRequest struct {
	Context Context `json:"context" binding:"required"`
}

// LoadResponse is the data of a get_table_prefs reply.
type LoadResponse struct {
	Widths map[string]int `json:"widths"`
	Order  []string       `json:"order"`
	Found  bool           `json:"found"`
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

// HTTPBackend talks to a remote action endpoint.
type HTTPBackend struct {
	client  *http.Client
	baseURL string
	retry   common.RetryOptions
}

// NewHTTPBackend creates a backend posting to baseURL/ajax/<action>.
func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPBackend{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
}

// WithRetryOptions replaces the retry policy.
func (b *HTTPBackend) WithRetryOptions(opts common.RetryOptions) *HTTPBackend {
	b.retry = opts
	return b
}

// Save posts the payload. A reply with success=false is not retried.
func (b *HTTPBackend) Save(ctx context.Context, c Context, p Payload) error {
	req := SaveRequest{Context: c, Widths: p.Widths, Order: p.Order}
	_, err := b.call(ctx, "save_table_prefs", req)
	return err
}

// Load fetches the stored payload for c.
func (b *HTTPBackend) Load(ctx context.Context, c Context) (Payload, bool, error) {
	data, err := b.call(ctx, "get_table_prefs", LoadRequest{Context: c})
	if err != nil {
		return Payload{}, false, err
	}
	var resp LoadResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Payload{}, false, fmt.Errorf("failed to decode preference reply: %w", err)
	}
	if !resp.Found {
		return Payload{}, false, nil
	}
	return Payload{Widths: resp.Widths, Order: resp.Order}, true, nil
}

func (b *HTTPBackend) call(ctx context.Context, action string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	opts := b.retry
	opts.Name = action

	var data json.RawMessage
	err = common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/ajax/"+action, bytes.NewReader(encoded))
		if err != nil {
			return common.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return common.Transient(err)
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return common.Transient(err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return common.ErrRateLimit
		case resp.StatusCode >= 500:
			return common.Transient(fmt.Errorf("server error: %s", resp.Status))
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return common.Permanent(fmt.Errorf("invalid reply (%s): %w", resp.Status, err))
		}
		if !env.Success {
			return common.Permanent(fmt.Errorf("%w: %s", common.ErrSaveRejected, env.Error))
		}
		data = env.Data
		return nil
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", action, err)
	}
	return data, nil
}
