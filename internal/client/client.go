// Package client holds the HTTP clients for the upstream services this
// module consumes: ledger, organization, deposit products, portfolio and
// cheque clearance. Consumers depend on narrow interfaces; the structs here
// are the production implementations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

type baseClient struct {
	baseURL    string
	httpClient *http.Client
}

func newBaseClient(baseURL string, timeout time.Duration) baseClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return baseClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c baseClient) do(ctx context.Context, method, path string, payload, target any) error {
	if c.baseURL == "" {
		return fmt.Errorf("client: base url is empty")
	}

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.NotFoundf("client: %s %s", method, path)
	case resp.StatusCode >= 400:
		return shared.Conflictf("client: %s %s returned status %d", method, path, resp.StatusCode)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func (c baseClient) get(ctx context.Context, path string, target any) error {
	return c.do(ctx, http.MethodGet, path, nil, target)
}

func (c baseClient) post(ctx context.Context, path string, payload, target any) error {
	return c.do(ctx, http.MethodPost, path, payload, target)
}
