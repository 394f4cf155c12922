package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// maxEchoBytes bounds the echo response; the payload is a tiny JSON object
const maxEchoBytes = 1 << 16

// IPEchoClient asks a jsonip-style service for the caller's public address
type IPEchoClient struct {
	endpoint   string
	httpClient HTTPDoer
	validator  *validator.Validate
}

// NewIPEchoClient creates a client for endpoint, e.g. "http://jsonip.com/".
// A nil doer means http.DefaultClient.
func NewIPEchoClient(endpoint string, doer HTTPDoer) *IPEchoClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &IPEchoClient{
		endpoint:   endpoint,
		httpClient: doer,
		validator:  validator.New(),
	}
}

// MyIP returns the address the echo service saw the request come from
func (c *IPEchoClient) MyIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build echo request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("echo service returned non-200 status: %d", resp.StatusCode)
	}

	var data struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEchoBytes)).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode echo response: %w", err)
	}
	if err := c.validator.Var(data.IP, "required,ip"); err != nil {
		return "", fmt.Errorf("echo service returned invalid IP %q", data.IP)
	}
	return data.IP, nil
}
