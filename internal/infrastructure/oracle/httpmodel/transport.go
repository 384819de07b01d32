package httpmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// A reply larger than this is a model fault, not a big batch.
const maxReplyBytes = 32 << 20

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oracle %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPStatusError(operation, resp)
	}
	return decodeReply(operation, resp.Body, out)
}

// decodeReply separates transport failures (returned as is, so the
// classifier sees net errors) from a 2xx body the model got wrong.
func decodeReply(operation string, body io.Reader, out any) error {
	raw, err := io.ReadAll(io.LimitReader(body, maxReplyBytes+1))
	if err != nil {
		return fmt.Errorf("read %s reply: %w", operation, err)
	}
	if len(raw) > maxReplyBytes {
		return &MalformedReplyError{Operation: operation, Err: fmt.Errorf("reply exceeds %d bytes", maxReplyBytes)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &MalformedReplyError{Operation: operation, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedReplyError{Operation: operation, Err: err}
	}
	return nil
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}
