package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 4096

// StatusError is returned for non-2xx responses. Message holds the "error"
// field of a JSON error body when the server sent one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("unexpected status: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// GetJSON retrieves the HTTP content and decodes it into the passed target.
func GetJSON[T any](ctx context.Context, url string, target *T) error {
	resp, err := getResp(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error executing HTTP GET: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, target)
}

// PostJSON encodes body as JSON, posts it to url and decodes the response
// into the passed target.
func PostJSON[B any, T any](ctx context.Context, url string, body B, target *T) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}

	resp, err := getResp(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("error executing HTTP POST: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, target)
}

func decodeResponse[T any](resp *http.Response, target *T) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var msg struct {
			Error string `json:"error"`
		}
		if b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
			if json.Unmarshal(b, &msg) == nil {
				se.Message = msg.Error
			}
		}
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}
