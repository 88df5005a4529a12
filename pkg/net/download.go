package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

var ErrorURLNotFound = errors.New("URL not found")

func getResp(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	c, err := GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP %s request: %w", method, err)
	}

	req.Header.Set("User-Agent", clientAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/csv, */*")

	resp, err := c.Do(req) //nolint:gosec // URL comes from the operator's own flags
	if err != nil {
		return nil, err
	}
	PrintHTTPResponse(resp)
	return resp, nil
}

// Open returns the body of a successful GET of url. The caller closes it.
func Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := getResp(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error executing HTTP GET: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	return resp.Body, nil
}

// Download saves the content of url into path. The file only appears once
// the whole body was received.
func Download(ctx context.Context, url string, path string) (retErr error) {
	body, err := Open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("error creating download file: %w", err)
	}
	defer func() {
		if retErr != nil {
			out.Close()
			os.Remove(out.Name())
		}
	}()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(out.Name(), path); err != nil {
		return fmt.Errorf("error moving download to %s: %w", path, err)
	}

	return nil
}
