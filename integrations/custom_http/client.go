package custom_http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/context"
)

var ErrTooLarge = errors.New("response body too large")

type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// DefaultClient fetches small payloads such as attachments and icons.
// MaxBytes of zero means unlimited.
type DefaultClient struct {
	Client   *http.Client
	Headers  map[string]string
	MaxBytes int64
}

func (dc *DefaultClient) MakeRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	dc.setHeaders(req)
	return req, nil
}

func (dc *DefaultClient) Do(req *http.Request) ([]byte, error) {
	client := dc.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: req.URL.String(), Status: resp.Status, Code: resp.StatusCode}
	}
	if dc.MaxBytes > 0 && resp.ContentLength > dc.MaxBytes {
		return nil, fmt.Errorf("%s: %d bytes: %w", req.URL, resp.ContentLength, ErrTooLarge)
	}

	reader := io.Reader(resp.Body)
	if dc.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, dc.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL, err)
	}
	if dc.MaxBytes > 0 && int64(len(body)) > dc.MaxBytes {
		return nil, fmt.Errorf("%s: more than %d bytes: %w", req.URL, dc.MaxBytes, ErrTooLarge)
	}
	return body, nil
}

// Get downloads url.
func (dc *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := dc.MakeRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return dc.Do(req)
}

func (dc *DefaultClient) setHeaders(req *http.Request) {
	for k, v := range dc.Headers {
		req.Header.Set(k, v)
	}
}
