package enasolar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// pageFetcher performs a single bounded HTTP GET against the inverter's
// embedded web server. No retries here: retry policy belongs to the caller.
type pageFetcher struct {
	baseURL string
	client  *http.Client
}

func newPageFetcher(host string, port uint, client *http.Client) *pageFetcher {
	baseURL := fmt.Sprintf("http://%s", host)
	if port > 0 && port != 80 {
		baseURL = fmt.Sprintf("http://%s:%d", host, port)
	}
	return &pageFetcher{
		baseURL: baseURL,
		client:  client,
	}
}

func (f *pageFetcher) fetch(ctx context.Context, page string) (string, error) {
	url := f.baseURL + "/" + strings.TrimPrefix(page, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ConnectionError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &ConnectionError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ConnectionError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ConnectionError{URL: url, Err: err}
	}
	return string(body), nil
}
