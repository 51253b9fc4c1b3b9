package options

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
)

// Request describes one candidate listing call.
type Request struct {
	Endpoint    string
	Query       url.Values
	ResultsPath string
}

// Fetcher loads candidate records for a remote option binding.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]map[string]any, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, req Request) ([]map[string]any, error)

// Fetch delegates to the underlying function.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) ([]map[string]any, error) {
	return f(ctx, req)
}

// StatusError reports a non-2xx response from a listing endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("options: %s returned status %d", e.URL, e.StatusCode)
}

// HTTPFetcher issues GET requests against listing endpoints. Relative
// endpoints are resolved against BaseURL.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
	Header  http.Header
}

// NewHTTPFetcher returns a fetcher with a bounded client timeout.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: baseURL,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) ([]map[string]any, error) {
	target, err := f.resolve(req.Endpoint)
	if err != nil {
		return nil, err
	}
	query := target.Query()
	for key, values := range req.Query {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	target.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("options: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, values := range f.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("options: request %s: %w", target.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: target.Redacted(), StatusCode: resp.StatusCode}
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("options: decode %s: %w", target.Redacted(), err)
	}
	return ExtractRecords(payload, req.ResultsPath), nil
}

func (f *HTTPFetcher) resolve(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("options: parse endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() || f.BaseURL == "" {
		return ref, nil
	}
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("options: parse base url %q: %w", f.BaseURL, err)
	}
	return base.ResolveReference(ref), nil
}

// ExtractRecords unwraps a listing payload. With a results path the records
// are read from that dotted path; otherwise a bare array or an object with a
// "data" array is accepted. Non-object entries are skipped.
func ExtractRecords(payload any, resultsPath string) []map[string]any {
	current := payload
	if resultsPath != "" {
		root, ok := payload.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = valuepath.Get(root, resultsPath)
		if !ok {
			return nil
		}
	} else if obj, ok := payload.(map[string]any); ok {
		current = obj["data"]
	}

	var items []any
	switch v := current.(type) {
	case []any:
		items = v
	case []map[string]any:
		return v
	default:
		return nil
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records
}
