package imagetx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RemoteTransformer calls the external image-transform service. Any
// transport error, non-2xx status, or empty body is a transform failure the
// caller recovers from locally.
type RemoteTransformer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRemoteTransformer(baseURL, apiKey string, httpClient *http.Client) *RemoteTransformer {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	return &RemoteTransformer{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (t *RemoteTransformer) Transform(ctx context.Context, data []byte, spec Spec) ([]byte, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transform service url: %w", err)
	}
	q := u.Query()
	q.Set("width", strconv.Itoa(spec.Width))
	q.Set("height", strconv.Itoa(spec.Height))
	q.Set("fit", spec.Fit)
	q.Set("format", spec.Format)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build transform request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transform service returned status %d", resp.StatusCode)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transform response: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("transform service returned an empty body")
	}
	return out, nil
}
