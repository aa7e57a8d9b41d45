package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Request is one analysis submission. It is built by Client and handed to
// a Transport; transports must not modify it.
type Request struct {
	RepositoryRef string
	Endpoint      string
	Credential    string
}

// Response is the terminal reply of a Transport.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs a single analysis round trip. Implementations must
// return ctx.Err() (possibly wrapped) when the context ends first.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// requestBody is the wire payload sent to the analysis service.
type requestBody struct {
	RepoURL string `json:"repo_url"`
}

// HTTPTransport posts the request to the configured endpoint.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns an HTTPTransport. A nil client means a fresh
// http.Client without its own timeout; deadlines come from the context.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	if err := checkEndpoint(req.Endpoint); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(requestBody{RepoURL: req.RepositoryRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.Credential != "" {
		httpReq.Header.Set("x-api-key", req.Credential)
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func checkEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host")
	}
	return nil
}

// DemoTransport answers every request with the fixed demonstration report
// after Delay, without touching the network.
type DemoTransport struct {
	Delay time.Duration
}

func (t DemoTransport) RoundTrip(ctx context.Context, _ *Request) (*Response, error) {
	timer := time.NewTimer(t.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return &Response{StatusCode: http.StatusOK, Body: []byte(demoReportJSON)}, nil
}

// demoReportJSON is the report served in demo mode.
const demoReportJSON = `{
  "repository_name": "rahul-dev-ai/todo-app",
  "score": 78,
  "level": "Intermediate",
  "summary": "Strong code consistency and folder structure; needs more tests and documentation. The project demonstrates good grasp of core concepts but lacks production-readiness features.",
  "breakdown": {
    "code_quality": 85,
    "project_structure": 90,
    "documentation": 40,
    "testing": 20,
    "best_practices": 75
  },
  "roadmap": [
    "Add unit tests for core logic components",
    "Improve README.md with setup instructions and screenshots",
    "Introduce CI/CD using GitHub Actions",
    "Refactor monolithic components into smaller, reusable hooks"
  ]
}`
