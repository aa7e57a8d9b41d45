package analysis

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultDemoDelay is how long demo mode waits before answering.
const DefaultDemoDelay = 2 * time.Second

// Options configures a Client. The zero value is usable: a plain
// http.Client, no timeout, DefaultDemoDelay and the standard logger.
type Options struct {
	// HTTPClient is used by the default live transport.
	HTTPClient *http.Client

	// Timeout bounds one call. Zero means no internal deadline.
	Timeout time.Duration

	// DemoDelay is the simulated latency of demo mode. Negative means none.
	DemoDelay time.Duration

	// Live and Demo override the transport strategies.
	Live Transport
	Demo Transport

	// Logger receives one line per call. Use a logger writing to io.Discard
	// to silence it.
	Logger *log.Logger
}

// Client submits repositories to a remote analysis service and turns the
// reply into a validated Report or a classified *Error. It holds no
// per-call state and is safe for concurrent use.
type Client struct {
	live    Transport
	demo    Transport
	timeout time.Duration
	logger  *log.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		live:    opts.Live,
		demo:    opts.Demo,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if c.live == nil {
		c.live = NewHTTPTransport(opts.HTTPClient)
	}
	if c.demo == nil {
		delay := opts.DemoDelay
		switch {
		case delay == 0:
			delay = DefaultDemoDelay
		case delay < 0:
			delay = 0
		}
		c.demo = DemoTransport{Delay: delay}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// Analyze submits repositoryRef to endpoint and returns the validated
// report. The credential is sent as x-api-key only when non-blank. With
// useMock the demo transport answers and the network is never used.
//
// Every returned error is an *Error. Analyze performs exactly one round
// trip and never retries.
func (c *Client) Analyze(ctx context.Context, repositoryRef, endpoint, credential string, useMock bool) (*Report, error) {
	req := &Request{
		RepositoryRef: repositoryRef,
		Endpoint:      strings.TrimSpace(endpoint),
	}
	// A blank credential means none; any other value is sent unchanged.
	if strings.TrimSpace(credential) != "" {
		req.Credential = credential
	}

	transport := c.live
	if useMock {
		transport = c.demo
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	report, aerr := c.roundTrip(ctx, transport, req)
	c.logOutcome(req, useMock, aerr, time.Since(start))
	if aerr != nil {
		return nil, aerr
	}
	return report, nil
}

func (c *Client) roundTrip(ctx context.Context, transport Transport, req *Request) (*Report, *Error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError(ctx, err, req.Endpoint)
	}

	resp, err := transport.RoundTrip(ctx, req)
	if err != nil {
		return nil, transportError(ctx, err, req.Endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, resp.Body, req.RepositoryRef, req.Credential)
	}

	report, err := DecodeReport(resp.Body)
	if err != nil {
		return nil, malformedError(resp.StatusCode, err)
	}
	return report, nil
}

// transportError classifies a failure that produced no response.
func transportError(ctx context.Context, err error, endpoint string) *Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return cancelledError(err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return timeoutError(endpoint, err)
	case errors.Is(err, context.Canceled):
		return cancelledError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError(endpoint, err)
	}
	return connectionError(endpoint, err)
}

func (c *Client) logOutcome(req *Request, mock bool, aerr *Error, latency time.Duration) {
	if c.logger.Writer() == io.Discard {
		return
	}
	host := "invalid"
	if u, err := url.Parse(req.Endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	if mock {
		host = "demo"
	}
	if aerr == nil {
		c.logger.Printf("analysis ok host=%s latency=%s", host, latency.Round(time.Millisecond))
		return
	}
	c.logger.Printf("analysis failed host=%s kind=%s status=%d latency=%s", host, aerr.Kind, aerr.StatusCode, latency.Round(time.Millisecond))
}
