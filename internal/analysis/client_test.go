package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const minimalReport = `{"repository_name":"acme/widgets","score":78,"level":"Intermediate","summary":"ok",` +
	`"breakdown":{"code_quality":85,"documentation":40,"testing":20,"best_practices":75},"roadmap":["add tests"]}`

func quietClient(opts Options) *Client {
	opts.Logger = log.New(io.Discard, "", 0)
	return NewClient(opts)
}

func serveStatus(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func analyzeErr(t *testing.T, c *Client, ref, endpoint, credential string) *Error {
	t.Helper()
	report, err := c.Analyze(context.Background(), ref, endpoint, credential, false)
	if err == nil {
		t.Fatalf("expected error, got report %+v", report)
	}
	if report != nil {
		t.Fatalf("expected nil report alongside error")
	}
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return ae
}

func TestAnalyzeClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   Kind
	}{
		{401, `{"detail":"Invalid API key"}`, KindAuth},
		{403, `{"detail":"nope"}`, KindForbidden},
		{404, `{"detail":"Not Found"}`, KindNotFound},
		{422, `{"detail":[{"msg":"bad"}]}`, KindValidation},
		{429, `{"detail":"slow down"}`, KindRateLimit},
		{500, `{"detail":"Something went wrong"}`, KindServer},
		{503, `<html>unavailable</html>`, KindServer},
		{400, `{"detail":"Invalid GitHub repository URL"}`, KindHTTP},
		{418, ``, KindHTTP},
	}

	for _, tt := range tests {
		server := serveStatus(t, tt.status, tt.body)
		c := quietClient(Options{})
		ae := analyzeErr(t, c, "github.com/acme/widgets", server.URL, "")
		if ae.Kind != tt.kind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, ae.Kind, tt.kind)
		}
		if ae.StatusCode != tt.status {
			t.Errorf("status %d: StatusCode = %d", tt.status, ae.StatusCode)
		}
		if ae.Message == "" {
			t.Errorf("status %d: empty message", tt.status)
		}
	}
}

func TestAnalyzeNotFoundDistinguishesRepositoryFromEndpoint(t *testing.T) {
	c := quietClient(Options{})

	server := serveStatus(t, 404, `{"detail":"Repository not found"}`)
	ae := analyzeErr(t, c, "github.com/acme/widgets", server.URL, "")
	if !ae.RepositoryNotFound() {
		t.Fatalf("expected repository attribution")
	}
	if !strings.Contains(ae.Message, "Repository not found") || strings.Contains(ae.Message, "Endpoint") {
		t.Fatalf("unexpected message: %q", ae.Message)
	}

	for _, body := range []string{`{"detail":"Not Found"}`, `{}`, `not json`} {
		server := serveStatus(t, 404, body)
		ae := analyzeErr(t, c, "github.com/acme/widgets", server.URL, "")
		if ae.RepositoryNotFound() {
			t.Fatalf("body %q: expected endpoint attribution", body)
		}
		if !strings.Contains(ae.Message, "Check the API Endpoint URL") {
			t.Fatalf("body %q: unexpected message: %q", body, ae.Message)
		}
		if !ae.NeedsSettings() {
			t.Fatalf("body %q: expected NeedsSettings", body)
		}
	}
}

func TestAnalyzeValidationMessages(t *testing.T) {
	c := quietClient(Options{})
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":[{"msg":"url invalid"},{"msg":"url required"}]}`, "Invalid Input: url invalid, url required"},
		{`{"detail":"repo_url must be a GitHub URL"}`, "Invalid Input: repo_url must be a GitHub URL"},
		{`{"detail":[{"loc":["body"]}]}`, "Invalid Input: Please check the repository URL format."},
		{`{}`, "Invalid Input: Please check the repository URL format."},
	}
	for _, tt := range tests {
		server := serveStatus(t, 422, tt.body)
		ae := analyzeErr(t, c, "x", server.URL, "")
		if ae.Message != tt.want {
			t.Errorf("body %s: message = %q, want %q", tt.body, ae.Message, tt.want)
		}
	}
}

func TestAnalyzeServerErrorBoundsDetail(t *testing.T) {
	long := strings.Repeat("x", 400)
	server := serveStatus(t, 502, `{"detail":"`+long+`"}`)
	ae := analyzeErr(t, quietClient(Options{}), "x", server.URL, "")

	want := "Server Error: The backend encountered an issue. Details: " + strings.Repeat("x", previewLimit) + "..."
	if ae.Message != want {
		t.Fatalf("message = %q", ae.Message)
	}

	server = serveStatus(t, 500, `{"detail":{"code":7}}`)
	ae = analyzeErr(t, quietClient(Options{}), "x", server.URL, "")
	if ae.Message != `Server Error: The backend encountered an issue. Details: {"code":7}` {
		t.Fatalf("message = %q", ae.Message)
	}
}

func TestAnalyzeGenericErrorPrefersDetailThenPreview(t *testing.T) {
	c := quietClient(Options{})

	server := serveStatus(t, 400, `{"detail":"Invalid GitHub repository URL"}`)
	if ae := analyzeErr(t, c, "x", server.URL, ""); ae.Message != "Invalid GitHub repository URL" {
		t.Fatalf("message = %q", ae.Message)
	}

	page := "<html><body>" + strings.Repeat("bad gateway ", 40) + "</body></html>"
	server = serveStatus(t, 409, page)
	ae := analyzeErr(t, c, "x", server.URL, "")
	if !strings.HasPrefix(ae.Message, "Error: <html>") || !strings.HasSuffix(ae.Message, "...") {
		t.Fatalf("message = %q", ae.Message)
	}
	if got := len(strings.TrimSuffix(strings.TrimPrefix(ae.Message, "Error: "), "...")); got != previewLimit {
		t.Fatalf("preview length = %d, want %d", got, previewLimit)
	}

	server = serveStatus(t, 418, "")
	if ae := analyzeErr(t, c, "x", server.URL, ""); ae.Message != "Analysis failed (418)" {
		t.Fatalf("message = %q", ae.Message)
	}
}

func TestAnalyzeRejectsMalformedSuccessBodies(t *testing.T) {
	tests := map[string]string{
		"missing score":       strings.Replace(minimalReport, `"score":78,`, "", 1),
		"score above range":   strings.Replace(minimalReport, `"score":78`, `"score":150`, 1),
		"negative score":      strings.Replace(minimalReport, `"score":78`, `"score":-1`, 1),
		"fractional score":    strings.Replace(minimalReport, `"score":78`, `"score":78.5`, 1),
		"unknown level":       strings.Replace(minimalReport, `"Intermediate"`, `"Grandmaster"`, 1),
		"missing roadmap":     strings.Replace(minimalReport, `,"roadmap":["add tests"]`, "", 1),
		"null roadmap":        strings.Replace(minimalReport, `["add tests"]`, `null`, 1),
		"missing breakdown":   `{"repository_name":"a","score":1,"level":"Elite","summary":"s","roadmap":[]}`,
		"missing testing":     strings.Replace(minimalReport, `"testing":20,`, "", 1),
		"breakdown too high":  strings.Replace(minimalReport, `"testing":20`, `"testing":101`, 1),
		"string score":        strings.Replace(minimalReport, `"score":78`, `"score":"78"`, 1),
		"bad checklist state": strings.Replace(minimalReport, `"roadmap"`, `"checklist":[{"item":"README","status":"maybe"}],"roadmap"`, 1),
		"not json":            `<html>ok</html>`,
		"empty":               ``,
	}

	for name, body := range tests {
		server := serveStatus(t, 200, body)
		ae := analyzeErr(t, quietClient(Options{}), "x", server.URL, "")
		if ae.Kind != KindMalformedResponse {
			t.Errorf("%s: kind = %s, want %s", name, ae.Kind, KindMalformedResponse)
		}
		if !strings.HasPrefix(ae.Message, msgMalformed) {
			t.Errorf("%s: message = %q", name, ae.Message)
		}
		if strings.Contains(ae.Message, "json:") || strings.Contains(ae.Message, "unmarshal") {
			t.Errorf("%s: raw decoder text leaked: %q", name, ae.Message)
		}
	}
}

func TestAnalyzeMinimalReportPreservesAbsentProjectStructure(t *testing.T) {
	server := serveStatus(t, 200, minimalReport)
	report, err := quietClient(Options{}).Analyze(context.Background(), "github.com/acme/widgets", server.URL, "", false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Score != 78 || report.Level != LevelIntermediate {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Breakdown.ProjectStructure != nil {
		t.Fatalf("project_structure should stay absent, got %d", *report.Breakdown.ProjectStructure)
	}
	if report.Checklist != nil || report.Tips != nil || report.DetailedReport != "" {
		t.Fatalf("optional fields should be empty: %+v", report)
	}
}

func TestAnalyzeFullReportIsIdentityMapped(t *testing.T) {
	ps := 64
	want := &Report{
		RepositoryName: "acme/widgets",
		Score:          91,
		Level:          LevelElite,
		Summary:        "excellent",
		Breakdown: Breakdown{
			CodeQuality:      90,
			Documentation:    95,
			Testing:          88,
			BestPractices:    92,
			ProjectStructure: &ps,
		},
		Roadmap: []string{"ship it", "write a blog post"},
		Checklist: []ChecklistItem{
			{Item: "README present", Status: CheckPass},
			{Item: "CI configured", Status: CheckFail},
		},
		Tips:           []string{"pin dependencies"},
		DetailedReport: "# Deep Analysis\n\nAll good.",
	}
	body, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	server := serveStatus(t, 200, string(body))
	got, err := quietClient(Options{}).Analyze(context.Background(), "acme/widgets", server.URL, "", false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("report mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestAnalyzeSendsWireRequest(t *testing.T) {
	var (
		mu      sync.Mutex
		method  string
		ctype   string
		payload map[string]any
		keys    []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		ctype = r.Header.Get("Content-Type")
		keys = r.Header.Values("x-api-key")
		payload = nil
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = io.WriteString(w, minimalReport)
	}))
	defer server.Close()

	c := quietClient(Options{})
	if _, err := c.Analyze(context.Background(), "github.com/acme/widgets", server.URL, "", false); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	mu.Lock()
	if method != http.MethodPost || ctype != "application/json" {
		t.Fatalf("method=%s content-type=%s", method, ctype)
	}
	if len(payload) != 1 || payload["repo_url"] != "github.com/acme/widgets" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no credential header, got %v", keys)
	}
	mu.Unlock()

	if _, err := c.Analyze(context.Background(), "github.com/acme/widgets", server.URL, "sk-secret-123", false); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 1 || keys[0] != "sk-secret-123" {
		t.Fatalf("credential header = %v", keys)
	}

	// Header values lose surrounding whitespace on the wire, so the padded
	// key is checked on the outgoing request.
	var sent []string
	padded := quietClient(Options{HTTPClient: &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			sent = r.Header.Values("x-api-key")
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": {"application/json"}},
				Body:       io.NopCloser(strings.NewReader(minimalReport)),
				Request:    r,
			}, nil
		}),
	}})
	if _, err := padded.Analyze(context.Background(), "github.com/acme/widgets", "http://analysis.test/analyze", " tok ", false); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(sent) != 1 || sent[0] != " tok " {
		t.Fatalf("padded credential header = %q", sent)
	}

	sent = nil
	if _, err := padded.Analyze(context.Background(), "github.com/acme/widgets", "http://analysis.test/analyze", "   ", false); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("blank credential sent as %q", sent)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestAnalyzeNeverLeaksCredential(t *testing.T) {
	const key = "sk-secret-123"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"key `+r.Header.Get("x-api-key")+` is not allowed"}`)
	}))
	defer server.Close()

	ae := analyzeErr(t, quietClient(Options{}), "x", server.URL, key)
	if strings.Contains(ae.Message, key) {
		t.Fatalf("credential leaked into message: %q", ae.Message)
	}
	if !strings.Contains(ae.Message, "[redacted]") {
		t.Fatalf("expected redaction marker: %q", ae.Message)
	}
}

func TestAnalyzeShortCredentialKeepsFixedMessage(t *testing.T) {
	server := serveStatus(t, http.StatusUnauthorized, `{"detail":"bad key e"}`)

	ae := analyzeErr(t, quietClient(Options{}), "github.com/acme/widgets", server.URL, "e")
	if ae.Kind != KindAuth || ae.Message != msgAuth {
		t.Fatalf("got %s %q, want %q", ae.Kind, ae.Message, msgAuth)
	}
}

func TestAnalyzeRedactsEchoedValidationMessages(t *testing.T) {
	server := serveStatus(t, http.StatusUnprocessableEntity, `{"detail":[{"msg":"key e-42 rejected"}]}`)

	ae := analyzeErr(t, quietClient(Options{}), "github.com/acme/widgets", server.URL, "e-42")
	if want := msgInvalidInput + "key [redacted] rejected"; ae.Message != want {
		t.Fatalf("got %q, want %q", ae.Message, want)
	}
}

func TestAnalyzeUnreachableEndpointIsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL + "/analyze"
	server.Close()

	ae := analyzeErr(t, quietClient(Options{}), "github.com/acme/widgets", endpoint, "sk-secret")
	if ae.Kind != KindConnection {
		t.Fatalf("kind = %s", ae.Kind)
	}
	if !strings.Contains(ae.Message, endpoint) {
		t.Fatalf("message should name endpoint %q: %q", endpoint, ae.Message)
	}
	if strings.Contains(ae.Message, "sk-secret") {
		t.Fatalf("credential leaked: %q", ae.Message)
	}
}

func TestAnalyzeInvalidEndpointIsConnectionError(t *testing.T) {
	for _, endpoint := range []string{"", "localhost:8000/analyze", "ftp://example.com/analyze", "http://"} {
		ae := analyzeErr(t, quietClient(Options{}), "x", endpoint, "")
		if ae.Kind != KindConnection {
			t.Errorf("endpoint %q: kind = %s", endpoint, ae.Kind)
		}
	}
}

func blockingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnalyzeTimeout(t *testing.T) {
	server := blockingServer(t)
	c := quietClient(Options{Timeout: 50 * time.Millisecond})

	ae := analyzeErr(t, c, "x", server.URL, "")
	if ae.Kind != KindTimeout {
		t.Fatalf("kind = %s, want %s", ae.Kind, KindTimeout)
	}
	if !strings.Contains(ae.Message, server.URL) {
		t.Fatalf("message should name endpoint: %q", ae.Message)
	}
}

func TestAnalyzeCallerDeadlineIsTimeout(t *testing.T) {
	server := blockingServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := quietClient(Options{}).Analyze(ctx, "x", server.URL, "", false)
	if !IsKind(err, KindTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestAnalyzeCancellation(t *testing.T) {
	server := blockingServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := quietClient(Options{}).Analyze(ctx, "x", server.URL, "", false)
	if !IsKind(err, KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestAnalyzeAlreadyCancelledMakesNoCall(t *testing.T) {
	live := &countingTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietClient(Options{Live: live}).Analyze(ctx, "x", "http://127.0.0.1:1/analyze", "", false)
	if !IsKind(err, KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if live.calls.Load() != 0 {
		t.Fatalf("transport should not be called")
	}
}

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	c.calls.Add(1)
	return nil, errors.New("network disabled")
}

func TestAnalyzeMockIsDeterministicAndOffline(t *testing.T) {
	live := &countingTransport{}
	c := quietClient(Options{Live: live, DemoDelay: -1})

	first, err := c.Analyze(context.Background(), "github.com/acme/widgets", "http://127.0.0.1:1/analyze", "key", true)
	if err != nil {
		t.Fatalf("first mock call: %v", err)
	}
	second, err := c.Analyze(context.Background(), "github.com/acme/widgets", "http://127.0.0.1:1/analyze", "key", true)
	if err != nil {
		t.Fatalf("second mock call: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("mock reports differ")
	}
	if first == second {
		t.Fatalf("mock calls should not share a report")
	}
	if live.calls.Load() != 0 {
		t.Fatalf("live transport called %d times in mock mode", live.calls.Load())
	}
	if first.RepositoryName != "rahul-dev-ai/todo-app" || first.Score != 78 || len(first.Roadmap) != 4 {
		t.Fatalf("unexpected demo report: %+v", first)
	}
}

func TestAnalyzeMockHonoursDelayAndCancellation(t *testing.T) {
	c := quietClient(Options{DemoDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Analyze(ctx, "x", "", "", true)
	if !IsKind(err, KindTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("demo transport ignored the context")
	}

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	if _, err := c.Analyze(ctx, "x", "", "", true); !IsKind(err, KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestAnalyzeConcurrentCalls(t *testing.T) {
	server := serveStatus(t, 200, minimalReport)
	c := quietClient(Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Analyze(context.Background(), "acme/widgets", server.URL, "", false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Analyze: %v", err)
	}
}
