package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/nthmin/internal/config"
	"github.com/JonMunkholm/nthmin/internal/core"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []core.QueryRecord
}

func (r *memoryRecorder) Record(_ context.Context, rec core.QueryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

type fakeAuditLog struct {
	records   []core.QueryRecord
	err       error
	lastLimit int
}

func (f *fakeAuditLog) Recent(_ context.Context, limit int) ([]core.QueryRecord, error) {
	f.lastLimit = limit
	return f.records, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

// workbookPath creates an empty .xlsx file that passes validation. The
// sources used in these tests never read it.
func workbookPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "numbers.xlsx")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func numbers(values ...int64) core.NumberSource {
	return core.NumberSourceFunc(func(context.Context, string) ([]int64, error) {
		return values, nil
	})
}

func failing(err error) core.NumberSource {
	return core.NumberSourceFunc(func(context.Context, string) ([]int64, error) {
		return nil, err
	})
}

func newTestServer(t *testing.T, cfg *config.Config, svc *core.Service, opts ...ServerOption) *Server {
	t.Helper()
	srv := NewServer(svc, cfg, opts...)
	t.Cleanup(srv.Close)
	return srv
}

func findURL(link, n string) string {
	q := url.Values{}
	q.Set("fileLink", link)
	q.Set("N", n)
	return "/api/find-nth-min?" + q.Encode()
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestFindNthMin_PlainText(t *testing.T) {
	path := workbookPath(t)
	srv := newTestServer(t, testConfig(), core.NewService(numbers(3, 1, 4, 1, 5)))

	rec := do(srv, httptest.NewRequest(http.MethodGet, findURL(path, "2"), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Body.String(); got != "3" {
		t.Errorf("body = %q, want %q", got, "3")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestFindNthMin_JSON(t *testing.T) {
	path := workbookPath(t)
	srv := newTestServer(t, testConfig(), core.NewService(numbers(10, -4, 10, 7)))

	req := httptest.NewRequest(http.MethodGet, findURL(path, "3"), nil)
	req.Header.Set("Accept", "application/json")
	rec := do(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp FindResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := FindResponse{FileLink: path, N: 3, Value: 10}
	if resp != want {
		t.Errorf("response = %+v, want %+v", resp, want)
	}
}

func TestFindNthMin_TrimsParams(t *testing.T) {
	path := workbookPath(t)
	srv := newTestServer(t, testConfig(), core.NewService(numbers(2, 1)))

	rec := do(srv, httptest.NewRequest(http.MethodGet, findURL("  "+path+"\t", " 1 "), nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "1" {
		t.Errorf("got %d %q, want 200 \"1\"", rec.Code, rec.Body.String())
	}
}

func TestFindNthMin_Errors(t *testing.T) {
	path := workbookPath(t)
	dir := filepath.Dir(path)

	tests := []struct {
		name     string
		url      string
		source   core.NumberSource
		status   int
		body     string
		wantKind string
		wantCode string
	}{
		{
			name:     "missing link",
			url:      "/api/find-nth-min?N=1",
			status:   http.StatusNotFound,
			body:     "File link cannot be null",
			wantKind: "LinkMissing",
			wantCode: "REQ001",
		},
		{
			name:     "missing N",
			url:      "/api/find-nth-min?fileLink=" + url.QueryEscape(path),
			status:   http.StatusNotFound,
			body:     "N value cannot be null",
			wantKind: "NMissing",
			wantCode: "REQ002",
		},
		{
			name:     "blank params",
			url:      findURL("   ", "   "),
			status:   http.StatusNotFound,
			body:     "File link cannot be null",
			wantKind: "LinkMissing",
			wantCode: "REQ001",
		},
		{
			name:     "directory",
			url:      findURL(dir, "1"),
			status:   http.StatusBadRequest,
			body:     "Path is not a file",
			wantKind: "PathNotFile",
			wantCode: "FILE002",
		},
		{
			name:     "N not integer",
			url:      findURL(path, "two"),
			status:   http.StatusBadRequest,
			body:     "N value is not a valid integer",
			wantKind: "NNotInteger",
			wantCode: "REQ004",
		},
		{
			name:     "N exceeds count",
			url:      findURL(path, "4"),
			source:   numbers(1, 2, 3, 3),
			status:   http.StatusBadRequest,
			body:     "N exceeds the number of values in first column",
			wantKind: "NExceedsCount",
			wantCode: "DATA002",
		},
		{
			name:     "no numbers",
			url:      findURL(path, "1"),
			source:   failing(core.NewError(core.NoNumbers)),
			status:   http.StatusBadRequest,
			body:     "No numbers found in first column",
			wantKind: "NoNumbers",
			wantCode: "DATA001",
		},
		{
			name:     "timeout",
			url:      findURL(path, "1"),
			source:   failing(fmt.Errorf("read rows: %w", context.DeadlineExceeded)),
			status:   http.StatusGatewayTimeout,
			body:     "Request timed out",
			wantCode: "SVC003",
		},
		{
			name:     "unexpected failure",
			url:      findURL(path, "1"),
			source:   failing(errors.New("disk on fire")),
			status:   http.StatusInternalServerError,
			body:     "An unexpected error occurred",
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := tt.source
			if source == nil {
				source = numbers(1)
			}
			srv := newTestServer(t, testConfig(), core.NewService(source))

			rec := do(srv, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			req.Header.Set("Accept", "application/json")
			rec = do(srv, req)

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode JSON error: %v", err)
			}
			if resp.Message != tt.body || resp.Code != tt.wantCode || resp.Kind != tt.wantKind {
				t.Errorf("JSON error = %+v, want message %q code %s kind %q", resp, tt.body, tt.wantCode, tt.wantKind)
			}
		})
	}
}

func TestFindNthMin_TooManyQueries(t *testing.T) {
	path := workbookPath(t)
	limiter := core.NewQueryLimiter(1, 10*time.Millisecond)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire() = false on an idle limiter")
	}
	defer limiter.Release()

	srv := newTestServer(t, testConfig(), core.NewService(numbers(1), core.WithLimiter(limiter)))
	rec := do(srv, httptest.NewRequest(http.MethodGet, findURL(path, "1"), nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestFindNthMin_RecordsClient(t *testing.T) {
	path := workbookPath(t)
	recorder := &memoryRecorder{}
	srv := newTestServer(t, testConfig(), core.NewService(numbers(5), core.WithRecorder(recorder)))

	req := httptest.NewRequest(http.MethodGet, findURL(path, "1"), nil)
	req.Header.Set("User-Agent", "web-test")
	do(srv, req)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recorder.records))
	}
	got := recorder.records[0]
	if got.IPAddress != "192.0.2.1" || got.UserAgent != "web-test" {
		t.Errorf("client = %q/%q, want 192.0.2.1/web-test", got.IPAddress, got.UserAgent)
	}
}

func TestLookupPartial(t *testing.T) {
	path := workbookPath(t)
	srv := newTestServer(t, testConfig(), core.NewService(numbers(8, 2, 6)))

	req := httptest.NewRequest(http.MethodGet, "/lookup?"+strings.TrimPrefix(findURL(path, "2"), "/api/find-nth-min?"), nil)
	req.Header.Set("HX-Request", "true")
	rec := do(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "<strong>6</strong>") {
		t.Errorf("body = %q, want result 6", rec.Body.String())
	}
}

func TestLookupPartial_ErrorAlert(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.NewService(numbers(1)))

	req := httptest.NewRequest(http.MethodGet, "/lookup?fileLink=a%3Cb.xlsx&N=1", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(srv, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{`role="alert"`, "Invalid characters in file path", "REQ003"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %s", want, body)
		}
	}
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.NewService(numbers(1)))
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `hx-get="/lookup"`) {
		t.Error("index page should post the form to /lookup")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy header")
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestHealth(t *testing.T) {
	svc := core.NewService(numbers(1), core.WithLimiter(core.NewQueryLimiter(3, time.Second)))
	srv := newTestServer(t, testConfig(), svc)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" || resp.Queries.MaxConcurrent != 3 || resp.Queries.Available != 3 {
		t.Errorf("health = %+v", resp)
	}
}

func TestOpenAPI(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.NewService(numbers(1)))

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	var doc struct {
		Info  openAPIInfo               `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode openapi.json: %v", err)
	}
	if doc.Info.Title != "N Minimal API" || doc.Info.Version != "1.0" {
		t.Errorf("info = %+v", doc.Info)
	}
	if _, ok := doc.Paths["/api/find-nth-min"]["get"]; !ok {
		t.Error("openapi.json missing GET /api/find-nth-min")
	}

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Content-Type = %q, want application/yaml", ct)
	}
	var yamlDoc struct {
		OpenAPI string      `yaml:"openapi"`
		Info    openAPIInfo `yaml:"info"`
	}
	if err := yaml.Unmarshal(rec.Body.Bytes(), &yamlDoc); err != nil {
		t.Fatalf("decode openapi.yaml: %v", err)
	}
	if yamlDoc.OpenAPI != "3.0.3" || yamlDoc.Info.Title != "N Minimal API" {
		t.Errorf("yaml doc = %+v", yamlDoc)
	}
}

func TestAuditLog(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, testConfig(), core.NewService(numbers(1)))
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("lists records", func(t *testing.T) {
		value := int64(4)
		log := &fakeAuditLog{records: []core.QueryRecord{
			{ID: "a", Link: "x.xlsx", N: "1", Value: &value},
			{ID: "b", Link: "y.xlsx", N: "9", ErrorKind: "NExceedsCount", ErrorCode: "DATA002"},
		}}
		srv := newTestServer(t, testConfig(), core.NewService(numbers(1)), WithAuditLog(log))

		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/audit?limit=25", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var resp AuditResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode audit: %v", err)
		}
		if resp.Count != 2 || resp.Records[1].ErrorCode != "DATA002" {
			t.Errorf("audit = %+v", resp)
		}
		if log.lastLimit != 25 {
			t.Errorf("limit = %d, want 25", log.lastLimit)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		log := &fakeAuditLog{err: errors.New("connection refused")}
		srv := newTestServer(t, testConfig(), core.NewService(numbers(1)), WithAuditLog(log))

		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	srv := newTestServer(t, cfg, core.NewService(numbers(1)))

	for i := 0; i < 2; i++ {
		if rec := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	if rec := do(srv, other); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	defer rl.stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("a") {
		t.Fatal("second request in the window should be denied")
	}
	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("request after the window should be allowed")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	path := workbookPath(t)
	srv := newTestServer(t, cfg, core.NewService(numbers(9)))

	if rec := do(srv, httptest.NewRequest(http.MethodGet, findURL(path, "1"), nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, findURL(path, "1"), nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := do(srv, req); rec.Code != http.StatusOK || rec.Body.String() != "9" {
		t.Errorf("with key got %d %q, want 200 \"9\"", rec.Code, rec.Body.String())
	}

	if rec := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.NewError(core.LinkMissing), http.StatusNotFound},
		{core.NewError(core.NMissing), http.StatusNotFound},
		{core.NewError(core.FileNotFound), http.StatusBadRequest},
		{core.WrapError(core.InvalidWorkbook, errors.New("zip: not a valid zip file")), http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", core.NewError(core.NExceedsCount)), http.StatusBadRequest},
		{core.ErrTooManyQueries, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
