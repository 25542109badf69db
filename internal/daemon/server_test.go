package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/memorylane/internal/capture"
	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/message"
	"github.com/runnerr0/memorylane/internal/storage"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Coordinator) {
	t.Helper()
	coord := memory.New(storage.NewMemoryStore(), memory.WithClock(func() time.Time { return testNow }))
	require.NoError(t, coord.Initialize(context.Background()))
	opts.Now = func() time.Time { return testNow }
	return New(coord, opts), coord
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr, out
}

const saveBody = `{"action":"saveContent","data":{"id":"m1","type":"note","content":"Kubernetes tutorial notes for the cluster.","url":"","title":"k8s","tags":["k8s"]}}`

func TestMessage_SaveThenList(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rr, out := post(t, s.Handler(), "/api/message", saveBody)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "m1", out["id"])
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	_, out = post(t, s.Handler(), "/api/message", `{"action":"getSavedContent"}`)
	items, ok := out["data"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "m1", items[0].(map[string]any)["id"])
}

func TestMessage_ErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
		errMsg string
	}{
		{"not json", `{`, http.StatusBadRequest, "malformed_input", ""},
		{"unknown action", `{"action":"explode"}`, http.StatusBadRequest, "malformed_input", ""},
		{"delete missing", `{"action":"deleteMemory","id":"nope"}`, http.StatusNotFound, "not_found", "Memory not found"},
		{"update missing", `{"action":"updateMemory","id":"nope","updates":{"title":"x"}}`, http.StatusNotFound, "not_found", "Memory not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, out := post(t, s.Handler(), "/api/message", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tt.kind, out["errorKind"])
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, out["error"])
			}
		})
	}
}

func TestMessage_BodyLimit(t *testing.T) {
	s, _ := newTestServer(t, Options{MaxRequestSize: 32})

	rr, out := post(t, s.Handler(), "/api/message", saveBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, false, out["success"])
}

// blockingService stalls GetStats until release is closed.
type blockingService struct {
	*memory.Coordinator
	release chan struct{}
}

func (b blockingService) GetStats(ctx context.Context) (storage.StorageStats, error) {
	<-b.release
	return storage.StorageStats{}, nil
}

func TestMessage_Timeout(t *testing.T) {
	coord := memory.New(storage.NewMemoryStore())
	svc := blockingService{Coordinator: coord, release: make(chan struct{})}
	t.Cleanup(func() { close(svc.release) })
	s := New(svc, Options{RequestTimeout: 20 * time.Millisecond})

	rr, out := post(t, s.Handler(), "/api/message", `{"action":"getStats"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, "request timed out", out["error"])
	assert.Equal(t, "timeout", out["errorKind"])
}

// panickingService panics inside Search.
type panickingService struct{ *memory.Coordinator }

func (panickingService) Search(context.Context, memory.SearchQuery) ([]storage.ContentRecord, error) {
	panic("index corrupted")
}

func TestMessage_ServicePanicIsFailure(t *testing.T) {
	s := New(panickingService{memory.New(storage.NewMemoryStore())}, Options{})

	rr, out := post(t, s.Handler(), "/api/message", `{"action":"search","query":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "backend", out["errorKind"])
	assert.Contains(t, out["error"], "index corrupted")
}

const capturedHTML = `<html><head><title>Docker Guide</title></head><body><main>` +
	`<h1>Containers</h1><p>Docker packages software into containers so deployment is repeatable and simple for every team member.</p>` +
	`</main></body></html>`

func TestCapture_SavesPage(t *testing.T) {
	s, coord := newTestServer(t, Options{})

	body, _ := json.Marshal(capturePayload{URL: "https://docs.docker.com/guide", HTML: capturedHTML})
	rr, out := post(t, s.Handler(), "/api/capture", string(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)

	rec, err := coord.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, storage.TypePage, rec.Type)
	assert.Equal(t, "Docker Guide", rec.Title)
	assert.Contains(t, rec.Content, "Docker packages software")
	assert.Contains(t, rec.Tags, "docker")
}

func TestCapture_AutoPolicy(t *testing.T) {
	policy := capture.AutoCapturePolicy{
		Enabled:          true,
		MinContentLength: 10,
		ExcludedPrefixes: capture.DefaultExcludedPrefixes,
		DenylistDomains:  []string{"bank.com"},
	}
	s, coord := newTestServer(t, Options{Policy: policy})

	body, _ := json.Marshal(capturePayload{URL: "https://my.bank.com/acct", HTML: capturedHTML, Auto: true})
	rr, out := post(t, s.Handler(), "/api/capture", string(body))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "skipped", out["errorKind"])

	body, _ = json.Marshal(capturePayload{URL: "https://docs.docker.com", HTML: capturedHTML, Auto: true})
	_, out = post(t, s.Handler(), "/api/capture", string(body))
	assert.Equal(t, true, out["success"])

	items, err := coord.GetSavedContent(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, storage.TypeAutoPage, items[0].Type)
	assert.True(t, items[0].Auto)
}

func TestCapture_RequiresHTML(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rr, out := post(t, s.Handler(), "/api/capture", `{"url":"https://x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "malformed_input", out["errorKind"])
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, Options{Version: "1.2.3"})
	post(t, s.Handler(), "/api/message", `{"action":"getStats"}`)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"version":"1.2.3"`)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `memorylane_operations_total{action="getStats",outcome="success"}`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestRecoverMiddleware(t *testing.T) {
	h := recoverMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/api/health")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `"status":"ok"`)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(message.Response{Success: true}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(message.Response{ErrorKind: message.KindBackend}))
	assert.Equal(t, "success", outcome(true, ""))
	assert.Equal(t, "failure", outcome(false, ""))
}
