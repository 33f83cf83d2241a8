package eventapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/remedy/internal/audit"
	"github.com/linnemanlabs/remedy/internal/authmw"
	"github.com/linnemanlabs/remedy/internal/dedup/filestore"
	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/ingest"
	"github.com/linnemanlabs/remedy/internal/queue"
	"github.com/linnemanlabs/remedy/internal/slacksig"
)

const testSecret = "0f1e2d3c4b5a"

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sign(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%d:%s", ts, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(t *testing.T, target string, body string) *http.Request {
	t.Helper()
	ts := testNow.Unix()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(slacksig.TimestampHeader, fmt.Sprintf("%d", ts))
	req.Header.Set(slacksig.SignatureHeader, sign(testSecret, ts, []byte(body)))
	return req
}

type memAudit struct {
	mu      sync.Mutex
	records map[string][]json.RawMessage
	listErr error
}

func newMemAudit() *memAudit {
	return &memAudit{records: make(map[string][]json.RawMessage)}
}

func (s *memAudit) Append(_ context.Context, logName string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[logName] = append([]json.RawMessage{raw}, s.records[logName]...)
	return nil
}

func (s *memAudit) List(_ context.Context, logName string) ([]json.RawMessage, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.records[logName]...), nil
}

type stubAgent struct {
	response string
	err      error
	got      string
}

func (a *stubAgent) Query(_ context.Context, query string) (string, error) {
	a.got = query
	return a.response, a.err
}

type harness struct {
	router chi.Router
	queue  *queue.Queue
	audit  *memAudit
	agent  *stubAgent
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := filestore.New(t.TempDir()+"/dedup.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	q := queue.New()
	auditStore := newMemAudit()
	svc := ingest.NewService(store, q, auditStore, nil)
	agent := &stubAgent{response: "all clear"}

	api := New(nil, slacksig.NewAt(testSecret, func() time.Time { return testNow }), svc, agent, auditStore)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	return &harness{router: r, queue: q, audit: auditStore, agent: agent}
}

func messageBody(text string) string {
	env := map[string]any{
		"type":     "event_callback",
		"event_id": "Ev001",
		"event": map[string]any{
			"type":    "message",
			"user":    "U42",
			"text":    text,
			"channel": "C01",
			"ts":      "1717243200.000100",
		},
	}
	b, _ := json.Marshal(env)
	return string(b)
}

func TestEvents_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	body := messageBody("DAG *p* failed! Run Date: *2024-01-01*")
	req := signedRequest(t, "/events", body)
	req.Header.Set(slacksig.SignatureHeader, "v0=deadbeef")

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if h.queue.Len() != 0 {
		t.Error("unauthenticated event entered the queue")
	}
}

func TestEvents_RejectsStaleTimestamp(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	body := messageBody("DAG *p* failed! Run Date: *2024-01-01*")

	for _, tc := range []struct {
		name string
		age  time.Duration
		want int
	}{
		{"299s old accepted", 299 * time.Second, http.StatusOK},
		{"301s old rejected", 301 * time.Second, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ts := testNow.Add(-tc.age).Unix()
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
			req.Header.Set(slacksig.TimestampHeader, fmt.Sprintf("%d", ts))
			req.Header.Set(slacksig.SignatureHeader, sign(testSecret, ts, []byte(body)))

			rec := httptest.NewRecorder()
			h.router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestEvents_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := signedRequest(t, "/events", "{not json")

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEvents_URLVerificationEchoesChallenge(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	body := `{"type":"url_verification","challenge":"c4All3ng3"}`
	req := signedRequest(t, "/events", body)

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "c4All3ng3" {
		t.Fatalf("challenge echo = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q, want text/plain", ct)
	}
}

func TestEvents_FailureMessageQueuesIncident(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := signedRequest(t, "/events", messageBody("DAG *my_pipeline* failed! Run Date: *2024-01-01*"))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q", resp["status"])
	}
	if resp["message"] != "Fetched logs for my_pipeline" {
		t.Errorf("message field = %q, want %q", resp["message"], "Fetched logs for my_pipeline")
	}

	task, ok := h.queue.Dequeue()
	if !ok {
		t.Fatal("no task queued")
	}
	if task.Incident.DAGName != "my_pipeline" || task.Incident.Status != incident.StatusFailed {
		t.Errorf("queued incident = %+v", task.Incident)
	}
}

func TestEvents_DuplicateSubmission(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	body := messageBody("DAG *my_pipeline* failed! Run Date: *2024-01-01*")

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, signedRequest(t, "/events", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, signedRequest(t, "/events", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("second status = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["message"] != "Duplicate event. No action taken." {
		t.Fatalf("duplicate message = %q", resp["message"])
	}
	if h.queue.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", h.queue.Len())
	}
}

func TestEvents_NonFailureIsAuditedOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := signedRequest(t, "/events", messageBody("DAG *my_pipeline* run succeeded. Run Date: *2024-01-01*"))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h.queue.Len() != 0 {
		t.Error("non-failure entered the queue")
	}

	records, _ := h.audit.List(context.Background(), audit.EventLog)
	if len(records) != 1 {
		t.Fatalf("got %d event records, want 1", len(records))
	}
}

func TestEvents_BotMessagesIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	env := map[string]any{
		"type":     "event_callback",
		"event_id": "Ev002",
		"event": map[string]any{
			"type":   "message",
			"bot_id": "B99",
			"text":   "DAG *p* failed! Run Date: *2024-01-01*",
		},
	}
	b, _ := json.Marshal(env)
	req := signedRequest(t, "/events", string(b))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h.queue.Len() != 0 {
		t.Error("bot message entered the queue")
	}
}

func TestQuery_ReturnsAgentResponse(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"list the dags"}`))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["response"] != "all clear" {
		t.Errorf("response = %q", resp["response"])
	}
	if h.agent.got != "list the dags" {
		t.Errorf("agent received %q", h.agent.got)
	}
}

func TestQuery_AgentFailureIs500WithDetail(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.agent.err = errors.New("model unavailable")
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"x"}`))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "model unavailable") {
		t.Errorf("error detail missing: %s", rec.Body.String())
	}
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"  "}`))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListLogs_ReturnsNewestFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, text := range []string{
		"DAG *a* failed! Run Date: *2024-01-01*",
		"DAG *b* failed! Run Date: *2024-01-02*",
	} {
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, signedRequest(t, "/events", messageBody(text)))
		if rec.Code != http.StatusOK {
			t.Fatal("setup event rejected")
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var records []audit.EventRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].TextDetails.DAGName != "b" {
		t.Errorf("newest first violated: %q", records[0].TextDetails.DAGName)
	}
}

func TestListLogs_EmptyLogIsEmptyArray(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}

func TestSetAuth_GuardsQueryAndReadbackOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	store, err := filestore.New(t.TempDir()+"/dedup.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := ingest.NewService(store, queue.New(), newMemAudit(), nil)
	api := New(nil, slacksig.NewAt(testSecret, func() time.Time { return testNow }), svc, h.agent, h.audit)
	api.SetAuth(authmw.BearerToken("s3cret"))
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	// Guarded route without token.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated readback status = %d, want 401", rec.Code)
	}

	// Guarded route with token.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated readback status = %d, want 200", rec.Code)
	}

	// Webhook stays signature-authenticated, no bearer token needed.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, signedRequest(t, "/events", messageBody("hello")))
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, want 200", rec.Code)
	}
}
