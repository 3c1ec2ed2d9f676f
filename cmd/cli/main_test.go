package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	actor  string
	body   string
}

// fakeAPI answers requests with the queued responses, repeating the last one.
type fakeAPI struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses []fakeResponse
}

type fakeResponse struct {
	status     int
	body       string
	retryAfter bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body bytes.Buffer
	_, _ = body.ReadFrom(r.Body)
	f.requests = append(f.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		actor:  r.Header.Get(actorHeader),
		body:   body.String(),
	})

	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}

	if resp.retryAfter {
		w.Header().Set("Retry-After", "1")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func execute(t *testing.T, api *fakeAPI, args ...string) (string, string, error) {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	orig := newRetryBackOff
	newRetryBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(func() { newRetryBackOff = orig })

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}

	buf.Reset()
	if err := printJSON(&buf, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}
	if buf.String() != expected {
		t.Fatalf("unexpected indented output:\n%s", buf.String())
	}
}

func TestCalculateRetriesWhileBusy(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{status: http.StatusConflict, body: `{"error":"busy"}`, retryAfter: true},
		{status: http.StatusConflict, body: `{"error":"busy"}`, retryAfter: true},
		{status: http.StatusCreated, body: `{"status":"created","game_id":"g1","settlements":[]}`},
	}}

	out, errOut, err := execute(t, api, "--actor", "host", "game", "calculate", "g1", "--force")
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}

	if len(api.requests) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(api.requests))
	}
	last := api.requests[2]
	if last.method != http.MethodPost || last.path != "/api/v1/games/g1/settlement" || last.query != "force=true" {
		t.Fatalf("unexpected request: %+v", last)
	}
	if last.actor != "host" {
		t.Fatalf("expected actor header, got %q", last.actor)
	}
	if !strings.Contains(out, `"status": "created"`) {
		t.Fatalf("expected calculation output, got %q", out)
	}
	if strings.Count(errOut, "settlement busy") != 2 {
		t.Fatalf("expected two busy notices, got %q", errOut)
	}
}

func TestCalculateStopsOnPlainConflict(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{status: http.StatusConflict, body: `{"error":"game is not active"}`},
	}}

	_, _, err := execute(t, api, "game", "calculate", "g1")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected 409 api error, got %v", err)
	}
	if len(api.requests) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(api.requests))
	}
}

func TestCalculateGivesUpAfterRetries(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{status: http.StatusConflict, body: `{"error":"busy"}`, retryAfter: true},
	}}

	_, _, err := execute(t, api, "--retries", "2", "game", "calculate", "g1")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(api.requests) != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", len(api.requests))
	}
}

func TestCalculateImbalanced(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{status: http.StatusUnprocessableEntity, body: `{"status":"imbalanced","validation":{"is_valid":false}}`},
	}}

	out, _, err := execute(t, api, "game", "calculate", "g1")
	if !errors.Is(err, errUnsettled) {
		t.Fatalf("expected unsettled error, got %v", err)
	}
	if !strings.Contains(out, "imbalanced") {
		t.Fatalf("expected validation in output, got %q", out)
	}
}

func TestValidate(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{status: http.StatusOK, body: `{"is_valid":true,"message":"balanced"}`},
	}}

	if _, _, err := execute(t, api, "game", "validate", "g1"); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if api.requests[0].path != "/api/v1/games/g1/settlement/validation" {
		t.Fatalf("unexpected path %s", api.requests[0].path)
	}

	api = &fakeAPI{responses: []fakeResponse{
		{status: http.StatusOK, body: `{"is_valid":false,"message":"off by 5.00"}`},
	}}
	_, _, err := execute(t, api, "game", "validate", "g1")
	if !errors.Is(err, errUnsettled) || !strings.Contains(err.Error(), "off by 5.00") {
		t.Fatalf("expected unsettled error, got %v", err)
	}
}

func TestReconcileReportsDiscrepancies(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{status: http.StatusOK, body: `{"participants":2,"reconciled":1,"discrepancies":[{"user_id":"bob"}]}`},
	}}

	_, _, err := execute(t, api, "game", "reconcile", "g1")
	if !errors.Is(err, errUnsettled) {
		t.Fatalf("expected unsettled error, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRecordAndSettlementCommands(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{{status: http.StatusOK, body: `{}`}}}

	if _, _, err := execute(t, api, "game", "record", "g1", "--user", "alice", "--amount", "25.50"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, _, err := execute(t, api, "settlement", "complete", "s1"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, _, err := execute(t, api, "audit", "user", "alice", "--limit", "5"); err != nil {
		t.Fatalf("audit user failed: %v", err)
	}

	record := api.requests[0]
	if record.path != "/api/v1/games/g1/transactions" || !strings.Contains(record.body, `"amount":"25.50"`) ||
		!strings.Contains(record.body, `"type":"buyin"`) {
		t.Fatalf("unexpected record request: %+v", record)
	}
	if got := api.requests[1]; got.method != http.MethodPost || got.path != "/api/v1/settlements/s1/complete" {
		t.Fatalf("unexpected complete request: %+v", got)
	}
	if got := api.requests[2]; got.path != "/api/v1/users/alice/audit" || got.query != "limit=5" {
		t.Fatalf("unexpected audit request: %+v", got)
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "up"})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected missing url error, got %v", err)
	}
}
