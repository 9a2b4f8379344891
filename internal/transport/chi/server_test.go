package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/domain/stats"
	healthuc "github.com/kailas-cloud/mindseye/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Helpers ---

const sampleBody = `{"events":[
	{"id":"e1","source":"gmail","kind":"email","createdAt":"2024-01-01T09:00:00Z","payload":{"subject":"Hello world"}},
	{"id":"e2","source":"slack","kind":"message","createdAt":"2024-01-01T23:30:00Z","payload":{"text":"goodbye"}},
	{"id":"e3","source":"gmail","kind":"email","createdAt":"2024-01-02T08:00:00Z","payload":{"subject":"hello there","amount":12345678901234567890}}
]}`

type testEnv struct {
	store  *searchuc.Store[any]
	router http.Handler
}

func newTestEnv(t *testing.T, source healthuc.SourcePinger) *testEnv {
	t.Helper()
	store := searchuc.NewStore[any](nil)
	srv := NewServer(store, healthuc.New(store, source), Options{UseTrigram: true}, nil)
	r := chi.NewRouter()
	srv.Register(r)
	return &testEnv{store: store, router: r}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) load(t *testing.T) {
	t.Helper()
	if rr := e.do(t, "POST", "/events/load", sampleBody); rr.Code != http.StatusOK {
		t.Fatalf("load: %d %s", rr.Code, rr.Body.String())
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

type wireSearch struct {
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}

func resultIDs(t *testing.T, resp wireSearch) []string {
	t.Helper()
	ids := make([]string, len(resp.Results))
	for i, raw := range resp.Results {
		var e struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			t.Fatal(err)
		}
		ids[i] = e.ID
	}
	return ids
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	env.load(t)

	rr := env.do(t, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[healthResponse](t, rr)
	if resp.Status != "ok" || resp.Service != ServiceName || resp.Events != 3 || resp.Generation == "" {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestHealthCheck_SourceDown(t *testing.T) {
	env := newTestEnv(t, &mockPinger{err: errors.New("down")})

	rr := env.do(t, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
	if resp := decode[healthResponse](t, rr); resp.Checks["source"] != "error" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "GET", "/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("before load: got %d, want 503", rr.Code)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != codeNotLoaded {
		t.Errorf("code = %s", resp.Code)
	}

	env.load(t)
	if rr := env.do(t, "GET", "/ready", ""); rr.Code != http.StatusOK {
		t.Errorf("after load: got %d", rr.Code)
	}
}

// --- Load ---

func TestLoadEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "POST", "/events/load", sampleBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[loadResponse](t, rr)
	if resp.Loaded != 3 || resp.Generation != env.store.Info().Generation {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestLoadEvents_EmptyArrayClearsCollection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.load(t)

	rr := env.do(t, "POST", "/events/load", `{"events":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if n := len(env.store.Events()); n != 0 {
		t.Errorf("expected empty collection, got %d", n)
	}
}

func TestLoadEvents_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
		msg  string
	}{
		{"not json", `nope`, codeBadRequest, "events array is required"},
		{"missing events", `{"items":[]}`, codeBadRequest, "events array is required"},
		{"events not array", `{"events":{"id":"1"}}`, codeBadRequest, "events array is required"},
		{"events null", `{"events":null}`, codeBadRequest, "events array is required"},
		{"body is array", `[{"id":"1"}]`, codeBadRequest, "events array is required"},
		{"empty id", `{"events":[{"id":""}]}`, codeValidationFailed, "empty id"},
		{"duplicate id", `{"events":[{"id":"a"},{"id":"a"}]}`, codeValidationFailed, "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rr := env.do(t, "POST", "/events/load", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			resp := decode[errorResponse](t, rr)
			if resp.Code != tt.code || !strings.Contains(resp.Message, tt.msg) {
				t.Errorf("response = %+v, want code %s containing %q", resp, tt.code, tt.msg)
			}
			if env.store.Info().Generation != "" {
				t.Error("rejected batch must not be loaded")
			}
		})
	}
}

func TestLoadEvents_BodyTooLarge(t *testing.T) {
	store := searchuc.NewStore[any](nil)
	srv := NewServer(store, healthuc.New(store, nil), Options{MaxBodyBytes: 16}, nil)
	r := chi.NewRouter()
	srv.Register(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/events/load", strings.NewReader(sampleBody)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("got %d, want 413", rr.Code)
	}
}

// --- Search ---

func TestSearchEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	env.load(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no params", "", []string{"e1", "e2", "e3"}},
		{"text", "?text=hello", []string{"e1", "e3"}},
		{"text uppercase", "?text=HELLO", []string{"e1", "e3"}},
		{"text without trigram", "?text=hello&trigram=false", []string{"e1", "e3"}},
		{"short text", "?text=he", []string{"e1", "e3"}},
		{"empty text is absent", "?text=", []string{"e1", "e2", "e3"}},
		{"sources", "?source=slack,%20gmail", []string{"e1", "e2", "e3"}},
		{"source", "?source=slack", []string{"e2"}},
		{"kind", "?kind=email", []string{"e1", "e3"}},
		{"time range", "?from=2024-01-01T12:00:00Z&to=2024-01-02", []string{"e2"}},
		{"combined", "?text=hello&source=gmail&from=2024-01-02", []string{"e3"}},
		{"number literal", "?text=12345678901234567890", []string{"e3"}},
		{"no match", "?text=zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", "/events/search"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
			}
			resp := decode[wireSearch](t, rr)
			ids := resultIDs(t, resp)
			if resp.Count != len(tt.want) || strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got count=%d ids=%v, want %v", resp.Count, ids, tt.want)
			}
		})
	}
}

func TestSearchEvents_ResultsUseWireFormat(t *testing.T) {
	env := newTestEnv(t, nil)
	env.load(t)

	rr := env.do(t, "GET", "/events/search?text=goodbye", "")
	resp := decode[wireSearch](t, rr)
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	var e event.Event[map[string]any]
	if err := json.Unmarshal(resp.Results[0], &e); err != nil {
		t.Fatal(err)
	}
	if e.ID() != "e2" || e.Source() != event.SourceSlack || e.Kind() != "message" ||
		e.CreatedAt() != "2024-01-01T23:30:00Z" || e.Payload()["text"] != "goodbye" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestSearchEvents_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.load(t)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"bad from", "?from=yesterday", codeInvalidTimestamp},
		{"bad to", "?to=2024-13-45", codeInvalidTimestamp},
		{"bad trigram", "?trigram=maybe", codeValidationFailed},
		{"query too long", "?text=" + strings.Repeat("a", 5000), codeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", "/events/search"+tt.query, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			if resp := decode[errorResponse](t, rr); resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestSearchEvents_EmptyStore(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "GET", "/events/search?text=hello", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"results":[]`) {
		t.Errorf("results should be an empty array: %s", rr.Body.String())
	}
}

// --- Stats ---

func TestEventStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.load(t)

	tests := []struct {
		name  string
		query string
		want  []stats.DailyCount
	}{
		{"all events", "", []stats.DailyCount{{Day: "2024-01-01", Count: 2}, {Day: "2024-01-02", Count: 1}}},
		{"filtered", "?source=gmail", []stats.DailyCount{{Day: "2024-01-01", Count: 1}, {Day: "2024-01-02", Count: 1}}},
		{"text", "?text=goodbye", []stats.DailyCount{{Day: "2024-01-01", Count: 1}}},
		{"no match", "?text=zzz", []stats.DailyCount{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", "/events/stats"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
			}
			resp := decode[statsResponse](t, rr)
			if len(resp.Daily) != len(tt.want) {
				t.Fatalf("daily = %v, want %v", resp.Daily, tt.want)
			}
			for i := range tt.want {
				if resp.Daily[i] != tt.want[i] {
					t.Errorf("daily[%d] = %v, want %v", i, resp.Daily[i], tt.want[i])
				}
			}
		})
	}
}

func TestEventStats_InvalidStoredTimestamp(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, "POST", "/events/load", `{"events":[{"id":"x","createdAt":"someday"}]}`)

	rr := env.do(t, "GET", "/events/stats", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != codeInvalidTimestamp {
		t.Errorf("code = %s", resp.Code)
	}
}

// --- Error mapping ---

func TestHandleDomainError_Internal(t *testing.T) {
	store := searchuc.NewStore[any](nil)
	srv := NewServer(store, healthuc.New(store, nil), Options{}, nil)

	rr := httptest.NewRecorder()
	srv.handleDomainError(rr, httptest.NewRequest("GET", "/", http.NoBody), errors.New("redis exploded: password=hunter2"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[errorResponse](t, rr)
	if resp.Code != codeInternalError || resp.Message != "internal error" {
		t.Errorf("internal details leaked: %+v", resp)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{"a, b ,,c", "a|b|c"},
		{" , ", ""},
	}
	for _, tt := range tests {
		if got := strings.Join(splitList(tt.in), "|"); got != tt.want {
			t.Errorf("splitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
