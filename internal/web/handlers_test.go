package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hpungsan/taskflow/internal/auth"
	"github.com/hpungsan/taskflow/internal/chat"
	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/fallback"
	"github.com/hpungsan/taskflow/internal/history"
	"github.com/hpungsan/taskflow/internal/tools"
)

type testServer struct {
	handler http.Handler
	auth    *auth.Service
}

// setupTest wires the API over a temp database. Chat runs without a model
// gateway, so every message takes the fallback path.
func setupTest(t *testing.T) *testServer {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	tokens, err := auth.NewTokenManager("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	authSvc := auth.NewService(database, tokens)

	exec, err := tools.NewExecutor(database, cfg)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	reg := prometheus.NewRegistry()
	orch := chat.New(chat.Options{
		History:  history.New(database),
		Executor: exec,
		Fallback: fallback.New(exec),
		Metrics:  chat.NewMetrics(reg),
		Logger:   zerolog.Nop(),
	})

	return &testServer{
		handler: NewHandler(Options{
			DB:       database,
			Config:   cfg,
			Auth:     authSvc,
			Chat:     orch,
			Registry: reg,
			Logger:   zerolog.Nop(),
			Version:  "test",
		}),
		auth: authSvc,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and user ID.
func (s *testServer) register(t *testing.T, email string) (string, string) {
	t.Helper()
	w := s.do(t, "POST", "/auth/register", "", map[string]any{"email": email, "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	var tok auth.Token
	decode(t, w, &tok)
	userID, err := s.auth.Tokens().Parse(tok.AccessToken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tok.AccessToken, userID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	decode(t, w, &payload)
	if payload.Error.Code != code {
		t.Errorf("code = %q, want %q", payload.Error.Code, code)
	}
	if payload.Error.Status != status {
		t.Errorf("error.status = %d, want %d", payload.Error.Status, status)
	}
	if payload.Error.Message == "" {
		t.Error("error.message is empty")
	}
}

// --- auth ---

func TestAuth_RegisterLoginMe(t *testing.T) {
	s := setupTest(t)
	token, userID := s.register(t, "ada@example.com")

	w := s.do(t, "POST", "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	var tok auth.Token
	decode(t, w, &tok)
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("login token = %+v", tok)
	}

	w = s.do(t, "GET", "/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	var me UserResponse
	decode(t, w, &me)
	if me.ID != userID || me.Email != "ada@example.com" {
		t.Fatalf("me = %+v", me)
	}
}

func TestAuth_Errors(t *testing.T) {
	s := setupTest(t)
	s.register(t, "ada@example.com")

	w := s.do(t, "POST", "/auth/register", "", map[string]any{"email": "ada@example.com", "password": "password123"})
	assertError(t, w, http.StatusConflict, "EMAIL_TAKEN")

	w = s.do(t, "POST", "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "nope-nope"})
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = s.do(t, "GET", "/auth/me", "", nil)
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("missing WWW-Authenticate header")
	}

	w = s.do(t, "GET", "/auth/me", "garbage", nil)
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuth_BadBody(t *testing.T) {
	s := setupTest(t)

	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assertError(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	req = httptest.NewRequest("POST", "/auth/register", http.NoBody)
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assertError(t, w, http.StatusBadRequest, "INVALID_REQUEST")
}

// --- tasks ---

func TestTasks_CRUD(t *testing.T) {
	s := setupTest(t)
	token, userID := s.register(t, "ada@example.com")
	base := "/api/" + userID + "/tasks"

	w := s.do(t, "POST", base, token, map[string]any{"title": "  buy milk  ", "description": "2 liters"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created TaskResponse
	decode(t, w, &created)
	if created.Title != "buy milk" || created.Status != "pending" || created.UserID != userID {
		t.Fatalf("created = %+v", created)
	}

	s.do(t, "POST", base, token, map[string]any{"title": "call mom"})

	w = s.do(t, "PATCH", base+"/1", token, map[string]any{"status": "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated TaskResponse
	decode(t, w, &updated)
	if updated.Status != "completed" || updated.Title != "buy milk" {
		t.Fatalf("updated = %+v", updated)
	}

	w = s.do(t, "GET", base+"?status=pending", token, nil)
	var pending []TaskResponse
	decode(t, w, &pending)
	if len(pending) != 1 || pending[0].Title != "call mom" {
		t.Fatalf("pending = %+v", pending)
	}

	w = s.do(t, "DELETE", base+"/1", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = s.do(t, "DELETE", base+"/1", token, nil)
	assertError(t, w, http.StatusNotFound, "NOT_FOUND")

	w = s.do(t, "GET", base, token, nil)
	var all []TaskResponse
	decode(t, w, &all)
	if len(all) != 1 {
		t.Fatalf("tasks after delete = %d, want 1", len(all))
	}
}

func TestTasks_EmptyListIsArray(t *testing.T) {
	s := setupTest(t)
	token, userID := s.register(t, "ada@example.com")

	w := s.do(t, "GET", "/api/"+userID+"/tasks", token, nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("body = %q, want []", w.Body.String())
	}
}

func TestTasks_Validation(t *testing.T) {
	s := setupTest(t)
	token, userID := s.register(t, "ada@example.com")
	base := "/api/" + userID + "/tasks"

	assertError(t, s.do(t, "POST", base, token, map[string]any{"title": "   "}), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, s.do(t, "GET", base+"?status=done", token, nil), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, s.do(t, "PATCH", base+"/abc", token, map[string]any{"title": "x"}), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, s.do(t, "PATCH", base+"/42", token, map[string]any{"title": "x"}), http.StatusNotFound, "NOT_FOUND")
	assertError(t, s.do(t, "PATCH", base+"/0", token, map[string]any{"title": "x"}), http.StatusNotFound, "NOT_FOUND")
	assertError(t, s.do(t, "DELETE", base+"/0", token, nil), http.StatusNotFound, "NOT_FOUND")
}

func TestTasks_AuthRequired(t *testing.T) {
	s := setupTest(t)
	_, userID := s.register(t, "ada@example.com")

	w := s.do(t, "GET", "/api/"+userID+"/tasks", "", nil)
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestTasks_OtherUserForbidden(t *testing.T) {
	s := setupTest(t)
	aliceToken, aliceID := s.register(t, "alice@example.com")
	bobToken, _ := s.register(t, "bob@example.com")

	s.do(t, "POST", "/api/"+aliceID+"/tasks", aliceToken, map[string]any{"title": "secret"})

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/" + aliceID + "/tasks"},
		{"POST", "/api/" + aliceID + "/tasks"},
		{"PATCH", "/api/" + aliceID + "/tasks/1"},
		{"DELETE", "/api/" + aliceID + "/tasks/1"},
		{"POST", "/api/" + aliceID + "/chat"},
	} {
		w := s.do(t, tc.method, tc.path, bobToken, map[string]any{"title": "x", "message": "list tasks"})
		assertError(t, w, http.StatusForbidden, "FORBIDDEN")
	}

	// Alice's task survives
	w := s.do(t, "GET", "/api/"+aliceID+"/tasks", aliceToken, nil)
	var tasks []TaskResponse
	decode(t, w, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("alice tasks = %d, want 1", len(tasks))
	}
}

// --- chat ---

func TestChat_FallbackConversation(t *testing.T) {
	s := setupTest(t)
	token, userID := s.register(t, "ada@example.com")
	path := "/api/" + userID + "/chat"

	w := s.do(t, "POST", path, token, map[string]any{"message": "add task buy milk"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body = %s", w.Code, w.Body.String())
	}
	var first ChatResponse
	decode(t, w, &first)
	if first.Response != "Task 'buy milk' added successfully." {
		t.Fatalf("response = %q", first.Response)
	}
	if !strings.HasPrefix(first.ResponseHTML, "<p>") {
		t.Fatalf("response_html = %q", first.ResponseHTML)
	}
	if first.ConversationID <= 0 {
		t.Fatalf("conversation_id = %d", first.ConversationID)
	}

	w = s.do(t, "POST", path, token, map[string]any{"message": "list tasks", "conversation_id": first.ConversationID})
	var second ChatResponse
	decode(t, w, &second)
	if second.ConversationID != first.ConversationID {
		t.Fatalf("conversation_id = %d, want %d", second.ConversationID, first.ConversationID)
	}
	if !strings.Contains(second.Response, "buy milk") {
		t.Fatalf("response = %q", second.Response)
	}
}

func TestChat_Errors(t *testing.T) {
	s := setupTest(t)
	aliceToken, aliceID := s.register(t, "alice@example.com")
	bobToken, bobID := s.register(t, "bob@example.com")

	w := s.do(t, "POST", "/api/"+aliceID+"/chat", aliceToken, map[string]any{"message": "  "})
	assertError(t, w, http.StatusBadRequest, "INVALID_REQUEST")

	w = s.do(t, "POST", "/api/"+aliceID+"/chat", aliceToken, map[string]any{"message": "hello"})
	var resp ChatResponse
	decode(t, w, &resp)
	if resp.Response != fallback.DefaultReply {
		t.Fatalf("response = %q, want default reply", resp.Response)
	}

	w = s.do(t, "POST", "/api/"+bobID+"/chat", bobToken, map[string]any{"message": "hi", "conversation_id": resp.ConversationID})
	assertError(t, w, http.StatusNotFound, "CONVERSATION_NOT_FOUND")
}

func TestRenderMarkdown_EscapesRawHTML(t *testing.T) {
	out := string(renderMarkdown("**done** <script>alert(1)</script>"))
	if !strings.Contains(out, "<strong>done</strong>") {
		t.Fatalf("out = %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html passed through: %q", out)
	}
}

// --- plumbing ---

func TestHealthz(t *testing.T) {
	s := setupTest(t)
	w := s.do(t, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTest(t)
	token, userID := s.register(t, "ada@example.com")
	s.do(t, "POST", "/api/"+userID+"/chat", token, map[string]any{"message": "list tasks"})

	w := s.do(t, "GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{
		"taskflow_chat_requests_total",
		"taskflow_http_requests_total",
		"taskflow_http_request_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
	if !strings.Contains(body, `route="POST /api/{user_id}/chat"`) {
		t.Error("http metrics should be labeled by route pattern")
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	s := setupTest(t)

	w := s.do(t, "GET", "/healthz", "", nil)
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if len(w.Header().Get("X-Request-ID")) != 26 {
		t.Errorf("X-Request-ID = %q, want a ULID", w.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("X-Request-ID = %q, want propagated value", rec.Header().Get("X-Request-ID"))
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
