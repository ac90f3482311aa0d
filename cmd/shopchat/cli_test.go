package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"shopchat/internal/backend"
	"shopchat/internal/cache"
	"shopchat/internal/chat"
	"shopchat/internal/config"
	"shopchat/internal/db"
	"shopchat/internal/session"
	"shopchat/internal/shop"
)

// setupEnv wires a full appEnv over a temp SQLite cache and a fake backend.
func setupEnv(t *testing.T, chatResp backend.TurnResponse) *appEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResp)
	})
	mux.HandleFunc("/auth/identify", func(w http.ResponseWriter, r *http.Request) {
		var req backend.IdentifyRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(backend.IdentifyResponse{UserID: 9, Email: req.Email, SessionID: "sess-cli"})
	})
	mux.HandleFunc("/chat/history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.HistoryResponse{SessionID: "sess-cli"})
	})
	mux.HandleFunc("/clear-context", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.BackendURL = srv.URL

	repo := cache.NewSQLite(database)
	client := backend.New(srv.URL, 0, zerolog.Nop())
	sessions := session.NewManager(repo, client, zerolog.Nop())
	engine := chat.NewEngine(client, sessions, repo, cfg, zerolog.Nop())
	return &appEnv{engine: engine, cfg: cfg}
}

// runCLI runs the app with the given args and returns captured stdout.
func runCLI(t *testing.T, env *appEnv, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(env)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"shopchat"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func TestCLISend(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{
		Response:     "Found some sneakers.",
		Intent:       backend.IntentProductSearch,
		ExactMatches: []shop.Snapshot{{ExternalID: "P1", Title: "Black Sneakers"}},
	})

	out, err := runCLI(t, env, "send", "show me black sneakers")
	if err != nil {
		t.Fatalf("send command failed: %v", err)
	}

	var output struct {
		Turn    shop.Turn         `json:"turn"`
		Context shop.ContextState `json:"context"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Turn.Text != "Found some sneakers." {
		t.Errorf("turn text = %q", output.Turn.Text)
	}
	if len(output.Turn.ExactMatches) != 1 {
		t.Errorf("exact matches = %+v", output.Turn.ExactMatches)
	}
}

func TestCLISendMissingArg(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{})
	_, err := runCLI(t, env, "send")
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("send without args err = %v, want INVALID_REQUEST", err)
	}
}

func TestCLISendBadFilters(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{})
	_, err := runCLI(t, env, "send", "--filters", "{not json", "hello")
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("send with bad filters err = %v, want INVALID_REQUEST", err)
	}
}

func TestCLIMoreWithoutSearch(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{})
	_, err := runCLI(t, env, "more", "exact")
	if err == nil || !strings.Contains(err.Error(), "NO_PREVIOUS_SEARCH") {
		t.Errorf("more without search err = %v, want NO_PREVIOUS_SEARCH", err)
	}
}

func TestCLIMoreAfterSend(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{
		Response:     "Results.",
		ExactMatches: []shop.Snapshot{{ExternalID: "P1"}},
	})

	if _, err := runCLI(t, env, "send", "show me dresses"); err != nil {
		t.Fatalf("send command failed: %v", err)
	}
	out, err := runCLI(t, env, "more", "exact")
	if err != nil {
		t.Fatalf("more command failed: %v", err)
	}

	var output struct {
		Cursor shop.Cursor `json:"cursor"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Cursor.Page != 2 || output.Cursor.LastQuery != "show me dresses" {
		t.Errorf("cursor = %+v", output.Cursor)
	}
}

func TestCLIIdentify(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{})

	out, err := runCLI(t, env, "identify", "ada@example.com")
	if err != nil {
		t.Fatalf("identify command failed: %v", err)
	}

	var output struct {
		Email        string `json:"email"`
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Email != "ada@example.com" || output.SessionToken != "sess-cli" {
		t.Errorf("identify output = %+v", output)
	}
}

func TestCLILogout(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{})

	if _, err := runCLI(t, env, "identify", "ada@example.com"); err != nil {
		t.Fatalf("identify command failed: %v", err)
	}
	out, err := runCLI(t, env, "logout")
	if err != nil {
		t.Fatalf("logout command failed: %v", err)
	}
	if !strings.Contains(out, `"identified": false`) {
		t.Errorf("logout output = %s", out)
	}
	if env.engine.Sessions().Identified() {
		t.Error("Identified() = true after logout")
	}
}

func TestCLIContextAndClear(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{
		Response:       "Here.",
		ContextProduct: &shop.Snapshot{ExternalID: "P1", Title: "Red Summer Dress"},
	})

	if _, err := runCLI(t, env, "send", "show me dresses"); err != nil {
		t.Fatalf("send command failed: %v", err)
	}

	out, err := runCLI(t, env, "context")
	if err != nil {
		t.Fatalf("context command failed: %v", err)
	}
	var ctxOut struct {
		Context shop.ContextState `json:"context"`
	}
	if err := json.Unmarshal([]byte(out), &ctxOut); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if ctxOut.Context.FocusedProductID != "P1" {
		t.Errorf("context = %+v, want focus P1", ctxOut.Context)
	}

	out, err = runCLI(t, env, "clear")
	if err != nil {
		t.Fatalf("clear command failed: %v", err)
	}
	if !strings.Contains(out, `"cleared": true`) {
		t.Errorf("clear output = %s", out)
	}

	out, err = runCLI(t, env, "context")
	if err != nil {
		t.Fatalf("context command failed: %v", err)
	}
	ctxOut.Context = shop.ContextState{}
	if err := json.Unmarshal([]byte(out), &ctxOut); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if !ctxOut.Context.Empty() {
		t.Errorf("context after clear = %+v, want empty", ctxOut.Context)
	}
}

func TestCLIHistoryLocal(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{Response: "ok"})

	if _, err := runCLI(t, env, "send", "hello"); err != nil {
		t.Fatalf("send command failed: %v", err)
	}

	out, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	var output struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Count != 2 {
		t.Errorf("count = %d, want user + assistant", output.Count)
	}
}

func TestCLIHistoryRemoteRequiresIdentity(t *testing.T) {
	env := setupEnv(t, backend.TurnResponse{})
	_, err := runCLI(t, env, "history", "--remote")
	if err == nil || !strings.Contains(err.Error(), "NOT_IDENTIFIED") {
		t.Errorf("remote history err = %v, want NOT_IDENTIFIED", err)
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"shopchat"}, false},
		{[]string{"shopchat", "send", "hi"}, true},
		{[]string{"shopchat", "serve"}, true},
		{[]string{"shopchat", "--help"}, true},
		{[]string{"shopchat", "-v"}, true},
		{[]string{"shopchat", "unknown"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
