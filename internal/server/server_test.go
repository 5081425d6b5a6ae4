package server_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/glidekey/internal/classifier"
	"github.com/MrWong99/glidekey/internal/glide"
	"github.com/MrWong99/glidekey/internal/server"
	"github.com/MrWong99/glidekey/internal/suggestion"
	"github.com/MrWong99/glidekey/pkg/gesture"
	"github.com/MrWong99/glidekey/pkg/types"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type learnCall struct{ word, previous string }

type fakeEngine struct {
	mu       sync.Mutex
	ready    bool
	words    []string
	learnErr error
	contexts []types.SuggestionContext
	learned  []learnCall
}

func (e *fakeEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *fakeEngine) Suggest(_ context.Context, sc types.SuggestionContext) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contexts = append(e.contexts, sc)
	return slices.Clone(e.words)
}

func (e *fakeEngine) Refine(context.Context, string) []string { return nil }

func (e *fakeEngine) calls() ([]types.SuggestionContext, []learnCall) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.contexts), slices.Clone(e.learned)
}

func (e *fakeEngine) Learn(_ context.Context, word, previous string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.learned = append(e.learned, learnCall{word, previous})
	return e.learnErr
}

// qwerty returns a 40px-key QWERTY layout.
func qwerty() types.Layout {
	rows := []struct {
		keys   string
		offset float64
		y      float64
	}{
		{"qwertyuiop", 20, 20},
		{"asdfghjkl", 40, 60},
		{"zxcvbnm", 80, 100},
	}
	var keys []types.KeyGeometry
	for _, r := range rows {
		for i, k := range r.keys {
			keys = append(keys, types.KeyGeometry{
				KeyID:   string(k),
				CenterX: r.offset + 40*float64(i),
				CenterY: r.y,
				Width:   40,
				Height:  40,
			})
		}
	}
	return types.LayoutFromKeys(keys)
}

func newRecognizer(gesture.Configuration) glide.Recognizer {
	return classifier.New(classifier.WithDecoder(classifier.NewDecoder([]string{"hello", "help", "hole"})))
}

func noPreviews() gesture.Configuration {
	cfg := gesture.Default()
	cfg.PreviewEnabled = false
	return cfg
}

func startServer(t *testing.T, eng server.Engine, opts ...server.Option) (*server.Server, *httptest.Server) {
	t.Helper()
	srv := server.New(eng, newRecognizer, noPreviews(), opts...)
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(data)
}

// ── REST ─────────────────────────────────────────────────────────────────────

func TestSuggest(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{ready: true, words: []string{"help", "hello", "helmet"}}
	_, ts := startServer(t, eng)

	code, body := post(t, ts, "/v1/suggest", `{"input":"hel","after_space":false,"previous":"say"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %s", code, body)
	}
	if want := `{"words":["help","hello","helmet"]}`; strings.TrimSpace(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
	want := types.SuggestionContext{CurrentInput: "hel", PreviousWord: "say"}
	if got, _ := eng.calls(); len(got) != 1 || got[0] != want {
		t.Errorf("engine saw %+v, want %+v", got, want)
	}
}

func TestSuggest_EmptyListIsNotNull(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, &fakeEngine{ready: true})
	code, body := post(t, ts, "/v1/suggest", `{"input":"","after_space":true,"previous":"zzz"}`)
	if code != http.StatusOK || strings.TrimSpace(body) != `{"words":[]}` {
		t.Errorf("got %d %s, want 200 {\"words\":[]}", code, body)
	}
}

func TestSuggest_Errors(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, &fakeEngine{})

	if code, _ := post(t, ts, "/v1/suggest", `{"input":"hel"}`); code != http.StatusServiceUnavailable {
		t.Errorf("not ready: status = %d, want 503", code)
	}
	if code, _ := post(t, ts, "/v1/suggest", `{"text":"hel"}`); code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d, want 400", code)
	}
	if code, _ := post(t, ts, "/v1/suggest", `{`); code != http.StatusBadRequest {
		t.Errorf("truncated body: status = %d, want 400", code)
	}
}

func TestLearn(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"ok", nil, `{"word":"night","previous":"good"}`, http.StatusNoContent},
		{"missing word", nil, `{"previous":"good"}`, http.StatusBadRequest},
		{"not ready", suggestion.ErrNotInitialized, `{"word":"night"}`, http.StatusServiceUnavailable},
		{"no learner", suggestion.ErrNoLearner, `{"word":"night"}`, http.StatusNotImplemented},
		{"store failure", fmt.Errorf("suggestion: learn: %w", boom), `{"word":"night"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{ready: true, learnErr: tt.err}
			_, ts := startServer(t, eng)

			if code, body := post(t, ts, "/v1/learn", tt.body); code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", code, tt.want, body)
			}
		})
	}
}

func TestLearn_ForwardsWords(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{ready: true}
	_, ts := startServer(t, eng)
	post(t, ts, "/v1/learn", `{"word":"night","previous":"good"}`)

	_, got := eng.calls()
	if want := []learnCall{{"night", "good"}}; !slices.Equal(got, want) {
		t.Errorf("learned = %v, want %v", got, want)
	}
}

// ── WebSocket ────────────────────────────────────────────────────────────────

type serverMsg struct {
	Type    string   `json:"type"`
	Session string   `json:"session"`
	Words   []string `json:"words"`
	Word    *string  `json:"word"`
	Message string   `json:"message"`
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/glide", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) serverMsg {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var m serverMsg
	if err := wsjson.Read(ctx, conn, &m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func writeMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func touch(typ, key string, ms int64) map[string]any {
	k := qwerty()[key]
	return map[string]any{"type": typ, "x": k.CenterX, "y": k.CenterY, "t": ms}
}

func openSession(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn := dial(t, ts)
	if m := readMsg(t, conn); m.Type != "session" || m.Session == "" {
		t.Fatalf("first frame = %+v, want session id", m)
	}
	return conn
}

func TestGlide_CommitsWord(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, &fakeEngine{ready: true})
	conn := openSession(t, ts)

	var keys []types.KeyGeometry
	for _, k := range qwerty() {
		keys = append(keys, k)
	}
	writeMsg(t, conn, map[string]any{"type": "layout", "keys": keys})
	writeMsg(t, conn, touch("start", "h", 0))
	writeMsg(t, conn, touch("move", "e", 50))
	writeMsg(t, conn, touch("move", "l", 120))
	writeMsg(t, conn, touch("end", "o", 160))

	m := readMsg(t, conn)
	if m.Type != "commit" || m.Word == nil || *m.Word != "hello" {
		t.Fatalf("got %+v, want commit hello", m)
	}
	m = readMsg(t, conn)
	if m.Type != "suggestions" || !slices.Equal(m.Words, []string{"helo"}) {
		t.Errorf("got %+v, want alternatives [helo]", m)
	}
}

func TestGlide_DefaultLayoutAndTap(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, &fakeEngine{ready: true}, server.WithLayout(qwerty()))
	conn := openSession(t, ts)

	writeMsg(t, conn, touch("start", "h", 0))
	writeMsg(t, conn, touch("end", "h", 40))

	if m := readMsg(t, conn); m.Type != "commit" || m.Word != nil {
		t.Fatalf("got %+v, want commit with null word", m)
	}
	if m := readMsg(t, conn); m.Type != "suggestions" || m.Words == nil || len(m.Words) != 0 {
		t.Errorf("got %+v, want empty suggestions", m)
	}
}

func TestGlide_Cancel(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, &fakeEngine{ready: true}, server.WithLayout(qwerty()))
	conn := openSession(t, ts)

	writeMsg(t, conn, touch("start", "h", 0))
	writeMsg(t, conn, touch("move", "e", 50))
	writeMsg(t, conn, map[string]any{"type": "cancel"})

	if m := readMsg(t, conn); m.Type != "suggestions" || len(m.Words) != 0 {
		t.Errorf("got %+v, want empty suggestions", m)
	}
}

func TestGlide_UnknownFrame(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, &fakeEngine{ready: true})
	conn := openSession(t, ts)

	writeMsg(t, conn, map[string]any{"type": "wiggle"})
	if m := readMsg(t, conn); m.Type != "error" || !strings.Contains(m.Message, "wiggle") {
		t.Errorf("got %+v, want error naming the frame type", m)
	}
}

func waitSessions(t *testing.T, srv *server.Server, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for srv.Sessions() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Sessions() = %d, want %d", srv.Sessions(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGlide_SessionLifecycle(t *testing.T) {
	t.Parallel()

	srv, ts := startServer(t, &fakeEngine{ready: true})
	a := openSession(t, ts)
	openSession(t, ts)
	waitSessions(t, srv, 2)

	a.Close(websocket.StatusNormalClosure, "bye")
	waitSessions(t, srv, 1)

	srv.Close()
	waitSessions(t, srv, 0)
}

func TestServer_SetConfiguration(t *testing.T) {
	t.Parallel()

	srv, ts := startServer(t, &fakeEngine{ready: true})
	openSession(t, ts)
	waitSessions(t, srv, 1)

	cfg := srv.Configuration()
	cfg.MaxAlternatives = 1
	if err := srv.SetConfiguration(cfg); err != nil {
		t.Fatalf("SetConfiguration: %v", err)
	}
	if got := srv.Configuration().MaxAlternatives; got != 1 {
		t.Errorf("MaxAlternatives = %d, want 1", got)
	}

	cfg.SmoothingFactor = 3
	if err := srv.SetConfiguration(cfg); err == nil {
		t.Error("expected validation error")
	}
}
