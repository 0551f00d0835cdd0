package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tadwork/code-dojo/internal/events"
	"github.com/Tadwork/code-dojo/internal/models"
	"github.com/Tadwork/code-dojo/internal/session"
	"github.com/Tadwork/code-dojo/internal/store"
)

type fakeStore struct {
	mu         sync.Mutex
	sessions   map[string]store.Session
	codeWrites []string
	langWrites []string
}

func newFakeStore(seed ...store.Session) *fakeStore {
	f := &fakeStore{sessions: make(map[string]store.Session)}
	for _, s := range seed {
		f.sessions[s.SessionCode] = s
	}
	return f
}

func (f *fakeStore) Create(_ context.Context, title *string, language string) (store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := store.Session{ID: "fixed-id", SessionCode: "NEWCODE1", Title: title, Language: language}
	if s.Language == "" {
		s.Language = "python"
	}
	f.sessions[s.SessionCode] = s
	return s, nil
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[code]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) UpdateCode(_ context.Context, code, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeWrites = append(f.codeWrites, text)
	s := f.sessions[code]
	s.Code = text
	f.sessions[code] = s
	return nil
}

func (f *fakeStore) UpdateLanguage(_ context.Context, code, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.langWrites = append(f.langWrites, language)
	s := f.sessions[code]
	s.Language = language
	f.sessions[code] = s
	return nil
}

func (f *fakeStore) lastCodeWrite() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codeWrites) == 0 {
		return "", false
	}
	return f.codeWrites[len(f.codeWrites)-1], true
}

func newWSServer(t *testing.T, fs *fakeStore, policy session.DuplicatePolicy) *httptest.Server {
	t.Helper()
	h := NewHandlers(zap.NewNop(), session.NewHub(policy), fs, nil, nil,
		events.NewPublisher("", zap.NewNop()), "test")
	r := chi.NewRouter()
	r.Get("/ws/{code}", h.CollabWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + code
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return m
}

func join(t *testing.T, conn *websocket.Conn, userID, displayName string) map[string]any {
	t.Helper()
	sendFrame(t, conn, models.JoinMessage{Type: models.TypeJoin, UserID: userID, DisplayName: displayName})
	welcome := readFrame(t, conn)
	if welcome["type"] != models.TypeWelcome {
		t.Fatalf("expected welcome, got %+v", welcome)
	}
	return welcome
}

func seedSession() store.Session {
	return store.Session{
		ID:          "sess-1",
		SessionCode: "ABCD1234",
		Language:    "python",
		Code:        "print('hi')",
	}
}

func TestJoinReceivesWelcome(t *testing.T) {
	srv := newWSServer(t, newFakeStore(seedSession()), session.DuplicateAllow)
	conn := dialWS(t, srv, "ABCD1234")

	welcome := join(t, conn, "u1", "Ada")
	if welcome["userId"] != "u1" || welcome["displayName"] != "Ada" {
		t.Fatalf("welcome identity = %+v", welcome)
	}
	if welcome["color"] != "#FF6B6B" {
		t.Fatalf("welcome color = %v, want #FF6B6B", welcome["color"])
	}
	if welcome["code"] != "print('hi')" || welcome["language"] != "python" {
		t.Fatalf("welcome document = %+v", welcome)
	}
	if parts, _ := welcome["participants"].([]any); len(parts) != 0 {
		t.Fatalf("first joiner participants = %v, want empty", parts)
	}
}

func TestSecondJoinerSeesExistingRoster(t *testing.T) {
	srv := newWSServer(t, newFakeStore(seedSession()), session.DuplicateAllow)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")

	conn2 := dialWS(t, srv, "ABCD1234")
	welcome := join(t, conn2, "u2", "Grace")
	parts, _ := welcome["participants"].([]any)
	if len(parts) != 1 {
		t.Fatalf("second joiner participants = %v, want 1 entry", parts)
	}
	first := parts[0].(map[string]any)
	if first["userId"] != "u1" || first["color"] != "#FF6B6B" {
		t.Fatalf("roster entry = %+v", first)
	}

	notice := readFrame(t, conn1)
	if notice["type"] != models.TypeParticipantJoin || notice["userId"] != "u2" {
		t.Fatalf("existing participant notice = %+v", notice)
	}
}

func TestCodeChangeBroadcastAndPersist(t *testing.T) {
	fs := newFakeStore(seedSession())
	srv := newWSServer(t, fs, session.DuplicateAllow)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")
	conn2 := dialWS(t, srv, "ABCD1234")
	join(t, conn2, "u2", "Grace")
	readFrame(t, conn1) // u2's participant_join

	const edited = "def solve():\n\treturn \"héllo\" # 日本語\n"
	sendFrame(t, conn1, models.CodeChangeMessage{Type: models.TypeCodeChange, Code: edited})

	update := readFrame(t, conn2)
	if update["type"] != models.TypeCodeUpdate {
		t.Fatalf("expected code_update, got %+v", update)
	}
	if update["code"] != edited {
		t.Fatalf("code round-trip mismatch:\n got %q\nwant %q", update["code"], edited)
	}

	// Persisted per edit, not only at room close.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, ok := fs.lastCodeWrite(); ok {
			if got != edited {
				t.Fatalf("persisted code = %q, want %q", got, edited)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("code never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCodeUpdateExcludesSender(t *testing.T) {
	srv := newWSServer(t, newFakeStore(seedSession()), session.DuplicateAllow)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")
	conn2 := dialWS(t, srv, "ABCD1234")
	join(t, conn2, "u2", "Grace")
	readFrame(t, conn1) // u2's participant_join

	sendFrame(t, conn1, models.CodeChangeMessage{Type: models.TypeCodeChange, Code: "x = 1"})
	readFrame(t, conn2) // code_update lands on the peer

	// The next frame the sender sees must come from the peer, never an echo
	// of its own edit.
	sendFrame(t, conn2, models.CursorPositionMessage{
		Type:     models.TypeCursorPosition,
		Position: &models.Position{Line: 1, Column: 2},
	})
	next := readFrame(t, conn1)
	if next["type"] != models.TypeCursorUpdate {
		t.Fatalf("sender received %+v, want cursor_update from peer", next)
	}
	if next["userId"] != "u2" {
		t.Fatalf("cursor_update attributed to %v, want u2", next["userId"])
	}
}

func TestLanguageUpdateReachesEveryone(t *testing.T) {
	fs := newFakeStore(seedSession())
	srv := newWSServer(t, fs, session.DuplicateAllow)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")
	conn2 := dialWS(t, srv, "ABCD1234")
	join(t, conn2, "u2", "Grace")
	readFrame(t, conn1) // u2's participant_join

	sendFrame(t, conn1, models.LanguageChangeMessage{Type: models.TypeLanguageChange, Language: "go"})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		update := readFrame(t, conn)
		if update["type"] != models.TypeLanguageUpdate || update["language"] != "go" {
			t.Fatalf("language notice = %+v", update)
		}
	}
}

func TestFramesBeforeJoinAreDropped(t *testing.T) {
	srv := newWSServer(t, newFakeStore(seedSession()), session.DuplicateAllow)
	conn := dialWS(t, srv, "ABCD1234")

	sendFrame(t, conn, models.CodeChangeMessage{Type: models.TypeCodeChange, Code: "sneaky"})
	welcome := join(t, conn, "u1", "Ada")
	if welcome["code"] != "print('hi')" {
		t.Fatalf("pre-join edit mutated the document: %+v", welcome)
	}
}

func TestUnknownAndMalformedFramesAreDropped(t *testing.T) {
	srv := newWSServer(t, newFakeStore(seedSession()), session.DuplicateAllow)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")
	conn2 := dialWS(t, srv, "ABCD1234")
	join(t, conn2, "u2", "Grace")
	readFrame(t, conn1) // u2's participant_join

	if err := conn2.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write malformed: %v", err)
	}
	sendFrame(t, conn2, map[string]any{"type": "time_travel", "to": "1985"})
	sendFrame(t, conn2, models.CursorPositionMessage{
		Type:     models.TypeCursorPosition,
		Position: &models.Position{Line: 9, Column: 4},
	})

	next := readFrame(t, conn1)
	if next["type"] != models.TypeCursorUpdate {
		t.Fatalf("peer received %+v, want only the cursor_update", next)
	}
}

func TestUnknownSessionClosesWithPolicyViolation(t *testing.T) {
	srv := newWSServer(t, newFakeStore(), session.DuplicateAllow)
	conn := dialWS(t, srv, "MISSING1")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation || closeErr.Text != "Session not found" {
		t.Fatalf("close = %d %q, want 1008 \"Session not found\"", closeErr.Code, closeErr.Text)
	}
}

func TestDisconnectBroadcastsParticipantLeave(t *testing.T) {
	srv := newWSServer(t, newFakeStore(seedSession()), session.DuplicateAllow)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")
	conn2 := dialWS(t, srv, "ABCD1234")
	join(t, conn2, "u2", "Grace")
	readFrame(t, conn1) // u2's participant_join

	conn2.Close()

	notice := readFrame(t, conn1)
	if notice["type"] != models.TypeParticipantLeave || notice["userId"] != "u2" {
		t.Fatalf("leave notice = %+v", notice)
	}
}

func TestReplacePolicyClosesOlderConnection(t *testing.T) {
	fs := newFakeStore(seedSession())
	srv := newWSServer(t, fs, session.DuplicateReplace)
	conn1 := dialWS(t, srv, "ABCD1234")
	join(t, conn1, "u1", "Ada")

	conn2 := dialWS(t, srv, "ABCD1234")
	join(t, conn2, "u1", "Ada")

	// The older connection gets dropped by the server.
	_ = conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn1.ReadMessage(); err == nil {
		t.Fatalf("displaced connection still readable")
	}

	// The surviving connection keeps working.
	sendFrame(t, conn2, models.CodeChangeMessage{Type: models.TypeCodeChange, Code: "v2"})
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, ok := fs.lastCodeWrite(); ok && got == "v2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("edit from surviving connection never applied")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn3 := dialWS(t, srv, "ABCD1234")
	welcome := join(t, conn3, "u2", "Grace")
	if welcome["code"] != "v2" {
		t.Fatalf("room document = %v, want v2", welcome["code"])
	}
}
