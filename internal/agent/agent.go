// Package agent is a headless client for the collaboration protocol. It owns
// the websocket lifecycle (dial, join, reconnect), keeps a local mirror of the
// document and roster, and debounces outbound edits so rapid typing collapses
// into one code_change frame.
package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tadwork/code-dojo/internal/models"
)

const (
	defaultDebounceInterval = 300 * time.Millisecond
	defaultReconnectDelay   = 3 * time.Second
)

var errNotConnected = errors.New("agent: not connected")

// Handlers are the observer callbacks the agent fires from its read loop.
// Any of them may be nil. They must not call Close.
type Handlers struct {
	OnStatus           func(connected bool)
	OnWelcome          func(self models.Participant, doc models.Document, others []models.Participant)
	OnCodeUpdate       func(doc models.Document)
	OnLanguageUpdate   func(language string)
	OnCursorUpdate     func(userID string, pos *models.Position)
	OnSelectionUpdate  func(userID string, sel *models.Selection)
	OnParticipantJoin  func(p models.Participant)
	OnParticipantLeave func(userID string)
}

type Agent struct {
	url      string
	identity IdentityProvider
	handlers Handlers
	log      *zap.Logger

	debounceInterval time.Duration
	reconnectDelay   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	doc      models.Document
	roster   map[string]models.Participant
	self     models.Participant
	typing   bool // local edit pending; suppress inbound code until flushed
	debounce *time.Timer
}

type Option func(*Agent)

func WithDebounceInterval(d time.Duration) Option {
	return func(a *Agent) { a.debounceInterval = d }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(a *Agent) { a.reconnectDelay = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) { a.log = log }
}

// Dial starts the agent. It connects in the background and keeps
// reconnecting at a fixed interval until Close is called; each successful
// connect sends exactly one join frame with the provider's identity.
func Dial(url string, identity IdentityProvider, handlers Handlers, opts ...Option) *Agent {
	a := &Agent{
		url:              url,
		identity:         identity,
		handlers:         handlers,
		log:              zap.NewNop(),
		debounceInterval: defaultDebounceInterval,
		reconnectDelay:   defaultReconnectDelay,
		roster:           make(map[string]models.Participant),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	go a.run()
	return a
}

// Close tears the agent down: the connection is dropped, pending debounce
// timers are cancelled, and no callbacks fire afterwards. It blocks until the
// run loop has exited, so it must not be called from a handler callback.
func (a *Agent) Close() {
	a.cancel()
	a.mu.Lock()
	if a.debounce != nil {
		a.debounce.Stop()
		a.debounce = nil
	}
	conn := a.conn
	a.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	<-a.done
}

func (a *Agent) run() {
	defer close(a.done)

	policy := backoff.WithContext(backoff.NewConstantBackOff(a.reconnectDelay), a.ctx)
	_ = backoff.Retry(func() error {
		if err := a.ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		conn, _, err := websocket.DefaultDialer.DialContext(a.ctx, a.url, nil)
		if err != nil {
			a.log.Debug("dial failed", zap.String("url", a.url), zap.Error(err))
			return err
		}
		a.session(conn)
		if err := a.ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return errors.New("connection lost")
	}, policy)
}

// session drives one connected lifetime: join, read until the socket dies.
func (a *Agent) session(conn *websocket.Conn) {
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	a.emitStatus(true)

	id := a.identity.Identity()
	join := models.JoinMessage{
		Type:        models.TypeJoin,
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
	}
	if err := a.write(conn, join); err != nil {
		a.log.Debug("join send failed", zap.Error(err))
	} else {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msg, err := models.DecodeServerMessage(data)
			if err != nil {
				a.log.Debug("dropping malformed frame", zap.Error(err))
				continue
			}
			if msg == nil {
				continue
			}
			a.dispatch(msg)
		}
	}

	conn.Close()
	a.mu.Lock()
	if a.conn == conn {
		a.conn = nil
	}
	a.mu.Unlock()
	a.emitStatus(false)
}

func (a *Agent) dispatch(msg any) {
	switch m := msg.(type) {
	case *models.WelcomeMessage:
		a.mu.Lock()
		a.self = models.Participant{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Color:       m.Color,
		}
		a.roster = make(map[string]models.Participant, len(m.Participants))
		for _, p := range m.Participants {
			a.roster[p.UserID] = p
		}
		if !a.typing {
			a.doc = models.Document{Code: m.Code, Language: m.Language}
		}
		self, doc := a.self, a.doc
		a.mu.Unlock()
		if a.handlers.OnWelcome != nil {
			a.handlers.OnWelcome(self, doc, m.Participants)
		}

	case *models.CodeUpdateMessage:
		a.mu.Lock()
		if a.typing {
			// A local edit is in flight; the debounced send will win under
			// last-writer-wins, so the stale remote code is dropped.
			a.mu.Unlock()
			return
		}
		a.doc.Code = m.Code
		if m.Language != "" {
			a.doc.Language = m.Language
		}
		doc := a.doc
		a.mu.Unlock()
		if a.handlers.OnCodeUpdate != nil {
			a.handlers.OnCodeUpdate(doc)
		}

	case *models.LanguageUpdateMessage:
		a.mu.Lock()
		a.doc.Language = m.Language
		a.mu.Unlock()
		if a.handlers.OnLanguageUpdate != nil {
			a.handlers.OnLanguageUpdate(m.Language)
		}

	case *models.CursorUpdateMessage:
		a.mu.Lock()
		if p, ok := a.roster[m.UserID]; ok {
			p.Cursor = m.Position
			a.roster[m.UserID] = p
		}
		a.mu.Unlock()
		if a.handlers.OnCursorUpdate != nil {
			a.handlers.OnCursorUpdate(m.UserID, m.Position)
		}

	case *models.SelectionUpdateMessage:
		a.mu.Lock()
		if p, ok := a.roster[m.UserID]; ok {
			p.Selection = m.Selection
			a.roster[m.UserID] = p
		}
		a.mu.Unlock()
		if a.handlers.OnSelectionUpdate != nil {
			a.handlers.OnSelectionUpdate(m.UserID, m.Selection)
		}

	case *models.ParticipantJoinMessage:
		p := models.Participant{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Color:       m.Color,
		}
		a.mu.Lock()
		a.roster[m.UserID] = p
		a.mu.Unlock()
		if a.handlers.OnParticipantJoin != nil {
			a.handlers.OnParticipantJoin(p)
		}

	case *models.ParticipantLeaveMessage:
		a.mu.Lock()
		delete(a.roster, m.UserID)
		a.mu.Unlock()
		if a.handlers.OnParticipantLeave != nil {
			a.handlers.OnParticipantLeave(m.UserID)
		}
	}
}

// SetLocalCode records a local edit. The outbound code_change is debounced:
// each call restarts the window, and only the latest content is sent when it
// elapses. While an edit is pending, inbound code_update frames are ignored.
func (a *Agent) SetLocalCode(code string) {
	a.mu.Lock()
	a.doc.Code = code
	a.typing = true
	if a.debounce != nil {
		a.debounce.Stop()
	}
	a.debounce = time.AfterFunc(a.debounceInterval, a.flushCode)
	a.mu.Unlock()
}

func (a *Agent) flushCode() {
	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		return
	}
	msg := models.CodeChangeMessage{
		Type:     models.TypeCodeChange,
		Code:     a.doc.Code,
		Language: a.doc.Language,
	}
	conn := a.conn
	a.typing = false
	a.debounce = nil
	a.mu.Unlock()

	if conn == nil {
		return
	}
	if err := a.write(conn, msg); err != nil {
		a.log.Debug("code flush failed", zap.Error(err))
	}
}

// SetLanguage switches the document language and notifies the room
// immediately, outside the edit debounce.
func (a *Agent) SetLanguage(language string) error {
	a.mu.Lock()
	a.doc.Language = language
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	return a.write(conn, models.LanguageChangeMessage{
		Type:     models.TypeLanguageChange,
		Language: language,
	})
}

// SendCursor reports the local caret position. Cursor traffic is not
// debounced; stale positions are worse than extra frames.
func (a *Agent) SendCursor(pos models.Position) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	return a.write(conn, models.CursorPositionMessage{
		Type:     models.TypeCursorPosition,
		Position: &pos,
	})
}

// SendSelection reports the local selection range, unthrottled like cursors.
func (a *Agent) SendSelection(sel models.Selection) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	return a.write(conn, models.SelectionChangeMessage{
		Type:      models.TypeSelectionChange,
		Selection: &sel,
	})
}

func (a *Agent) write(conn *websocket.Conn, msg any) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (a *Agent) emitStatus(connected bool) {
	if a.ctx.Err() != nil {
		return
	}
	if a.handlers.OnStatus != nil {
		a.handlers.OnStatus(connected)
	}
}

// Connected reports whether a live connection is currently up.
func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// Document returns the agent's current view of the shared document.
func (a *Agent) Document() models.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc
}

// Self returns the identity the server acknowledged in the welcome.
func (a *Agent) Self() models.Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.self
}

// Participants returns the other members of the room as last seen.
func (a *Agent) Participants() []models.Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Participant, 0, len(a.roster))
	for _, p := range a.roster {
		out = append(out, p)
	}
	return out
}
