package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tadwork/code-dojo/internal/events"
	"github.com/Tadwork/code-dojo/internal/metrics"
	"github.com/Tadwork/code-dojo/internal/models"
	"github.com/Tadwork/code-dojo/internal/session"
	"github.com/Tadwork/code-dojo/internal/store"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func urlParam(r *http.Request, key string) string { return chi.URLParam(r, key) }

// CollabWS is the realtime collaboration endpoint. One connection serves one
// room; the connection moves through awaiting_join -> joined -> closed, and
// only a join frame is honored before the handshake completes.
func (h *Handlers) CollabWS(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(urlParam(r, "code"))

	sess, err := h.store.GetByCode(r.Context(), code)
	notFound := errors.Is(err, store.ErrNotFound)
	if err != nil && !notFound {
		h.log.Error("session lookup failed", zap.String("sessionCode", code), zap.Error(err))
		http.Error(w, "session lookup failed", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if notFound {
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Session not found")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		return
	}

	room := h.hub.GetOrCreate(code, models.Document{Code: sess.Code, Language: sess.Language})
	client := session.NewClient(conn)
	room.Register(client)
	metrics.ConnectionOpened()
	metrics.SetActiveRooms(h.hub.RoomCount())

	defer h.teardown(room, client)

	joined := false
	var userID string

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := models.DecodeClientMessage(data)
		if err != nil {
			h.log.Debug("dropping malformed frame",
				zap.String("sessionCode", code),
				zap.Error(err))
			continue
		}
		if msg == nil {
			// Unknown type: dropped for forward compatibility.
			continue
		}

		if !joined {
			jm, ok := msg.(*models.JoinMessage)
			if !ok {
				// Anything before join is silently ignored.
				continue
			}
			metrics.MessageReceived(models.TypeJoin)
			userID = jm.UserID
			h.handleJoin(r.Context(), room, client, jm)
			joined = true
			continue
		}

		switch m := msg.(type) {
		case *models.JoinMessage:
			// Already joined on this connection; ignore.

		case *models.CodeChangeMessage:
			metrics.MessageReceived(models.TypeCodeChange)
			room.ApplyCode(m.Code, m.Language)
			if err := h.store.UpdateCode(r.Context(), code, m.Code); err != nil {
				h.log.Warn("persist code failed", zap.String("sessionCode", code), zap.Error(err))
			}
			room.Broadcast(client, models.CodeUpdateMessage{
				Type:     models.TypeCodeUpdate,
				Code:     m.Code,
				Language: room.Snapshot().Language,
			})

		case *models.LanguageChangeMessage:
			if m.Language == "" {
				continue
			}
			metrics.MessageReceived(models.TypeLanguageChange)
			room.ApplyLanguage(m.Language)
			if err := h.store.UpdateLanguage(r.Context(), code, m.Language); err != nil {
				h.log.Warn("persist language failed", zap.String("sessionCode", code), zap.Error(err))
			}
			room.BroadcastAll(models.LanguageUpdateMessage{
				Type:     models.TypeLanguageUpdate,
				Language: m.Language,
			})

		case *models.CursorPositionMessage:
			metrics.MessageReceived(models.TypeCursorPosition)
			room.UpdateCursor(userID, m.Position)
			room.Broadcast(client, models.CursorUpdateMessage{
				Type:     models.TypeCursorUpdate,
				UserID:   userID,
				Position: m.Position,
			})

		case *models.SelectionChangeMessage:
			metrics.MessageReceived(models.TypeSelectionChange)
			room.UpdateSelection(userID, m.Selection)
			room.Broadcast(client, models.SelectionUpdateMessage{
				Type:      models.TypeSelectionUpdate,
				UserID:    userID,
				Selection: m.Selection,
			})
		}
	}
}

func (h *Handlers) handleJoin(ctx context.Context, room *session.Room, client *session.Client, jm *models.JoinMessage) {
	self, others, displaced := room.Join(client, jm.UserID, jm.DisplayName)
	if displaced != nil {
		// replace policy: the older connection is shut down and cleans
		// itself up through its own read loop.
		displaced.Close()
	}

	doc := room.Snapshot()
	welcome := models.WelcomeMessage{
		Type:         models.TypeWelcome,
		UserID:       self.UserID,
		DisplayName:  self.DisplayName,
		Color:        self.Color,
		Code:         doc.Code,
		Language:     doc.Language,
		Participants: others,
	}
	if err := client.Send(welcome); err != nil {
		client.Close()
		return
	}

	room.Broadcast(client, models.ParticipantJoinMessage{
		Type:        models.TypeParticipantJoin,
		UserID:      self.UserID,
		DisplayName: self.DisplayName,
		Color:       self.Color,
	})

	h.events.Publish(ctx, events.RoomEvent{
		Type:         events.EventParticipantJoined,
		SessionCode:  room.Code,
		UserID:       self.UserID,
		Participants: room.ParticipantCount(),
	})

	h.log.Info("participant joined",
		zap.String("sessionCode", room.Code),
		zap.String("userId", self.UserID))
}

// teardown runs exactly once per connection, no matter how it died.
func (h *Handlers) teardown(room *session.Room, client *session.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userID, rosterRemoved, remaining := room.Detach(client)
	metrics.ConnectionClosed()

	if rosterRemoved {
		room.Broadcast(client, models.ParticipantLeaveMessage{
			Type:   models.TypeParticipantLeave,
			UserID: userID,
		})
		h.events.Publish(ctx, events.RoomEvent{
			Type:         events.EventParticipantLeft,
			SessionCode:  room.Code,
			UserID:       userID,
			Participants: room.ParticipantCount(),
		})
		h.log.Info("participant left",
			zap.String("sessionCode", room.Code),
			zap.String("userId", userID))
	}

	if remaining == 0 && h.hub.RemoveIfEmpty(room.Code) {
		h.events.Publish(ctx, events.RoomEvent{
			Type:        events.EventRoomClosed,
			SessionCode: room.Code,
		})
	}
	metrics.SetActiveRooms(h.hub.RoomCount())
}
