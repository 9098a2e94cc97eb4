package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/diredev/campushub/internal/chat"
	"github.com/diredev/campushub/internal/live"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var roomSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type socketInbound struct {
	Body string `json:"body"`
}

type socketOutbound struct {
	Type    string          `json:"type"`
	Action  string          `json:"action,omitempty"`
	DocID   string          `json:"doc_id,omitempty"`
	Message *messagePayload `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleRoomSocket upgrades GET /chat/rooms/:roomID/ws to a websocket.
// Outbound frames mirror the room's message topic; inbound frames send
// new messages on the caller's behalf. The connection closes when the
// client disconnects or the request context ends.
func (h *httpHandler) handleRoomSocket(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	roomID, err := chat.NewRoomID(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room_id"})
		return
	}
	if err := h.chat.JoinRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		h.logger.Error("room join failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "join_failed"})
		return
	}

	conn, err := roomSocketUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx := c.Request.Context()
	events, cancel := h.streams.Subscribe(ctx, live.RoomMessagesTopic(roomID.String()))
	defer cancel()

	// the event goroutine and the read loop below both produce frames;
	// gorilla allows one concurrent writer, so every write takes the lock
	var writeMu sync.Mutex
	writeFrame := func(frame socketOutbound) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(frame)
	}

	_ = writeFrame(socketOutbound{Type: "joined", DocID: roomID.String()})

	go func() {
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				if err := writeFrame(socketOutbound{
					Type:   "doc-change",
					Action: string(event.Action),
					DocID:  event.DocID,
				}); err != nil {
					return
				}
			}
		}
	}()

	author := chatAuthor(session)
	for {
		var inbound socketInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			conn.Close()
			return
		}
		message, err := h.chat.SendMessage(ctx, roomID, author, inbound.Body)
		if err != nil {
			reason := "send_failed"
			switch {
			case errors.Is(err, chat.ErrEmptyBody):
				reason = "empty_body"
			case errors.Is(err, chat.ErrRoomNotFound):
				reason = "room_not_found"
			default:
				h.logger.Error("socket message send failed",
					zap.String("room_id", roomID.String()), zap.Error(err))
			}
			_ = writeFrame(socketOutbound{Type: "error", Error: reason})
			continue
		}
		payload := messageToPayload(message)
		if err := writeFrame(socketOutbound{Type: "sent", DocID: message.MessageID, Message: &payload}); err != nil {
			conn.Close()
			return
		}
	}
}
