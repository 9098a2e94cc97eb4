package server

import (
	"errors"
	"net/http"

	"github.com/diredev/campushub/internal/auth"
	"github.com/diredev/campushub/internal/chat"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type roomPayload struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Visibility  string `json:"visibility"`
	MemberCount int64  `json:"member_count"`
	CreatedAtS  int64  `json:"created_at_s"`
}

type messagePayload struct {
	MessageID      string `json:"message_id"`
	RoomID         string `json:"room_id"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name"`
	AuthorInitials string `json:"author_initials"`
	Body           string `json:"body"`
	CreatedAtS     int64  `json:"created_at_s"`
	Edited         bool   `json:"edited"`
}

func roomToPayload(room chat.Room) roomPayload {
	return roomPayload{
		RoomID:      room.RoomID,
		Name:        room.Name,
		Visibility:  string(room.Visibility),
		MemberCount: room.MemberCount,
		CreatedAtS:  room.CreatedAtSeconds,
	}
}

func messageToPayload(message chat.Message) messagePayload {
	return messagePayload{
		MessageID:      message.MessageID,
		RoomID:         message.RoomID,
		AuthorID:       message.AuthorID,
		AuthorName:     message.AuthorName,
		AuthorInitials: message.AuthorInitials,
		Body:           message.Body,
		CreatedAtS:     message.CreatedAtSeconds,
		Edited:         message.Edited,
	}
}

func chatAuthor(session auth.Session) chat.Author {
	return chat.Author{
		UserID:      session.UserID,
		DisplayName: session.DisplayName,
		Initials:    session.Initials,
	}
}

func (h *httpHandler) handleListRooms(c *gin.Context) {
	rooms, err := h.chat.ListRooms(c.Request.Context())
	if err != nil {
		h.logger.Error("room listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]roomPayload, 0, len(rooms))
	for _, room := range rooms {
		payload = append(payload, roomToPayload(room))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": payload})
}

type createRoomPayload struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

func (h *httpHandler) handleCreateRoom(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}
	var request createRoomPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	visibility, err := chat.ParseVisibility(request.Visibility)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_visibility"})
		return
	}
	room, err := h.chat.CreateRoom(c.Request.Context(), request.Name, visibility)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyRoomName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_name"})
		case errors.Is(err, chat.ErrRoomExists):
			c.JSON(http.StatusConflict, gin.H{"error": "room_exists"})
		default:
			h.logger.Error("room creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, roomToPayload(room))
}

func (h *httpHandler) handleJoinRoom(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
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
	c.JSON(http.StatusOK, gin.H{"joined": true})
}

func (h *httpHandler) handleListMessages(c *gin.Context) {
	roomID, err := chat.NewRoomID(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room_id"})
		return
	}
	messages, err := h.chat.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("message listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payload = append(payload, messageToPayload(message))
	}
	c.JSON(http.StatusOK, gin.H{"messages": payload})
}

type sendMessagePayload struct {
	Body string `json:"body"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	roomID, err := chat.NewRoomID(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room_id"})
		return
	}
	var request sendMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	message, err := h.chat.SendMessage(c.Request.Context(), roomID, chatAuthor(session), request.Body)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyBody), errors.Is(err, chat.ErrBodyTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		case errors.Is(err, chat.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
		default:
			h.logger.Error("message send failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "send_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, messageToPayload(message))
}

type editMessagePayload struct {
	Body string `json:"body"`
}

func (h *httpHandler) handleEditMessage(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	messageID, err := chat.NewMessageID(c.Param("messageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message_id"})
		return
	}
	var request editMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	message, err := h.chat.EditMessage(c.Request.Context(), messageID, session.UserID, request.Body)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyBody), errors.Is(err, chat.ErrBodyTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		case errors.Is(err, chat.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message_not_found"})
		case errors.Is(err, chat.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("message edit failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "edit_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, messageToPayload(message))
}

func (h *httpHandler) handleDeleteMessage(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	messageID, err := chat.NewMessageID(c.Param("messageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message_id"})
		return
	}
	if err := h.chat.DeleteMessage(c.Request.Context(), messageID, session.UserID); err != nil {
		switch {
		case errors.Is(err, chat.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message_not_found"})
		case errors.Is(err, chat.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("message delete failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
