package server

import (
	"errors"
	"net/http"

	"github.com/diredev/campushub/internal/devtools"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type todoPayload struct {
	TodoID     string `json:"todo_id"`
	Text       string `json:"text"`
	Completed  bool   `json:"completed"`
	Priority   string `json:"priority"`
	CreatedAtS int64  `json:"created_at_s"`
}

type notePayload struct {
	NoteID     string `json:"note_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	CreatedAtS int64  `json:"created_at_s"`
	UpdatedAtS int64  `json:"updated_at_s"`
}

type timerPayload struct {
	Minutes      int    `json:"minutes"`
	Seconds      int    `json:"seconds"`
	Running      bool   `json:"running"`
	Mode         string `json:"mode"`
	WorkSessions int    `json:"work_sessions"`
}

func todoToPayload(todo devtools.Todo) todoPayload {
	return todoPayload{
		TodoID:     todo.TodoID,
		Text:       todo.Text,
		Completed:  todo.Completed,
		Priority:   string(todo.Priority),
		CreatedAtS: todo.CreatedAtSeconds,
	}
}

func noteToPayload(note devtools.Note) notePayload {
	return notePayload{
		NoteID:     note.NoteID,
		Title:      note.Title,
		Body:       note.Body,
		CreatedAtS: note.CreatedAtSeconds,
		UpdatedAtS: note.UpdatedAtSeconds,
	}
}

func (h *httpHandler) handleListTodos(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	todos, err := h.devtools.ListTodos(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Error("todo listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]todoPayload, 0, len(todos))
	for _, todo := range todos {
		payload = append(payload, todoToPayload(todo))
	}
	c.JSON(http.StatusOK, gin.H{"todos": payload})
}

type addTodoPayload struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

func (h *httpHandler) handleAddTodo(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	var request addTodoPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	priority, err := devtools.ParsePriority(request.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_priority"})
		return
	}
	todo, err := h.devtools.AddTodo(c.Request.Context(), session.UserID, request.Text, priority)
	if err != nil {
		if errors.Is(err, devtools.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_text"})
			return
		}
		h.logger.Error("todo creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}
	c.JSON(http.StatusCreated, todoToPayload(todo))
}

func (h *httpHandler) handleToggleTodo(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	todoID, err := devtools.NewTodoID(c.Param("todoID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_todo_id"})
		return
	}
	todo, err := h.devtools.ToggleTodo(c.Request.Context(), todoID, session.UserID)
	if err != nil {
		switch {
		case errors.Is(err, devtools.ErrTodoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "todo_not_found"})
		case errors.Is(err, devtools.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("todo toggle failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, todoToPayload(todo))
}

func (h *httpHandler) handleDeleteTodo(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	todoID, err := devtools.NewTodoID(c.Param("todoID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_todo_id"})
		return
	}
	if err := h.devtools.DeleteTodo(c.Request.Context(), todoID, session.UserID); err != nil {
		switch {
		case errors.Is(err, devtools.ErrTodoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "todo_not_found"})
		case errors.Is(err, devtools.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("todo delete failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	notes, err := h.devtools.ListNotes(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Error("note listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]notePayload, 0, len(notes))
	for _, note := range notes {
		payload = append(payload, noteToPayload(note))
	}
	c.JSON(http.StatusOK, gin.H{"notes": payload})
}

type notePutPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	var request notePutPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	note, err := h.devtools.CreateNote(c.Request.Context(), session.UserID, request.Title, request.Body)
	if err != nil {
		if errors.Is(err, devtools.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_title"})
			return
		}
		h.logger.Error("note creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}
	c.JSON(http.StatusCreated, noteToPayload(note))
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	noteID, err := devtools.NewNoteID(c.Param("noteID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}
	note, err := h.devtools.GetNote(c.Request.Context(), noteID, session.UserID)
	if err != nil {
		switch {
		case errors.Is(err, devtools.ErrNoteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "note_not_found"})
		case errors.Is(err, devtools.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("note fetch failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, noteToPayload(note))
}

func (h *httpHandler) handleSaveNote(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	noteID, err := devtools.NewNoteID(c.Param("noteID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}
	var request notePutPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	note, err := h.devtools.SaveNote(c.Request.Context(), noteID, session.UserID, request.Title, request.Body)
	if err != nil {
		switch {
		case errors.Is(err, devtools.ErrEmptyText):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_title"})
		case errors.Is(err, devtools.ErrNoteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "note_not_found"})
		case errors.Is(err, devtools.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("note save failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, noteToPayload(note))
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	noteID, err := devtools.NewNoteID(c.Param("noteID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}
	if err := h.devtools.DeleteNote(c.Request.Context(), noteID, session.UserID); err != nil {
		switch {
		case errors.Is(err, devtools.ErrNoteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "note_not_found"})
		case errors.Is(err, devtools.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("note delete failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleLoadTimer(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	snapshot, err := h.devtools.LoadTimer(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Error("timer load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	c.JSON(http.StatusOK, timerPayload{
		Minutes:      snapshot.Minutes,
		Seconds:      snapshot.Seconds,
		Running:      snapshot.Running,
		Mode:         string(snapshot.Mode),
		WorkSessions: snapshot.WorkSessions,
	})
}

func (h *httpHandler) handleSaveTimer(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	var request timerPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	mode, err := devtools.ParseTimerMode(request.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_mode"})
		return
	}
	snapshot := devtools.TimerSnapshot{
		Minutes:      request.Minutes,
		Seconds:      request.Seconds,
		Running:      request.Running,
		Mode:         mode,
		WorkSessions: request.WorkSessions,
	}
	if err := h.devtools.SaveTimer(c.Request.Context(), session.UserID, snapshot); err != nil {
		h.logger.Error("timer save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}
