package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diredev/campushub/internal/auth"
	"github.com/diredev/campushub/internal/chat"
	"github.com/diredev/campushub/internal/devtools"
	"github.com/diredev/campushub/internal/forum"
	"github.com/diredev/campushub/internal/live"
	"github.com/diredev/campushub/internal/materials"
	"github.com/diredev/campushub/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionContextKey = "campushub_session"

var (
	errMissingGoogleVerifier   = errors.New("google verifier dependency required")
	errMissingTokenIssuer      = errors.New("token issuer dependency required")
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingChatService      = errors.New("chat service dependency required")
	errMissingForumService     = errors.New("forum service dependency required")
	errMissingDevToolsService  = errors.New("devtools service dependency required")
	errMissingMaterialsService = errors.New("materials service dependency required")
	errMissingDispatcher       = errors.New("dispatcher dependency required")
)

// GoogleVerifier checks provider ID tokens during sign-in.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (auth.GoogleClaims, error)
}

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	GoogleVerifier   GoogleVerifier
	TokenIssuer      *auth.TokenIssuer
	SessionValidator *auth.SessionValidator
	UsersService     *users.Service
	ChatService      *chat.Service
	ForumService     *forum.Service
	DevToolsService  *devtools.Service
	MaterialsService *materials.Service
	Dispatcher       *live.Dispatcher
	Logger           *zap.Logger
}

// NewHTTPHandler validates the dependencies and builds the router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.GoogleVerifier == nil {
		return nil, errMissingGoogleVerifier
	}
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.SessionValidator == nil {
		return nil, errMissingSessionValidator
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.ChatService == nil {
		return nil, errMissingChatService
	}
	if deps.ForumService == nil {
		return nil, errMissingForumService
	}
	if deps.DevToolsService == nil {
		return nil, errMissingDevToolsService
	}
	if deps.MaterialsService == nil {
		return nil, errMissingMaterialsService
	}
	if deps.Dispatcher == nil {
		return nil, errMissingDispatcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		verifier:  deps.GoogleVerifier,
		tokens:    deps.TokenIssuer,
		sessions:  deps.SessionValidator,
		users:     deps.UsersService,
		chat:      deps.ChatService,
		forum:     deps.ForumService,
		devtools:  deps.DevToolsService,
		materials: deps.MaterialsService,
		streams:   deps.Dispatcher,
		logger:    logger,
	}

	router.POST("/auth/google", handler.handleGoogleAuth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	{
		protected.GET("/chat/rooms", handler.handleListRooms)
		protected.POST("/chat/rooms", handler.handleCreateRoom)
		protected.POST("/chat/rooms/:roomID/join", handler.handleJoinRoom)
		protected.GET("/chat/rooms/:roomID/messages", handler.handleListMessages)
		protected.POST("/chat/rooms/:roomID/messages", handler.handleSendMessage)
		protected.PATCH("/chat/messages/:messageID", handler.handleEditMessage)
		protected.DELETE("/chat/messages/:messageID", handler.handleDeleteMessage)
		protected.GET("/chat/rooms/:roomID/ws", handler.handleRoomSocket)

		protected.GET("/forum/discussions", handler.handleListDiscussions)
		protected.POST("/forum/discussions", handler.handleCreateDiscussion)
		protected.GET("/forum/discussions/:discussionID", handler.handleGetDiscussion)
		protected.POST("/forum/discussions/:discussionID/vote", handler.handleVoteDiscussion)
		protected.POST("/forum/discussions/:discussionID/view", handler.handleTrackView)
		protected.POST("/forum/discussions/:discussionID/solved", handler.handleMarkSolved)
		protected.GET("/forum/discussions/:discussionID/comments", handler.handleListComments)
		protected.POST("/forum/discussions/:discussionID/comments", handler.handleAddComment)
		protected.POST("/forum/comments/:commentID/vote", handler.handleVoteComment)

		protected.GET("/devtools/todos", handler.handleListTodos)
		protected.POST("/devtools/todos", handler.handleAddTodo)
		protected.POST("/devtools/todos/:todoID/toggle", handler.handleToggleTodo)
		protected.DELETE("/devtools/todos/:todoID", handler.handleDeleteTodo)

		protected.GET("/devtools/notes", handler.handleListNotes)
		protected.POST("/devtools/notes", handler.handleCreateNote)
		protected.GET("/devtools/notes/:noteID", handler.handleGetNote)
		protected.PUT("/devtools/notes/:noteID", handler.handleSaveNote)
		protected.DELETE("/devtools/notes/:noteID", handler.handleDeleteNote)

		protected.GET("/devtools/timer", handler.handleLoadTimer)
		protected.PUT("/devtools/timer", handler.handleSaveTimer)

		protected.GET("/materials", handler.handleListMaterials)
		protected.POST("/materials", handler.handleShareMaterial)
		protected.POST("/materials/:materialID/download", handler.handleRecordDownload)
		protected.POST("/materials/:materialID/rate", handler.handleRateMaterial)

		protected.GET("/live/stream", handler.handleLiveStream)
	}

	return router, nil
}

type httpHandler struct {
	verifier  GoogleVerifier
	tokens    *auth.TokenIssuer
	sessions  *auth.SessionValidator
	users     *users.Service
	chat      *chat.Service
	forum     *forum.Service
	devtools  *devtools.Service
	materials *materials.Service
	streams   *live.Dispatcher
	logger    *zap.Logger
}

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials"`
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("google token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := h.users.ResolveProfile(claims)
	if err != nil {
		h.logger.Error("identity resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity_resolution_failed"})
		return
	}

	session := auth.Session{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		Initials:    profile.Initials,
	}
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), session)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		Initials:    profile.Initials,
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	session, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(sessionContextKey, session)
	c.Next()
}

func (h *httpHandler) sessionFrom(c *gin.Context) (auth.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return auth.Session{}, false
	}
	session, ok := value.(auth.Session)
	if !ok || session.UserID == "" {
		return auth.Session{}, false
	}
	return session, true
}

// requireSession resolves the request session or writes a 401.
func (h *httpHandler) requireSession(c *gin.Context) (auth.Session, bool) {
	session, ok := h.sessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return session, ok
}
