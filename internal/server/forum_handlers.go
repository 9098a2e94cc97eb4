package server

import (
	"errors"
	"net/http"

	"github.com/diredev/campushub/internal/auth"
	"github.com/diredev/campushub/internal/forum"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type discussionPayload struct {
	DiscussionID   string   `json:"discussion_id"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Tags           []string `json:"tags"`
	Category       string   `json:"category"`
	AuthorID       string   `json:"author_id"`
	AuthorName     string   `json:"author_name"`
	AuthorInitials string   `json:"author_initials"`
	Upvotes        int64    `json:"upvotes"`
	Downvotes      int64    `json:"downvotes"`
	Replies        int64    `json:"replies"`
	Views          int64    `json:"views"`
	Pinned         bool     `json:"pinned"`
	Solved         bool     `json:"solved"`
	CreatedAtS     int64    `json:"created_at_s"`
}

type commentPayload struct {
	CommentID      string `json:"comment_id"`
	DiscussionID   string `json:"discussion_id"`
	Body           string `json:"body"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name"`
	AuthorInitials string `json:"author_initials"`
	Upvotes        int64  `json:"upvotes"`
	CreatedAtS     int64  `json:"created_at_s"`
}

func discussionToPayload(discussion forum.Discussion) discussionPayload {
	tags := discussion.Tags()
	if tags == nil {
		tags = []string{}
	}
	return discussionPayload{
		DiscussionID:   discussion.DiscussionID,
		Title:          discussion.Title,
		Body:           discussion.Body,
		Tags:           tags,
		Category:       string(discussion.Category),
		AuthorID:       discussion.AuthorID,
		AuthorName:     discussion.AuthorName,
		AuthorInitials: discussion.AuthorInitials,
		Upvotes:        discussion.Upvotes,
		Downvotes:      discussion.Downvotes,
		Replies:        discussion.Replies,
		Views:          discussion.Views,
		Pinned:         discussion.Pinned,
		Solved:         discussion.Solved,
		CreatedAtS:     discussion.CreatedAtSeconds,
	}
}

func commentToPayload(comment forum.Comment) commentPayload {
	return commentPayload{
		CommentID:      comment.CommentID,
		DiscussionID:   comment.DiscussionID,
		Body:           comment.Body,
		AuthorID:       comment.AuthorID,
		AuthorName:     comment.AuthorName,
		AuthorInitials: comment.AuthorInitials,
		Upvotes:        comment.Upvotes,
		CreatedAtS:     comment.CreatedAtSeconds,
	}
}

func forumAuthor(session auth.Session) forum.Author {
	return forum.Author{
		UserID:      session.UserID,
		DisplayName: session.DisplayName,
		Initials:    session.Initials,
	}
}

func (h *httpHandler) handleListDiscussions(c *gin.Context) {
	filter := forum.ListFilter{
		Tag:    c.Query("tag"),
		Search: c.Query("search"),
	}
	if rawCategory := c.Query("category"); rawCategory != "" {
		category, err := forum.ParseCategory(rawCategory)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_category"})
			return
		}
		filter.Category = category
	}
	if c.Query("order") == string(forum.OrderPopular) {
		filter.Order = forum.OrderPopular
	}

	discussions, err := h.forum.ListDiscussions(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("discussion listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]discussionPayload, 0, len(discussions))
	for _, discussion := range discussions {
		payload = append(payload, discussionToPayload(discussion))
	}
	c.JSON(http.StatusOK, gin.H{"discussions": payload})
}

type createDiscussionPayload struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

func (h *httpHandler) handleCreateDiscussion(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	var request createDiscussionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	category, err := forum.ParseCategory(request.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_category"})
		return
	}
	discussion, err := h.forum.CreateDiscussion(c.Request.Context(), forumAuthor(session), forum.DiscussionDraft{
		Title:    request.Title,
		Body:     request.Body,
		Tags:     request.Tags,
		Category: category,
	})
	if err != nil {
		switch {
		case errors.Is(err, forum.ErrEmptyTitle), errors.Is(err, forum.ErrEmptyBody):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_draft"})
		default:
			h.logger.Error("discussion creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, discussionToPayload(discussion))
}

func (h *httpHandler) handleGetDiscussion(c *gin.Context) {
	discussionID, err := forum.NewDiscussionID(c.Param("discussionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_discussion_id"})
		return
	}
	discussion, err := h.forum.GetDiscussion(c.Request.Context(), discussionID)
	if err != nil {
		if errors.Is(err, forum.ErrDiscussionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion_not_found"})
			return
		}
		h.logger.Error("discussion fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_failed"})
		return
	}
	c.JSON(http.StatusOK, discussionToPayload(discussion))
}

type votePayload struct {
	Direction string `json:"direction"`
}

func (h *httpHandler) handleVoteDiscussion(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}
	discussionID, err := forum.NewDiscussionID(c.Param("discussionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_discussion_id"})
		return
	}
	var request votePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	direction, err := forum.ParseVoteDirection(request.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_direction"})
		return
	}
	if err := h.forum.Vote(c.Request.Context(), discussionID, direction); err != nil {
		if errors.Is(err, forum.ErrDiscussionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion_not_found"})
			return
		}
		h.logger.Error("discussion vote failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "vote_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": true})
}

func (h *httpHandler) handleTrackView(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	discussionID, err := forum.NewDiscussionID(c.Param("discussionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_discussion_id"})
		return
	}
	if err := h.forum.TrackView(c.Request.Context(), discussionID, session.UserID); err != nil {
		if errors.Is(err, forum.ErrDiscussionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion_not_found"})
			return
		}
		h.logger.Error("view tracking failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "view_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewed": true})
}

func (h *httpHandler) handleMarkSolved(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	discussionID, err := forum.NewDiscussionID(c.Param("discussionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_discussion_id"})
		return
	}
	if err := h.forum.MarkSolved(c.Request.Context(), discussionID, session.UserID); err != nil {
		switch {
		case errors.Is(err, forum.ErrDiscussionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion_not_found"})
		case errors.Is(err, forum.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		default:
			h.logger.Error("mark solved failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "solved_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"solved": true})
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	discussionID, err := forum.NewDiscussionID(c.Param("discussionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_discussion_id"})
		return
	}
	comments, err := h.forum.ListComments(c.Request.Context(), discussionID)
	if err != nil {
		h.logger.Error("comment listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]commentPayload, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, commentToPayload(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": payload})
}

type addCommentPayload struct {
	Body string `json:"body"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	discussionID, err := forum.NewDiscussionID(c.Param("discussionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_discussion_id"})
		return
	}
	var request addCommentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	comment, err := h.forum.AddComment(c.Request.Context(), discussionID, forumAuthor(session), request.Body)
	if err != nil {
		switch {
		case errors.Is(err, forum.ErrEmptyBody):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		case errors.Is(err, forum.ErrDiscussionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion_not_found"})
		default:
			h.logger.Error("comment creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "comment_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, commentToPayload(comment))
}

func (h *httpHandler) handleVoteComment(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}
	commentID, err := forum.NewCommentID(c.Param("commentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_comment_id"})
		return
	}
	if err := h.forum.VoteComment(c.Request.Context(), commentID); err != nil {
		if errors.Is(err, forum.ErrCommentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "comment_not_found"})
			return
		}
		h.logger.Error("comment vote failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "vote_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": true})
}
