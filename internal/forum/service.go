package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diredev/campushub/internal/ids"
	"github.com/diredev/campushub/internal/live"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingDispatcher = errors.New("dispatcher is required")
	noOpLogger           = zap.NewNop()

	// ErrDiscussionNotFound indicates the referenced discussion does not exist.
	ErrDiscussionNotFound = errors.New("forum: discussion not found")
	// ErrCommentNotFound indicates the referenced comment does not exist.
	ErrCommentNotFound = errors.New("forum: comment not found")
	// ErrNotOwner indicates the caller does not own the discussion.
	ErrNotOwner = errors.New("forum: caller is not the author")
	// ErrEmptyTitle indicates a discussion title is empty after trimming.
	ErrEmptyTitle = errors.New("forum: title is empty")
	// ErrEmptyBody indicates a discussion or comment body is empty after trimming.
	ErrEmptyBody = errors.New("forum: body is empty")
	// ErrMissingAuthor indicates a write is missing its author identity.
	ErrMissingAuthor = errors.New("forum: author identity is required")
)

// ServiceError wraps a failure with an operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "forum.service.new"
	opCreateDiscussion = "forum.create_discussion"
	opListDiscussions  = "forum.list_discussions"
	opGetDiscussion    = "forum.get_discussion"
	opAddComment       = "forum.add_comment"
	opListComments     = "forum.list_comments"
	opVote             = "forum.vote"
	opVoteComment      = "forum.vote_comment"
	opTrackView        = "forum.track_view"
	opMarkSolved       = "forum.mark_solved"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// Author identifies the writer of a discussion or comment.
type Author struct {
	UserID      string
	DisplayName string
	Initials    string
}

// DiscussionDraft carries the caller-supplied fields of a new thread.
type DiscussionDraft struct {
	Title    string
	Body     string
	Tags     []string
	Category Category
}

// ListFilter narrows and orders a discussion listing.
type ListFilter struct {
	Category Category
	Tag      string
	Search   string
	Order    ListOrder
}

// ServiceConfig describes the dependencies of the forum service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Dispatcher *live.Dispatcher
	Logger     *zap.Logger
}

// Service owns discussions and comments. Vote, view and reply counters
// only move through atomic in-database increments; a read-modify-write
// of a counter from a stale copy is a lost-update bug under concurrent
// voters and never appears here.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ids.Provider
	dispatcher *live.Dispatcher
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Dispatcher == nil {
		return nil, newServiceError(opServiceNew, "missing_dispatcher", errMissingDispatcher)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}, nil
}

// CreateDiscussion stores a new thread with zeroed counters.
func (s *Service) CreateDiscussion(ctx context.Context, author Author, draft DiscussionDraft) (Discussion, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Discussion{}, ErrEmptyTitle
	}
	body := strings.TrimSpace(draft.Body)
	if body == "" {
		return Discussion{}, ErrEmptyBody
	}
	if author.UserID == "" {
		return Discussion{}, ErrMissingAuthor
	}
	category := draft.Category
	if category == "" {
		category = CategoryGeneral
	}
	if _, err := ParseCategory(string(category)); err != nil {
		return Discussion{}, err
	}

	discussionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateDiscussion, "id_generation_failed", err)
		return Discussion{}, newServiceError(opCreateDiscussion, "id_generation_failed", err)
	}

	discussion := Discussion{
		DiscussionID:     discussionID,
		Title:            title,
		Body:             body,
		TagsCSV:          strings.Join(NormalizeTags(draft.Tags), ","),
		Category:         category,
		AuthorID:         author.UserID,
		AuthorName:       author.DisplayName,
		AuthorInitials:   author.Initials,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&discussion).Error; err != nil {
		s.logError(opCreateDiscussion, "insert_failed", err)
		return Discussion{}, newServiceError(opCreateDiscussion, "insert_failed", err)
	}

	s.publish(live.TopicDiscussions, live.ActionAdded, discussion.DiscussionID)
	return discussion, nil
}

// ListDiscussions returns threads matching the filter. Pinned threads
// sort first regardless of the requested order.
func (s *Service) ListDiscussions(ctx context.Context, filter ListFilter) ([]Discussion, error) {
	query := s.db.WithContext(ctx).Model(&Discussion{})
	if filter.Category != "" {
		query = query.Where("category = ?", string(filter.Category))
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("(',' || tags_csv || ',') LIKE ?", "%,"+tag+",%")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR body LIKE ?", pattern, pattern)
	}
	switch filter.Order {
	case OrderPopular:
		query = query.Order("pinned DESC, (upvotes - downvotes) DESC, created_at_s DESC, discussion_id ASC")
	default:
		query = query.Order("pinned DESC, created_at_s DESC, discussion_id ASC")
	}

	var discussions []Discussion
	if err := query.Find(&discussions).Error; err != nil {
		s.logError(opListDiscussions, "query_failed", err)
		return nil, newServiceError(opListDiscussions, "query_failed", err)
	}
	return discussions, nil
}

// GetDiscussion fetches a single thread.
func (s *Service) GetDiscussion(ctx context.Context, discussionID DiscussionID) (Discussion, error) {
	var discussion Discussion
	err := s.db.WithContext(ctx).
		Where("discussion_id = ?", discussionID.String()).
		Take(&discussion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Discussion{}, ErrDiscussionNotFound
	}
	if err != nil {
		s.logError(opGetDiscussion, "query_failed", err, zap.String("discussion_id", discussionID.String()))
		return Discussion{}, newServiceError(opGetDiscussion, "query_failed", err)
	}
	return discussion, nil
}

// AddComment stores a reply and bumps the thread's reply counter in
// the same transaction.
func (s *Service) AddComment(ctx context.Context, discussionID DiscussionID, author Author, rawBody string) (Comment, error) {
	body := strings.TrimSpace(rawBody)
	if body == "" {
		return Comment{}, ErrEmptyBody
	}
	if author.UserID == "" {
		return Comment{}, ErrMissingAuthor
	}

	commentID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddComment, "id_generation_failed", err)
		return Comment{}, newServiceError(opAddComment, "id_generation_failed", err)
	}

	comment := Comment{
		CommentID:        commentID,
		DiscussionID:     discussionID.String(),
		Body:             body,
		AuthorID:         author.UserID,
		AuthorName:       author.DisplayName,
		AuthorInitials:   author.Initials,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Discussion{}).
			Where("discussion_id = ?", discussionID.String()).
			UpdateColumn("replies", gorm.Expr("replies + ?", 1))
		if result.Error != nil {
			return newServiceError(opAddComment, "reply_count_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrDiscussionNotFound
		}
		if err := tx.Create(&comment).Error; err != nil {
			return newServiceError(opAddComment, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrDiscussionNotFound) {
			s.logError(opAddComment, "transaction_failed", txErr, zap.String("discussion_id", discussionID.String()))
		}
		return Comment{}, txErr
	}

	s.publish(live.DiscussionCommentsTopic(discussionID.String()), live.ActionAdded, comment.CommentID)
	s.publish(live.TopicDiscussions, live.ActionModified, discussionID.String())
	return comment, nil
}

// ListComments returns a thread's comments in ascending creation
// order, comment identifier breaking timestamp ties.
func (s *Service) ListComments(ctx context.Context, discussionID DiscussionID) ([]Comment, error) {
	var comments []Comment
	if err := s.db.WithContext(ctx).
		Where("discussion_id = ?", discussionID.String()).
		Order("created_at_s ASC, comment_id ASC").
		Find(&comments).Error; err != nil {
		s.logError(opListComments, "query_failed", err, zap.String("discussion_id", discussionID.String()))
		return nil, newServiceError(opListComments, "query_failed", err)
	}
	return comments, nil
}

// Vote bumps one of the thread's vote counters atomically.
func (s *Service) Vote(ctx context.Context, discussionID DiscussionID, direction VoteDirection) error {
	column := "upvotes"
	if direction == VoteDown {
		column = "downvotes"
	} else if direction != VoteUp {
		return fmt.Errorf("%w: %q", ErrInvalidVoteDirection, direction)
	}

	result := s.db.WithContext(ctx).Model(&Discussion{}).
		Where("discussion_id = ?", discussionID.String()).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		s.logError(opVote, "update_failed", result.Error, zap.String("discussion_id", discussionID.String()))
		return newServiceError(opVote, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDiscussionNotFound
	}
	s.publish(live.TopicDiscussions, live.ActionModified, discussionID.String())
	return nil
}

// VoteComment bumps a comment's upvote counter atomically.
func (s *Service) VoteComment(ctx context.Context, commentID CommentID) error {
	var comment Comment
	err := s.db.WithContext(ctx).
		Select("discussion_id").
		Where("comment_id = ?", commentID.String()).
		Take(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		s.logError(opVoteComment, "select_failed", err, zap.String("comment_id", commentID.String()))
		return newServiceError(opVoteComment, "select_failed", err)
	}

	result := s.db.WithContext(ctx).Model(&Comment{}).
		Where("comment_id = ?", commentID.String()).
		UpdateColumn("upvotes", gorm.Expr("upvotes + ?", 1))
	if result.Error != nil {
		s.logError(opVoteComment, "update_failed", result.Error, zap.String("comment_id", commentID.String()))
		return newServiceError(opVoteComment, "update_failed", result.Error)
	}
	s.publish(live.DiscussionCommentsTopic(comment.DiscussionID), live.ActionModified, commentID.String())
	return nil
}

// TrackView counts one view per user per discussion. The marker row
// makes the once-only rule hold across sessions and reloads.
func (s *Service) TrackView(ctx context.Context, discussionID DiscussionID, userID string) error {
	if userID == "" {
		return ErrMissingAuthor
	}

	marker := ViewMarker{
		DiscussionID:    discussionID.String(),
		UserID:          userID,
		MarkedAtSeconds: s.clock().UTC().Unix(),
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&marker).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Already counted for this user.
				return nil
			}
			return newServiceError(opTrackView, "marker_insert_failed", err)
		}
		result := tx.Model(&Discussion{}).
			Where("discussion_id = ?", discussionID.String()).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if result.Error != nil {
			return newServiceError(opTrackView, "view_count_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrDiscussionNotFound
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrDiscussionNotFound) {
			s.logError(opTrackView, "transaction_failed", txErr, zap.String("discussion_id", discussionID.String()))
		}
		return txErr
	}

	s.publish(live.TopicDiscussions, live.ActionModified, discussionID.String())
	return nil
}

// MarkSolved flags a thread as solved. Only the author may do so.
func (s *Service) MarkSolved(ctx context.Context, discussionID DiscussionID, requesterID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var discussion Discussion
		if err := tx.Where("discussion_id = ?", discussionID.String()).Take(&discussion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDiscussionNotFound
			}
			return newServiceError(opMarkSolved, "select_failed", err)
		}
		if discussion.AuthorID != requesterID {
			return ErrNotOwner
		}
		return tx.Model(&Discussion{}).
			Where("discussion_id = ?", discussionID.String()).
			UpdateColumn("solved", true).Error
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrDiscussionNotFound) && !errors.Is(txErr, ErrNotOwner) {
			s.logError(opMarkSolved, "transaction_failed", txErr, zap.String("discussion_id", discussionID.String()))
		}
		return txErr
	}

	s.publish(live.TopicDiscussions, live.ActionModified, discussionID.String())
	return nil
}

func (s *Service) publish(topic string, action live.Action, docID string) {
	s.dispatcher.Publish(live.Event{
		Topic:     topic,
		Action:    action,
		DocID:     docID,
		Timestamp: s.clock().UTC(),
	})
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("forum service error", attrs...)
}
