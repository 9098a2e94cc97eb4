package forum

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190
const maxTagCount = 8

var (
	// ErrInvalidDiscussionID indicates a discussion identifier is empty or too long.
	ErrInvalidDiscussionID = errors.New("forum: invalid discussion id")
	// ErrInvalidCommentID indicates a comment identifier is empty or too long.
	ErrInvalidCommentID = errors.New("forum: invalid comment id")
	// ErrInvalidCategory indicates an unknown discussion category.
	ErrInvalidCategory = errors.New("forum: invalid category")
	// ErrInvalidVoteDirection indicates a vote that is neither up nor down.
	ErrInvalidVoteDirection = errors.New("forum: invalid vote direction")
)

// DiscussionID represents a validated discussion identifier.
type DiscussionID string

// NewDiscussionID validates raw input and returns a DiscussionID.
func NewDiscussionID(rawInput string) (DiscussionID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDiscussionID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDiscussionID, maxIdentifierLength)
	}
	return DiscussionID(trimmed), nil
}

// String returns the underlying string identifier.
func (id DiscussionID) String() string {
	return string(id)
}

// CommentID represents a validated comment identifier.
type CommentID string

// NewCommentID validates raw input and returns a CommentID.
func NewCommentID(rawInput string) (CommentID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCommentID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidCommentID, maxIdentifierLength)
	}
	return CommentID(trimmed), nil
}

// String returns the underlying string identifier.
func (id CommentID) String() string {
	return string(id)
}

// Category buckets discussions for the sidebar filters.
type Category string

const (
	CategoryProgramming Category = "programming"
	CategoryMathematics Category = "mathematics"
	CategoryHelp        Category = "help"
	CategoryProjects    Category = "projects"
	CategoryGeneral     Category = "general"
)

// ParseCategory validates a raw category value, defaulting to general.
func ParseCategory(rawInput string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(CategoryProgramming):
		return CategoryProgramming, nil
	case string(CategoryMathematics):
		return CategoryMathematics, nil
	case string(CategoryHelp):
		return CategoryHelp, nil
	case string(CategoryProjects):
		return CategoryProjects, nil
	case string(CategoryGeneral), "":
		return CategoryGeneral, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, rawInput)
	}
}

// VoteDirection names the counter a vote increments. Up and down votes
// are independent monotone counters; neither is ever decremented.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVoteDirection validates a raw vote direction.
func ParseVoteDirection(rawInput string) (VoteDirection, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(VoteUp):
		return VoteUp, nil
	case string(VoteDown):
		return VoteDown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVoteDirection, rawInput)
	}
}

// ListOrder selects how ListDiscussions sorts its result.
type ListOrder string

const (
	// OrderRecent sorts by descending creation time.
	OrderRecent ListOrder = "recent"
	// OrderPopular sorts by descending net votes.
	OrderPopular ListOrder = "popular"
)

// Discussion models a forum thread. All counters are monotone and are
// only ever changed through atomic in-database increments.
type Discussion struct {
	DiscussionID     string   `gorm:"column:discussion_id;primaryKey;size:190;not null"`
	Title            string   `gorm:"column:title;size:320;not null"`
	Body             string   `gorm:"column:body;type:text;not null"`
	TagsCSV          string   `gorm:"column:tags_csv;size:512;not null;default:''"`
	Category         Category `gorm:"column:category;size:32;not null;index:idx_discussions_category"`
	AuthorID         string   `gorm:"column:author_id;size:190;not null"`
	AuthorName       string   `gorm:"column:author_name;size:320;not null"`
	AuthorInitials   string   `gorm:"column:author_initials;size:8;not null;default:''"`
	Upvotes          int64    `gorm:"column:upvotes;not null;default:0"`
	Downvotes        int64    `gorm:"column:downvotes;not null;default:0"`
	Replies          int64    `gorm:"column:replies;not null;default:0"`
	Views            int64    `gorm:"column:views;not null;default:0"`
	Pinned           bool     `gorm:"column:pinned;not null;default:false"`
	Solved           bool     `gorm:"column:solved;not null;default:false"`
	CreatedAtSeconds int64    `gorm:"column:created_at_s;not null;index:idx_discussions_created"`
}

// TableName provides the explicit table binding for GORM.
func (Discussion) TableName() string {
	return "forum_discussions"
}

// Tags splits the stored comma-separated tag set.
func (d Discussion) Tags() []string {
	if d.TagsCSV == "" {
		return nil
	}
	parts := strings.Split(d.TagsCSV, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeTags trims, deduplicates and bounds a raw tag list.
func NormalizeTags(rawTags []string) []string {
	seen := make(map[string]struct{}, len(rawTags))
	tags := make([]string, 0, len(rawTags))
	for _, raw := range rawTags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, duplicate := seen[tag]; duplicate {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxTagCount {
			break
		}
	}
	return tags
}

// Comment models a reply inside one discussion. Comments are ordered
// by ascending creation time with identifier tie-break.
type Comment struct {
	CommentID        string `gorm:"column:comment_id;primaryKey;size:190;not null;index:idx_comments_discussion,priority:3"`
	DiscussionID     string `gorm:"column:discussion_id;size:190;not null;index:idx_comments_discussion,priority:1"`
	Body             string `gorm:"column:body;type:text;not null"`
	AuthorID         string `gorm:"column:author_id;size:190;not null"`
	AuthorName       string `gorm:"column:author_name;size:320;not null"`
	AuthorInitials   string `gorm:"column:author_initials;size:8;not null;default:''"`
	Upvotes          int64  `gorm:"column:upvotes;not null;default:0"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_comments_discussion,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "forum_comments"
}

// ViewMarker records that a user already counted a view on a
// discussion, so reloading a thread does not inflate its view counter.
type ViewMarker struct {
	DiscussionID    string `gorm:"column:discussion_id;primaryKey;size:190;not null"`
	UserID          string `gorm:"column:user_id;primaryKey;size:190;not null"`
	MarkedAtSeconds int64  `gorm:"column:marked_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ViewMarker) TableName() string {
	return "forum_view_markers"
}
