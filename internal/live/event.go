package live

import "time"

// Action describes how a document changed inside a watched collection.
type Action string

const (
	// ActionAdded signals a document newly matching the topic.
	ActionAdded Action = "added"
	// ActionModified signals an in-place update of a matching document.
	ActionModified Action = "modified"
	// ActionRemoved signals a document leaving the topic.
	ActionRemoved Action = "removed"
)

// Event is a change notification published after a mutation commits.
// It carries identity only; subscribers reload the collection they watch
// rather than patching local copies from event payloads.
type Event struct {
	Topic     string
	Action    Action
	DocID     string
	Timestamp time.Time
}

// Topic names for the collections served by the platform. Topics that
// are scoped to a parent document or owner are built through the
// helper functions below.
const (
	TopicRooms       = "chat.rooms"
	TopicDiscussions = "forum.discussions"
	TopicMaterials   = "materials"
)

// RoomMessagesTopic scopes message events to a single chat room.
func RoomMessagesTopic(roomID string) string {
	return "chat.messages:" + roomID
}

// DiscussionCommentsTopic scopes comment events to one discussion.
func DiscussionCommentsTopic(discussionID string) string {
	return "forum.comments:" + discussionID
}

// TodosTopic scopes todo events to their owning user.
func TodosTopic(userID string) string {
	return "devtools.todos:" + userID
}

// NotesTopic scopes note events to their owning user.
func NotesTopic(userID string) string {
	return "devtools.notes:" + userID
}

// TimerTopic scopes timer mirror events to their owning user.
func TimerTopic(userID string) string {
	return "devtools.timer:" + userID
}
