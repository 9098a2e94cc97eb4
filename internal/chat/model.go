package chat

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190
const maxMessageLength = 4000

var (
	// ErrInvalidRoomID indicates a room identifier is empty or exceeds storage bounds.
	ErrInvalidRoomID = errors.New("chat: invalid room id")
	// ErrInvalidMessageID indicates a message identifier is empty or exceeds storage bounds.
	ErrInvalidMessageID = errors.New("chat: invalid message id")
	// ErrInvalidVisibility indicates an unknown room visibility value.
	ErrInvalidVisibility = errors.New("chat: invalid visibility")
	// ErrEmptyBody indicates a message body is empty after trimming.
	ErrEmptyBody = errors.New("chat: message body is empty")
	// ErrBodyTooLong indicates a message body exceeds the storage bound.
	ErrBodyTooLong = errors.New("chat: message body too long")
)

// RoomID represents a validated room identifier.
type RoomID string

// NewRoomID validates raw input and returns a RoomID.
func NewRoomID(rawInput string) (RoomID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRoomID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRoomID, maxIdentifierLength)
	}
	return RoomID(trimmed), nil
}

// String returns the underlying string identifier.
func (id RoomID) String() string {
	return string(id)
}

// MessageID represents a validated message identifier.
type MessageID string

// NewMessageID validates raw input and returns a MessageID.
func NewMessageID(rawInput string) (MessageID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMessageID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidMessageID, maxIdentifierLength)
	}
	return MessageID(trimmed), nil
}

// String returns the underlying string identifier.
func (id MessageID) String() string {
	return string(id)
}

// Visibility controls who can discover a room.
type Visibility string

const (
	// VisibilityPublic rooms are listed for every signed-in user.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate rooms are joined by invitation.
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility validates a raw visibility value.
func ParseVisibility(rawInput string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(VisibilityPublic), "":
		return VisibilityPublic, nil
	case string(VisibilityPrivate):
		return VisibilityPrivate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, rawInput)
	}
}

// Author identifies the writer of a message for attribution.
type Author struct {
	UserID      string
	DisplayName string
	Initials    string
}

// Room models a chat room. Rooms are never deleted; only the member
// count mutates after creation.
type Room struct {
	RoomID           string     `gorm:"column:room_id;primaryKey;size:190;not null"`
	Name             string     `gorm:"column:name;size:190;not null;uniqueIndex:idx_rooms_name"`
	Visibility       Visibility `gorm:"column:visibility;size:16;not null;default:'public'"`
	MemberCount      int64      `gorm:"column:member_count;not null;default:0"`
	CreatedAtSeconds int64      `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Room) TableName() string {
	return "chat_rooms"
}

// Message models one chat message. Creation time is assigned by the
// service clock at write time, never by the sending client, so message
// order stays monotone across clients with skewed clocks.
type Message struct {
	MessageID        string `gorm:"column:message_id;primaryKey;size:190;not null;index:idx_messages_room_created,priority:3"`
	RoomID           string `gorm:"column:room_id;size:190;not null;index:idx_messages_room_created,priority:1"`
	AuthorID         string `gorm:"column:author_id;size:190;not null"`
	AuthorName       string `gorm:"column:author_name;size:320;not null"`
	AuthorInitials   string `gorm:"column:author_initials;size:8;not null;default:''"`
	Body             string `gorm:"column:body;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_messages_room_created,priority:2"`
	Edited           bool   `gorm:"column:edited;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "chat_messages"
}

func validateBody(rawBody string) (string, error) {
	body := strings.TrimSpace(rawBody)
	if body == "" {
		return "", ErrEmptyBody
	}
	if len(body) > maxMessageLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrBodyTooLong, maxMessageLength)
	}
	return body, nil
}
