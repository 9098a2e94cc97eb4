package chat

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

	// ErrRoomNotFound indicates the referenced room does not exist.
	ErrRoomNotFound = errors.New("chat: room not found")
	// ErrRoomExists indicates a room with the same name already exists.
	ErrRoomExists = errors.New("chat: room already exists")
	// ErrMessageNotFound indicates the referenced message does not exist.
	ErrMessageNotFound = errors.New("chat: message not found")
	// ErrNotOwner indicates the caller does not own the message.
	ErrNotOwner = errors.New("chat: caller is not the message author")
	// ErrEmptyRoomName indicates a room name is empty after trimming.
	ErrEmptyRoomName = errors.New("chat: room name is empty")
	// ErrMissingAuthor indicates a message is missing its author identity.
	ErrMissingAuthor = errors.New("chat: author identity is required")
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
	opServiceNew   = "chat.service.new"
	opCreateRoom   = "chat.create_room"
	opListRooms    = "chat.list_rooms"
	opJoinRoom     = "chat.join_room"
	opSendMessage  = "chat.send_message"
	opListMessages = "chat.list_messages"
	opEditMessage  = "chat.edit_message"
	opDelMessage   = "chat.delete_message"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the chat service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Dispatcher *live.Dispatcher
	Logger     *zap.Logger
}

// Service owns rooms and messages. Every mutation commits to storage
// first and then publishes a change event; readers observe new state
// only through the next snapshot of their live binding.
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

// defaultRooms are seeded once so the platform is never empty on first load.
var defaultRooms = []struct {
	name       string
	visibility Visibility
}{
	{name: "General", visibility: VisibilityPublic},
	{name: "Programming", visibility: VisibilityPublic},
	{name: "Mathematics", visibility: VisibilityPublic},
	{name: "Engineering", visibility: VisibilityPublic},
	{name: "Study Group", visibility: VisibilityPrivate},
}

// EnsureDefaultRooms seeds the default room set when no rooms exist yet.
func (s *Service) EnsureDefaultRooms(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Room{}).Count(&count).Error; err != nil {
		return newServiceError(opCreateRoom, "count_failed", err)
	}
	if count > 0 {
		return nil
	}
	for _, seed := range defaultRooms {
		if _, err := s.CreateRoom(ctx, seed.name, seed.visibility); err != nil && !errors.Is(err, ErrRoomExists) {
			return err
		}
	}
	return nil
}

// CreateRoom registers a new room with a zero member count.
func (s *Service) CreateRoom(ctx context.Context, rawName string, visibility Visibility) (Room, error) {
	name, err := validateRoomName(rawName)
	if err != nil {
		return Room{}, err
	}
	if visibility != VisibilityPublic && visibility != VisibilityPrivate {
		return Room{}, fmt.Errorf("%w: %q", ErrInvalidVisibility, visibility)
	}

	roomID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateRoom, "id_generation_failed", err)
		return Room{}, newServiceError(opCreateRoom, "id_generation_failed", err)
	}

	room := Room{
		RoomID:           roomID,
		Name:             name,
		Visibility:       visibility,
		MemberCount:      0,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Room{}, ErrRoomExists
		}
		s.logError(opCreateRoom, "insert_failed", err, zap.String("room_name", name))
		return Room{}, newServiceError(opCreateRoom, "insert_failed", err)
	}

	s.publish(live.TopicRooms, live.ActionAdded, room.RoomID)
	return room, nil
}

// ListRooms returns every room ordered by creation time, identifier
// breaking ties.
func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := s.db.WithContext(ctx).
		Order("created_at_s ASC, room_id ASC").
		Find(&rooms).Error; err != nil {
		s.logError(opListRooms, "query_failed", err)
		return nil, newServiceError(opListRooms, "query_failed", err)
	}
	return rooms, nil
}

// JoinRoom bumps the room's member count with an atomic in-database
// increment so concurrent joins never lose updates.
func (s *Service) JoinRoom(ctx context.Context, roomID RoomID) error {
	result := s.db.WithContext(ctx).Model(&Room{}).
		Where("room_id = ?", roomID.String()).
		UpdateColumn("member_count", gorm.Expr("member_count + ?", 1))
	if result.Error != nil {
		s.logError(opJoinRoom, "update_failed", result.Error, zap.String("room_id", roomID.String()))
		return newServiceError(opJoinRoom, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	s.publish(live.TopicRooms, live.ActionModified, roomID.String())
	return nil
}

// SendMessage validates and stores a message. The creation timestamp
// comes from the service clock at write time; the caller never
// supplies one.
func (s *Service) SendMessage(ctx context.Context, roomID RoomID, author Author, rawBody string) (Message, error) {
	body, err := validateBody(rawBody)
	if err != nil {
		return Message{}, err
	}
	if author.UserID == "" {
		return Message{}, ErrMissingAuthor
	}

	var room Room
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID.String()).Take(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Message{}, ErrRoomNotFound
		}
		s.logError(opSendMessage, "room_select_failed", err, zap.String("room_id", roomID.String()))
		return Message{}, newServiceError(opSendMessage, "room_select_failed", err)
	}

	messageID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSendMessage, "id_generation_failed", err)
		return Message{}, newServiceError(opSendMessage, "id_generation_failed", err)
	}

	message := Message{
		MessageID:        messageID,
		RoomID:           roomID.String(),
		AuthorID:         author.UserID,
		AuthorName:       author.DisplayName,
		AuthorInitials:   author.Initials,
		Body:             body,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		s.logError(opSendMessage, "insert_failed", err, zap.String("room_id", roomID.String()))
		return Message{}, newServiceError(opSendMessage, "insert_failed", err)
	}

	s.publish(live.RoomMessagesTopic(roomID.String()), live.ActionAdded, message.MessageID)
	return message, nil
}

// ListMessages returns a room's messages ordered by ascending creation
// time. Timestamps are second-granular, so the message identifier
// breaks ties to keep the order stable.
func (s *Service) ListMessages(ctx context.Context, roomID RoomID) ([]Message, error) {
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID.String()).
		Order("created_at_s ASC, message_id ASC").
		Find(&messages).Error; err != nil {
		s.logError(opListMessages, "query_failed", err, zap.String("room_id", roomID.String()))
		return nil, newServiceError(opListMessages, "query_failed", err)
	}
	return messages, nil
}

// EditMessage rewrites a message body. Only the recorded author may
// edit; the edited flag is set permanently.
func (s *Service) EditMessage(ctx context.Context, messageID MessageID, editorID string, rawBody string) (Message, error) {
	body, err := validateBody(rawBody)
	if err != nil {
		return Message{}, err
	}

	var message Message
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", messageID.String()).Take(&message).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return newServiceError(opEditMessage, "select_failed", err)
		}
		if message.AuthorID != editorID {
			return ErrNotOwner
		}
		message.Body = body
		message.Edited = true
		if err := tx.Save(&message).Error; err != nil {
			return newServiceError(opEditMessage, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrMessageNotFound) && !errors.Is(txErr, ErrNotOwner) {
			s.logError(opEditMessage, "transaction_failed", txErr, zap.String("message_id", messageID.String()))
		}
		return Message{}, txErr
	}

	s.publish(live.RoomMessagesTopic(message.RoomID), live.ActionModified, message.MessageID)
	return message, nil
}

// DeleteMessage removes a message. Only the recorded author may delete.
func (s *Service) DeleteMessage(ctx context.Context, messageID MessageID, requesterID string) error {
	var message Message
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", messageID.String()).Take(&message).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return newServiceError(opDelMessage, "select_failed", err)
		}
		if message.AuthorID != requesterID {
			return ErrNotOwner
		}
		if err := tx.Delete(&Message{}, "message_id = ?", messageID.String()).Error; err != nil {
			return newServiceError(opDelMessage, "delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrMessageNotFound) && !errors.Is(txErr, ErrNotOwner) {
			s.logError(opDelMessage, "transaction_failed", txErr, zap.String("message_id", messageID.String()))
		}
		return txErr
	}

	s.publish(live.RoomMessagesTopic(message.RoomID), live.ActionRemoved, message.MessageID)
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

func validateRoomName(rawName string) (string, error) {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return "", ErrEmptyRoomName
	}
	if len(name) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRoomID, maxIdentifierLength)
	}
	return name, nil
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
	s.logger.Error("chat service error", attrs...)
}
