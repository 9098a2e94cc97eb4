package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/diredev/campushub/internal/live"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamEventDocChange = "doc-change"
	streamEventHeartbeat = "heartbeat"

	streamHeartbeatInterval = 15 * time.Second
	maxStreamTopics         = 16
)

type streamEventPayload struct {
	Topic     string `json:"topic"`
	Action    string `json:"action"`
	DocID     string `json:"doc_id"`
	Timestamp int64  `json:"ts"`
}

// handleLiveStream serves GET /live/stream as Server-Sent Events. The
// caller names the topics to watch via a comma-separated "topics" query
// parameter; every published change on those topics becomes one
// doc-change frame. Heartbeat frames keep intermediaries from closing
// idle connections.
func (h *httpHandler) handleLiveStream(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}

	topics := splitStreamTopics(c.Query("topics"))
	if len(topics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_topics"})
		return
	}
	if len(topics) > maxStreamTopics {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too_many_topics"})
		return
	}

	ctx := c.Request.Context()
	merged := make(chan live.Event, 32)
	for _, topic := range topics {
		events, cancel := h.streams.Subscribe(ctx, topic)
		defer cancel()
		go func(source <-chan live.Event) {
			for {
				select {
				case <-ctx.Done():
					return
				case event, open := <-source:
					if !open {
						return
					}
					select {
					case merged <- event:
					case <-ctx.Done():
						return
					}
				}
			}
		}(events)
	}

	writer := c.Writer
	writer.Header().Set("Content-Type", "text/event-stream")
	writer.Header().Set("Cache-Control", "no-cache")
	writer.Header().Set("Connection", "keep-alive")
	writer.WriteHeader(http.StatusOK)
	writer.Flush()

	h.logger.Info("live stream opened",
		zap.String("user_id", session.UserID),
		zap.Strings("topics", topics))

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("live stream closed", zap.String("user_id", session.UserID))
			return
		case <-heartbeat.C:
			fmt.Fprintf(writer, "event: %s\ndata: {}\n\n", streamEventHeartbeat)
			writer.Flush()
		case event := <-merged:
			frame, err := json.Marshal(streamEventPayload{
				Topic:     event.Topic,
				Action:    string(event.Action),
				DocID:     event.DocID,
				Timestamp: event.Timestamp.UTC().Unix(),
			})
			if err != nil {
				h.logger.Error("stream frame encode failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(writer, "event: %s\ndata: %s\n\n", streamEventDocChange, frame)
			writer.Flush()
		}
	}
}

func splitStreamTopics(rawTopics string) []string {
	parts := strings.Split(rawTopics, ",")
	topics := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		topic := strings.TrimSpace(part)
		if topic == "" {
			continue
		}
		if _, duplicate := seen[topic]; duplicate {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	return topics
}
