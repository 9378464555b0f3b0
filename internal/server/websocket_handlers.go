package server

import (
	"context"
	"encoding/json"
	"log"

	"inkwell/internal/notifications"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebsocketHandler upgrades GET /api/ws and runs the event loop for one
// client. Comment, rating and follow events mutate the store and fan the
// fresh state out to subscribers.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		// Username comes from locals set by AuthRequired.
		usernameVal := conn.Locals("username")
		if usernameVal == nil {
			log.Printf("WebSocket: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage,
				notifications.Message{Event: notifications.EventError, Payload: "unauthorized"}.Encode())
			_ = conn.Close()
			return
		}
		username := usernameVal.(string)

		client, err := s.hub.Register(username, conn)
		if err != nil {
			log.Printf("WebSocket: Failed to register %s: %v", username, err)
			_ = conn.WriteMessage(websocket.TextMessage,
				notifications.Message{Event: notifications.EventError, Payload: err.Error()}.Encode())
			_ = conn.Close()
			return
		}

		client.IncomingHandler = s.handleClientEvent

		// Start write pump in a goroutine
		go client.WritePump()

		// Read pump runs in the main handler goroutine (blocking)
		client.ReadPump()
	})
}

// handleClientEvent dispatches one incoming websocket frame.
func (s *Server) handleClientEvent(client *notifications.Client, raw []byte) {
	ctx := context.Background()

	var env notifications.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("WebSocket: Invalid message format from %s", client.Username)
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "invalid message format"}.Encode())
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(env.Event).Inc()
	ctx, span := observability.StartEventSpan(ctx, env.Event, client.Username)
	defer span.End()

	switch env.Event {
	case notifications.EventCommentAdd:
		s.handleCommentAdd(ctx, client, env.Payload)
	case notifications.EventCommentRemove:
		s.handleCommentRemove(ctx, client, env.Payload)
	case notifications.EventCommentFetch:
		s.handleCommentFetch(ctx, client, env.Payload)
	case notifications.EventRatingAdd:
		s.handleRatingAdd(ctx, client, env.Payload)
	case notifications.EventFollow:
		s.handleFollowChange(ctx, client, env.Payload, true)
	case notifications.EventUnfollow:
		s.handleFollowChange(ctx, client, env.Payload, false)
	default:
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "unknown event: " + env.Event}.Encode())
	}
}

type commentPayload struct {
	StoryID  string `json:"story_id"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type ratingPayload struct {
	StoryID  string `json:"story_id"`
	Username string `json:"username"`
	Score    any    `json:"score"`
}

type followPayload struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
}

func (s *Server) handleCommentAdd(ctx context.Context, client *notifications.Client, raw json.RawMessage) {
	var p commentPayload
	storyID, ok := s.decodeStoryPayload(client, raw, &p)
	if !ok {
		return
	}
	if p.Username == "" {
		p.Username = client.Username
	}

	comments, err := s.storyService.AddComment(ctx, storyID, p.Username, p.Text)
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		// A failed add is announced to everyone so stale threads refresh.
		s.broadcast(ctx, notifications.Message{
			Event: notifications.EventError, Payload: "failed to add comment"}.Encode())
		return
	}

	s.broadcast(ctx, notifications.Message{
		Event: notifications.EventComments,
		Payload: fiber.Map{
			"story_id": p.StoryID,
			"comments": comments,
		},
	}.Encode())
	s.broadcast(ctx, notifications.Message{
		Event: notifications.EventSuccess, Payload: "Comment added"}.Encode())
}

func (s *Server) handleCommentRemove(ctx context.Context, client *notifications.Client, raw json.RawMessage) {
	var p commentPayload
	storyID, ok := s.decodeStoryPayload(client, raw, &p)
	if !ok {
		return
	}
	if p.Username == "" {
		p.Username = client.Username
	}

	comments, err := s.storyService.RemoveComment(ctx, storyID, p.Username, p.Text)
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "failed to remove comment"}.Encode())
		return
	}

	s.broadcast(ctx, notifications.Message{
		Event: notifications.EventComments,
		Payload: fiber.Map{
			"story_id": p.StoryID,
			"comments": comments,
		},
	}.Encode())
}

func (s *Server) handleCommentFetch(ctx context.Context, client *notifications.Client, raw json.RawMessage) {
	var p commentPayload
	storyID, ok := s.decodeStoryPayload(client, raw, &p)
	if !ok {
		return
	}

	comments, err := s.storyService.ListComments(ctx, storyID)
	if err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "failed to fetch comments"}.Encode())
		return
	}

	s.broadcast(ctx, notifications.Message{
		Event: notifications.EventComments,
		Payload: fiber.Map{
			"story_id": p.StoryID,
			"comments": comments,
		},
	}.Encode())
}

func (s *Server) handleRatingAdd(ctx context.Context, client *notifications.Client, raw json.RawMessage) {
	var p ratingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "invalid payload"}.Encode())
		return
	}
	storyID, err := primitive.ObjectIDFromHex(p.StoryID)
	if err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "invalid story id"}.Encode())
		return
	}
	if p.Username == "" {
		p.Username = client.Username
	}

	ratings, err := s.storyService.AddRating(ctx, storyID, p.Username, p.Score)
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "failed to add rating"}.Encode())
		return
	}

	// Ratings go back to the originator only; readers see the new average
	// next time they load the story.
	client.TrySend(notifications.Message{
		Event: notifications.EventRatings,
		Payload: fiber.Map{
			"story_id": p.StoryID,
			"ratings":  ratings,
		},
	}.Encode())
	client.TrySend(notifications.Message{
		Event: notifications.EventSuccess, Payload: "Rating saved"}.Encode())
}

func (s *Server) handleFollowChange(ctx context.Context, client *notifications.Client, raw json.RawMessage, follow bool) {
	var p followPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "invalid payload"}.Encode())
		return
	}
	if p.Follower == "" {
		p.Follower = client.Username
	}

	var err error
	if follow {
		err = s.socialService.Follow(ctx, p.Follower, p.Followee)
	} else {
		err = s.socialService.Unfollow(ctx, p.Follower, p.Followee)
	}
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "failed to update follow state"}.Encode())
		return
	}

	projection, err := s.socialService.ProjectSocialLists(ctx, p.Followee)
	if err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "failed to load follow lists"}.Encode())
		return
	}

	s.broadcast(ctx, notifications.Message{
		Event:   notifications.EventSocial,
		Payload: projection,
	}.Encode())
}

// decodeStoryPayload parses a comment-shaped payload and its story id,
// reporting failures to the originator.
func (s *Server) decodeStoryPayload(client *notifications.Client, raw json.RawMessage, p *commentPayload) (primitive.ObjectID, bool) {
	if err := json.Unmarshal(raw, p); err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "invalid payload"}.Encode())
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(p.StoryID)
	if err != nil {
		client.TrySend(notifications.Message{
			Event: notifications.EventError, Payload: "invalid story id"}.Encode())
		return primitive.NilObjectID, false
	}
	return id, true
}

// broadcast fans a frame out to every connected client. With Redis the frame
// travels through the notifier so other instances deliver it too; otherwise
// it goes straight to the local hub.
func (s *Server) broadcast(ctx context.Context, data []byte) {
	if s.notifier.Enabled() {
		if err := s.notifier.Publish(ctx, notifications.TopicGlobal, data); err != nil {
			log.Printf("publish event error: %v, falling back to local delivery", err)
			s.hub.BroadcastAll(data)
		}
		return
	}
	s.hub.BroadcastAll(data)
}
