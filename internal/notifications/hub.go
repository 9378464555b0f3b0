// Package notifications provides the realtime event hub for the site:
// comment, rating and follow activity fans out to connected browsers here.
package notifications

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per account
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Topic names a fan-out scope. Every client is implicitly subscribed to
// TopicGlobal; narrower topics are opt-in via Subscribe.
type Topic string

// TopicGlobal reaches every connected client.
const TopicGlobal Topic = "global"

// StoryTopic scopes events to one story's readers.
func StoryTopic(id string) Topic { return Topic("story:" + id) }

// UserTopic scopes events to one account's connections.
func UserTopic(username string) Topic { return Topic("user:" + username) }

// Hub tracks websocket clients and their topic subscriptions.
type Hub struct {
	mu         sync.RWMutex
	perUser    map[string]int
	topics     map[Topic]map[*Client]struct{}
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		perUser:  make(map[string]int),
		topics:   make(map[Topic]map[*Client]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "event hub" }

// Register adds a connection for the given username. The client starts
// subscribed to TopicGlobal and its per-account user topic.
func (h *Hub) Register(username string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	if h.perUser[username] >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, username)
	h.perUser[username]++
	h.totalConns++
	h.subscribeLocked(TopicGlobal, client)
	h.subscribeLocked(UserTopic(username), client)

	observability.ActiveWebSockets.Inc()
	return client, nil
}

// Subscribe adds the client to a topic.
func (h *Hub) Subscribe(topic Topic, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(topic, client)
}

func (h *Hub) subscribeLocked(topic Topic, client *Client) {
	m, ok := h.topics[topic]
	if !ok {
		m = make(map[*Client]struct{})
		h.topics[topic] = m
	}
	m[client] = struct{}{}
}

// Unsubscribe removes the client from a topic.
func (h *Hub) Unsubscribe(topic Topic, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopicLocked(topic, client)
}

func (h *Hub) removeFromTopicLocked(topic Topic, client *Client) {
	if m, ok := h.topics[topic]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			if len(m) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}

// UnregisterClient drops the client from every topic it joined.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := false
	for topic, m := range h.topics {
		if _, ok := m[client]; ok {
			removed = true
			delete(m, client)
			if len(m) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	if removed {
		h.totalConns--
		h.perUser[client.Username]--
		if h.perUser[client.Username] <= 0 {
			delete(h.perUser, client.Username)
		}
		observability.ActiveWebSockets.Dec()
	}
}

// Publish delivers message to every client subscribed to topic on this
// process. Cross-process delivery goes through the Notifier.
func (h *Hub) Publish(topic Topic, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		c.TrySend(message)
	}
}

// BroadcastAll sends message to every connected websocket client.
func (h *Hub) BroadcastAll(message []byte) {
	h.Publish(TopicGlobal, message)
}

// StartWiring connects the Notifier to this hub: it subscribes to the Redis
// event pattern and forwards each payload to the matching topic's clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(channel, payload string) {
		topic, ok := strings.CutPrefix(channel, eventChannelPrefix)
		if !ok {
			log.Printf("invalid event channel: %s", channel)
			return
		}
		h.Publish(Topic(topic), []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	h.mu.Lock()
	seen := make(map[*Client]struct{})
	for _, m := range h.topics {
		for client := range m {
			if _, dup := seen[client]; dup {
				continue
			}
			seen[client] = struct{}{}
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for %s: %v", client.Username, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for %s: %v", client.Username, err)
			}
		}
	}
	h.topics = make(map[Topic]map[*Client]struct{})
	h.perUser = make(map[string]int)
	h.totalConns = 0
	h.mu.Unlock()

	close(h.done)
	return nil
}
