package notifications

import "encoding/json"

// Client-to-server event names carried in the websocket envelope.
const (
	EventCommentAdd    = "comment:add"
	EventCommentRemove = "comment:remove"
	EventCommentFetch  = "comment:fetch"
	EventRatingAdd     = "rating:add"
	EventFollow        = "follow"
	EventUnfollow      = "unfollow"
)

// Server-to-client event names.
const (
	EventComments = "comments"
	EventRatings  = "ratings"
	EventSocial   = "social"
	EventError    = "error"
	EventSuccess  = "success"
)

// Envelope is the wire frame for incoming events: the event name plus a
// payload left raw until the handler knows its shape.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Message is an outgoing frame. Payload is marshalled as-is.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Encode marshals m for the wire. Errors are not expected for the payload
// types in use; a failure yields an error frame instead.
func (m Message) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return []byte(`{"event":"error","payload":"encoding failure"}`)
	}
	return data
}
