package realtime

import (
	"encoding/json"
)

// Event names carried in the "event" field of a frame.
const (
	EventAddUser     = "addUser"
	EventSendMessage = "sendMessage"
	EventGetMessage  = "getMessage"
	EventError       = "error"
)

// Event is the JSON frame exchanged in both directions.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IncomingMessage is the payload of a client sendMessage frame.
type IncomingMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// DeliveredMessage is the payload of a server getMessage frame.
type DeliveredMessage struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals data and wraps it in an event frame.
func Encode(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Data: raw})
}
