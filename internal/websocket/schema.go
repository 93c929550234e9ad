package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client message.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventPong     Event = "pong"
	EventMutation Event = "exam_mutation"
	// EventLagged tells a slow client that events were dropped and its view
	// must be reloaded.
	EventLagged Event = "lagged"
)

// MutationMessage announces a committed change to an exam.
type MutationMessage struct {
	Event  Event     `json:"event"`
	ExamID int64     `json:"idExamen"`
	Kind   string    `json:"tipo"`
	At     time.Time `json:"fecha"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type EventResponse struct {
	Event Event `json:"event"`
}
