package models

// ChatMessage is a relayed victim/responder message as stored in the
// bounded Redis history for a room.
type ChatMessage struct {
	ID        string `json:"id"` // ULID
	AlertID   string `json:"alert_id"`
	SenderID  string `json:"sender_id"`
	Role      Role   `json:"role"`
	Body      string `json:"body"`
	Timestamp int64  `json:"ts"` // Unix ms
}
