package chat

import "time"

// Message roles; fixed at creation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single immutable entry in a conversation thread.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
