package chat

import "time"

// DefaultTitle is the placeholder title a conversation carries until the
// first user message names it.
const DefaultTitle = "New Conversation"

// titleLimit caps derived titles at the first 50 characters of the message.
const titleLimit = 50

// Conversation captures one chat thread and its full message history.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Untitled  bool      `json:"untitled"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// Summary is the sidebar projection of a conversation.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
}

// Summary projects the conversation for list views.
func (c Conversation) Summary() Summary {
	return Summary{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		MessageCount: len(c.Messages),
	}
}

// TitleFromMessage derives a conversation title from the first user message.
// Truncation counts runes so multi-byte text never splits mid-character.
func TitleFromMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit])
}
