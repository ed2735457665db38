package agent

import (
	"strings"

	"github.com/nwestfall/scribe/backend/internal/model/knowledge"
)

// Fixed literals framing the knowledge block appended to outbound messages.
const (
	knowledgeHeader   = "\n\n--- Knowledge Base Documents ---\n"
	documentDelimiter = "\n---\n"
)

// TurnRequest is the wire payload for one chat turn.
type TurnRequest struct {
	Message   string `json:"message"`
	AgentID   string `json:"agent_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// BuildMessage concatenates the user's text with the name and full content
// of every stored document. No truncation, deduplication, or relevance
// filtering is applied; the payload grows with the corpus on every turn.
func BuildMessage(text string, docs []knowledge.Document) string {
	if len(docs) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString(knowledgeHeader)
	for i, doc := range docs {
		if i > 0 {
			b.WriteString(documentDelimiter)
		}
		b.WriteString("Document: ")
		b.WriteString(doc.Name)
		b.WriteString("\n")
		b.WriteString(doc.Content)
	}
	return b.String()
}

// BuildTurnRequest assembles the outbound payload for one turn. The user
// and session identifiers are derived from the conversation id; the agent
// identifier is the configured literal.
func BuildTurnRequest(agentID, conversationID, text string, docs []knowledge.Document) TurnRequest {
	return TurnRequest{
		Message:   BuildMessage(text, docs),
		AgentID:   agentID,
		UserID:    "user-chat-" + conversationID,
		SessionID: "session-" + conversationID,
	}
}
