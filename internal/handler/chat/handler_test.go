package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/metrics"
	chatModel "github.com/nwestfall/scribe/backend/internal/model/chat"
	"github.com/nwestfall/scribe/backend/internal/model/knowledge"
	"github.com/nwestfall/scribe/backend/internal/service/agent"
	chatService "github.com/nwestfall/scribe/backend/internal/service/chat"
	knowledgeService "github.com/nwestfall/scribe/backend/internal/service/knowledge"
)

type stubSender struct {
	reply    agent.Reply
	err      error
	lastText string
	lastDocs []knowledge.Document
}

func (s *stubSender) SendMessage(_ context.Context, _ string, text string, docs []knowledge.Document) (agent.Reply, error) {
	s.lastText = text
	s.lastDocs = docs
	if s.err != nil {
		return agent.Reply{}, s.err
	}
	return s.reply, nil
}

func setupRouter(sender TurnSender) (*chi.Mux, *chatService.Service, *knowledgeService.Service) {
	ctx := context.Background()
	chatSvc := chatService.NewService(ctx, nil, zap.NewNop())
	knowledgeSvc := knowledgeService.NewService(ctx, nil, zap.NewNop())
	handler := New(chatSvc, knowledgeSvc, sender, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc, knowledgeSvc
}

func sendTurn(r *chi.Mux, conversationID, content string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(map[string]string{"content": content})

	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conversationID+"/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateConversation(t *testing.T) {
	r, _, _ := setupRouter(&stubSender{})

	req := httptest.NewRequest(http.MethodPost, "/conversations", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var conv chatModel.Conversation
	if err := json.Unmarshal(resp.Body.Bytes(), &conv); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("expected a conversation id")
	}
	if conv.Title != chatModel.DefaultTitle {
		t.Fatalf("expected title %q, got %q", chatModel.DefaultTitle, conv.Title)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Role != chatModel.RoleAssistant {
		t.Fatalf("expected a single assistant greeting, got %+v", conv.Messages)
	}
}

func TestListConversationsReportsActive(t *testing.T) {
	r, chatSvc, _ := setupRouter(&stubSender{})

	ctx := context.Background()
	chatSvc.Create(ctx)
	second := chatSvc.Create(ctx)

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Conversations []chatModel.Summary `json:"conversations"`
		ActiveID      string              `json:"activeId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(body.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(body.Conversations))
	}
	if body.Conversations[0].ID != second.ID {
		t.Fatal("expected the newest conversation first")
	}
	if body.ActiveID != second.ID {
		t.Fatalf("expected active id %q, got %q", second.ID, body.ActiveID)
	}
}

func TestGetConversationMissing(t *testing.T) {
	r, _, _ := setupRouter(&stubSender{})

	req := httptest.NewRequest(http.MethodGet, "/conversations/missing", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSelectConversation(t *testing.T) {
	r, chatSvc, _ := setupRouter(&stubSender{})

	ctx := context.Background()
	first := chatSvc.Create(ctx)
	chatSvc.Create(ctx)

	req := httptest.NewRequest(http.MethodPost, "/conversations/"+first.ID+"/select", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if id := chatSvc.ActiveID(); id != first.ID {
		t.Fatalf("expected active id %q, got %q", first.ID, id)
	}
}

func TestSelectConversationMissing(t *testing.T) {
	r, _, _ := setupRouter(&stubSender{})

	req := httptest.NewRequest(http.MethodPost, "/conversations/missing/select", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessageAppendsTurn(t *testing.T) {
	sender := &stubSender{reply: agent.Reply{Text: "the capital is Paris", Source: agent.SourceResult}}
	r, chatSvc, _ := setupRouter(sender)

	conv := chatSvc.Create(context.Background())
	resp := sendTurn(r, conv.ID, "What is the capital of France?")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var updated chatModel.Conversation
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(updated.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(updated.Messages))
	}
	if updated.Messages[1].Role != chatModel.RoleUser || updated.Messages[1].Content != "What is the capital of France?" {
		t.Fatalf("unexpected user message %+v", updated.Messages[1])
	}
	if updated.Messages[2].Role != chatModel.RoleAssistant || updated.Messages[2].Content != "the capital is Paris" {
		t.Fatalf("unexpected assistant message %+v", updated.Messages[2])
	}
	if updated.Title != "What is the capital of France?" {
		t.Fatalf("expected title from first message, got %q", updated.Title)
	}
	if sender.lastText != "What is the capital of France?" {
		t.Fatalf("expected trimmed text forwarded, got %q", sender.lastText)
	}
}

func TestSendMessageForwardsKnowledge(t *testing.T) {
	sender := &stubSender{reply: agent.Reply{Text: "ok", Source: agent.SourcePlain}}
	r, chatSvc, knowledgeSvc := setupRouter(sender)

	ctx := context.Background()
	conv := chatSvc.Create(ctx)
	if _, err := knowledgeSvc.Add(ctx, "a.txt", "alpha"); err != nil {
		t.Fatalf("add document: %v", err)
	}
	if _, err := knowledgeSvc.Add(ctx, "b.txt", "beta"); err != nil {
		t.Fatalf("add document: %v", err)
	}

	resp := sendTurn(r, conv.ID, "hello")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(sender.lastDocs) != 2 {
		t.Fatalf("expected 2 documents forwarded, got %d", len(sender.lastDocs))
	}
}

func TestSendMessageAgentFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	r, chatSvc, _ := setupRouter(sender)

	conv := chatSvc.Create(context.Background())
	resp := sendTurn(r, conv.ID, "hello")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var updated chatModel.Conversation
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(updated.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(updated.Messages))
	}
	last := updated.Messages[2]
	if last.Role != chatModel.RoleAssistant || last.Content != errorReply {
		t.Fatalf("expected apology message, got %+v", last)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	r, chatSvc, _ := setupRouter(&stubSender{})

	conv := chatSvc.Create(context.Background())
	resp := sendTurn(r, conv.ID, "   ")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	got, err := chatSvc.Get(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected conversation untouched, got %d messages", len(got.Messages))
	}
}

func TestSendMessageInvalidBody(t *testing.T) {
	r, chatSvc, _ := setupRouter(&stubSender{})

	conv := chatSvc.Create(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/messages", strings.NewReader("not json"))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageMissingConversation(t *testing.T) {
	r, _, _ := setupRouter(&stubSender{})

	resp := sendTurn(r, "missing", "hello")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessageWhileTurnInFlight(t *testing.T) {
	r, chatSvc, _ := setupRouter(&stubSender{})

	conv := chatSvc.Create(context.Background())
	if err := chatSvc.BeginTurn(conv.ID); err != nil {
		t.Fatalf("begin turn: %v", err)
	}
	defer chatSvc.EndTurn(conv.ID)

	resp := sendTurn(r, conv.ID, "hello")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}
