package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/model/chat"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTurnInFlight         = errors.New("turn already in flight")
)

// snapshotName keys the serialized conversation collection in the store.
const snapshotName = "conversations"

// greeting seeds every new conversation with one assistant message.
const greeting = "Hello! How can I help you today?"

// Snapshots persists the serialized collection across restarts.
type Snapshots interface {
	ReadSnapshot(ctx context.Context, name string) (string, error)
	WriteSnapshot(ctx context.Context, name, body string) error
}

// Service owns the conversation collection: newest-first ordering, the
// active conversation id, and the in-flight turn guard.
type Service struct {
	mu            sync.RWMutex
	conversations []*chat.Conversation
	index         map[string]*chat.Conversation
	inflight      map[string]struct{}
	activeID      string

	snapshots Snapshots
	log       *zap.Logger
}

// NewService builds the service and restores the collection from the
// snapshot store when one is present.
func NewService(ctx context.Context, snapshots Snapshots, log *zap.Logger) *Service {
	s := &Service{
		index:     make(map[string]*chat.Conversation),
		inflight:  make(map[string]struct{}),
		snapshots: snapshots,
		log:       log,
	}
	s.restore(ctx)
	return s
}

// Create provisions a conversation seeded with the assistant greeting,
// prepends it to the collection, and makes it active.
func (s *Service) Create(ctx context.Context) chat.Conversation {
	now := time.Now().UTC()
	conv := &chat.Conversation{
		ID:        uuid.NewString(),
		Title:     chat.DefaultTitle,
		Untitled:  true,
		CreatedAt: now,
		Messages: []chat.Message{{
			ID:        uuid.NewString(),
			Role:      chat.RoleAssistant,
			Content:   greeting,
			CreatedAt: now,
		}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = append([]*chat.Conversation{conv}, s.conversations...)
	s.index[conv.ID] = conv
	s.activeID = conv.ID
	s.persistLocked(ctx)

	return cloneConversation(conv)
}

// List returns conversation summaries newest-first along with the active id.
func (s *Service) List(_ context.Context) ([]chat.Summary, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]chat.Summary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		summaries = append(summaries, conv.Summary())
	}
	return summaries, s.activeID
}

// Get retrieves a conversation copy by identifier.
func (s *Service) Get(_ context.Context, conversationID string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.index[conversationID]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

// Select makes the conversation active and returns it. A miss leaves every
// piece of state untouched.
func (s *Service) Select(_ context.Context, conversationID string) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.index[conversationID]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}
	s.activeID = conversationID
	return cloneConversation(conv), nil
}

// ActiveID reports the currently active conversation id, empty when none.
func (s *Service) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// AppendTurn appends a user message and its assistant reply (or error
// placeholder) as one atomic unit and persists the collection. The first
// user message of an untitled conversation also names it.
func (s *Service) AppendTurn(ctx context.Context, conversationID, userText, assistantText string) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.index[conversationID]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}

	if conv.Untitled {
		conv.Title = chat.TitleFromMessage(userText)
		conv.Untitled = false
	}

	now := time.Now().UTC()
	conv.Messages = append(conv.Messages,
		chat.Message{ID: uuid.NewString(), Role: chat.RoleUser, Content: userText, CreatedAt: now},
		chat.Message{ID: uuid.NewString(), Role: chat.RoleAssistant, Content: assistantText, CreatedAt: now},
	)

	s.persistLocked(ctx)
	return cloneConversation(conv), nil
}

// BeginTurn reserves the single in-flight turn slot for the conversation.
func (s *Service) BeginTurn(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[conversationID]; !ok {
		return ErrConversationNotFound
	}
	if _, ok := s.inflight[conversationID]; ok {
		return ErrTurnInFlight
	}
	s.inflight[conversationID] = struct{}{}
	return nil
}

// EndTurn releases the in-flight turn slot.
func (s *Service) EndTurn(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, conversationID)
}

// restore loads the collection from the snapshot store. Unreadable or
// undecodable snapshots leave the service empty rather than failing boot.
func (s *Service) restore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	body, err := s.snapshots.ReadSnapshot(ctx, snapshotName)
	if err != nil {
		s.log.Warn("failed to read conversations snapshot", zap.Error(err))
		return
	}
	if body == "" {
		return
	}

	var conversations []*chat.Conversation
	if err := json.Unmarshal([]byte(body), &conversations); err != nil {
		s.log.Warn("failed to decode conversations snapshot", zap.Error(err))
		return
	}

	s.conversations = conversations
	for _, conv := range conversations {
		s.index[conv.ID] = conv
	}
	s.log.Info("restored conversations from snapshot", zap.Int("count", len(conversations)))
}

// persistLocked writes the full collection snapshot. Callers hold s.mu.
func (s *Service) persistLocked(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	body, err := json.Marshal(s.conversations)
	if err != nil {
		s.log.Error("failed to encode conversations snapshot", zap.Error(err))
		return
	}
	if err := s.snapshots.WriteSnapshot(ctx, snapshotName, string(body)); err != nil {
		s.log.Error("failed to write conversations snapshot", zap.Error(err))
	}
}

func cloneConversation(conv *chat.Conversation) chat.Conversation {
	copied := *conv
	copied.Messages = make([]chat.Message, len(conv.Messages))
	copy(copied.Messages, conv.Messages)
	return copied
}
