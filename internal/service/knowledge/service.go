package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/model/knowledge"
)

var (
	ErrDocumentInvalid  = errors.New("document name and content are required")
	ErrDocumentNotFound = errors.New("document not found")
)

// snapshotName keys the serialized document collection in the store.
const snapshotName = "documents"

// Snapshots persists the serialized collection across restarts.
type Snapshots interface {
	ReadSnapshot(ctx context.Context, name string) (string, error)
	WriteSnapshot(ctx context.Context, name, body string) error
}

// Service owns the knowledge document collection, newest-first.
type Service struct {
	mu        sync.RWMutex
	documents []*knowledge.Document
	index     map[string]*knowledge.Document

	snapshots Snapshots
	log       *zap.Logger
}

// NewService builds the service and restores the collection from the
// snapshot store when one is present.
func NewService(ctx context.Context, snapshots Snapshots, log *zap.Logger) *Service {
	s := &Service{
		index:     make(map[string]*knowledge.Document),
		snapshots: snapshots,
		log:       log,
	}
	s.restore(ctx)
	return s
}

// Add stores a document. The name is trimmed before storing; a name or
// content that trims to empty rejects the upload without touching the
// collection.
func (s *Service) Add(ctx context.Context, name, content string) (knowledge.Document, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" || strings.TrimSpace(content) == "" {
		return knowledge.Document{}, ErrDocumentInvalid
	}

	doc := &knowledge.Document{
		ID:         uuid.NewString(),
		Name:       trimmedName,
		Content:    content,
		Size:       len(content),
		SizeLabel:  knowledge.FormatSize(len(content)),
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = append([]*knowledge.Document{doc}, s.documents...)
	s.index[doc.ID] = doc
	s.persistLocked(ctx)

	return *doc, nil
}

// List returns document copies newest-first.
func (s *Service) List(_ context.Context) []knowledge.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]knowledge.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, *doc)
	}
	return docs
}

// Count reports the corpus size.
func (s *Service) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Get retrieves a document copy by identifier.
func (s *Service) Get(_ context.Context, documentID string) (knowledge.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.index[documentID]
	if !ok {
		return knowledge.Document{}, ErrDocumentNotFound
	}
	return *doc, nil
}

// Remove deletes the document with the given id. Removing an absent id is
// a no-op.
func (s *Service) Remove(ctx context.Context, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[documentID]; !ok {
		return
	}
	delete(s.index, documentID)

	next := make([]*knowledge.Document, 0, len(s.documents)-1)
	for _, doc := range s.documents {
		if doc.ID != documentID {
			next = append(next, doc)
		}
	}
	s.documents = next
	s.persistLocked(ctx)
}

// restore loads the collection from the snapshot store. Unreadable or
// undecodable snapshots leave the service empty rather than failing boot.
func (s *Service) restore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	body, err := s.snapshots.ReadSnapshot(ctx, snapshotName)
	if err != nil {
		s.log.Warn("failed to read documents snapshot", zap.Error(err))
		return
	}
	if body == "" {
		return
	}

	var documents []*knowledge.Document
	if err := json.Unmarshal([]byte(body), &documents); err != nil {
		s.log.Warn("failed to decode documents snapshot", zap.Error(err))
		return
	}

	s.documents = documents
	for _, doc := range documents {
		s.index[doc.ID] = doc
	}
	s.log.Info("restored documents from snapshot", zap.Int("count", len(documents)))
}

// persistLocked writes the full collection snapshot. Callers hold s.mu.
func (s *Service) persistLocked(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	body, err := json.Marshal(s.documents)
	if err != nil {
		s.log.Error("failed to encode documents snapshot", zap.Error(err))
		return
	}
	if err := s.snapshots.WriteSnapshot(ctx, snapshotName, string(body)); err != nil {
		s.log.Error("failed to write documents snapshot", zap.Error(err))
	}
}
