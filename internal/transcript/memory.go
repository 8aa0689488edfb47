package transcript

import (
	"context"
	"sort"
	"sync"

	"github.com/xperiencelabs/archat/internal/interfaces"
)

type memoryConversation struct {
	meta     interfaces.Conversation
	messages []interfaces.ChatMessage
}

// MemoryStore keeps transcripts for the lifetime of the process
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*memoryConversation
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*memoryConversation)}
}

func (s *MemoryStore) conversation(id string, msg interfaces.ChatMessage) *memoryConversation {
	conv, ok := s.conversations[id]
	if !ok {
		conv = &memoryConversation{meta: interfaces.Conversation{ID: id, StartedAt: msg.Timestamp}}
		s.conversations[id] = conv
	}
	return conv
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, msg interfaces.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.Timestamp = stamp(msg)
	conv := s.conversation(conversationID, msg)
	if conv.meta.StartedAt.IsZero() {
		conv.meta.StartedAt = msg.Timestamp
	}
	conv.messages = append(conv.messages, msg)
	conv.meta.MessageCount = len(conv.messages)
	conv.meta.UpdatedAt = msg.Timestamp
	return nil
}

func (s *MemoryStore) BindSession(_ context.Context, conversationID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversation(conversationID, interfaces.ChatMessage{}).meta.SessionID = sessionID
	return nil
}

func (s *MemoryStore) Load(_ context.Context, conversationID string) ([]interfaces.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, notFound(conversationID)
	}
	out := make([]interfaces.ChatMessage, len(conv.messages))
	copy(out, conv.messages)
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]interfaces.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]interfaces.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.meta)
	}
	sortConversations(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sortConversations orders by most recent activity, then by id for stability
func sortConversations(convs []interfaces.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
		}
		return convs[i].ID < convs[j].ID
	})
}
