package groups

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	groups   map[string]Group
	messages map[string][]Message
}

// NewMemoryRepository builds an in-memory group store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		groups:   make(map[string]Group),
		messages: make(map[string][]Message),
	}
}

func (r *memoryRepository) Create(_ context.Context, group Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group.Participants = append([]string(nil), group.Participants...)
	r.groups[group.ID] = group
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.groups[id]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	group.Participants = append([]string(nil), group.Participants...)
	return group, nil
}

func (r *memoryRepository) AddMessage(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[msg.GroupID]; !ok {
		return ErrGroupNotFound
	}
	r.messages[msg.GroupID] = append(r.messages[msg.GroupID], msg)
	return nil
}

func (r *memoryRepository) Messages(_ context.Context, groupID string) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message{}, r.messages[groupID]...), nil
}
